package catalog

import "errors"

var (
	// ErrMainSlotNotReady means the gating image has not finished the pipeline.
	ErrMainSlotNotReady = errors.New("main image slot is not uploaded")
	ErrSlotNotFound     = errors.New("image slot not found")
)
