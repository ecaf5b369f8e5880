package ingest

import "errors"

var (
	ErrSessionNotFound = errors.New("crop session not found")
	ErrSlotNotFound    = errors.New("image slot not found")
	ErrBadEvent        = errors.New("unknown viewport event")
)
