package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode means the input bytes are not a decodable raster.
	ErrDecode = errors.New("image decode failed")
	// ErrCanvasUnavailable means the drawing surface could not be prepared.
	ErrCanvasUnavailable = errors.New("canvas unavailable")
	// ErrResourceExhausted means the host ran out of memory during inference.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrUnsupportedDevice means the host cannot run the matting model at all.
	ErrUnsupportedDevice = errors.New("unsupported device")
	// ErrUpload means the asset could not be stored after retries.
	ErrUpload = errors.New("asset upload failed")
	// ErrMetadataParse means the vision model returned unusable output.
	ErrMetadataParse = errors.New("metadata parse failed")
)

// StageError ties a pipeline failure to the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailStage wraps err with its originating stage.
func FailStage(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf extracts the failing stage from an error chain, if present.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
