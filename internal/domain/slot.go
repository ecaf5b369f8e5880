package domain

import "time"

// SlotKind distinguishes the single gating image from the gallery extras.
type SlotKind string

const (
	SlotMain    SlotKind = "main"
	SlotGallery SlotKind = "gallery"
)

// SlotState is the pipeline position of an image slot.
type SlotState string

const (
	SlotSelected           SlotState = "selected"
	SlotCropping           SlotState = "cropping"
	SlotCropped            SlotState = "cropped"
	SlotRemovingBackground SlotState = "removing_background"
	SlotWatermarking       SlotState = "watermarking"
	SlotUploading          SlotState = "uploading"
	SlotUploaded           SlotState = "uploaded"
	SlotFailed             SlotState = "failed"
)

// Terminal reports whether the slot can no longer transition.
func (s SlotState) Terminal() bool {
	return s == SlotUploaded || s == SlotFailed
}

// Stage names the pipeline step attached to a failure.
type Stage string

const (
	StageCrop             Stage = "crop"
	StageRemoveBackground Stage = "remove_background"
	StageWatermark        Stage = "watermark"
	StageEncode           Stage = "encode"
	StageUpload           Stage = "upload"
	StageAnalyze          Stage = "analyze"
)

// ImageSlot tracks one image through the pipeline. Gallery slots are advanced
// by the worker; the main slot inline in the confirm request.
type ImageSlot struct {
	ID          string    `bson:"_id" json:"id"`
	SessionID   string    `bson:"session_id" json:"session_id"`
	Kind        SlotKind  `bson:"kind" json:"kind"`
	State       SlotState `bson:"state" json:"state"`
	StagingPath string    `bson:"staging_path,omitempty" json:"-"`
	URL         string    `bson:"url,omitempty" json:"url,omitempty"`
	FailedStage Stage     `bson:"failed_stage,omitempty" json:"failed_stage,omitempty"`
	Error       string    `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// IngestTask is the queue payload for one staged gallery raster.
type IngestTask struct {
	ID          string       `json:"id"`
	SlotID      string       `json:"slot_id"`
	StagingPath string       `json:"staging_path"`
	ContentType string       `json:"content_type"`
	Options     StageOptions `json:"options"`
}
