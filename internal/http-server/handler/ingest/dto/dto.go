package dto

import (
	"time"

	"catalog-ingest/internal/domain"
)

type SessionResponse struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Aspect string `json:"aspect"`
}

type ViewportRequest struct {
	Action string  `json:"action" validate:"required"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Zoom   float64 `json:"zoom,omitempty"`
	Aspect string  `json:"aspect,omitempty"`
}

type RegionResponse struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Zoom   float64 `json:"zoom"`
	Aspect string  `json:"aspect"`
}

type ConfirmRequest struct {
	Slot             string `json:"slot" validate:"required,oneof=main gallery"`
	RemoveBackground bool   `json:"remove_background"`
	Watermark        bool   `json:"watermark"`
	AutoFill         bool   `json:"auto_fill"`
	WatermarkText    string `json:"watermark_text,omitempty"`
	Folder           string `json:"folder,omitempty" validate:"omitempty,oneof=products blogs"`
}

type ConfirmResponse struct {
	SlotID   string                    `json:"slot_id"`
	State    string                    `json:"state"`
	URL      string                    `json:"url,omitempty"`
	Metadata *domain.ExtractedMetadata `json:"metadata,omitempty"`
}

type SlotResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	State       string    `json:"state"`
	URL         string    `json:"url,omitempty"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
