package ingest

import (
	"context"

	"catalog-ingest/internal/domain"
	ingest_uc "catalog-ingest/internal/usecase/ingest"
)

type ingestUsecase interface {
	OpenSession(ctx context.Context, data []byte, aspectName string) (ingest_uc.SessionInfo, error)
	ApplyViewportEvent(ctx context.Context, sessionID string, ev ingest_uc.ViewportEvent) (domain.CropRegion, error)
	ConfirmMain(ctx context.Context, sessionID string, opts domain.StageOptions) (ingest_uc.ConfirmResult, error)
	ConfirmGallery(ctx context.Context, sessionID string, opts domain.StageOptions) (ingest_uc.ConfirmResult, error)
	CancelSession(ctx context.Context, sessionID string) error
	SlotStatus(ctx context.Context, slotID string) (*domain.ImageSlot, error)
	AnalyzeImage(ctx context.Context, data []byte) (domain.ExtractedMetadata, error)
}
