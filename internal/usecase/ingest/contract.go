package ingest

import (
	"context"
	"image"

	"github.com/wb-go/wbf/retry"

	"catalog-ingest/internal/domain"
)

type assetStore interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (domain.UploadedAsset, error)
	Stage(ctx context.Context, data []byte, contentType string) (string, error)
	GetStaged(ctx context.Context, key string) ([]byte, error)
	RemoveStaged(ctx context.Context, key string) error
}

type slotStore interface {
	Create(ctx context.Context, slot *domain.ImageSlot) error
	Get(ctx context.Context, id string) (*domain.ImageSlot, error)
	SetState(ctx context.Context, id string, state domain.SlotState) error
	SetUploaded(ctx context.Context, id, url string) error
	SetFailed(ctx context.Context, id string, stage domain.Stage, cause error) error
}

type categoryLister interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type backgroundRemover interface {
	Remove(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

type watermarker interface {
	Apply(img image.Image, spec domain.WatermarkSpec) (*image.NRGBA, error)
}

type metadataExtractor interface {
	Extract(ctx context.Context, imageData []byte, categories []domain.Category) (domain.ExtractedMetadata, error)
}

type taskProducer interface {
	SendTask(ctx context.Context, strategy retry.Strategy, key, value []byte) error
}
