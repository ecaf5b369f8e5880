package catalog

import (
	"context"

	"catalog-ingest/internal/domain"
)

type catalogStore interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	CreateBlog(ctx context.Context, b *domain.Blog) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type slotReader interface {
	Get(ctx context.Context, id string) (*domain.ImageSlot, error)
}
