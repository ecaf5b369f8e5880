package catalog

import (
	"context"

	"catalog-ingest/internal/domain"
	catalog_uc "catalog-ingest/internal/usecase/catalog"
)

type catalogUsecase interface {
	CreateProduct(ctx context.Context, draft catalog_uc.ProductDraft) (*domain.Product, []string, error)
	CreateBlog(ctx context.Context, draft catalog_uc.BlogDraft) (*domain.Blog, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
