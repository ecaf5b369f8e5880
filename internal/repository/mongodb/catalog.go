package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/repository"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"
	blogsCollection      = "blogs"
)

// CatalogRepository persists products, categories and blogs.
type CatalogRepository struct {
	db      *mongo.Database
	timeout time.Duration
}

func NewCatalogRepository(db *mongo.Database, timeout time.Duration) *CatalogRepository {
	return &CatalogRepository{db: db, timeout: timeout}
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := r.db.Collection(productsCollection).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("product %s: %w", p.ID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *CatalogRepository) CreateBlog(ctx context.Context, b *domain.Blog) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	b.CreatedAt = time.Now().UTC()

	if _, err := r.db.Collection(blogsCollection).InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("blog %s: %w", b.ID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert blog: %w", err)
	}
	return nil
}

// ListCategories returns categories in insertion order.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.db.Collection(categoriesCollection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cur.Close(ctx)

	var categories []domain.Category
	if err := cur.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}
