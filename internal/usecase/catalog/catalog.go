package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/repository"
)

// Usecase turns pipeline output into catalog entries. Submission is gated on
// the main slot; failed gallery slots are dropped and reported, never fatal.
type Usecase struct {
	store  catalogStore
	slots  slotReader
	logger *zlog.Zerolog
}

func NewUsecase(store catalogStore, slots slotReader, logger *zlog.Zerolog) *Usecase {
	return &Usecase{store: store, slots: slots, logger: logger}
}

// ProductDraft is the admin form payload referencing processed slots.
type ProductDraft struct {
	Title          string   `json:"title" validate:"required"`
	Description    string   `json:"description"`
	Price          float64  `json:"price" validate:"gte=0"`
	CategoryID     string   `json:"category_id"`
	Featured       bool     `json:"featured"`
	MainSlotID     string   `json:"main_slot_id" validate:"required"`
	GallerySlotIDs []string `json:"gallery_slot_ids,omitempty"`
}

// CreateProduct resolves the referenced slots and persists the product.
// Returns the created product and the ids of gallery slots that were dropped
// because they had not uploaded.
func (u *Usecase) CreateProduct(ctx context.Context, draft ProductDraft) (*domain.Product, []string, error) {
	main, err := u.resolveMain(ctx, draft.MainSlotID)
	if err != nil {
		return nil, nil, err
	}

	var images []string
	var dropped []string
	for _, id := range draft.GallerySlotIDs {
		slot, err := u.slots.Get(ctx, id)
		if err != nil || slot.State != domain.SlotUploaded {
			dropped = append(dropped, id)
			u.logger.Warn().Str("slot_id", id).Msg("gallery slot dropped from product")
			continue
		}
		images = append(images, slot.URL)
	}

	product := &domain.Product{
		Title:       draft.Title,
		Description: draft.Description,
		Price:       draft.Price,
		CategoryID:  draft.CategoryID,
		Featured:    draft.Featured,
		Image:       main.URL,
		Images:      images,
	}
	if err := u.store.CreateProduct(ctx, product); err != nil {
		return nil, nil, fmt.Errorf("failed to create product: %w", err)
	}

	u.logger.Info().
		Str("product_id", product.ID).
		Int("gallery_images", len(images)).
		Int("dropped_slots", len(dropped)).
		Msg("product created")

	return product, dropped, nil
}

// BlogDraft is the blog form payload referencing a processed header image.
type BlogDraft struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	MainSlotID string `json:"main_slot_id" validate:"required"`
}

func (u *Usecase) CreateBlog(ctx context.Context, draft BlogDraft) (*domain.Blog, error) {
	main, err := u.resolveMain(ctx, draft.MainSlotID)
	if err != nil {
		return nil, err
	}

	blog := &domain.Blog{
		Title:   draft.Title,
		Content: draft.Content,
		Image:   main.URL,
	}
	if err := u.store.CreateBlog(ctx, blog); err != nil {
		return nil, fmt.Errorf("failed to create blog: %w", err)
	}
	return blog, nil
}

// ListCategories returns categories in insertion order.
func (u *Usecase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return u.store.ListCategories(ctx)
}

func (u *Usecase) resolveMain(ctx context.Context, slotID string) (*domain.ImageSlot, error) {
	slot, err := u.slots.Get(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("slot %s: %w", slotID, ErrSlotNotFound)
		}
		return nil, err
	}
	if slot.State != domain.SlotUploaded {
		return nil, fmt.Errorf("slot %s in state %s: %w", slotID, slot.State, ErrMainSlotNotReady)
	}
	return slot, nil
}
