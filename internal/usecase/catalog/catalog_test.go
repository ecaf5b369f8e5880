package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/repository"
)

type fakeStore struct {
	products []*domain.Product
	blogs    []*domain.Blog
	cats     []domain.Category
}

func (f *fakeStore) CreateProduct(_ context.Context, p *domain.Product) error {
	p.ID = "p1"
	f.products = append(f.products, p)
	return nil
}

func (f *fakeStore) CreateBlog(_ context.Context, b *domain.Blog) error {
	b.ID = "b1"
	f.blogs = append(f.blogs, b)
	return nil
}

func (f *fakeStore) ListCategories(context.Context) ([]domain.Category, error) {
	return f.cats, nil
}

type fakeSlots struct {
	slots map[string]*domain.ImageSlot
}

func (f *fakeSlots) Get(_ context.Context, id string) (*domain.ImageSlot, error) {
	slot, ok := f.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return slot, nil
}

func newUsecase(slots map[string]*domain.ImageSlot) (*Usecase, *fakeStore) {
	zlog.Init()
	store := &fakeStore{}
	return NewUsecase(store, &fakeSlots{slots: slots}, &zlog.Logger), store
}

func uploadedSlot(id, url string) *domain.ImageSlot {
	return &domain.ImageSlot{ID: id, State: domain.SlotUploaded, URL: url}
}

func TestCreateProductUsesSlotURLs(t *testing.T) {
	u, store := newUsecase(map[string]*domain.ImageSlot{
		"main": uploadedSlot("main", "http://assets/products/main.jpg"),
		"g1":   uploadedSlot("g1", "http://assets/products/g1.jpg"),
		"g2":   uploadedSlot("g2", "http://assets/products/g2.jpg"),
	})

	product, dropped, err := u.CreateProduct(context.Background(), ProductDraft{
		Title:          "Impeller Kit",
		Price:          42,
		MainSlotID:     "main",
		GallerySlotIDs: []string{"g1", "g2"},
	})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if product.Image != "http://assets/products/main.jpg" {
		t.Errorf("image = %q", product.Image)
	}
	if len(product.Images) != 2 {
		t.Errorf("gallery images = %d, want 2", len(product.Images))
	}
	if len(dropped) != 0 {
		t.Errorf("dropped = %v, want none", dropped)
	}
	if len(store.products) != 1 {
		t.Errorf("persisted products = %d, want 1", len(store.products))
	}
}

func TestCreateProductDropsFailedGallerySlots(t *testing.T) {
	u, _ := newUsecase(map[string]*domain.ImageSlot{
		"main": uploadedSlot("main", "http://assets/products/main.jpg"),
		"bad":  {ID: "bad", State: domain.SlotFailed},
		"ok":   uploadedSlot("ok", "http://assets/products/ok.jpg"),
	})

	product, dropped, err := u.CreateProduct(context.Background(), ProductDraft{
		Title:          "Anode",
		MainSlotID:     "main",
		GallerySlotIDs: []string{"bad", "ok", "missing"},
	})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if len(product.Images) != 1 {
		t.Errorf("gallery images = %d, want 1", len(product.Images))
	}
	if len(dropped) != 2 {
		t.Errorf("dropped = %v, want bad and missing", dropped)
	}
}

func TestCreateProductMainNotUploaded(t *testing.T) {
	u, _ := newUsecase(map[string]*domain.ImageSlot{
		"main": {ID: "main", State: domain.SlotUploading},
	})

	_, _, err := u.CreateProduct(context.Background(), ProductDraft{Title: "x", MainSlotID: "main"})
	if !errors.Is(err, ErrMainSlotNotReady) {
		t.Fatalf("error = %v, want ErrMainSlotNotReady", err)
	}
}

func TestCreateProductMainMissing(t *testing.T) {
	u, _ := newUsecase(nil)

	_, _, err := u.CreateProduct(context.Background(), ProductDraft{Title: "x", MainSlotID: "nope"})
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("error = %v, want ErrSlotNotFound", err)
	}
}

func TestCreateBlog(t *testing.T) {
	u, store := newUsecase(map[string]*domain.ImageSlot{
		"main": uploadedSlot("main", "http://assets/blogs/header.jpg"),
	})

	blog, err := u.CreateBlog(context.Background(), BlogDraft{
		Title:      "Winterizing your engine",
		Content:    "Drain the raw water circuit.",
		MainSlotID: "main",
	})
	if err != nil {
		t.Fatalf("CreateBlog() error = %v", err)
	}
	if blog.Image != "http://assets/blogs/header.jpg" {
		t.Errorf("image = %q", blog.Image)
	}
	if len(store.blogs) != 1 {
		t.Errorf("persisted blogs = %d, want 1", len(store.blogs))
	}
}
