package dto

type CreateProductRequest struct {
	Title          string   `json:"title" validate:"required"`
	Description    string   `json:"description"`
	Price          float64  `json:"price" validate:"gte=0"`
	CategoryID     string   `json:"category_id"`
	Featured       bool     `json:"featured"`
	MainSlotID     string   `json:"main_slot_id" validate:"required"`
	GallerySlotIDs []string `json:"gallery_slot_ids,omitempty"`
}

type CreateProductResponse struct {
	ID           string   `json:"id"`
	Image        string   `json:"image"`
	Images       []string `json:"images,omitempty"`
	DroppedSlots []string `json:"dropped_slots,omitempty"`
}

type CreateBlogRequest struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	MainSlotID string `json:"main_slot_id" validate:"required"`
}

type CreateBlogResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
