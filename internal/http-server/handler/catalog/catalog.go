package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/http-server/handler/catalog/dto"
	"catalog-ingest/internal/repository"
	catalog_uc "catalog-ingest/internal/usecase/catalog"
)

type CatalogHandler struct {
	usecase  catalogUsecase
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func NewCatalogHandler(usecase catalogUsecase, logger *zlog.Zerolog) *CatalogHandler {
	return &CatalogHandler{
		usecase:  usecase,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	product, dropped, err := h.usecase.CreateProduct(ctx, catalog_uc.ProductDraft{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		CategoryID:     req.CategoryID,
		Featured:       req.Featured,
		MainSlotID:     req.MainSlotID,
		GallerySlotIDs: req.GallerySlotIDs,
	})
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, dto.CreateProductResponse{
		ID:           product.ID,
		Image:        product.Image,
		Images:       product.Images,
		DroppedSlots: dropped,
	})
}

func (h *CatalogHandler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	blog, err := h.usecase.CreateBlog(ctx, catalog_uc.BlogDraft{
		Title:      req.Title,
		Content:    req.Content,
		MainSlotID: req.MainSlotID,
	})
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, dto.CreateBlogResponse{ID: blog.ID, Image: blog.Image})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.usecase.ListCategories(r.Context())
	if err != nil {
		h.handleCatalogError(w, err)
		return
	}

	response := make([]dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, dto.CategoryResponse{ID: c.ID, Name: c.Name})
	}
	h.respondJSON(w, http.StatusOK, response)
}

func (h *CatalogHandler) handleCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog_uc.ErrSlotNotFound):
		h.respondError(w, http.StatusNotFound, "Image slot not found", nil)
	case errors.Is(err, catalog_uc.ErrMainSlotNotReady):
		h.respondError(w, http.StatusConflict, "Main image has not finished processing", nil)
	case errors.Is(err, repository.ErrDuplicate):
		h.respondError(w, http.StatusConflict, "Entry already exists", nil)
	default:
		h.logger.Error().Err(err).Msg("Catalog request failed")
		h.respondError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func (h *CatalogHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *CatalogHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	if err != nil {
		response.Details = err.Error()
	}
	h.respondJSON(w, status, response)
}
