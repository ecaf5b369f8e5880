package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/http-server/handler/ingest/dto"
	"catalog-ingest/internal/pipeline/crop"
	ingest_uc "catalog-ingest/internal/usecase/ingest"
)

const maxMemory = 32 << 20

type IngestHandler struct {
	usecase  ingestUsecase
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func NewIngestHandler(usecase ingestUsecase, logger *zlog.Zerolog) *IngestHandler {
	return &IngestHandler{
		usecase:  usecase,
		validate: validator.New(),
		logger:   logger,
	}
}

// OpenSession accepts a multipart upload and starts an interactive crop.
func (h *IngestHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fileBytes, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	info, err := h.usecase.OpenSession(ctx, fileBytes, r.FormValue("aspect"))
	if err != nil {
		h.handleIngestError(w, err)
		return
	}

	h.logger.Info().
		Str("session_id", info.ID).
		Str("filename", filename).
		Msg("Crop session opened")

	h.respondJSON(w, http.StatusCreated, dto.SessionResponse{
		ID:     info.ID,
		Width:  info.Width,
		Height: info.Height,
		Aspect: info.Aspect,
	})
}

// ViewportEvent applies one pan/zoom/aspect event to a session.
func (h *IngestHandler) ViewportEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required", nil)
		return
	}

	var req dto.ViewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	region, err := h.usecase.ApplyViewportEvent(ctx, sessionID, ingest_uc.ViewportEvent{
		Action: req.Action,
		DX:     req.DX,
		DY:     req.DY,
		Zoom:   req.Zoom,
		Aspect: req.Aspect,
	})
	if err != nil {
		h.handleIngestError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.RegionResponse{
		X:      region.X,
		Y:      region.Y,
		Width:  region.Width,
		Height: region.Height,
		Zoom:   region.Zoom,
		Aspect: region.Aspect,
	})
}

// Confirm finishes a crop session. The main slot is processed inline; a
// gallery slot is staged for the worker and returns 202.
func (h *IngestHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required", nil)
		return
	}

	var req dto.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	opts := domain.StageOptions{
		RemoveBackground: req.RemoveBackground,
		Watermark:        req.Watermark,
		AutoFill:         req.AutoFill,
		WatermarkText:    req.WatermarkText,
		Folder:           req.Folder,
	}

	var result ingest_uc.ConfirmResult
	var err error
	status := http.StatusOK
	if req.Slot == string(domain.SlotGallery) {
		result, err = h.usecase.ConfirmGallery(ctx, sessionID, opts)
		status = http.StatusAccepted
	} else {
		result, err = h.usecase.ConfirmMain(ctx, sessionID, opts)
	}
	if err != nil {
		h.handleIngestError(w, err)
		return
	}

	h.respondJSON(w, status, dto.ConfirmResponse{
		SlotID:   result.SlotID,
		State:    string(result.State),
		URL:      result.URL,
		Metadata: result.Metadata,
	})
}

// CancelSession discards a crop session.
func (h *IngestHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required", nil)
		return
	}

	if err := h.usecase.CancelSession(ctx, sessionID); err != nil {
		h.handleIngestError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SlotStatus reports the pipeline state of a slot.
func (h *IngestHandler) SlotStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID := chi.URLParam(r, "id")
	if slotID == "" {
		h.respondError(w, http.StatusBadRequest, "Slot ID is required", nil)
		return
	}

	slot, err := h.usecase.SlotStatus(ctx, slotID)
	if err != nil {
		h.handleIngestError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.SlotResponse{
		ID:          slot.ID,
		Kind:        string(slot.Kind),
		State:       string(slot.State),
		URL:         slot.URL,
		FailedStage: string(slot.FailedStage),
		Error:       slot.Error,
		UpdatedAt:   slot.UpdatedAt,
	})
}

// Analyze extracts catalog metadata for an uploaded image on demand.
func (h *IngestHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fileBytes, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	meta, err := h.usecase.AnalyzeImage(ctx, fileBytes)
	if err != nil {
		h.handleIngestError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, meta)
}

func (h *IngestHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.DefaultMaxUploadSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return nil, "", false
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required", nil)
		return nil, "", false
	}
	defer file.Close()

	if err := h.validateFile(handler); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
		return nil, "", false
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", handler.Filename).Msg("Failed to read file")
		h.respondError(w, http.StatusInternalServerError, "Failed to read file", err)
		return nil, "", false
	}
	return fileBytes, handler.Filename, true
}

func (h *IngestHandler) validateFile(handler *multipart.FileHeader) error {
	if handler.Size > domain.DefaultMaxUploadSize {
		return fmt.Errorf("File is too large (max %d MB)", domain.DefaultMaxUploadSize/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(handler.Filename))
	allowed := map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	}
	if !allowed[ext] {
		return fmt.Errorf("Unsupported file format. Allowed: jpg, jpeg, png, gif, webp")
	}

	contentType := handler.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("File must be an image")
	}
	return nil
}

func (h *IngestHandler) handleIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest_uc.ErrSessionNotFound):
		h.respondError(w, http.StatusNotFound, "Crop session not found", nil)
	case errors.Is(err, ingest_uc.ErrSlotNotFound):
		h.respondError(w, http.StatusNotFound, "Image slot not found", nil)
	case errors.Is(err, ingest_uc.ErrBadEvent),
		errors.Is(err, crop.ErrViewportClosed),
		errors.Is(err, crop.ErrGestureActive):
		h.respondError(w, http.StatusConflict, "Event not allowed for this session", err)
	case errors.Is(err, domain.ErrDecode):
		h.respondError(w, http.StatusBadRequest, "File is not a decodable image", nil)
	case errors.Is(err, domain.ErrUnsupportedDevice):
		h.respondError(w, http.StatusUnprocessableEntity, "Background removal is not available on this host", nil)
	case errors.Is(err, domain.ErrResourceExhausted):
		h.respondError(w, http.StatusServiceUnavailable, "Not enough memory to remove the background", nil)
	case errors.Is(err, domain.ErrUpload):
		h.respondError(w, http.StatusBadGateway, "Failed to store the processed image", nil)
	case errors.Is(err, domain.ErrMetadataParse):
		h.respondError(w, http.StatusBadGateway, "Vision model returned unusable output", nil)
	default:
		h.logger.Error().Err(err).Msg("Ingest request failed")
		h.respondError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func (h *IngestHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *IngestHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	if err != nil {
		response.Details = err.Error()
	}
	h.respondJSON(w, status, response)
}
