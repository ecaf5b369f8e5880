package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/pipeline/crop"
	"catalog-ingest/internal/repository"
)

// Orchestrator runs image slots through the pipeline: crop, optional
// background removal, optional watermark, encode, upload. The main slot runs
// inline in the confirm request; gallery slots are staged and enqueued for
// the worker.
type Orchestrator struct {
	assets     assetStore
	slots      slotStore
	categories categoryLister
	remover    backgroundRemover
	marker     watermarker
	extractor  metadataExtractor
	producer   taskProducer

	sessions  *sessionStore
	watermark domain.WatermarkSpec
	retries   retry.Strategy
	logger    *zlog.Zerolog
}

func NewOrchestrator(
	assets assetStore,
	slots slotStore,
	categories categoryLister,
	remover backgroundRemover,
	marker watermarker,
	extractor metadataExtractor,
	producer taskProducer,
	watermark domain.WatermarkSpec,
	retries retry.Strategy,
	logger *zlog.Zerolog,
) *Orchestrator {
	return &Orchestrator{
		assets:     assets,
		slots:      slots,
		categories: categories,
		remover:    remover,
		marker:     marker,
		extractor:  extractor,
		producer:   producer,
		sessions:   newSessionStore(),
		watermark:  watermark,
		retries:    retries,
		logger:     logger,
	}
}

// SessionInfo describes a freshly opened crop session.
type SessionInfo struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Aspect string `json:"aspect"`
}

// OpenSession decodes the upload and starts an interactive crop over it.
// The default aspect is 4:3.
func (o *Orchestrator) OpenSession(ctx context.Context, data []byte, aspectName string) (SessionInfo, error) {
	img, format, err := crop.Decode(data)
	if err != nil {
		return SessionInfo{}, domain.FailStage(domain.StageCrop, err)
	}

	aspect := domain.AspectFourThree
	if aspectName != "" {
		aspect, err = domain.AspectByName(aspectName)
		if err != nil {
			return SessionInfo{}, domain.FailStage(domain.StageCrop, err)
		}
	}

	b := img.Bounds()
	sess := &cropSession{
		id:        uuid.NewString(),
		viewport:  crop.NewViewport(img, aspect),
		format:    format,
		width:     b.Dx(),
		height:    b.Dy(),
		createdAt: time.Now().UTC(),
	}
	o.sessions.put(sess)

	o.logger.Info().
		Str("session_id", sess.id).
		Str("format", string(format)).
		Int("width", sess.width).
		Int("height", sess.height).
		Msg("crop session opened")

	return SessionInfo{ID: sess.id, Width: sess.width, Height: sess.height, Aspect: aspect.Name}, nil
}

// ViewportEvent is one interaction step in a crop session.
type ViewportEvent struct {
	Action string  `json:"action" validate:"required"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Zoom   float64 `json:"zoom,omitempty"`
	Aspect string  `json:"aspect,omitempty"`
}

// ApplyViewportEvent forwards one pan/zoom/aspect event to the session and
// returns the resulting selection.
func (o *Orchestrator) ApplyViewportEvent(ctx context.Context, sessionID string, ev ViewportEvent) (domain.CropRegion, error) {
	sess, err := o.sessions.get(sessionID)
	if err != nil {
		return domain.CropRegion{}, err
	}

	switch ev.Action {
	case "begin_drag":
		err = sess.viewport.BeginDrag()
	case "drag":
		err = sess.viewport.Drag(ev.DX, ev.DY)
	case "end_drag":
		err = sess.viewport.EndDrag()
	case "begin_zoom":
		err = sess.viewport.BeginZoom()
	case "zoom":
		err = sess.viewport.ZoomTo(ev.Zoom)
	case "end_zoom":
		err = sess.viewport.EndZoom()
	case "set_aspect":
		var aspect domain.AspectRatio
		aspect, err = domain.AspectByName(ev.Aspect)
		if err == nil {
			err = sess.viewport.SetAspect(aspect)
		}
	default:
		return domain.CropRegion{}, fmt.Errorf("%w: %q", ErrBadEvent, ev.Action)
	}
	if err != nil {
		return domain.CropRegion{}, err
	}
	return sess.viewport.Region(), nil
}

// CancelSession closes the viewport and forgets the session.
func (o *Orchestrator) CancelSession(ctx context.Context, sessionID string) error {
	sess, err := o.sessions.get(sessionID)
	if err != nil {
		return err
	}
	if err := sess.viewport.Cancel(); err != nil {
		return err
	}
	o.sessions.remove(sessionID)
	return nil
}

// ConfirmResult is the outcome of a confirmed crop.
type ConfirmResult struct {
	SlotID   string                    `json:"slot_id"`
	State    domain.SlotState          `json:"state"`
	URL      string                    `json:"url,omitempty"`
	Metadata *domain.ExtractedMetadata `json:"metadata,omitempty"`
}

// ConfirmMain confirms the crop and runs the full pipeline inline. The
// returned result carries the public URL and, when AutoFill is on, the
// extracted metadata. Metadata failures never fail the slot.
func (o *Orchestrator) ConfirmMain(ctx context.Context, sessionID string, opts domain.StageOptions) (ConfirmResult, error) {
	raster, err := o.confirmCrop(sessionID)
	if err != nil {
		return ConfirmResult{}, err
	}

	slot := &domain.ImageSlot{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      domain.SlotMain,
		State:     domain.SlotCropped,
	}
	if err := o.slots.Create(ctx, slot); err != nil {
		return ConfirmResult{}, err
	}

	// Analysis sees the clean crop, before any effects are applied.
	var analyzeData []byte
	if opts.AutoFill {
		analyzeData, _, err = encodeRaster(raster, false)
		if err != nil {
			o.logger.Warn().Err(err).Str("slot_id", slot.ID).Msg("failed to encode raster for analysis")
		}
	}

	url, err := o.process(ctx, slot, raster, opts)
	if err != nil {
		return ConfirmResult{SlotID: slot.ID, State: domain.SlotFailed}, err
	}

	result := ConfirmResult{SlotID: slot.ID, State: domain.SlotUploaded, URL: url}
	if opts.AutoFill && analyzeData != nil {
		meta, err := o.AnalyzeImage(ctx, analyzeData)
		if err != nil {
			o.logger.Warn().Err(err).Str("slot_id", slot.ID).Msg("metadata extraction failed")
		} else {
			result.Metadata = &meta
		}
	}
	return result, nil
}

// ConfirmGallery confirms the crop, stages the raster and enqueues a task for
// the worker. The caller polls the slot for progress.
func (o *Orchestrator) ConfirmGallery(ctx context.Context, sessionID string, opts domain.StageOptions) (ConfirmResult, error) {
	raster, err := o.confirmCrop(sessionID)
	if err != nil {
		return ConfirmResult{}, err
	}

	// Staged lossless so the worker starts from the exact crop.
	data, contentType, err := encodeRaster(raster, true)
	if err != nil {
		return ConfirmResult{}, domain.FailStage(domain.StageEncode, err)
	}

	key, err := o.assets.Stage(ctx, data, contentType)
	if err != nil {
		return ConfirmResult{}, domain.FailStage(domain.StageUpload, err)
	}

	slot := &domain.ImageSlot{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Kind:        domain.SlotGallery,
		State:       domain.SlotCropped,
		StagingPath: key,
	}
	if err := o.slots.Create(ctx, slot); err != nil {
		return ConfirmResult{}, err
	}

	task := domain.IngestTask{
		ID:          uuid.NewString(),
		SlotID:      slot.ID,
		StagingPath: key,
		ContentType: contentType,
		Options:     opts,
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := o.producer.SendTask(ctx, o.retries, []byte(slot.ID), payload); err != nil {
		if ferr := o.slots.SetFailed(ctx, slot.ID, domain.StageUpload, err); ferr != nil {
			o.logger.Error().Err(ferr).Str("slot_id", slot.ID).Msg("failed to record slot failure")
		}
		return ConfirmResult{}, fmt.Errorf("failed to enqueue ingest task: %w", err)
	}

	o.logger.Info().
		Str("slot_id", slot.ID).
		Str("task_id", task.ID).
		Msg("gallery slot enqueued")

	return ConfirmResult{SlotID: slot.ID, State: domain.SlotCropped}, nil
}

// SlotStatus reports the persisted state of a slot.
func (o *Orchestrator) SlotStatus(ctx context.Context, slotID string) (*domain.ImageSlot, error) {
	slot, err := o.slots.Get(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return slot, nil
}

// ProcessTask runs the pipeline for one staged gallery raster. Called by the
// worker for each consumed task.
func (o *Orchestrator) ProcessTask(ctx context.Context, task domain.IngestTask) error {
	slot, err := o.slots.Get(ctx, task.SlotID)
	if err != nil {
		return fmt.Errorf("failed to load slot for task %s: %w", task.ID, err)
	}
	if slot.State.Terminal() {
		o.logger.Warn().Str("slot_id", slot.ID).Msg("skipping task for terminal slot")
		return nil
	}

	data, err := o.assets.GetStaged(ctx, task.StagingPath)
	if err != nil {
		if ferr := o.slots.SetFailed(ctx, slot.ID, domain.StageCrop, err); ferr != nil {
			o.logger.Error().Err(ferr).Str("slot_id", slot.ID).Msg("failed to record slot failure")
		}
		return err
	}

	raster, _, err := crop.Decode(data)
	if err != nil {
		if ferr := o.slots.SetFailed(ctx, slot.ID, domain.StageCrop, err); ferr != nil {
			o.logger.Error().Err(ferr).Str("slot_id", slot.ID).Msg("failed to record slot failure")
		}
		return err
	}

	if _, err := o.process(ctx, slot, raster, task.Options); err != nil {
		return err
	}

	if err := o.assets.RemoveStaged(ctx, task.StagingPath); err != nil {
		o.logger.Warn().Err(err).Str("slot_id", slot.ID).Msg("failed to clean staged object")
	}
	return nil
}

// AnalyzeImage extracts catalog metadata for an image, matching the category
// against the current list.
func (o *Orchestrator) AnalyzeImage(ctx context.Context, data []byte) (domain.ExtractedMetadata, error) {
	categories, err := o.categories.ListCategories(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("failed to list categories for matching")
		categories = nil
	}
	meta, err := o.extractor.Extract(ctx, data, categories)
	if err != nil {
		return domain.ExtractedMetadata{}, domain.FailStage(domain.StageAnalyze, err)
	}
	return meta, nil
}

func (o *Orchestrator) confirmCrop(sessionID string) (image.Image, error) {
	sess, err := o.sessions.get(sessionID)
	if err != nil {
		return nil, err
	}
	raster, err := sess.viewport.Confirm()
	if err != nil {
		return nil, domain.FailStage(domain.StageCrop, err)
	}
	o.sessions.remove(sessionID)
	return raster, nil
}

// process drives the slot through the pipeline stages selected in opts and
// returns the public URL of the uploaded asset.
func (o *Orchestrator) process(ctx context.Context, slot *domain.ImageSlot, raster image.Image, opts domain.StageOptions) (string, error) {
	tracker, err := newSlotTracker(slot)
	if err != nil {
		return "", err
	}
	// The slot arrives already cropped; replay the machine to that point.
	if err := tracker.fire(eventCrop); err != nil {
		return "", err
	}
	if err := tracker.fire(eventCropped); err != nil {
		return "", err
	}

	fail := func(stage domain.Stage, cause error) error {
		if err := tracker.fire(eventFail); err != nil {
			o.logger.Error().Err(err).Str("slot_id", slot.ID).Msg("failed to fire fail event")
		}
		if err := o.slots.SetFailed(ctx, slot.ID, stage, cause); err != nil {
			o.logger.Error().Err(err).Str("slot_id", slot.ID).Msg("failed to record slot failure")
		}
		o.logger.Error().Err(cause).
			Str("slot_id", slot.ID).
			Str("stage", string(stage)).
			Msg("pipeline stage failed")
		return domain.FailStage(stage, cause)
	}
	advance := func(event statekit.EventType) error {
		if err := tracker.fire(event); err != nil {
			return err
		}
		return o.slots.SetState(ctx, slot.ID, tracker.state())
	}

	removed := false
	if opts.RemoveBackground {
		if err := advance(eventRemoveBackground); err != nil {
			return "", err
		}
		out, err := o.remover.Remove(ctx, raster)
		if err != nil {
			return "", fail(domain.StageRemoveBackground, err)
		}
		raster = out
		removed = true
	}

	if opts.Watermark {
		if err := advance(eventWatermark); err != nil {
			return "", err
		}
		spec := o.watermark
		if opts.WatermarkText != "" {
			spec.Text = opts.WatermarkText
		}
		out, err := o.marker.Apply(raster, spec)
		if err != nil {
			return "", fail(domain.StageWatermark, err)
		}
		raster = out
	}

	if err := advance(eventUpload); err != nil {
		return "", err
	}

	// Alpha from background removal must survive encoding.
	data, contentType, err := encodeRaster(raster, removed)
	if err != nil {
		return "", fail(domain.StageEncode, err)
	}

	asset, err := o.assets.Upload(ctx, data, contentType, opts.Folder)
	if err != nil {
		return "", fail(domain.StageUpload, err)
	}

	if err := tracker.fire(eventUploaded); err != nil {
		return "", err
	}
	if err := o.slots.SetUploaded(ctx, slot.ID, asset.URL); err != nil {
		return "", err
	}
	slot.URL = asset.URL

	o.logger.Info().
		Str("slot_id", slot.ID).
		Str("url", asset.URL).
		Msg("slot uploaded")

	return asset.URL, nil
}

func encodeRaster(img image.Image, asPNG bool) ([]byte, string, error) {
	buf := new(bytes.Buffer)
	if asPNG {
		if err := png.Encode(buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: domain.DefaultJPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
