package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/domain"
	"catalog-ingest/internal/repository"
)

type fakeAssets struct {
	calls   *[]string
	staged  map[string][]byte
	removed []string

	uploadErr   error
	uploadedCT  string
	uploadedDir string
}

func (f *fakeAssets) Upload(_ context.Context, data []byte, contentType, folder string) (domain.UploadedAsset, error) {
	*f.calls = append(*f.calls, "upload")
	if f.uploadErr != nil {
		return domain.UploadedAsset{}, f.uploadErr
	}
	f.uploadedCT = contentType
	f.uploadedDir = folder
	return domain.UploadedAsset{
		URL:         "http://assets/" + folder + "/object",
		Folder:      folder,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (f *fakeAssets) Stage(_ context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("staging/%d", len(f.staged))
	f.staged[key] = data
	return key, nil
}

func (f *fakeAssets) GetStaged(_ context.Context, key string) ([]byte, error) {
	data, ok := f.staged[key]
	if !ok {
		return nil, errors.New("no such staged object")
	}
	return data, nil
}

func (f *fakeAssets) RemoveStaged(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type fakeSlots struct {
	slots  map[string]*domain.ImageSlot
	states []domain.SlotState
}

func (f *fakeSlots) Create(_ context.Context, slot *domain.ImageSlot) error {
	f.slots[slot.ID] = slot
	return nil
}

func (f *fakeSlots) Get(_ context.Context, id string) (*domain.ImageSlot, error) {
	slot, ok := f.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return slot, nil
}

func (f *fakeSlots) SetState(_ context.Context, id string, state domain.SlotState) error {
	f.states = append(f.states, state)
	f.slots[id].State = state
	return nil
}

func (f *fakeSlots) SetUploaded(_ context.Context, id, url string) error {
	f.slots[id].State = domain.SlotUploaded
	f.slots[id].URL = url
	return nil
}

func (f *fakeSlots) SetFailed(_ context.Context, id string, stage domain.Stage, cause error) error {
	f.slots[id].State = domain.SlotFailed
	f.slots[id].FailedStage = stage
	if cause != nil {
		f.slots[id].Error = cause.Error()
	}
	return nil
}

type fakeCategories struct{ cats []domain.Category }

func (f *fakeCategories) ListCategories(context.Context) ([]domain.Category, error) {
	return f.cats, nil
}

type fakeRemover struct {
	calls *[]string
	err   error
}

func (f *fakeRemover) Remove(_ context.Context, img image.Image) (*image.NRGBA, error) {
	*f.calls = append(*f.calls, "removebg")
	if f.err != nil {
		return nil, f.err
	}
	b := img.Bounds()
	return image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy())), nil
}

type fakeMarker struct {
	calls *[]string
	text  string
}

func (f *fakeMarker) Apply(img image.Image, spec domain.WatermarkSpec) (*image.NRGBA, error) {
	*f.calls = append(*f.calls, "watermark")
	f.text = spec.Text
	b := img.Bounds()
	return image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy())), nil
}

type fakeExtractor struct {
	meta domain.ExtractedMetadata
	err  error
}

func (f *fakeExtractor) Extract(context.Context, []byte, []domain.Category) (domain.ExtractedMetadata, error) {
	if f.err != nil {
		return domain.ExtractedMetadata{}, f.err
	}
	return f.meta, nil
}

type fakeProducer struct {
	sent [][]byte
	err  error
}

func (f *fakeProducer) SendTask(_ context.Context, _ retry.Strategy, _, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, value)
	return nil
}

type fixture struct {
	orch      *Orchestrator
	assets    *fakeAssets
	slots     *fakeSlots
	remover   *fakeRemover
	marker    *fakeMarker
	extractor *fakeExtractor
	producer  *fakeProducer
	calls     []string
}

func newFixture() *fixture {
	zlog.Init()
	f := &fixture{}
	f.assets = &fakeAssets{calls: &f.calls, staged: map[string][]byte{}}
	f.slots = &fakeSlots{slots: map[string]*domain.ImageSlot{}}
	f.remover = &fakeRemover{calls: &f.calls}
	f.marker = &fakeMarker{calls: &f.calls}
	f.extractor = &fakeExtractor{meta: domain.ExtractedMetadata{Title: "Impeller"}}
	f.producer = &fakeProducer{}
	f.orch = NewOrchestrator(
		f.assets, f.slots, &fakeCategories{}, f.remover, f.marker,
		f.extractor, f.producer,
		domain.WatermarkSpec{Text: "Corona Marine Parts", Opacity: 0.1, Angle: -35},
		retry.Strategy{Attempts: 1},
		&zlog.Logger,
	)
	return f
}

func testUpload(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func openSession(t *testing.T, f *fixture) string {
	t.Helper()
	info, err := f.orch.OpenSession(context.Background(), testUpload(t), "")
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	return info.ID
}

func TestOpenSessionReportsDimensions(t *testing.T) {
	f := newFixture()

	info, err := f.orch.OpenSession(context.Background(), testUpload(t), "1:1")
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if info.Width != 40 || info.Height != 30 {
		t.Errorf("dimensions = %dx%d, want 40x30", info.Width, info.Height)
	}
	if info.Aspect != "1:1" {
		t.Errorf("aspect = %q, want %q", info.Aspect, "1:1")
	}
}

func TestOpenSessionRejectsGarbage(t *testing.T) {
	f := newFixture()

	_, err := f.orch.OpenSession(context.Background(), []byte("junk"), "")
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("OpenSession() error = %v, want ErrDecode", err)
	}
	if stage, ok := domain.StageOf(err); !ok || stage != domain.StageCrop {
		t.Errorf("stage = %v, want crop", stage)
	}
}

func TestConfirmMainRunsStagesInOrder(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)

	res, err := f.orch.ConfirmMain(context.Background(), id, domain.StageOptions{
		RemoveBackground: true,
		Watermark:        true,
	})
	if err != nil {
		t.Fatalf("ConfirmMain() error = %v", err)
	}

	want := []string{"removebg", "watermark", "upload"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Errorf("stage order = %v, want %v", f.calls, want)
	}
	if res.State != domain.SlotUploaded || res.URL == "" {
		t.Errorf("result = %+v, want uploaded with URL", res)
	}
	if f.assets.uploadedCT != "image/png" {
		t.Errorf("content type = %q, want png after background removal", f.assets.uploadedCT)
	}
	if f.slots.slots[res.SlotID].State != domain.SlotUploaded {
		t.Errorf("persisted state = %v, want uploaded", f.slots.slots[res.SlotID].State)
	}
}

func TestConfirmMainSkipsDisabledStages(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)

	_, err := f.orch.ConfirmMain(context.Background(), id, domain.StageOptions{})
	if err != nil {
		t.Fatalf("ConfirmMain() error = %v", err)
	}
	if strings.Join(f.calls, ",") != "upload" {
		t.Errorf("calls = %v, want upload only", f.calls)
	}
	if f.assets.uploadedCT != "image/jpeg" {
		t.Errorf("content type = %q, want jpeg without background removal", f.assets.uploadedCT)
	}
}

func TestConfirmMainStageFailureRecorded(t *testing.T) {
	f := newFixture()
	f.remover.err = domain.ErrUnsupportedDevice
	id := openSession(t, f)

	res, err := f.orch.ConfirmMain(context.Background(), id, domain.StageOptions{RemoveBackground: true})
	if !errors.Is(err, domain.ErrUnsupportedDevice) {
		t.Fatalf("ConfirmMain() error = %v, want ErrUnsupportedDevice", err)
	}
	if stage, _ := domain.StageOf(err); stage != domain.StageRemoveBackground {
		t.Errorf("stage = %v, want remove_background", stage)
	}

	slot := f.slots.slots[res.SlotID]
	if slot.State != domain.SlotFailed || slot.FailedStage != domain.StageRemoveBackground {
		t.Errorf("slot = %+v, want failed at remove_background", slot)
	}
	for _, call := range f.calls {
		if call == "upload" {
			t.Error("upload ran after a failed stage")
		}
	}
}

func TestConfirmMainAutoFillAttachesMetadata(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)

	res, err := f.orch.ConfirmMain(context.Background(), id, domain.StageOptions{AutoFill: true})
	if err != nil {
		t.Fatalf("ConfirmMain() error = %v", err)
	}
	if res.Metadata == nil || res.Metadata.Title != "Impeller" {
		t.Errorf("metadata = %+v, want extracted title", res.Metadata)
	}
}

func TestConfirmMainMetadataFailureNotFatal(t *testing.T) {
	f := newFixture()
	f.extractor.err = domain.ErrMetadataParse
	id := openSession(t, f)

	res, err := f.orch.ConfirmMain(context.Background(), id, domain.StageOptions{AutoFill: true})
	if err != nil {
		t.Fatalf("ConfirmMain() error = %v, metadata failure must not fail the slot", err)
	}
	if res.Metadata != nil {
		t.Error("metadata should be absent after extraction failure")
	}
	if res.State != domain.SlotUploaded {
		t.Errorf("state = %v, want uploaded", res.State)
	}
}

func TestConfirmGalleryStagesAndEnqueues(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)

	res, err := f.orch.ConfirmGallery(context.Background(), id, domain.StageOptions{Watermark: true})
	if err != nil {
		t.Fatalf("ConfirmGallery() error = %v", err)
	}
	if res.State != domain.SlotCropped {
		t.Errorf("state = %v, want cropped pending worker", res.State)
	}
	if len(f.assets.staged) != 1 {
		t.Fatalf("staged objects = %d, want 1", len(f.assets.staged))
	}
	if len(f.producer.sent) != 1 {
		t.Fatalf("tasks sent = %d, want 1", len(f.producer.sent))
	}
	if len(f.calls) != 0 {
		t.Errorf("pipeline stages ran inline for a gallery slot: %v", f.calls)
	}
}

func TestConfirmGalleryEnqueueFailureFailsSlot(t *testing.T) {
	f := newFixture()
	f.producer.err = errors.New("broker down")
	id := openSession(t, f)

	_, err := f.orch.ConfirmGallery(context.Background(), id, domain.StageOptions{})
	if err == nil {
		t.Fatal("ConfirmGallery() expected error")
	}
	for _, slot := range f.slots.slots {
		if slot.State != domain.SlotFailed {
			t.Errorf("slot state = %v, want failed after enqueue error", slot.State)
		}
	}
}

func TestProcessTaskCompletesGallerySlot(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)

	res, err := f.orch.ConfirmGallery(context.Background(), id, domain.StageOptions{Watermark: true})
	if err != nil {
		t.Fatalf("ConfirmGallery() error = %v", err)
	}

	slot := f.slots.slots[res.SlotID]
	task := domain.IngestTask{
		ID:          "task-1",
		SlotID:      slot.ID,
		StagingPath: slot.StagingPath,
		ContentType: "image/png",
		Options:     domain.StageOptions{Watermark: true},
	}
	if err := f.orch.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask() error = %v", err)
	}

	if slot.State != domain.SlotUploaded || slot.URL == "" {
		t.Errorf("slot = %+v, want uploaded with URL", slot)
	}
	if len(f.assets.removed) != 1 {
		t.Errorf("staged cleanup calls = %d, want 1", len(f.assets.removed))
	}
}

func TestProcessTaskSkipsTerminalSlot(t *testing.T) {
	f := newFixture()
	f.slots.slots["s1"] = &domain.ImageSlot{ID: "s1", State: domain.SlotUploaded}

	err := f.orch.ProcessTask(context.Background(), domain.IngestTask{SlotID: "s1"})
	if err != nil {
		t.Fatalf("ProcessTask() error = %v, want terminal slot skipped", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("pipeline ran for a terminal slot: %v", f.calls)
	}
}

func TestViewportEventsRoundTrip(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)
	ctx := context.Background()

	for _, ev := range []ViewportEvent{
		{Action: "begin_zoom"},
		{Action: "zoom", Zoom: 2},
		{Action: "end_zoom"},
		{Action: "begin_drag"},
		{Action: "drag", DX: 100, DY: 100},
		{Action: "end_drag"},
	} {
		if _, err := f.orch.ApplyViewportEvent(ctx, id, ev); err != nil {
			t.Fatalf("ApplyViewportEvent(%s) error = %v", ev.Action, err)
		}
	}

	region, err := f.orch.ApplyViewportEvent(ctx, id, ViewportEvent{Action: "set_aspect", Aspect: "1:1"})
	if err != nil {
		t.Fatalf("ApplyViewportEvent(set_aspect) error = %v", err)
	}
	if region.Aspect != "1:1" {
		t.Errorf("aspect = %q, want 1:1", region.Aspect)
	}
	if region.Zoom != 2 {
		t.Errorf("zoom = %v, want 2", region.Zoom)
	}
}

func TestViewportEventUnknownAction(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)

	_, err := f.orch.ApplyViewportEvent(context.Background(), id, ViewportEvent{Action: "wiggle"})
	if !errors.Is(err, ErrBadEvent) {
		t.Fatalf("error = %v, want ErrBadEvent", err)
	}
}

func TestCancelSessionForgetsSession(t *testing.T) {
	f := newFixture()
	id := openSession(t, f)
	ctx := context.Background()

	if err := f.orch.CancelSession(ctx, id); err != nil {
		t.Fatalf("CancelSession() error = %v", err)
	}
	if _, err := f.orch.ApplyViewportEvent(ctx, id, ViewportEvent{Action: "begin_drag"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestSlotStatusNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.orch.SlotStatus(context.Background(), "missing")
	if !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("SlotStatus() error = %v, want ErrSlotNotFound", err)
	}
}
