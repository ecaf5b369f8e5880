package ingest

import (
	"testing"

	"github.com/felixgeelhaar/statekit"

	"catalog-ingest/internal/domain"
)

func TestSlotTrackerHappyPath(t *testing.T) {
	slot := &domain.ImageSlot{ID: "s1", State: domain.SlotSelected}
	tracker, err := newSlotTracker(slot)
	if err != nil {
		t.Fatalf("newSlotTracker() error = %v", err)
	}

	steps := []struct {
		event string
		want  domain.SlotState
	}{
		{"CROP", domain.SlotCropping},
		{"CROPPED", domain.SlotCropped},
		{"REMOVE_BACKGROUND", domain.SlotRemovingBackground},
		{"WATERMARK", domain.SlotWatermarking},
		{"UPLOAD", domain.SlotUploading},
		{"UPLOADED", domain.SlotUploaded},
	}
	for _, step := range steps {
		if err := tracker.fire(statekit.EventType(step.event)); err != nil {
			t.Fatalf("fire(%s) error = %v", step.event, err)
		}
		if tracker.state() != step.want {
			t.Fatalf("state after %s = %v, want %v", step.event, tracker.state(), step.want)
		}
	}
	if !tracker.done() {
		t.Error("tracker not terminal after upload")
	}
	if slot.State != domain.SlotUploaded {
		t.Errorf("slot state = %v, want uploaded", slot.State)
	}
}

func TestSlotTrackerSkipsOptionalStages(t *testing.T) {
	tracker, err := newSlotTracker(&domain.ImageSlot{ID: "s2", State: domain.SlotSelected})
	if err != nil {
		t.Fatalf("newSlotTracker() error = %v", err)
	}

	for _, ev := range []string{"CROP", "CROPPED", "UPLOAD", "UPLOADED"} {
		if err := tracker.fire(statekit.EventType(ev)); err != nil {
			t.Fatalf("fire(%s) error = %v", ev, err)
		}
	}
	if tracker.state() != domain.SlotUploaded {
		t.Errorf("state = %v, want uploaded", tracker.state())
	}
}

func TestSlotTrackerRejectsIllegalEvent(t *testing.T) {
	tracker, err := newSlotTracker(&domain.ImageSlot{ID: "s3", State: domain.SlotSelected})
	if err != nil {
		t.Fatalf("newSlotTracker() error = %v", err)
	}

	if err := tracker.fire(eventUploaded); err == nil {
		t.Error("fire(UPLOADED) from selected should fail")
	}
	if tracker.state() != domain.SlotSelected {
		t.Errorf("state = %v, want unchanged selected", tracker.state())
	}
}

func TestSlotTrackerFailFromAnyActiveState(t *testing.T) {
	tracker, err := newSlotTracker(&domain.ImageSlot{ID: "s4", State: domain.SlotSelected})
	if err != nil {
		t.Fatalf("newSlotTracker() error = %v", err)
	}

	tracker.fire(eventCrop)
	tracker.fire(eventCropped)
	tracker.fire(eventWatermark)
	if err := tracker.fire(eventFail); err != nil {
		t.Fatalf("fire(FAIL) error = %v", err)
	}
	if tracker.state() != domain.SlotFailed {
		t.Errorf("state = %v, want failed", tracker.state())
	}
	if err := tracker.fire(eventUpload); err == nil {
		t.Error("events after the failed state should be rejected")
	}
}
