package ingest

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
	"github.com/wb-go/wbf/zlog"

	"catalog-ingest/internal/domain"
)

// slotContext carries the slot through the state machine.
type slotContext struct {
	Slot *domain.ImageSlot
}

const (
	stateSelected           = statekit.StateID(domain.SlotSelected)
	stateCropping           = statekit.StateID(domain.SlotCropping)
	stateCropped            = statekit.StateID(domain.SlotCropped)
	stateRemovingBackground = statekit.StateID(domain.SlotRemovingBackground)
	stateWatermarking       = statekit.StateID(domain.SlotWatermarking)
	stateUploading          = statekit.StateID(domain.SlotUploading)
	stateUploaded           = statekit.StateID(domain.SlotUploaded)
	stateFailed             = statekit.StateID(domain.SlotFailed)
)

const (
	eventCrop             statekit.EventType = "CROP"
	eventCropped          statekit.EventType = "CROPPED"
	eventRemoveBackground statekit.EventType = "REMOVE_BACKGROUND"
	eventWatermark        statekit.EventType = "WATERMARK"
	eventUpload           statekit.EventType = "UPLOAD"
	eventUploaded         statekit.EventType = "UPLOADED"
	eventFail             statekit.EventType = "FAIL"
)

// slotEvents lists the events each state accepts, used to pre-check Send.
var slotEvents = map[domain.SlotState][]statekit.EventType{
	domain.SlotSelected:           {eventCrop, eventFail},
	domain.SlotCropping:           {eventCropped, eventFail},
	domain.SlotCropped:            {eventRemoveBackground, eventWatermark, eventUpload, eventFail},
	domain.SlotRemovingBackground: {eventWatermark, eventUpload, eventFail},
	domain.SlotWatermarking:       {eventUpload, eventFail},
	domain.SlotUploading:          {eventUploaded, eventFail},
}

func newSlotMachine() (*statekit.MachineConfig[*slotContext], error) {
	return statekit.NewMachine[*slotContext]("image-slot").
		WithInitial(stateSelected).
		WithContext(&slotContext{}).
		WithAction("logEntry", logSlotEntry).
		State(stateSelected).
		OnEntry("logEntry").
		On(eventCrop).Target(stateCropping).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateCropping).
		OnEntry("logEntry").
		On(eventCropped).Target(stateCropped).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateCropped).
		OnEntry("logEntry").
		On(eventRemoveBackground).Target(stateRemovingBackground).
		On(eventWatermark).Target(stateWatermarking).
		On(eventUpload).Target(stateUploading).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateRemovingBackground).
		OnEntry("logEntry").
		On(eventWatermark).Target(stateWatermarking).
		On(eventUpload).Target(stateUploading).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateWatermarking).
		OnEntry("logEntry").
		On(eventUpload).Target(stateUploading).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateUploading).
		OnEntry("logEntry").
		On(eventUploaded).Target(stateUploaded).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateUploaded).
		Final().
		OnEntry("logEntry").
		Done().
		State(stateFailed).
		Final().
		OnEntry("logEntry").
		Done().
		Build()
}

func logSlotEntry(ctx **slotContext, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Slot == nil {
		return
	}
	zlog.Logger.Debug().
		Str("slot_id", (*ctx).Slot.ID).
		Str("event", string(event.Type)).
		Msg("slot transition")
}

// slotTracker drives one slot through the machine and rejects illegal events
// before they reach the interpreter.
type slotTracker struct {
	interp *statekit.Interpreter[*slotContext]
	slot   *domain.ImageSlot
}

func newSlotTracker(slot *domain.ImageSlot) (*slotTracker, error) {
	machine, err := newSlotMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to build slot machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **slotContext) {
		*c = &slotContext{Slot: slot}
	})
	interp.Start()

	return &slotTracker{interp: interp, slot: slot}, nil
}

func (t *slotTracker) fire(event statekit.EventType) error {
	current := t.state()
	allowed := false
	for _, ev := range slotEvents[current] {
		if ev == event {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("event %s not allowed in state %s", event, current)
	}

	t.interp.Send(statekit.Event{Type: event})
	t.slot.State = t.state()
	return nil
}

func (t *slotTracker) state() domain.SlotState {
	return domain.SlotState(t.interp.State().Value)
}

func (t *slotTracker) done() bool {
	return t.interp.Done()
}
