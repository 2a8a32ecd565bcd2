package draft

import (
	"github.com/teranos/hmdraft/docmodel"
)

// EventType names a machine event.
type EventType string

const (
	EventChange            EventType = "CHANGE"
	EventGetDraftSuccess   EventType = "GET.DRAFT.SUCCESS"
	EventGetDraftError     EventType = "GET.DRAFT.ERROR"
	EventFinishMount       EventType = "FINISH.MOUNT"
	EventResetDraft        EventType = "RESET.DRAFT"
	EventRestoreDraft      EventType = "RESTORE.DRAFT"
	EventResetCorruptDraft EventType = "RESET.CORRUPT.DRAFT"
	EventGetDraftRetry     EventType = "GET.DRAFT.RETRY"
	EventSaveOnExit        EventType = "SAVE.ON.EXIT"

	// Raised by the interpreter
	EventDebounceElapsed EventType = "DEBOUNCE.ELAPSED"
	EventSaveSuccess     EventType = "SAVE.SUCCESS"
	EventSaveError       EventType = "SAVE.ERROR"
	EventRecoverySuccess EventType = "RECOVERY.SUCCESS"
	EventRecoveryError   EventType = "RECOVERY.ERROR"
)

// Event is an input to Transition.
type Event struct {
	Type EventType

	Title      *string            // CHANGE: new title, nil when only blocks changed
	Draft      *docmodel.Document // GET.DRAFT.SUCCESS, SAVE.SUCCESS (nil: nothing to save)
	Err        error              // *.ERROR
	Generation uint64             // FINISH.MOUNT, DEBOUNCE.ELAPSED
	ReloadID   string             // RECOVERY.SUCCESS

	ack chan struct{}
}

// Change is a block edit.
func Change() Event {
	return Event{Type: EventChange}
}

// TitleChange is a title edit.
func TitleChange(title string) Event {
	return Event{Type: EventChange, Title: &title}
}

// Simple builds an event that carries no payload.
func Simple(t EventType) Event {
	return Event{Type: t}
}
