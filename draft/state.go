// Package draft drives the autosave lifecycle of one draft: fetch, mount,
// debounce edits, serialize saves against the drafts gateway and recover
// from failures.
package draft

import (
	"github.com/teranos/hmdraft/docmodel"
)

// State is a machine state. Ready sub-states are prefixed "ready.".
type State string

const (
	StateFetching         State = "fetching"
	StateMountingEditor   State = "mountingEditor"
	StateIdle             State = "ready.idle"
	StateChanged          State = "ready.changed"
	StateSaving           State = "ready.saving"
	StateSaveError        State = "ready.saveError"
	StateRestoring        State = "ready.restoring"
	StateResetting        State = "ready.resetting"
	StateError            State = "error"
	StateResettingCorrupt State = "resettingCorrupt"
	StateReloading        State = "reloading"
)

// Ready reports whether the editor is mounted.
func (s State) Ready() bool {
	switch s {
	case StateIdle, StateChanged, StateSaving, StateSaveError, StateRestoring, StateResetting:
		return true
	}
	return false
}

// Settled reports whether no save or recovery is pending. Close waits for it.
func (s State) Settled() bool {
	switch s {
	case StateIdle, StateSaveError, StateError, StateReloading:
		return true
	}
	return false
}

// Snapshot is the machine context at one point in time.
// Baseline is replaced only with data returned by the gateway.
type Snapshot struct {
	State      State
	DocumentID string

	Draft         *docmodel.Document // last document returned by the gateway
	Baseline      docmodel.BlocksMap
	BaselineTitle string
	Title         string // local title, may be ahead of BaselineTitle

	HasChangedWhileSaving bool
	Err                   error

	// ReloadDocumentID is set on entering StateReloading.
	ReloadDocumentID string

	// Generation guards timers: a timer event carrying an older generation
	// is stale and ignored.
	Generation uint64
}

// Initial returns the starting snapshot for documentID and its entry effects.
func Initial(documentID string) (Snapshot, []Effect) {
	s := Snapshot{State: StateFetching, DocumentID: documentID}
	return s, []Effect{{Type: EffectFetchDraft, DocumentID: documentID}}
}
