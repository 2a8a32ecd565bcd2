package draft

import (
	"github.com/teranos/hmdraft/docmodel"
)

// Transition computes the next snapshot and the effects to perform.
// It is pure: events that a state does not accept leave s unchanged
// and produce no effects.
func Transition(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch s.State {
	case StateFetching:
		return fetching(s, ev)
	case StateMountingEditor:
		if ev.Type == EventFinishMount && ev.Generation == s.Generation {
			s.State = StateIdle
			return s, nil
		}
	case StateError:
		return failed(s, ev)
	case StateResettingCorrupt, StateRestoring, StateResetting:
		return recovering(s, ev)
	case StateIdle, StateChanged:
		return editing(s, ev)
	case StateSaving:
		return saving(s, ev)
	case StateSaveError:
		return saveError(s, ev)
	}
	return s, nil
}

func fetching(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev.Type {
	case EventGetDraftSuccess:
		doc := ev.Draft
		if doc == nil {
			doc = &docmodel.Document{ID: s.DocumentID}
		}
		s.State = StateMountingEditor
		s.Draft = doc
		s.Baseline = docmodel.BuildBlocksMap(doc.Children, "")
		s.BaselineTitle = doc.Title
		s.Title = doc.Title
		s.Err = nil
		s.Generation++
		return s, []Effect{
			{Type: EffectPopulateEditor, DocumentID: s.DocumentID, Draft: doc},
			{Type: EffectScheduleMount, Generation: s.Generation},
		}
	case EventGetDraftError:
		s.State = StateError
		s.Err = ev.Err
	}
	return s, nil
}

func failed(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev.Type {
	case EventGetDraftRetry:
		next, effects := Initial(s.DocumentID)
		next.Generation = s.Generation
		return next, effects
	case EventResetCorruptDraft:
		s.State = StateResettingCorrupt
		return s, []Effect{{Type: EffectResetDraft, DocumentID: s.DocumentID}}
	}
	return s, nil
}

func recovering(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev.Type {
	case EventRecoverySuccess:
		s.State = StateReloading
		s.ReloadDocumentID = ev.ReloadID
		if s.ReloadDocumentID == "" {
			s.ReloadDocumentID = s.DocumentID
		}
		return s, []Effect{{Type: EffectReload, DocumentID: s.ReloadDocumentID}}
	case EventRecoveryError:
		s.Err = ev.Err
		if s.State == StateResettingCorrupt {
			s.State = StateError
		} else {
			s.State = StateSaveError
		}
		return s, []Effect{indicate(IndicatorError)}
	}
	return s, nil
}

func editing(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev.Type {
	case EventChange:
		applyTitle(&s, ev)
		s.State = StateChanged
		s.Generation++
		return s, []Effect{
			{Type: EffectStartDebounce, Generation: s.Generation},
			indicate(IndicatorChanged),
		}
	case EventDebounceElapsed:
		if s.State != StateChanged || ev.Generation != s.Generation {
			return s, nil
		}
		return startSave(s, nil)
	case EventSaveOnExit:
		if s.State != StateChanged {
			return s, nil
		}
		return startSave(s, []Effect{{Type: EffectCancelDebounce}})
	}
	return s, nil
}

func startSave(s Snapshot, effects []Effect) (Snapshot, []Effect) {
	s.State = StateSaving
	s.HasChangedWhileSaving = false
	return s, append(effects, saveEffect(s), indicate(IndicatorSaving))
}

func saving(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev.Type {
	case EventChange:
		// The in-flight save is never cancelled; one more save follows it.
		applyTitle(&s, ev)
		s.HasChangedWhileSaving = true
		return s, nil
	case EventSaveSuccess:
		if doc := ev.Draft; doc != nil {
			s.Draft = doc
			s.Baseline = docmodel.BuildBlocksMap(doc.Children, "")
			s.BaselineTitle = doc.Title
		}
		s.Err = nil
		if s.HasChangedWhileSaving {
			return startSave(s, nil)
		}
		s.Title = s.BaselineTitle
		s.State = StateIdle
		return s, []Effect{indicate(IndicatorSaved)}
	case EventSaveError:
		s.State = StateSaveError
		s.Err = ev.Err
		s.HasChangedWhileSaving = false
		return s, []Effect{indicate(IndicatorError)}
	}
	return s, nil
}

func saveError(s Snapshot, ev Event) (Snapshot, []Effect) {
	switch ev.Type {
	case EventChange:
		// Edits stay in the editor; autosave resumes only after recovery.
		applyTitle(&s, ev)
	case EventRestoreDraft:
		s.State = StateRestoring
		return s, []Effect{{Type: EffectRestoreDraft, DocumentID: s.DocumentID, Title: s.Title}}
	case EventResetDraft:
		s.State = StateResetting
		return s, []Effect{{Type: EffectResetDraft, DocumentID: s.DocumentID}}
	}
	return s, nil
}

func applyTitle(s *Snapshot, ev Event) {
	if ev.Title != nil {
		s.Title = *ev.Title
	}
}
