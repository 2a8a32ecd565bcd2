package draft

import (
	"github.com/teranos/hmdraft/docmodel"
)

// EffectType names a side effect requested by Transition.
type EffectType string

const (
	EffectFetchDraft     EffectType = "fetchDraft"
	EffectPopulateEditor EffectType = "populateEditor"
	EffectScheduleMount  EffectType = "scheduleMount"
	EffectStartDebounce  EffectType = "startDebounce"
	EffectCancelDebounce EffectType = "cancelDebounce"
	EffectSaveDraft      EffectType = "saveDraft"
	EffectRestoreDraft   EffectType = "restoreDraft"
	EffectResetDraft     EffectType = "resetDraft"
	EffectReload         EffectType = "reload"
	EffectIndicate       EffectType = "indicate"
)

// Effect is performed by the Machine after a transition.
type Effect struct {
	Type       EffectType
	DocumentID string

	Draft *docmodel.Document // populateEditor

	// saveDraft diffs the live editor tree against Baseline.
	Baseline      docmodel.BlocksMap
	BaselineTitle string
	Title         string // saveDraft, restoreDraft

	Generation uint64         // scheduleMount, startDebounce
	Indicator  IndicatorEvent // indicate
}

func indicate(ev IndicatorEvent) Effect {
	return Effect{Type: EffectIndicate, Indicator: ev}
}

func saveEffect(s Snapshot) Effect {
	return Effect{
		Type:          EffectSaveDraft,
		DocumentID:    s.DocumentID,
		Baseline:      s.Baseline,
		BaselineTitle: s.BaselineTitle,
		Title:         s.Title,
	}
}
