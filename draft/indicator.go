package draft

import (
	"sync"
	"time"
)

// IndicatorState is what a save-status badge shows.
type IndicatorState string

const (
	IndicatorIdle    IndicatorState = "idle"
	IndicatorChanged IndicatorState = "changed"
	IndicatorSaving  IndicatorState = "saving"
	IndicatorSaved   IndicatorState = "saved"
	IndicatorError   IndicatorState = "error"
)

// IndicatorEvent drives the Indicator. Events share names with the states they enter.
type IndicatorEvent = IndicatorState

// Indicator is a non-blocking save-status display model. "saved" falls back
// to "idle" after a delay; everything else sticks until the next event.
type Indicator struct {
	mu       sync.Mutex
	state    IndicatorState
	savedFor time.Duration
	timer    *time.Timer
	gen      uint64
	onChange func(IndicatorState)
}

// NewIndicator returns an idle Indicator. onChange may be nil.
func NewIndicator(savedFor time.Duration, onChange func(IndicatorState)) *Indicator {
	return &Indicator{state: IndicatorIdle, savedFor: savedFor, onChange: onChange}
}

// State returns the current display state.
func (i *Indicator) State() IndicatorState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Handle applies ev.
func (i *Indicator) Handle(ev IndicatorEvent) {
	i.mu.Lock()
	if ev == IndicatorChanged && i.state == IndicatorSaving {
		// stays "saving" until the follow-up save reports
		i.mu.Unlock()
		return
	}
	i.gen++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	if ev == IndicatorSaved && i.savedFor > 0 {
		gen := i.gen
		i.timer = time.AfterFunc(i.savedFor, func() { i.expire(gen) })
	}
	changed := i.set(ev)
	i.mu.Unlock()

	i.notify(changed, ev)
}

func (i *Indicator) expire(gen uint64) {
	i.mu.Lock()
	if gen != i.gen || i.state != IndicatorSaved {
		i.mu.Unlock()
		return
	}
	changed := i.set(IndicatorIdle)
	i.mu.Unlock()

	i.notify(changed, IndicatorIdle)
}

func (i *Indicator) set(s IndicatorState) bool {
	if i.state == s {
		return false
	}
	i.state = s
	return true
}

func (i *Indicator) notify(changed bool, s IndicatorState) {
	if changed && i.onChange != nil {
		i.onChange(s)
	}
}

// Stop cancels a pending saved→idle timer.
func (i *Indicator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gen++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}
