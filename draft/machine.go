package draft

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// Diagnosis keys
const (
	LogGetDraft     = "getDraft"
	LogUpdateDraft  = "will.updateDraft"
	LogUpdatedDraft = "did.updateDraft"
	LogRestoreDraft = "restoreDraft"
	LogResetDraft   = "resetDraft"
)

// Options configures a Machine.
//
// OnReload and OnIndicator run on the machine's event loop, and OnIndicator
// also on the indicator's expiry timer. They must return promptly and must
// not call Close or block on Send: the loop they would wait for is the one
// running them. Hand work to another goroutine or a non-blocking channel send.
type Options struct {
	DocumentID string
	Gateway    Gateway
	Editor     Editor
	Diagnosis  Diagnosis // optional

	Comparator     docmodel.Comparator // zero value: docmodel.DefaultComparator()
	Debounce       time.Duration       // default 500ms
	MountDelay     time.Duration       // default 20ms
	SavedIndicator time.Duration       // default 2s

	// OnReload is called when recovery finished and the view must load
	// the given draft from scratch.
	OnReload func(documentID string)
	// OnIndicator is called when the save indicator changes.
	OnIndicator func(IndicatorState)

	Logger *zap.SugaredLogger
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.MountDelay <= 0 {
		o.MountDelay = 20 * time.Millisecond
	}
	if o.SavedIndicator <= 0 {
		o.SavedIndicator = 2 * time.Second
	}
	if o.Comparator.Attributes == nil && o.Comparator.Structural == nil {
		o.Comparator = docmodel.DefaultComparator()
	}
	if o.Diagnosis == nil {
		o.Diagnosis = nopDiagnosis{}
	}
}

// Machine interprets Transition on a single event loop goroutine.
// Gateway calls run on their own goroutines and report back as events,
// so at most one updateDraft is ever in flight.
type Machine struct {
	opts      Options
	differ    *docmodel.Differ
	indicator *Indicator
	log       *zap.SugaredLogger

	events chan Event
	stop   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	snap Snapshot
	subs map[int]chan Snapshot
	next int

	// owned by the loop goroutine
	debounce *time.Timer
	mount    *time.Timer

	startOnce sync.Once
	closeOnce sync.Once
}

// New validates opts and returns a stopped Machine. Call Start to fetch.
func New(opts Options) (*Machine, error) {
	if opts.DocumentID == "" {
		return nil, errors.NewInvalidRequestError("draft machine requires a document id")
	}
	if opts.Gateway == nil || opts.Editor == nil {
		return nil, errors.NewInvalidRequestError("draft machine requires a gateway and an editor")
	}
	opts.defaults()

	m := &Machine{
		opts:   opts,
		differ: docmodel.NewDiffer(opts.Comparator),
		log:    logger.OrNop(opts.Logger).With(logger.FieldDocumentID, opts.DocumentID),
		events: make(chan Event, 64),
		stop:   make(chan struct{}),
		subs:   make(map[int]chan Snapshot),
	}
	m.indicator = NewIndicator(opts.SavedIndicator, opts.OnIndicator)
	m.snap, _ = Initial(opts.DocumentID)
	return m, nil
}

// Start runs the event loop and fetches the draft.
func (m *Machine) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(ctx)
		_, effects := Initial(m.opts.DocumentID)

		m.wg.Add(1)
		go m.loop(effects)
	})
}

// Send queues ev. It returns false once the machine is closed.
func (m *Machine) Send(ev Event) bool {
	select {
	case <-m.stop:
		return false
	default:
	}
	select {
	case m.events <- ev:
		return true
	case <-m.stop:
		return false
	}
}

// Snapshot returns the current snapshot.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// State returns the current state.
func (m *Machine) State() State {
	return m.Snapshot().State
}

// Indicator returns the save-status display state.
func (m *Machine) Indicator() IndicatorState {
	return m.indicator.State()
}

// Subscribe streams snapshots. A slow subscriber only misses intermediate
// snapshots, never the latest one. Call the returned func to unsubscribe.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close flushes pending edits (SAVE.ON.EXIT), waits until no save or
// recovery is in flight, then stops the machine. ctx bounds the wait.
func (m *Machine) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		err = m.flush(ctx)

		close(m.stop)
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
		m.indicator.Stop()
	})
	return err
}

func (m *Machine) flush(ctx context.Context) error {
	if m.ctx == nil {
		return nil
	}

	sub, unsubscribe := m.Subscribe()
	defer unsubscribe()

	ack := make(chan struct{})
	select {
	case m.events <- Event{Type: EventSaveOnExit, ack: ack}:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "queue save on exit")
	}
	select {
	case <-ack:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "save on exit")
	}

	for {
		if s := m.Snapshot(); s.State.Settled() {
			if s.State == StateSaveError {
				return errors.Wrap(s.Err, "pending edits were not saved")
			}
			return nil
		}
		select {
		case <-sub:
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for %s to settle", m.State())
		}
	}
}

func (m *Machine) loop(initial []Effect) {
	defer m.wg.Done()
	defer m.stopTimers()

	m.run(initial)

	for {
		select {
		case ev := <-m.events:
			m.dispatch(ev)
		case <-m.stop:
			return
		}
	}
}

func (m *Machine) dispatch(ev Event) {
	prev := m.Snapshot()
	next, effects := Transition(prev, ev)

	if next.State != prev.State {
		m.log.Infow("Draft state changed",
			logger.FieldEvent, ev.Type,
			logger.FieldFrom, prev.State,
			logger.FieldTo, next.State,
		)
	} else if len(effects) == 0 {
		m.log.Debugw("Draft event ignored", logger.FieldEvent, ev.Type, logger.FieldState, prev.State)
	}

	m.publish(next)
	m.run(effects)

	if ev.ack != nil {
		close(ev.ack)
	}
}

func (m *Machine) publish(s Snapshot) {
	m.mu.Lock()
	m.snap = s
	subs := make([]chan Snapshot, 0, len(m.subs))
	for _, ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
			// drop the oldest so the latest always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (m *Machine) run(effects []Effect) {
	for _, eff := range effects {
		switch eff.Type {
		case EffectFetchDraft:
			m.goCall(func(ctx context.Context) Event { return m.fetch(ctx, eff.DocumentID) })
		case EffectPopulateEditor:
			if err := m.opts.Editor.Populate(eff.Draft); err != nil {
				m.log.Warnw("Failed to populate editor", logger.FieldError, err)
			}
		case EffectScheduleMount:
			m.mount = m.restart(m.mount, m.opts.MountDelay, Event{Type: EventFinishMount, Generation: eff.Generation})
		case EffectStartDebounce:
			m.debounce = m.restart(m.debounce, m.opts.Debounce, Event{Type: EventDebounceElapsed, Generation: eff.Generation})
		case EffectCancelDebounce:
			if m.debounce != nil {
				m.debounce.Stop()
			}
		case EffectSaveDraft:
			m.save(eff)
		case EffectRestoreDraft:
			nodes := m.opts.Editor.Blocks()
			m.goCall(func(ctx context.Context) Event { return m.restore(ctx, eff.DocumentID, eff.Title, nodes) })
		case EffectResetDraft:
			m.goCall(func(ctx context.Context) Event { return m.reset(ctx, eff.DocumentID) })
		case EffectReload:
			m.log.Infow("Draft reload requested", "reload_document_id", eff.DocumentID)
			if m.opts.OnReload != nil {
				m.opts.OnReload(eff.DocumentID)
			}
		case EffectIndicate:
			m.indicator.Handle(eff.Indicator)
		}
	}
}

// restart replaces t with a timer that sends ev after d.
func (m *Machine) restart(t *time.Timer, d time.Duration, ev Event) *time.Timer {
	if t != nil {
		t.Stop()
	}
	return time.AfterFunc(d, func() {
		select {
		case m.events <- ev:
		case <-m.stop:
		}
	})
}

func (m *Machine) stopTimers() {
	for _, t := range []*time.Timer{m.debounce, m.mount} {
		if t != nil {
			t.Stop()
		}
	}
}

// goCall runs fn off the loop and delivers its result event.
func (m *Machine) goCall(fn func(ctx context.Context) Event) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ev := fn(m.ctx)
		select {
		case m.events <- ev:
		case <-m.stop:
		}
	}()
}

func (m *Machine) fetch(ctx context.Context, id string) Event {
	m.opts.Diagnosis.Append(id, LogGetDraft, id)
	doc, err := m.opts.Gateway.GetDraft(ctx, id)
	if err != nil {
		m.opts.Diagnosis.Complete(id, LogGetDraft, err.Error())
		m.log.Warnw("Failed to fetch draft", logger.FieldError, err)
		return Event{Type: EventGetDraftError, Err: errors.Wrapf(err, "get draft %s", id)}
	}
	m.opts.Diagnosis.Complete(id, LogGetDraft, doc)
	return Event{Type: EventGetDraftSuccess, Draft: doc}
}

// save diffs the editor tree now, on the loop, then calls the gateway.
func (m *Machine) save(eff Effect) {
	changes, diffErr := m.differ.ComputeChanges(eff.BaselineTitle, eff.Baseline, eff.Title, m.opts.Editor.Blocks())
	id := eff.DocumentID

	m.goCall(func(ctx context.Context) Event {
		if diffErr != nil {
			m.log.Warnw("Failed to diff draft", logger.FieldError, diffErr)
			return Event{Type: EventSaveError, Err: errors.Wrapf(diffErr, "diff draft %s", id)}
		}
		if len(changes) == 0 {
			m.log.Debugw("Nothing to save")
			return Event{Type: EventSaveSuccess}
		}

		start := time.Now()
		m.opts.Diagnosis.Append(id, LogUpdateDraft, changes)
		doc, err := m.opts.Gateway.UpdateDraft(ctx, id, changes)
		if err != nil {
			m.opts.Diagnosis.Complete(id, LogUpdatedDraft, err.Error())
			m.log.Warnw("Failed to save draft",
				logger.FieldChangeCount, len(changes),
				logger.FieldError, err,
			)
			return Event{Type: EventSaveError, Err: errors.Wrapf(err, "update draft %s", id)}
		}
		m.opts.Diagnosis.Complete(id, LogUpdatedDraft, doc)
		m.log.Infow("Draft saved",
			logger.FieldChangeCount, len(changes),
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		)
		return Event{Type: EventSaveSuccess, Draft: doc}
	})
}

// restore re-diffs the local tree against the server's current draft and
// pushes that diff.
func (m *Machine) restore(ctx context.Context, id, title string, nodes []*docmodel.BlockNode) Event {
	m.opts.Diagnosis.Append(id, LogRestoreDraft, title)
	fresh, err := m.opts.Gateway.GetDraft(ctx, id)
	if err != nil {
		return m.recoveryFailed(id, LogRestoreDraft, errors.Wrapf(err, "restore: get draft %s", id))
	}

	baseline := docmodel.BuildBlocksMap(fresh.Children, "")
	changes, err := m.differ.ComputeChanges(fresh.Title, baseline, title, nodes)
	if err != nil {
		return m.recoveryFailed(id, LogRestoreDraft, errors.Wrapf(err, "restore: diff draft %s", id))
	}
	if len(changes) > 0 {
		if _, err := m.opts.Gateway.UpdateDraft(ctx, id, changes); err != nil {
			return m.recoveryFailed(id, LogRestoreDraft, errors.Wrapf(err, "restore: update draft %s", id))
		}
	}
	m.opts.Diagnosis.Complete(id, LogRestoreDraft, changes)
	return Event{Type: EventRecoverySuccess, ReloadID: id}
}

// reset discards the server draft and recreates it empty under the same id.
func (m *Machine) reset(ctx context.Context, id string) Event {
	m.opts.Diagnosis.Append(id, LogResetDraft, id)
	if err := m.opts.Gateway.DeleteDraft(ctx, id); err != nil && !errors.IsNotFoundError(err) {
		return m.recoveryFailed(id, LogResetDraft, errors.Wrapf(err, "reset: delete draft %s", id))
	}
	doc, err := m.opts.Gateway.CreateDraft(ctx, CreateOptions{ExistingDocumentID: id})
	if err != nil {
		return m.recoveryFailed(id, LogResetDraft, errors.Wrapf(err, "reset: create draft %s", id))
	}
	m.opts.Diagnosis.Complete(id, LogResetDraft, doc.ID)
	return Event{Type: EventRecoverySuccess, ReloadID: doc.ID}
}

func (m *Machine) recoveryFailed(id, key string, err error) Event {
	m.opts.Diagnosis.Complete(id, key, err.Error())
	m.log.Errorw("Draft recovery failed", logger.FieldOperation, key, logger.FieldError, err)
	return Event{Type: EventRecoveryError, Err: err}
}
