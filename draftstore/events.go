package draftstore

import "time"

// Event types broadcast to watchers
const (
	EventDraftCreated = "draft_created"
	EventDraftUpdated = "draft_updated"
	EventDraftDeleted = "draft_deleted"
)

// Event reports a committed change to a draft.
type Event struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"document_id"`
	Time       time.Time `json:"time"`
}

// Watch registers fn for every committed change. fn runs on the writer's
// goroutine and must not block. Call the returned func to stop watching.
func (s *Store) Watch(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.watchers {
		fn(ev)
	}
}
