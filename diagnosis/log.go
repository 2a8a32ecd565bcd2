// Package diagnosis keeps a best-effort log of draft operations: every
// change-list the autosave machine attempted, and how it ended.
//
// Writes never block callers. Entries are queued to a single writer
// goroutine and dropped when the queue is full or the rate limit is hit.
package diagnosis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/hmdraft/db"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// Entry outcomes
const (
	OutcomePending  = "pending"
	OutcomeComplete = "complete"
)

const (
	entryInsertQuery = `
		INSERT INTO draft_log (draft_id, key, value, outcome, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	pendingCompleteQuery = `
		UPDATE draft_log SET outcome = ?, completed_at = ?
		WHERE draft_id = ? AND outcome = ?`

	entriesSelectQuery = `
		SELECT id, draft_id, key, value, outcome, created_at, completed_at
		FROM draft_log WHERE draft_id = ?
		ORDER BY id`
)

// Entry is one logged operation.
type Entry struct {
	ID          int64           `json:"id"`
	DraftID     string          `json:"draft_id"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value,omitempty"`
	Outcome     string          `json:"outcome"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Options tunes the writer.
type Options struct {
	Buffer       int     // queued entries before dropping (default 256)
	MaxPerSecond float64 // <= 0 disables rate limiting
	Logger       *zap.SugaredLogger
}

type record struct {
	draftID  string
	key      string
	value    string
	complete bool
	at       time.Time
}

// Log writes draft_log rows in the background.
type Log struct {
	db      *sql.DB
	logger  *zap.SugaredLogger
	limiter *rate.Limiter
	queue   chan record
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// New starts a Log on a migrated database.
func New(database *sql.DB, opts Options) *Log {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	limit := rate.Inf
	burst := 1
	if opts.MaxPerSecond > 0 {
		limit = rate.Limit(opts.MaxPerSecond)
		if b := int(opts.MaxPerSecond); b > burst {
			burst = b
		}
	}

	l := &Log{
		db:      database,
		logger:  logger.OrNop(opts.Logger),
		limiter: rate.NewLimiter(limit, burst),
		queue:   make(chan record, opts.Buffer),
		done:    make(chan struct{}),
	}
	go l.writer()
	return l
}

// Append records an attempted operation.
func (l *Log) Append(draftID, key string, value interface{}) {
	l.enqueue(record{draftID: draftID, key: key, value: encode(value), at: time.Now().UTC()})
}

// Complete records a final entry for draftID and closes out every pending
// entry before it.
func (l *Log) Complete(draftID, key string, value interface{}) {
	l.enqueue(record{draftID: draftID, key: key, value: encode(value), complete: true, at: time.Now().UTC()})
}

// Dropped is the number of entries discarded so far.
func (l *Log) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Log) enqueue(r record) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	if !l.limiter.Allow() {
		l.drop(r, "rate limited")
		return
	}
	select {
	case l.queue <- r:
	default:
		l.drop(r, "queue full")
	}
}

func (l *Log) drop(r record, reason string) {
	l.dropped.Add(1)
	l.logger.Debugw("Diagnosis entry dropped",
		logger.FieldDocumentID, r.draftID,
		"key", r.key,
		"reason", reason,
	)
}

func (l *Log) writer() {
	defer close(l.done)
	for r := range l.queue {
		if err := l.write(r); err != nil {
			if db.IsDatabaseClosed(err) {
				l.logger.Debugw("Diagnosis entry lost, database closed", "key", r.key)
				continue
			}
			l.logger.Warnw("Failed to write diagnosis entry",
				logger.FieldDocumentID, r.draftID,
				"key", r.key,
				logger.FieldError, err,
			)
		}
	}
}

func (l *Log) write(r record) error {
	if !r.complete {
		_, err := l.db.Exec(entryInsertQuery, r.draftID, r.key, r.value, OutcomePending, r.at, nil)
		return errors.Wrap(err, "insert draft_log entry")
	}

	tx, err := l.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin draft_log transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(pendingCompleteQuery, OutcomeComplete, r.at, r.draftID, OutcomePending); err != nil {
		return errors.Wrap(err, "complete pending draft_log entries")
	}
	if _, err := tx.Exec(entryInsertQuery, r.draftID, r.key, r.value, OutcomeComplete, r.at, r.at); err != nil {
		return errors.Wrap(err, "insert draft_log entry")
	}
	return errors.Wrap(tx.Commit(), "commit draft_log entry")
}

// Entries returns the log for draftID, oldest first.
func (l *Log) Entries(ctx context.Context, draftID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, entriesSelectQuery, draftID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query log of draft %s", draftID)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var value string
		var completed sql.NullTime
		if err := rows.Scan(&e.ID, &e.DraftID, &e.Key, &value, &e.Outcome, &e.CreatedAt, &completed); err != nil {
			return nil, errors.Wrap(err, "failed to scan draft_log row")
		}
		if value != "" {
			e.Value = json.RawMessage(value)
		}
		if completed.Valid {
			t := completed.Time
			e.CompletedAt = &t
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate draft_log")
}

// Close stops accepting entries and waits until queued ones are written.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	if n := l.Dropped(); n > 0 {
		l.logger.Infow("Diagnosis log closed with dropped entries", logger.FieldCount, n)
	}
	return nil
}

// encode renders value as JSON, falling back to a JSON string.
func encode(value interface{}) string {
	if value == nil {
		return ""
	}
	if err, ok := value.(error); ok {
		value = err.Error()
	}
	b, err := json.Marshal(value)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%v", value))
	}
	return string(b)
}
