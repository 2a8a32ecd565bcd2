// Package draftstore persists drafts in SQLite and applies change-lists to them.
// It is the reference implementation of the drafts gateway.
package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// Query constants
const (
	draftSelectQuery = `
		SELECT id, title, author, create_time, update_time
		FROM drafts WHERE id = ?`

	draftInsertQuery = `
		INSERT INTO drafts (id, title, author, create_time, update_time)
		VALUES (?, ?, ?, ?, ?)`

	draftUpdateQuery = `
		UPDATE drafts SET title = ?, update_time = ? WHERE id = ?`

	draftDeleteQuery = `
		DELETE FROM drafts WHERE id = ?`

	draftListQuery = `
		SELECT d.id, d.title, d.author, d.create_time, d.update_time,
			(SELECT COUNT(*) FROM draft_blocks b WHERE b.draft_id = d.id)
		FROM drafts d
		ORDER BY d.update_time DESC, d.id`

	blocksSelectQuery = `
		SELECT block_id, parent, left_sibling, content
		FROM draft_blocks WHERE draft_id = ?
		ORDER BY parent, position`

	blocksDeleteQuery = `
		DELETE FROM draft_blocks WHERE draft_id = ?`

	blockInsertQuery = `
		INSERT INTO draft_blocks (draft_id, block_id, parent, left_sibling, position, content)
		VALUES (?, ?, ?, ?, ?, ?)`
)

// Summary is a draft list entry.
type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	BlockCount int       `json:"blockCount"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Store is a SQLite-backed draft.Gateway.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time

	mu       sync.RWMutex
	watchers map[int]func(Event)
	nextID   int
}

var _ draft.Gateway = (*Store)(nil)

// New creates a store on a migrated database.
func New(db *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{
		db:       db,
		logger:   logger.OrNop(log),
		now:      func() time.Time { return time.Now().UTC() },
		watchers: make(map[int]func(Event)),
	}
}

// GetDraft returns the draft for id, hydrated into its nested form.
func (s *Store) GetDraft(ctx context.Context, id string) (*docmodel.Document, error) {
	doc, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateDraft creates an empty draft. With ExistingDocumentID the draft takes
// that id (drafts of published documents); otherwise a UUIDv7 is assigned.
func (s *Store) CreateDraft(ctx context.Context, opts draft.CreateOptions) (*docmodel.Document, error) {
	id := opts.ExistingDocumentID
	if id == "" {
		u, err := uuid.NewV7()
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate draft id")
		}
		id = u.String()
	} else {
		exists, err := s.exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.WithHint(
				errors.NewConflictError("draft for document %s already exists", id),
				"open the existing draft or delete it first")
		}
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx, draftInsertQuery, id, opts.Title, opts.Author, now, now); err != nil {
		return nil, errors.Wrapf(err, "failed to insert draft %s", id)
	}

	s.logger.Infow("Draft created", logger.FieldDocumentID, id)
	s.notify(Event{Type: EventDraftCreated, DocumentID: id, Time: now})

	return &docmodel.Document{
		ID:         id,
		Title:      opts.Title,
		Author:     opts.Author,
		CreateTime: now,
		UpdateTime: now,
	}, nil
}

// UpdateDraft applies changes in order inside one transaction. Either every
// change lands or none does.
func (s *Store) UpdateDraft(ctx context.Context, id string, changes []docmodel.DocumentChange) (*docmodel.Document, error) {
	if len(changes) == 0 {
		return nil, errors.NewInvalidRequestError("update draft %s: empty change-list", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	doc, err := s.load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	tree, err := docmodel.NewTree(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "stored draft %s is corrupt", id)
	}
	if err := tree.Apply(changes...); err != nil {
		return nil, errors.Wrapf(err, "update draft %s", id)
	}

	tree.UpdateTime = s.now()
	if _, err := tx.ExecContext(ctx, draftUpdateQuery, tree.Title, tree.UpdateTime, id); err != nil {
		return nil, errors.Wrapf(err, "failed to update draft %s", id)
	}
	updated := tree.Document()
	if err := writeBlocks(ctx, tx, id, updated.Children); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit draft update")
	}

	counts := docmodel.CountByKind(changes)
	s.logger.Infow("Draft updated",
		logger.FieldDocumentID, id,
		logger.FieldChangeCount, len(changes),
		logger.FieldDeleteCount, counts[docmodel.KindDeleteBlock],
	)
	s.notify(Event{Type: EventDraftUpdated, DocumentID: id, Time: tree.UpdateTime})
	return updated, nil
}

// DeleteDraft removes the draft and its blocks.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, blocksDeleteQuery, id); err != nil {
		return errors.Wrapf(err, "failed to delete blocks of draft %s", id)
	}
	res, err := tx.ExecContext(ctx, draftDeleteQuery, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete draft %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("no draft for entity %s", id)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit draft delete")
	}

	s.logger.Infow("Draft deleted", logger.FieldDocumentID, id)
	s.notify(Event{Type: EventDraftDeleted, DocumentID: id, Time: s.now()})
	return nil
}

// ListDrafts returns all drafts, most recently updated first. Untitled drafts
// get a title derived from their content.
func (s *Store) ListDrafts(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, draftListQuery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list drafts")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Author, &sum.CreateTime, &sum.UpdateTime, &sum.BlockCount); err != nil {
			return nil, errors.Wrap(err, "failed to scan draft row")
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate drafts")
	}

	for i := range out {
		if out[i].Title != "" || out[i].BlockCount == 0 {
			continue
		}
		doc, err := s.load(ctx, s.db, out[i].ID)
		if err != nil {
			s.logger.Warnw("Failed to derive draft title", logger.FieldDocumentID, out[i].ID, logger.FieldError, err)
			continue
		}
		out[i].Title = docmodel.TitleFromContent(doc.Children)
	}
	return out, nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM drafts WHERE id = ?)`, id).Scan(&found)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check draft %s", id)
	}
	return found == 1, nil
}

func (s *Store) load(ctx context.Context, q queryer, id string) (*docmodel.Document, error) {
	doc := &docmodel.Document{}
	err := q.QueryRowContext(ctx, draftSelectQuery, id).
		Scan(&doc.ID, &doc.Title, &doc.Author, &doc.CreateTime, &doc.UpdateTime)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("no draft for entity %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query draft %s", id)
	}

	rows, err := q.QueryContext(ctx, blocksSelectQuery, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query blocks of draft %s", id)
	}
	defer rows.Close()

	m := make(docmodel.BlocksMap)
	for rows.Next() {
		var blockID, parent, left, content string
		if err := rows.Scan(&blockID, &parent, &left, &content); err != nil {
			return nil, errors.Wrap(err, "failed to scan block row")
		}
		var b docmodel.Block
		if err := json.Unmarshal([]byte(content), &b); err != nil {
			return nil, errors.WithDetailf(errors.Wrapf(err, "block %s of draft %s has invalid content", blockID, id), "content: %s", content)
		}
		b.ID = blockID
		m[blockID] = docmodel.BlocksMapItem{Parent: parent, Left: left, Block: &b}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate blocks")
	}

	doc.Children = m.Nodes()
	return doc, nil
}

func writeBlocks(ctx context.Context, q queryer, id string, nodes []*docmodel.BlockNode) error {
	if _, err := q.ExecContext(ctx, blocksDeleteQuery, id); err != nil {
		return errors.Wrapf(err, "failed to clear blocks of draft %s", id)
	}

	var err error
	positions := make(map[string]int)
	lastChild := make(map[string]string)
	docmodel.Walk(nodes, func(n *docmodel.BlockNode, parent string) {
		if err != nil {
			return
		}
		content, merr := json.Marshal(n.Block)
		if merr != nil {
			err = errors.Wrapf(merr, "failed to marshal block %s", n.Block.ID)
			return
		}
		pos := positions[parent]
		positions[parent]++
		left := lastChild[parent]
		lastChild[parent] = n.Block.ID

		if _, xerr := q.ExecContext(ctx, blockInsertQuery, id, n.Block.ID, parent, left, pos, string(content)); xerr != nil {
			err = errors.Wrapf(xerr, "failed to insert block %s", n.Block.ID)
		}
	})
	return err
}
