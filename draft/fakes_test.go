package draft

import (
	"context"
	"sync"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/errors"
)

// fakeGateway keeps drafts in memory and applies changes with docmodel.Tree.
// With hold enabled, UpdateDraft signals entered and waits for release.
type fakeGateway struct {
	mu      sync.Mutex
	docs    map[string]*docmodel.Document
	updates [][]docmodel.DocumentChange

	getErr    error
	updateErr error

	hold    bool
	entered chan struct{}
	release chan struct{}
	created []CreateOptions
	deleted []string
}

func newFakeGateway(docs ...*docmodel.Document) *fakeGateway {
	g := &fakeGateway{
		docs:    map[string]*docmodel.Document{},
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	for _, d := range docs {
		g.docs[d.ID] = d
	}
	return g
}

func (g *fakeGateway) set(fn func(g *fakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

func (g *fakeGateway) doc(id string) *docmodel.Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.docs[id]
}

func (g *fakeGateway) updateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates)
}

func (g *fakeGateway) GetDraft(_ context.Context, id string) (*docmodel.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	d, ok := g.docs[id]
	if !ok {
		return nil, errors.NewNotFoundError("no draft for entity %s", id)
	}
	return cloneDoc(d), nil
}

func (g *fakeGateway) UpdateDraft(ctx context.Context, id string, changes []docmodel.DocumentChange) (*docmodel.Document, error) {
	g.mu.Lock()
	g.updates = append(g.updates, changes)
	hold, err := g.hold, g.updateErr
	g.mu.Unlock()

	if hold {
		g.entered <- struct{}{}
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.docs[id]
	if !ok {
		return nil, errors.NewNotFoundError("no draft for entity %s", id)
	}
	tree, err := docmodel.NewTree(d)
	if err != nil {
		return nil, err
	}
	if err := tree.Apply(changes...); err != nil {
		return nil, err
	}
	g.docs[id] = tree.Document()
	return cloneDoc(g.docs[id]), nil
}

func (g *fakeGateway) CreateDraft(_ context.Context, opts CreateOptions) (*docmodel.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, opts)
	id := opts.ExistingDocumentID
	if id == "" {
		id = "new-draft"
	}
	if _, ok := g.docs[id]; ok {
		return nil, errors.NewConflictError("draft %s already exists", id)
	}
	g.docs[id] = &docmodel.Document{ID: id, Title: opts.Title}
	return cloneDoc(g.docs[id]), nil
}

func (g *fakeGateway) DeleteDraft(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	if _, ok := g.docs[id]; !ok {
		return errors.NewNotFoundError("no draft for entity %s", id)
	}
	delete(g.docs, id)
	return nil
}

func cloneDoc(d *docmodel.Document) *docmodel.Document {
	tree, err := docmodel.NewTree(d)
	if err != nil {
		panic(err)
	}
	return tree.Document()
}

// fakeEditor is a live tree that tests replace wholesale.
type fakeEditor struct {
	mu        sync.Mutex
	nodes     []*docmodel.BlockNode
	populated int
}

func (e *fakeEditor) Populate(doc *docmodel.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.populated++
	e.nodes = cloneDoc(doc).Children
	return nil
}

func (e *fakeEditor) Blocks() []*docmodel.BlockNode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nodes
}

func (e *fakeEditor) setBlocks(nodes ...*docmodel.BlockNode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodes = nodes
}

type fakeDiagnosis struct {
	mu   sync.Mutex
	keys []string
}

func (d *fakeDiagnosis) Append(_, key string, _ interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, "append:"+key)
}

func (d *fakeDiagnosis) Complete(_, key string, _ interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, "complete:"+key)
}

func (d *fakeDiagnosis) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.keys...)
}
