package fileeditor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hmdraft/docmodel"
)

func testDoc() *docmodel.Document {
	return &docmodel.Document{
		ID:    "doc-1",
		Title: "Draft",
		Children: []*docmodel.BlockNode{
			docmodel.Node(&docmodel.Block{ID: "a", Type: "paragraph", Text: "first"}),
		},
	}
}

func newEditor(t *testing.T) *Editor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draft.json")
	return New(path, Options{Debounce: 10 * time.Millisecond, Logger: zaptest.NewLogger(t).Sugar()})
}

func writeExternal(t *testing.T, path string, f File) {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

type titles struct {
	mu  sync.Mutex
	got []string
}

func (c *titles) add(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, title)
}

func (c *titles) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

// watch starts Watch and returns once the watcher is registered.
func watch(t *testing.T, e *Editor) *titles {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	got := &titles{}
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx, got.add) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// let Watch register with fsnotify
	time.Sleep(50 * time.Millisecond)
	return got
}

func TestPopulateWritesFile(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.Populate(testDoc()))

	data, err := os.ReadFile(e.Path())
	require.NoError(t, err)

	var f File
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, "doc-1", f.ID)
	assert.Equal(t, "Draft", f.Title)
	require.Len(t, f.Children, 1)
	assert.Equal(t, "first", f.Children[0].Block.Text)

	assert.Equal(t, "Draft", e.Title())
	assert.Len(t, e.Blocks(), 1)
}

func TestPopulateNil(t *testing.T) {
	e := newEditor(t)
	assert.Error(t, e.Populate(nil))
}

func TestReloadSkipsOwnWrite(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.Populate(testDoc()))

	changed, err := e.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReloadRejectsDuplicateIDs(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.Populate(testDoc()))

	writeExternal(t, e.Path(), File{Title: "Dup", Children: []*docmodel.BlockNode{
		docmodel.Node(&docmodel.Block{ID: "a", Type: "paragraph"}),
		docmodel.Node(&docmodel.Block{ID: "a", Type: "paragraph"}),
	}})

	_, err := e.Reload()
	require.Error(t, err)
	assert.Equal(t, "Draft", e.Title())
}

func TestWatchReportsExternalEdit(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.Populate(testDoc()))
	got := watch(t, e)

	writeExternal(t, e.Path(), File{ID: "doc-1", Title: "Edited", Children: []*docmodel.BlockNode{
		docmodel.Node(&docmodel.Block{ID: "a", Type: "paragraph", Text: "first"}),
		docmodel.Node(&docmodel.Block{ID: "b", Type: "paragraph", Text: "second"}),
	}})

	require.Eventually(t, func() bool { return len(got.list()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Edited", got.list()[0])
	assert.Equal(t, 2, docmodel.CountBlocks(e.Blocks()))
}

func TestWatchIgnoresPopulate(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.Populate(testDoc()))
	got := watch(t, e)

	doc := testDoc()
	doc.Title = "Reloaded"
	require.NoError(t, e.Populate(doc))

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, got.list())
	assert.Equal(t, "Reloaded", e.Title())
}

func TestWatchIgnoresInvalidJSON(t *testing.T) {
	e := newEditor(t)
	require.NoError(t, e.Populate(testDoc()))
	got := watch(t, e)

	require.NoError(t, os.WriteFile(e.Path(), []byte(`{"title": "half`), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, got.list())
	assert.Equal(t, "Draft", e.Title())
	assert.Len(t, e.Blocks(), 1)

	writeExternal(t, e.Path(), File{Title: "Fixed", Children: testDoc().Children})
	require.Eventually(t, func() bool { return len(got.list()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Fixed"}, got.list())
}

func TestWatchMissingDirectory(t *testing.T) {
	e := New(filepath.Join(t.TempDir(), "missing", "draft.json"), Options{})
	assert.Error(t, e.Watch(context.Background(), func(string) {}))
}
