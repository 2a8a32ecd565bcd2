// Package fileeditor is a headless editor: the live block tree is a JSON file
// on disk that a person (or their text editor) changes, and the draft
// machine autosaves.
package fileeditor

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// File is the on-disk form of the editor state.
type File struct {
	ID       string                `json:"id,omitempty"`
	Title    string                `json:"title"`
	Children []*docmodel.BlockNode `json:"children"`
}

// Options configures an Editor.
type Options struct {
	Debounce time.Duration
	Logger   *zap.SugaredLogger
}

// Editor is a draft.Editor backed by a JSON file.
type Editor struct {
	path     string
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu       sync.RWMutex
	title    string
	nodes    []*docmodel.BlockNode
	lastSeen []byte // bytes last written or read, to suppress reload loops
}

var _ draft.Editor = (*Editor)(nil)

// New creates an editor for path. The file need not exist yet.
func New(path string, opts Options) *Editor {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Editor{
		path:     path,
		debounce: opts.Debounce,
		logger:   logger.OrNop(opts.Logger).With("file", filepath.Base(path)),
	}
}

// Path is the watched file.
func (e *Editor) Path() string {
	return e.path
}

// Populate replaces the file with doc. The resulting filesystem events are
// recognised as our own write and do not trigger the watch callback.
func (e *Editor) Populate(doc *docmodel.Document) error {
	if doc == nil {
		return errors.NewInvalidRequestError("populate %s: nil document", e.path)
	}
	data, err := json.MarshalIndent(File{ID: doc.ID, Title: doc.Title, Children: doc.Children}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode document")
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := writeFileAtomic(e.path, data); err != nil {
		return err
	}
	e.lastSeen = data
	e.title = doc.Title
	e.nodes = doc.Children
	return nil
}

// Blocks returns the tree parsed from the last good version of the file.
func (e *Editor) Blocks() []*docmodel.BlockNode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nodes
}

// Title returns the title parsed from the last good version of the file.
func (e *Editor) Title() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.title
}

// Reload reads the file. It reports false when the content is what we
// last wrote or read. A file that does not parse leaves the state unchanged.
func (e *Editor) Reload() (bool, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read %s", e.path)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if bytes.Equal(data, e.lastSeen) {
		return false, nil
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return false, errors.WithHint(
			errors.Wrapf(err, "failed to parse %s", e.path),
			"the file must hold a JSON object with \"title\" and \"children\"")
	}
	if _, err := docmodel.NewTree(&docmodel.Document{Children: f.Children}); err != nil {
		return false, errors.Wrapf(err, "invalid block tree in %s", e.path)
	}

	e.lastSeen = data
	e.title = f.Title
	e.nodes = f.Children
	return true, nil
}

// Watch calls fn with the current title after every debounced external
// change to the file, until ctx is done.
func (e *Editor) Watch(ctx context.Context, fn func(title string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer watcher.Close()

	// Watch the directory: editors that save by rename replace the inode
	dir := filepath.Dir(e.path)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	target := filepath.Clean(e.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(e.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			changed, err := e.Reload()
			if err != nil {
				e.logger.Warnw("Ignoring unreadable edit", logger.FieldError, err)
				continue
			}
			if !changed {
				e.logger.Debugw("File watcher ignoring own write")
				continue
			}
			e.logger.Debugw("File changed", logger.FieldCount, docmodel.CountBlocks(e.Blocks()))
			fn(e.Title())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warnw("File watcher error", logger.FieldError, err)
		}
	}
}

// writeFileAtomic writes via a temp file in the same directory and renames it into place
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Chmod(am.DefaultFilePermissions); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to set file permissions")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed to replace %s", path)
}
