// Package watch reports filesystem changes under a workspace root in
// debounced batches.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/workspace"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	tickInterval    = 100 * time.Millisecond
)

// NotifyFunc receives each flushed batch
type NotifyFunc func(ctx context.Context, event domain.WatchedFilesEvent) error

type Options struct {
	Debounce time.Duration
	// Skip excludes a path and, for directories, everything below it.
	// Defaults to workspace.ShouldSkip.
	Skip func(path string) bool
}

type pending struct {
	kind protocol.FileChangeType
	at   time.Time
}

// Watcher batches changes under one root
type Watcher struct {
	root    string
	rootURI string
	notify  NotifyFunc
	opts    Options
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu      sync.Mutex
	pending map[string]pending

	closeOnce sync.Once
	done      chan struct{}
}

// New registers root and every non-skipped directory below it
func New(root string, notify NotifyFunc, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Skip == nil {
		opts.Skip = workspace.ShouldSkip
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:    root,
		rootURI: string(uri.File(root)),
		notify:  notify,
		opts:    opts,
		watcher: fw,
		log:     logging.New("watch").WithWorkspace(root),
		pending: make(map[string]pending),
		done:    make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.opts.Skip(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("watch.add_failed", map[string]any{"path": path}, err)
		}
		return nil
	})
}

// Run processes events until ctx ends or Close is called. Pending changes
// are flushed before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer w.flush(context.WithoutCancel(ctx), true)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch.error", nil, err)
		case <-ticker.C:
			w.flush(ctx, false)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if w.skipped(path) {
		return
	}

	var kind protocol.FileChangeType
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = protocol.FileChangeTypeCreated
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.log.Warn("watch.add_failed", map[string]any{"path": path}, err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		kind = protocol.FileChangeTypeChanged
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = protocol.FileChangeTypeDeleted
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok := w.pending[path]
	if ok && prev.kind == protocol.FileChangeTypeCreated && kind == protocol.FileChangeTypeChanged {
		// A write right after create is still a create.
		kind = prev.kind
	}
	w.pending[path] = pending{kind: kind, at: time.Now()}
}

// skipped applies Skip to path and every directory between it and the root
func (w *Watcher) skipped(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	p := w.root
	for _, part := range splitPath(rel) {
		p = filepath.Join(p, part)
		if w.opts.Skip(p) {
			return true
		}
	}
	return false
}

func splitPath(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// flush sends the changes that have been quiet for the debounce window, or
// all of them when force is set.
func (w *Watcher) flush(ctx context.Context, force bool) {
	now := time.Now()
	w.mu.Lock()
	var changes []domain.FileChange
	for path, p := range w.pending {
		if force || now.Sub(p.at) >= w.opts.Debounce {
			changes = append(changes, domain.FileChange{
				URI:  protocol.DocumentURI(uri.File(path)),
				Type: p.kind,
			})
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(changes) == 0 {
		return
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].URI < changes[j].URI })

	event := domain.WatchedFilesEvent{WorkspaceURI: w.rootURI, Changes: changes}
	if err := w.notify(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Error("watch.notify_failed", map[string]any{"changes": len(changes)}, err)
		return
	}
	w.log.Debug("watch.flushed", map[string]any{"changes": len(changes)})
}

// Close stops Run and releases the fsnotify watcher
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
