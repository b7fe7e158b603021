package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/goleak"

	"github.com/joss/pairkit/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu     sync.Mutex
	events []domain.WatchedFilesEvent
}

func (c *collector) notify(ctx context.Context, e domain.WatchedFilesEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) changes() map[protocol.DocumentURI]protocol.FileChangeType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[protocol.DocumentURI]protocol.FileChangeType)
	for _, e := range c.events {
		for _, ch := range e.Changes {
			out[ch.URI] = ch.Type
		}
	}
	return out
}

func start(t *testing.T, root string, c *collector) *Watcher {
	t.Helper()
	w, err := New(root, c.notify, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		w.Close()
		<-done
	})
	return w
}

func fileURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(path))
}

func TestWatcherReportsCreate(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	start(t, root, c)

	path := filepath.Join(root, "a.swift")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.Eventually(t, func() bool {
		_, ok := c.changes()[fileURI(path)]
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	c.mu.Lock()
	assert.Equal(t, string(uri.File(root)), c.events[0].WorkspaceURI)
	c.mu.Unlock()
}

func TestWatcherReportsDelete(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.swift")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	c := &collector{}
	start(t, root, c)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return c.changes()[fileURI(path)] == protocol.FileChangeTypeDeleted
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Sources"), 0755))
	c := &collector{}
	start(t, root, c)

	ignored := filepath.Join(root, ".git", "HEAD")
	kept := filepath.Join(root, "Sources", "main.swift")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0644))

	require.Eventually(t, func() bool {
		_, ok := c.changes()[fileURI(kept)]
		return ok
	}, 3*time.Second, 20*time.Millisecond)
	_, ok := c.changes()[fileURI(ignored)]
	assert.False(t, ok)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	start(t, root, c)

	dir := filepath.Join(root, "New")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.Eventually(t, func() bool {
		_, ok := c.changes()[fileURI(dir)]
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	path := filepath.Join(dir, "b.swift")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.Eventually(t, func() bool {
		_, ok := c.changes()[fileURI(path)]
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHandleCoalesces(t *testing.T) {
	c := &collector{}
	root := t.TempDir()
	w, err := New(root, c.notify, Options{Debounce: time.Hour})
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(root, "a.swift")
	w.handle(fsEvent(path, "create"))
	w.handle(fsEvent(path, "write"))
	w.handle(fsEvent(path, "write"))

	w.flush(context.Background(), false)
	assert.Empty(t, c.events, "still inside the debounce window")

	w.flush(context.Background(), true)
	require.Len(t, c.events, 1)
	require.Len(t, c.events[0].Changes, 1)
	assert.Equal(t, protocol.FileChangeTypeCreated, c.events[0].Changes[0].Type)

	w.handle(fsEvent(path, "write"))
	w.handle(fsEvent(path, "remove"))
	w.flush(context.Background(), true)
	require.Len(t, c.events, 2)
	assert.Equal(t, protocol.FileChangeTypeDeleted, c.events[1].Changes[0].Type)
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, splitPath("."))
	assert.Equal(t, []string{"a", "b", "c"}, splitPath(filepath.Join("a", "b", "c")))
}
