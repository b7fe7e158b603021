package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Backing is a key/value store for preference values
type Backing interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, value any) error
}

// MemoryBacking keeps preferences for the life of the process
type MemoryBacking struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

func NewMemoryBacking() *MemoryBacking {
	return &MemoryBacking{values: make(map[string]json.RawMessage)}
}

func (b *MemoryBacking) Get(key string) (json.RawMessage, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *MemoryBacking) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = data
	return nil
}

// FileBacking persists preferences as one JSON object. The file is re-read
// on every Get so separate processes see each other's writes.
type FileBacking struct {
	mu   sync.Mutex
	path string
}

func NewFileBacking(path string) *FileBacking {
	return &FileBacking{path: path}
}

func (b *FileBacking) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}
	values := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return values, nil
}

func (b *FileBacking) Get(key string) (json.RawMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	values, err := b.load()
	if err != nil {
		return nil, false
	}
	v, ok := values[key]
	return v, ok
}

func (b *FileBacking) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	values, err := b.load()
	if err != nil {
		return err
	}
	values[key] = raw

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
