// Package ledger records every tool-caused file mutation so it can be undone.
//
// The ledger is append-only from the tools' point of view. Undo replays the
// newest records in reverse order through an Undoer registered per tool name;
// the ledger itself never touches the filesystem.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/metrics"
)

// ErrNoUndoer is returned when a record's tool has no registered Undoer
var ErrNoUndoer = errors.New("no undoer registered for tool")

// Store persists records. Implementations must preserve append order.
type Store interface {
	Append(ctx context.Context, rec *domain.FileEditRecord) error
	List(ctx context.Context) ([]domain.FileEditRecord, error)
	Remove(ctx context.Context, seq int64) error
	Close() error
}

// Undoer reverts one record's mutation
type Undoer func(ctx context.Context, rec domain.FileEditRecord) error

// Ledger is safe for concurrent use
type Ledger struct {
	store Store
	log   *logging.Logger

	mu      sync.RWMutex
	undoers map[string]Undoer
}

// New creates a ledger over store. A nil store means in-memory.
func New(store Store) *Ledger {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Ledger{
		store:   store,
		log:     logging.New("ledger"),
		undoers: make(map[string]Undoer),
	}
}

// RegisterUndoer sets the undo procedure for records made by toolName
func (l *Ledger) RegisterUndoer(toolName string, u Undoer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.undoers[toolName] = u
}

// Record appends an edit. Repeated edits to one file produce separate records.
func (l *Ledger) Record(ctx context.Context, edit domain.FileEditRecord) (domain.FileEditRecord, error) {
	if edit.CreatedAt.IsZero() {
		edit.CreatedAt = time.Now()
	}
	if err := l.store.Append(ctx, &edit); err != nil {
		l.log.Error("ledger.append_failed", map[string]any{"file": edit.FileURL, "tool": edit.ToolName}, err)
		return edit, fmt.Errorf("append record: %w", err)
	}
	metrics.LedgerRecords.WithLabelValues(edit.ToolName).Inc()
	l.log.Debug("ledger.recorded", map[string]any{"file": edit.FileURL, "tool": edit.ToolName, "seq": edit.Seq})
	return edit, nil
}

// Records returns every record in append order
func (l *Ledger) Records(ctx context.Context) ([]domain.FileEditRecord, error) {
	return l.store.List(ctx)
}

// ForTurn returns the records attributed to one turn, in append order
func (l *Ledger) ForTurn(ctx context.Context, turnID string) ([]domain.FileEditRecord, error) {
	all, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.FileEditRecord
	for _, r := range all {
		if r.TurnID == turnID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Undo reverts the newest n records, newest first. It stops at the first
// failure; records undone before it are removed from the ledger.
func (l *Ledger) Undo(ctx context.Context, n int) ([]domain.FileEditRecord, error) {
	all, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(all) {
		n = len(all)
	}

	var undone []domain.FileEditRecord
	for i := len(all) - 1; i >= len(all)-n; i-- {
		rec := all[i]

		l.mu.RLock()
		u, ok := l.undoers[rec.ToolName]
		l.mu.RUnlock()
		if !ok {
			return undone, fmt.Errorf("%w: %s", ErrNoUndoer, rec.ToolName)
		}

		if err := u(ctx, rec); err != nil {
			l.log.Error("ledger.undo_failed", map[string]any{"file": rec.FileURL, "seq": rec.Seq}, err)
			return undone, fmt.Errorf("undo %s: %w", rec.FileURL, err)
		}
		if err := l.store.Remove(ctx, rec.Seq); err != nil {
			return undone, fmt.Errorf("remove record %d: %w", rec.Seq, err)
		}
		undone = append(undone, rec)
	}
	return undone, nil
}

// UndoAll reverts every record
func (l *Ledger) UndoAll(ctx context.Context) ([]domain.FileEditRecord, error) {
	return l.Undo(ctx, 0)
}

// Close releases the store
func (l *Ledger) Close() error {
	return l.store.Close()
}
