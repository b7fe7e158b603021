// Package history folds tool-call rounds into per-turn conversation history.
package history

import (
	"sync"

	"github.com/joss/pairkit/internal/domain"
)

// Updater is the history sink handed to tools: it appends rounds to a turn.
type Updater func(turnID string, rounds []domain.AgentRound)

// Fold appends next to existing, preserving order. Round ids are not
// deduplicated; callers mint unique ids upstream.
func Fold(existing, next []domain.AgentRound) []domain.AgentRound {
	out := make([]domain.AgentRound, 0, len(existing)+len(next))
	out = append(out, existing...)
	return append(out, next...)
}

// Listener observes a turn's full history after each append
type Listener func(turnID string, rounds []domain.AgentRound)

// Folder keeps the round sequence of every turn. Safe for concurrent use;
// append order is the order Append calls acquire the lock, and listeners
// see snapshots in that same order. Listeners must not call Append.
type Folder struct {
	mu        sync.RWMutex
	notifyMu  sync.Mutex
	turns     map[string][]domain.AgentRound
	listeners []Listener
}

func NewFolder() *Folder {
	return &Folder{turns: make(map[string][]domain.AgentRound)}
}

// Append folds rounds into turnID's history
func (f *Folder) Append(turnID string, rounds []domain.AgentRound) {
	if len(rounds) == 0 {
		return
	}

	f.mu.Lock()
	all := Fold(f.turns[turnID], rounds)
	f.turns[turnID] = all
	listeners := append([]Listener(nil), f.listeners...)
	// taken before mu is released so notification keeps append order
	f.notifyMu.Lock()
	f.mu.Unlock()
	defer f.notifyMu.Unlock()

	for _, l := range listeners {
		l(turnID, copyRounds(all))
	}
}

// Rounds returns a copy of turnID's history
func (f *Folder) Rounds(turnID string) []domain.AgentRound {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyRounds(f.turns[turnID])
}

// Updater returns Append as a history sink
func (f *Folder) Updater() Updater {
	return f.Append
}

// Subscribe registers l for every subsequent append
func (f *Folder) Subscribe(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

// Drop forgets a turn
func (f *Folder) Drop(turnID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.turns, turnID)
}

func copyRounds(rs []domain.AgentRound) []domain.AgentRound {
	if rs == nil {
		return nil
	}
	out := make([]domain.AgentRound, len(rs))
	copy(out, rs)
	return out
}
