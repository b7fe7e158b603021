package prefs

import (
	"sync"

	"github.com/joss/pairkit/internal/domain"
)

// FallbackFamily is preferred when no model in a scope is the chat default
const FallbackFamily = "gpt-4.1"

// Catalog is the set of models the backend advertises
type Catalog struct {
	mu     sync.RWMutex
	models []domain.Model
	subs   map[int]func([]domain.Model)
	nextID int
}

func NewCatalog() *Catalog {
	return &Catalog{subs: make(map[int]func([]domain.Model))}
}

// Update replaces the catalog and notifies subscribers
func (c *Catalog) Update(models []domain.Model) {
	c.mu.Lock()
	c.models = append([]domain.Model(nil), models...)
	snapshot := append([]domain.Model(nil), c.models...)
	subs := make([]func([]domain.Model), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (c *Catalog) Models() []domain.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Model(nil), c.models...)
}

// Available lists the models usable in scope, in catalog order
func (c *Catalog) Available(scope domain.Scope) []domain.LLMModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.LLMModel
	for _, m := range c.models {
		if m.InScope(scope) {
			out = append(out, m.LLM())
		}
	}
	return out
}

// Default picks the chat default in scope, then the fallback family, then
// the first model in scope.
func (c *Catalog) Default(scope domain.Scope) (domain.LLMModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var inScope []domain.Model
	for _, m := range c.models {
		if m.InScope(scope) {
			inScope = append(inScope, m)
		}
	}
	for _, m := range inScope {
		if m.IsChatDefault {
			return m.LLM(), true
		}
	}
	for _, m := range inScope {
		if m.ModelFamily == FallbackFamily {
			return m.LLM(), true
		}
	}
	if len(inScope) > 0 {
		return inScope[0].LLM(), true
	}
	return domain.LLMModel{}, false
}

// Subscribe registers fn for every later Update. The returned func
// unregisters it.
func (c *Catalog) Subscribe(fn func([]domain.Model)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}
