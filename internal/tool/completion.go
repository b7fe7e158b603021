package tool

import (
	"context"
	"sync"

	"github.com/joss/pairkit/internal/domain"
)

// Completer is the single channel from a tool back to the protocol layer
type Completer interface {
	// Complete reports the terminal result. Only the first call takes
	// effect; it returns false for every later call.
	Complete(result domain.ToolInvocationResult) bool
}

// Completion is a single-fire result slot
type Completion struct {
	once   sync.Once
	done   chan struct{}
	result domain.ToolInvocationResult
	onFire func(domain.ToolInvocationResult)
}

var _ Completer = (*Completion)(nil)

func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) Complete(result domain.ToolInvocationResult) bool {
	fired := false
	c.once.Do(func() {
		c.result = result
		close(c.done)
		fired = true
	})
	if fired && c.onFire != nil {
		c.onFire(result)
	}
	return fired
}

// Done is closed once the result is available
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Result returns the result if Complete has been called
func (c *Completion) Result() (domain.ToolInvocationResult, bool) {
	select {
	case <-c.done:
		return c.result, true
	default:
		return domain.ToolInvocationResult{}, false
	}
}

// Wait blocks until the result is available or ctx ends
func (c *Completion) Wait(ctx context.Context) (domain.ToolInvocationResult, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		return domain.ToolInvocationResult{}, ctx.Err()
	}
}
