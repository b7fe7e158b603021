// Package tool implements client-side agent tools and their dispatcher.
package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/metrics"
)

// Tool is one client-side capability. Invoke returns false when the request
// is not addressed to this tool; in that case it must not touch done. When it
// returns true it owns done and completes it exactly once.
type Tool interface {
	Info() domain.Tool
	Invoke(ctx context.Context, req *domain.ToolCallRequest, done Completer, hist history.Updater, env Environment) bool
}

// Registry holds the tools in registration order and dispatches calls to them
type Registry struct {
	mu       sync.Mutex
	order    []string
	tools    map[string]Tool
	calls    map[string]*Completion
	log      *logging.Logger
	recovery *logging.RecoveryHandler
}

func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		calls:    make(map[string]*Completion),
		log:      logging.New("tool"),
		recovery: logging.NewRecoveryHandler("tool"),
	}
}

// Register adds t. A later tool with the same name replaces the earlier one
// but keeps its position.
func (r *Registry) Register(t Tool) {
	name := t.Info().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// All returns tool descriptors in registration order
func (r *Registry) All() []domain.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Info())
	}
	return out
}

// Forget releases the completion kept for a tool call id
func (r *Registry) Forget(toolCallID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, toolCallID)
}

// Dispatch routes req to the tool named by req.Name, then to every other tool
// until one handles it. A request no tool handles completes with an
// UnknownTool error. Repeated tool call ids return the first Completion
// without re-running the tool.
func (r *Registry) Dispatch(ctx context.Context, req *domain.ToolCallRequest, hist history.Updater, env Environment) *Completion {
	if req == nil {
		c := NewCompletion()
		c.Complete(ErrorResult("", newError(InvalidInput, "Invalid parameters", nil)))
		return c
	}

	r.mu.Lock()
	if c, ok := r.calls[req.ToolCallID]; ok && req.ToolCallID != "" {
		r.mu.Unlock()
		r.log.Warn("tool.duplicate_call", map[string]any{"tool": req.Name, "tool_call_id": req.ToolCallID}, nil)
		return c
	}
	c := NewCompletion()
	start := time.Now()
	fields := map[string]any{
		"tool":            req.Name,
		"tool_call_id":    req.ToolCallID,
		"turn_id":         req.TurnID,
		"conversation_id": req.ConversationID,
		"correlation_id":  logging.Correlation(ctx),
	}
	c.onFire = func(res domain.ToolInvocationResult) {
		metrics.RecordTool(req.Name, string(res.Status), time.Since(start))
		r.log.TimedEvent("tool.completed", start, merge(fields, map[string]any{"status": string(res.Status)}))
	}
	if req.ToolCallID != "" {
		r.calls[req.ToolCallID] = c
	}
	candidates := r.candidatesLocked(req.Name)
	r.mu.Unlock()

	r.log.Debug("tool.dispatch", fields)

	for _, t := range candidates {
		var handled bool
		err := r.recovery.WrapError(func() error {
			handled = t.Invoke(ctx, req, c, hist, env)
			return nil
		})
		if err != nil {
			c.Complete(ErrorResult(req.ToolCallID, newError(Internal, "Tool failed unexpectedly", err)))
			return c
		}
		if handled {
			return c
		}
	}

	c.Complete(ErrorResult(req.ToolCallID, newError(UnknownTool, r.unknownMessage(req.Name), nil)))
	return c
}

func (r *Registry) candidatesLocked(name string) []Tool {
	out := make([]Tool, 0, len(r.order))
	if t, ok := r.tools[name]; ok {
		out = append(out, t)
	}
	for _, n := range r.order {
		if n != name {
			out = append(out, r.tools[n])
		}
	}
	return out
}

// unknownMessage lists similar tool names first, then every available tool.
func (r *Registry) unknownMessage(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tool '%s' is not available.", name)

	all := r.All()
	if len(all) == 0 {
		return sb.String()
	}

	lower := strings.ToLower(name)
	var similar, names []string
	for _, t := range all {
		names = append(names, t.Name)
		tl := strings.ToLower(t.Name)
		if lower != "" && (strings.Contains(tl, lower) || strings.Contains(lower, tl)) {
			similar = append(similar, t.Name)
		}
	}
	if len(similar) > 0 {
		fmt.Fprintf(&sb, " Did you mean: %s?", strings.Join(similar, ", "))
	}
	sort.Strings(names)
	fmt.Fprintf(&sb, " Available tools: %s", strings.Join(names, ", "))
	return sb.String()
}

// ErrorResult converts a failure into the result reported to the backend
func ErrorResult(toolCallID string, err error) domain.ToolInvocationResult {
	return domain.ToolInvocationResult{
		ToolCallID: toolCallID,
		Status:     domain.ToolStatusError,
		Message:    err.Error(),
	}
}

// CompletedResult is a successful result carrying msg
func CompletedResult(toolCallID, msg string) domain.ToolInvocationResult {
	return domain.ToolInvocationResult{
		ToolCallID: toolCallID,
		Status:     domain.ToolStatusCompleted,
		Message:    msg,
	}
}

// DefaultRegistry registers every built-in tool
func DefaultRegistry(revealer Revealer) *Registry {
	r := NewRegistry()
	r.Register(NewCreateFile(revealer))
	r.Register(NewInsertEdit(revealer))
	r.Register(NewReplaceString(revealer))
	r.Register(NewReadFile())
	r.Register(NewFileSearch())
	return r
}

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
