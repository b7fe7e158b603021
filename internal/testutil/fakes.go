package testutil

import (
	"context"
	"sync"

	"github.com/joss/pairkit/internal/conversation"
	"github.com/joss/pairkit/internal/domain"
)

// Call is one recorded backend call
type Call struct {
	Method string
	Params any
}

// FakeConnection records every call. Errors keyed by method name are
// returned from that method.
type FakeConnection struct {
	mu sync.Mutex

	Errors       map[string]error
	CreateResult conversation.CreateResult
	TurnResult   conversation.CreateResult
	TemplateList []domain.ChatTemplate
	ModelList    []domain.Model
	AgentList    []domain.ChatAgent

	// OnCall runs after a call is recorded, outside the fake's lock
	OnCall func(method string, params any)

	calls []Call
}

var _ conversation.Connection = (*FakeConnection)(nil)

func NewFakeConnection() *FakeConnection {
	return &FakeConnection{Errors: make(map[string]error)}
}

func (f *FakeConnection) record(method string, params any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	err, hook := f.Errors[method], f.OnCall
	f.mu.Unlock()
	if hook != nil {
		hook(method, params)
	}
	return err
}

// SetError scripts err for method
func (f *FakeConnection) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[method] = err
}

func (f *FakeConnection) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods lists recorded method names in call order
func (f *FakeConnection) Methods() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

func (f *FakeConnection) CreateConversation(ctx context.Context, params conversation.CreateParams) (conversation.CreateResult, error) {
	if err := f.record("CreateConversation", params); err != nil {
		return conversation.CreateResult{}, err
	}
	return f.CreateResult, nil
}

func (f *FakeConnection) CreateTurn(ctx context.Context, params conversation.TurnParams) (conversation.CreateResult, error) {
	if err := f.record("CreateTurn", params); err != nil {
		return conversation.CreateResult{}, err
	}
	return f.TurnResult, nil
}

func (f *FakeConnection) CancelProgress(ctx context.Context, token string) error {
	return f.record("CancelProgress", token)
}

func (f *FakeConnection) RateConversation(ctx context.Context, turnID string, rating domain.ConversationRating) error {
	return f.record("RateConversation", map[string]any{"turnId": turnID, "rating": rating})
}

func (f *FakeConnection) CopyCode(ctx context.Context, req domain.CopyCodeRequest) error {
	return f.record("CopyCode", req)
}

func (f *FakeConnection) Templates(ctx context.Context) ([]domain.ChatTemplate, error) {
	if err := f.record("Templates", nil); err != nil {
		return nil, err
	}
	return f.TemplateList, nil
}

func (f *FakeConnection) Models(ctx context.Context) ([]domain.Model, error) {
	if err := f.record("Models", nil); err != nil {
		return nil, err
	}
	return f.ModelList, nil
}

func (f *FakeConnection) Agents(ctx context.Context) ([]domain.ChatAgent, error) {
	if err := f.record("Agents", nil); err != nil {
		return nil, err
	}
	return f.AgentList, nil
}

func (f *FakeConnection) NotifyDidChangeWatchedFiles(ctx context.Context, event domain.WatchedFilesEvent) error {
	return f.record("NotifyDidChangeWatchedFiles", event)
}

// FakeLocator maps workspace keys to connections
type FakeLocator struct {
	mu    sync.Mutex
	conns map[string]conversation.Connection
}

var _ conversation.Locator = (*FakeLocator)(nil)

func NewFakeLocator() *FakeLocator {
	return &FakeLocator{conns: make(map[string]conversation.Connection)}
}

func (l *FakeLocator) Set(ws domain.WorkspaceInfo, conn conversation.Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conns[ws.Key()] = conn
}

func (l *FakeLocator) Remove(ws domain.WorkspaceInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, ws.Key())
}

func (l *FakeLocator) Connection(ctx context.Context, ws domain.WorkspaceInfo) (conversation.Connection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.conns[ws.Key()]
	return c, ok
}

// StaticFolders returns the same folders for every workspace
type StaticFolders []domain.WorkspaceFolder

func (s StaticFolders) Folders(domain.WorkspaceInfo) []domain.WorkspaceFolder {
	return s
}
