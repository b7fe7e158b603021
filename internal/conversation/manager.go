// Package conversation manages conversations and turns against the backend
// connection of each workspace.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/metrics"
	"github.com/joss/pairkit/internal/prefs"
)

type State int

const (
	StateActive State = iota + 1
	StateTurnInFlight
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTurnInFlight:
		return "turn_in_flight"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Turn is one request/response exchange
type Turn struct {
	ID             string
	ConversationID string
	WorkDoneToken  string
	Content        string
	Model          string
	CreatedAt      time.Time
}

// Conversation is a snapshot of a conversation's state
type Conversation struct {
	ID        string
	Workspace domain.WorkspaceInfo
	State     State
	Turns     []Turn
	CreatedAt time.Time
}

// tokenEntry tracks a live work-done token. A token is registered before
// the backend call that carries it; conversationID stays empty until a new
// conversation's id is known, and done records a completion that arrived
// in the meantime.
type tokenEntry struct {
	workspace      string
	conversationID string
	done           bool
}

// Manager drives the conversation state machine. Its lock guards maps only
// and is never held across backend calls.
type Manager struct {
	locator Locator
	folders FolderResolver
	prefs   *prefs.Prefs
	history *history.Folder
	log     *logging.Logger

	mu            sync.Mutex
	conversations map[string]*Conversation
	tokens        map[string]tokenEntry
}

type Option func(*Manager)

func WithPrefs(p *prefs.Prefs) Option {
	return func(m *Manager) { m.prefs = p }
}

func WithHistory(f *history.Folder) Option {
	return func(m *Manager) { m.history = f }
}

func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager. folders may be nil, in which case requests
// carry no workspace folders.
func NewManager(locator Locator, folders FolderResolver, opts ...Option) *Manager {
	m := &Manager{
		locator:       locator,
		folders:       folders,
		log:           logging.New("conversation"),
		conversations: make(map[string]*Conversation),
		tokens:        make(map[string]tokenEntry),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) connection(ctx context.Context, ws domain.WorkspaceInfo) (Connection, bool) {
	if m.locator == nil {
		return nil, false
	}
	return m.locator.Connection(ctx, ws)
}

func (m *Manager) workspaceFolders(ws domain.WorkspaceInfo) []domain.WorkspaceFolder {
	if m.folders == nil {
		return nil
	}
	return m.folders.Folders(ws)
}

// prepare fills the token and model the caller left empty
func (m *Manager) prepare(req domain.ConversationRequest) domain.ConversationRequest {
	if req.WorkDoneToken == "" {
		req.WorkDoneToken = uuid.NewString()
	}
	if req.TurnID == "" {
		req.TurnID = ulid.Make().String()
	}
	if req.Model == "" && m.prefs != nil {
		if sel, ok := m.prefs.SelectedModel(); ok {
			req.Model = sel.ModelFamily
		} else if def, ok := m.prefs.Catalog().Default(scopeFor(req.AgentMode)); ok {
			req.Model = def.ModelFamily
		}
	}
	return req
}

func scopeFor(agentMode bool) domain.Scope {
	if agentMode {
		return domain.ScopeAgentPanel
	}
	return domain.ScopeChatPanel
}

// CreateConversation starts a conversation. The first turn is in flight
// until its token completes or is cancelled.
func (m *Manager) CreateConversation(ctx context.Context, req domain.ConversationRequest, ws domain.WorkspaceInfo) (*Conversation, error) {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		metrics.RecordConversation("create", "no_connection")
		return nil, fmt.Errorf("create conversation: %w", ErrConnectionUnavailable)
	}

	req = m.prepare(req)
	params := CreateParams{
		Request:          req,
		WorkspaceFolder:  ws.ProjectURL,
		WorkspaceFolders: m.workspaceFolders(ws),
	}

	m.mu.Lock()
	m.tokens[req.WorkDoneToken] = tokenEntry{workspace: ws.Key()}
	m.mu.Unlock()

	start := time.Now()
	res, err := conn.CreateConversation(ctx, params)
	if err != nil {
		m.mu.Lock()
		delete(m.tokens, req.WorkDoneToken)
		m.mu.Unlock()
		metrics.RecordConversation("create", "error")
		m.log.Error("conversation.create_failed", map[string]any{"workspace": ws.Key()}, err)
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	metrics.RecordConversation("create", "ok")

	id := res.ConversationID
	if id == "" {
		id = ulid.Make().String()
	}
	turnID := req.TurnID
	if res.TurnID != "" {
		turnID = res.TurnID
	}

	now := time.Now()
	conv := &Conversation{
		ID:        id,
		Workspace: ws,
		State:     StateTurnInFlight,
		CreatedAt: now,
		Turns: []Turn{{
			ID:             turnID,
			ConversationID: id,
			WorkDoneToken:  req.WorkDoneToken,
			Content:        req.Content,
			Model:          req.Model,
			CreatedAt:      now,
		}},
	}

	m.mu.Lock()
	m.conversations[id] = conv
	if entry, ok := m.tokens[req.WorkDoneToken]; ok && !entry.done {
		entry.conversationID = id
		m.tokens[req.WorkDoneToken] = entry
	} else {
		// finished or cancelled while the backend call was outstanding
		delete(m.tokens, req.WorkDoneToken)
		conv.State = StateActive
	}
	snapshot := conv.snapshot()
	m.mu.Unlock()

	m.log.TimedEvent("conversation.created", start, map[string]any{
		"conversation_id": id,
		"turn_id":         turnID,
		"workspace":       ws.Key(),
		"agent_mode":      req.AgentMode,
	})
	return snapshot, nil
}

// CreateTurn adds a turn to an active conversation
func (m *Manager) CreateTurn(ctx context.Context, conversationID string, req domain.ConversationRequest, ws domain.WorkspaceInfo) (*Turn, error) {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		metrics.RecordConversation("turn", "no_connection")
		return nil, fmt.Errorf("create turn: %w", ErrConnectionUnavailable)
	}

	req = m.prepare(req)

	m.mu.Lock()
	conv, ok := m.conversations[conversationID]
	switch {
	case !ok:
		m.mu.Unlock()
		return nil, fmt.Errorf("create turn %s: %w", conversationID, ErrConversationNotFound)
	case conv.State == StateTerminated:
		m.mu.Unlock()
		return nil, fmt.Errorf("create turn %s: %w", conversationID, ErrConversationTerminated)
	case conv.State == StateTurnInFlight:
		m.mu.Unlock()
		return nil, fmt.Errorf("create turn %s: %w", conversationID, ErrTurnInFlight)
	}
	conv.State = StateTurnInFlight
	m.tokens[req.WorkDoneToken] = tokenEntry{workspace: ws.Key(), conversationID: conversationID}
	m.mu.Unlock()

	params := TurnParams{
		ConversationID:   conversationID,
		Request:          req,
		WorkspaceFolder:  ws.ProjectURL,
		WorkspaceFolders: m.workspaceFolders(ws),
	}

	res, err := conn.CreateTurn(ctx, params)
	if err != nil {
		m.mu.Lock()
		if _, live := m.tokens[req.WorkDoneToken]; live {
			delete(m.tokens, req.WorkDoneToken)
			if conv.State == StateTurnInFlight {
				conv.State = StateActive
			}
		}
		m.mu.Unlock()
		metrics.RecordConversation("turn", "error")
		m.log.Error("conversation.turn_failed", map[string]any{"conversation_id": conversationID}, err)
		return nil, fmt.Errorf("create turn: %w", err)
	}
	metrics.RecordConversation("turn", "ok")

	turn := Turn{
		ID:             req.TurnID,
		ConversationID: conversationID,
		WorkDoneToken:  req.WorkDoneToken,
		Content:        req.Content,
		Model:          req.Model,
		CreatedAt:      time.Now(),
	}
	if res.TurnID != "" {
		turn.ID = res.TurnID
	}

	m.mu.Lock()
	if conv.State == StateTerminated {
		m.mu.Unlock()
		return nil, fmt.Errorf("create turn %s: %w", conversationID, ErrConversationTerminated)
	}
	conv.Turns = append(conv.Turns, turn)
	m.mu.Unlock()

	m.log.Info("conversation.turn_created", map[string]any{"conversation_id": conversationID, "turn_id": turn.ID})
	return &turn, nil
}

// release discards token and returns its conversation to Active
func (m *Manager) release(token string) (tokenEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tokens[token]
	if !ok || entry.done {
		return tokenEntry{}, false
	}
	if entry.conversationID == "" {
		entry.done = true
		m.tokens[token] = entry
		return entry, true
	}
	delete(m.tokens, token)
	if conv, ok := m.conversations[entry.conversationID]; ok && conv.State == StateTurnInFlight {
		conv.State = StateActive
	}
	return entry, true
}

// CompleteProgress marks the operation behind token finished. It reports
// whether the token was live.
func (m *Manager) CompleteProgress(token string) bool {
	_, ok := m.release(token)
	return ok
}

// CancelProgress asks the backend to stop the operation behind token. The
// token is discarded either way. Cancellation is advisory: a failed notify
// is logged, not returned, and without a connection this is a no-op.
func (m *Manager) CancelProgress(ctx context.Context, token string, ws domain.WorkspaceInfo) error {
	m.release(token)

	conn, ok := m.connection(ctx, ws)
	if !ok {
		metrics.RecordConversation("cancel", "no_connection")
		return nil
	}
	if err := conn.CancelProgress(ctx, token); err != nil {
		metrics.RecordConversation("cancel", "error")
		m.log.Warn("conversation.cancel_failed", map[string]any{"token": token}, err)
		return nil
	}
	metrics.RecordConversation("cancel", "ok")
	return nil
}

// RateConversation sends a rating for a turn. No-op without a connection.
func (m *Manager) RateConversation(ctx context.Context, turnID string, rating domain.ConversationRating, ws domain.WorkspaceInfo) error {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		metrics.RecordConversation("rate", "no_connection")
		return nil
	}
	if err := conn.RateConversation(ctx, turnID, rating); err != nil {
		metrics.RecordConversation("rate", "error")
		return fmt.Errorf("rate conversation: %w", err)
	}
	metrics.RecordConversation("rate", "ok")
	return nil
}

// CopyCode reports a code-block copy. No-op without a connection.
func (m *Manager) CopyCode(ctx context.Context, req domain.CopyCodeRequest, ws domain.WorkspaceInfo) error {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		metrics.RecordConversation("copy_code", "no_connection")
		return nil
	}
	if err := conn.CopyCode(ctx, req); err != nil {
		metrics.RecordConversation("copy_code", "error")
		return fmt.Errorf("copy code: %w", err)
	}
	metrics.RecordConversation("copy_code", "ok")
	return nil
}

// Templates returns nil, nil without a connection
func (m *Manager) Templates(ctx context.Context, ws domain.WorkspaceInfo) ([]domain.ChatTemplate, error) {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		return nil, nil
	}
	out, err := conn.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	return out, nil
}

// Models returns nil, nil without a connection. A successful fetch also
// refreshes the attached model catalog.
func (m *Manager) Models(ctx context.Context, ws domain.WorkspaceInfo) ([]domain.Model, error) {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		return nil, nil
	}
	out, err := conn.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("models: %w", err)
	}
	if m.prefs != nil {
		m.prefs.Catalog().Update(out)
	}
	return out, nil
}

// Agents returns nil, nil without a connection
func (m *Manager) Agents(ctx context.Context, ws domain.WorkspaceInfo) ([]domain.ChatAgent, error) {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		return nil, nil
	}
	out, err := conn.Agents(ctx)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	return out, nil
}

// NotifyDidChangeWatchedFiles forwards file changes. No-op without a
// connection.
func (m *Manager) NotifyDidChangeWatchedFiles(ctx context.Context, event domain.WatchedFilesEvent, ws domain.WorkspaceInfo) error {
	conn, ok := m.connection(ctx, ws)
	if !ok {
		return nil
	}
	if err := conn.NotifyDidChangeWatchedFiles(ctx, event); err != nil {
		return fmt.Errorf("notify watched files: %w", err)
	}
	return nil
}

// Terminate ends a conversation, discarding its live tokens and round
// history.
func (m *Manager) Terminate(conversationID string) error {
	m.mu.Lock()
	conv, ok := m.conversations[conversationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("terminate %s: %w", conversationID, ErrConversationNotFound)
	}
	conv.State = StateTerminated
	for token, e := range m.tokens {
		if e.conversationID == conversationID {
			delete(m.tokens, token)
		}
	}
	turns := append([]Turn(nil), conv.Turns...)
	m.mu.Unlock()

	if m.history != nil {
		for _, t := range turns {
			m.history.Drop(t.ID)
		}
	}
	m.log.Info("conversation.terminated", map[string]any{"conversation_id": conversationID})
	return nil
}

// Conversation returns a snapshot of the conversation
func (m *Manager) Conversation(id string) (*Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, false
	}
	return conv.snapshot(), true
}

// HistoryUpdater is the sink handed to tools. Nil without attached history.
func (m *Manager) HistoryUpdater() history.Updater {
	if m.history == nil {
		return nil
	}
	return m.history.Updater()
}

// Rounds returns the folded round history of a turn
func (m *Manager) Rounds(turnID string) []domain.AgentRound {
	if m.history == nil {
		return nil
	}
	return m.history.Rounds(turnID)
}

func (c *Conversation) snapshot() *Conversation {
	out := *c
	out.Turns = append([]Turn(nil), c.Turns...)
	return &out
}
