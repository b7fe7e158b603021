package conversation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/pairkit/internal/conversation"
	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/prefs"
	"github.com/joss/pairkit/internal/testutil"
)

var ws = domain.WorkspaceInfo{WorkspaceURL: "/w/App.xcworkspace", ProjectURL: "/w"}

func setup(t *testing.T, opts ...conversation.Option) (*conversation.Manager, *testutil.FakeConnection, *testutil.FakeLocator) {
	t.Helper()
	conn := testutil.NewFakeConnection()
	loc := testutil.NewFakeLocator()
	loc.Set(ws, conn)
	folders := testutil.StaticFolders{{URI: "file:///w/A", Name: "A"}}
	return conversation.NewManager(loc, folders, opts...), conn, loc
}

func TestCreateConversation(t *testing.T) {
	m, conn, _ := setup(t)
	conn.CreateResult = conversation.CreateResult{ConversationID: "conv-1", TurnID: "turn-1"}

	req := domain.ConversationRequest{
		Content:       "hello",
		WorkDoneToken: "tok-1",
		Skills:        []string{"project-context"},
		References:    []domain.FileReference{{URL: "file:///w/A/x.swift", RelativePath: "/A/x.swift", FileName: "x.swift"}},
		Turns:         []domain.TurnSnapshot{{Request: "earlier"}},
		AgentMode:     true,
	}
	conv, err := m.CreateConversation(context.Background(), req, ws)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, conversation.StateTurnInFlight, conv.State)
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, "turn-1", conv.Turns[0].ID)

	calls := conn.Calls()
	require.Len(t, calls, 1)
	params := calls[0].Params.(conversation.CreateParams)
	assert.Equal(t, "/w", params.WorkspaceFolder)
	assert.Equal(t, []domain.WorkspaceFolder{{URI: "file:///w/A", Name: "A"}}, params.WorkspaceFolders)
	assert.Equal(t, "hello", params.Request.Content)
	assert.Equal(t, "tok-1", params.Request.WorkDoneToken)
	assert.Equal(t, req.References, params.Request.References)
	assert.Equal(t, req.Turns, params.Request.Turns)
	assert.True(t, params.Request.AgentMode)

	assert.True(t, m.CompleteProgress("tok-1"))
	got, ok := m.Conversation("conv-1")
	require.True(t, ok)
	assert.Equal(t, conversation.StateActive, got.State)
	assert.False(t, m.CompleteProgress("tok-1"), "token already discarded")
}

func TestCreateConversationMintsIDs(t *testing.T) {
	m, _, _ := setup(t)
	conv, err := m.CreateConversation(context.Background(), domain.ConversationRequest{Content: "x"}, ws)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.NotEmpty(t, conv.Turns[0].ID)
	assert.NotEmpty(t, conv.Turns[0].WorkDoneToken)
}

func TestNoConnectionPolicy(t *testing.T) {
	m := conversation.NewManager(testutil.NewFakeLocator(), nil)
	ctx := context.Background()

	_, err := m.CreateConversation(ctx, domain.ConversationRequest{Content: "x"}, ws)
	assert.ErrorIs(t, err, conversation.ErrConnectionUnavailable)

	_, err = m.CreateTurn(ctx, "conv", domain.ConversationRequest{Content: "x"}, ws)
	assert.ErrorIs(t, err, conversation.ErrConnectionUnavailable)

	assert.NoError(t, m.CancelProgress(ctx, "tok", ws))
	assert.NoError(t, m.RateConversation(ctx, "turn", domain.RatingHelpful, ws))
	assert.NoError(t, m.CopyCode(ctx, domain.CopyCodeRequest{TurnID: "turn"}, ws))
	assert.NoError(t, m.NotifyDidChangeWatchedFiles(ctx, domain.WatchedFilesEvent{}, ws))

	templates, err := m.Templates(ctx, ws)
	assert.NoError(t, err)
	assert.Nil(t, templates)
	models, err := m.Models(ctx, ws)
	assert.NoError(t, err)
	assert.Nil(t, models)
	agents, err := m.Agents(ctx, ws)
	assert.NoError(t, err)
	assert.Nil(t, agents)
}

func TestNilLocator(t *testing.T) {
	m := conversation.NewManager(nil, nil)
	_, err := m.CreateConversation(context.Background(), domain.ConversationRequest{}, ws)
	assert.ErrorIs(t, err, conversation.ErrConnectionUnavailable)
}

func TestCreateTurnStates(t *testing.T) {
	m, conn, _ := setup(t)
	ctx := context.Background()
	conn.CreateResult = conversation.CreateResult{ConversationID: "c"}

	_, err := m.CreateTurn(ctx, "missing", domain.ConversationRequest{}, ws)
	assert.ErrorIs(t, err, conversation.ErrConversationNotFound)

	_, err = m.CreateConversation(ctx, domain.ConversationRequest{Content: "a", WorkDoneToken: "t1"}, ws)
	require.NoError(t, err)

	_, err = m.CreateTurn(ctx, "c", domain.ConversationRequest{Content: "b"}, ws)
	assert.ErrorIs(t, err, conversation.ErrTurnInFlight)

	m.CompleteProgress("t1")
	turn, err := m.CreateTurn(ctx, "c", domain.ConversationRequest{Content: "b", WorkDoneToken: "t2"}, ws)
	require.NoError(t, err)
	assert.Equal(t, "t2", turn.WorkDoneToken)

	conv, _ := m.Conversation("c")
	assert.Len(t, conv.Turns, 2)
	assert.Equal(t, conversation.StateTurnInFlight, conv.State)

	require.NoError(t, m.CancelProgress(ctx, "t2", ws))
	conv, _ = m.Conversation("c")
	assert.Equal(t, conversation.StateActive, conv.State)
	assert.Contains(t, conn.Methods(), "CancelProgress")

	require.NoError(t, m.Terminate("c"))
	_, err = m.CreateTurn(ctx, "c", domain.ConversationRequest{Content: "c"}, ws)
	assert.ErrorIs(t, err, conversation.ErrConversationTerminated)
	assert.ErrorIs(t, m.Terminate("missing"), conversation.ErrConversationNotFound)
}

func TestCreateTurnBackendErrorRestoresState(t *testing.T) {
	m, conn, _ := setup(t)
	ctx := context.Background()
	conn.CreateResult = conversation.CreateResult{ConversationID: "c"}
	_, err := m.CreateConversation(ctx, domain.ConversationRequest{WorkDoneToken: "t1"}, ws)
	require.NoError(t, err)
	m.CompleteProgress("t1")

	boom := errors.New("boom")
	conn.SetError("CreateTurn", boom)
	_, err = m.CreateTurn(ctx, "c", domain.ConversationRequest{}, ws)
	assert.ErrorIs(t, err, boom)

	conv, _ := m.Conversation("c")
	assert.Equal(t, conversation.StateActive, conv.State)
	assert.Len(t, conv.Turns, 1)
}

func TestProgressEndBeforeCreateReturns(t *testing.T) {
	m, conn, _ := setup(t)
	ctx := context.Background()
	conn.CreateResult = conversation.CreateResult{ConversationID: "c"}
	conn.OnCall = func(method string, params any) {
		switch p := params.(type) {
		case conversation.CreateParams:
			assert.True(t, m.CompleteProgress(p.Request.WorkDoneToken))
		case conversation.TurnParams:
			assert.True(t, m.CompleteProgress(p.Request.WorkDoneToken))
		}
	}

	conv, err := m.CreateConversation(ctx, domain.ConversationRequest{Content: "a", WorkDoneToken: "t1"}, ws)
	require.NoError(t, err)
	assert.Equal(t, conversation.StateActive, conv.State)
	assert.False(t, m.CompleteProgress("t1"), "token already discarded")

	_, err = m.CreateTurn(ctx, "c", domain.ConversationRequest{Content: "b", WorkDoneToken: "t2"}, ws)
	require.NoError(t, err)
	got, _ := m.Conversation("c")
	assert.Equal(t, conversation.StateActive, got.State)

	_, err = m.CreateTurn(ctx, "c", domain.ConversationRequest{Content: "c", WorkDoneToken: "t3"}, ws)
	require.NoError(t, err)
	got, _ = m.Conversation("c")
	assert.Len(t, got.Turns, 3)
}

func TestCancelBeforeCreateReturns(t *testing.T) {
	m, conn, _ := setup(t)
	ctx := context.Background()
	conn.CreateResult = conversation.CreateResult{ConversationID: "c"}
	conn.OnCall = func(method string, params any) {
		if p, ok := params.(conversation.CreateParams); ok {
			assert.NoError(t, m.CancelProgress(ctx, p.Request.WorkDoneToken, ws))
		}
	}

	conv, err := m.CreateConversation(ctx, domain.ConversationRequest{Content: "a", WorkDoneToken: "t1"}, ws)
	require.NoError(t, err)
	assert.Equal(t, conversation.StateActive, conv.State)
}

func TestCreateConversationErrorDiscardsToken(t *testing.T) {
	m, conn, _ := setup(t)
	conn.SetError("CreateConversation", errors.New("boom"))
	_, err := m.CreateConversation(context.Background(), domain.ConversationRequest{WorkDoneToken: "t1"}, ws)
	require.Error(t, err)
	assert.False(t, m.CompleteProgress("t1"))
}

func TestBackendErrorsPropagate(t *testing.T) {
	m, conn, _ := setup(t)
	ctx := context.Background()
	boom := errors.New("boom")
	for _, method := range []string{"CreateConversation", "RateConversation", "CopyCode", "Templates", "Models", "Agents", "CancelProgress", "NotifyDidChangeWatchedFiles"} {
		conn.SetError(method, boom)
	}

	_, err := m.CreateConversation(ctx, domain.ConversationRequest{}, ws)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.RateConversation(ctx, "t", domain.RatingUnhelpful, ws), boom)
	assert.ErrorIs(t, m.CopyCode(ctx, domain.CopyCodeRequest{}, ws), boom)
	assert.NoError(t, m.CancelProgress(ctx, "tok", ws), "cancellation is advisory")
	assert.Contains(t, conn.Methods(), "CancelProgress")
	assert.ErrorIs(t, m.NotifyDidChangeWatchedFiles(ctx, domain.WatchedFilesEvent{}, ws), boom)
	_, err = m.Templates(ctx, ws)
	assert.ErrorIs(t, err, boom)
	_, err = m.Models(ctx, ws)
	assert.ErrorIs(t, err, boom)
	_, err = m.Agents(ctx, ws)
	assert.ErrorIs(t, err, boom)
}

func TestModelsRefreshCatalogAndDefaultModel(t *testing.T) {
	p := prefs.New(nil, nil)
	m, conn, _ := setup(t, conversation.WithPrefs(p))
	conn.ModelList = []domain.Model{
		{ModelName: "GPT 4.1", ModelFamily: "gpt-4.1", Scopes: []domain.Scope{domain.ScopeChatPanel}},
		{ModelName: "Agent", ModelFamily: "agent-x", Scopes: []domain.Scope{domain.ScopeAgentPanel}, IsChatDefault: true},
	}

	models, err := m.Models(context.Background(), ws)
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Len(t, p.Catalog().Models(), 2)

	_, err = m.CreateConversation(context.Background(), domain.ConversationRequest{AgentMode: true}, ws)
	require.NoError(t, err)
	calls := conn.Calls()
	params := calls[len(calls)-1].Params.(conversation.CreateParams)
	assert.Equal(t, "agent-x", params.Request.Model)

	require.NoError(t, p.SetSelectedModel(domain.LLMModel{ModelName: "Pinned", ModelFamily: "pinned"}))
	_, err = m.CreateConversation(context.Background(), domain.ConversationRequest{Model: "explicit"}, ws)
	require.NoError(t, err)
	calls = conn.Calls()
	params = calls[len(calls)-1].Params.(conversation.CreateParams)
	assert.Equal(t, "explicit", params.Request.Model)
}

func TestTerminateDropsHistory(t *testing.T) {
	folder := history.NewFolder()
	m, conn, _ := setup(t, conversation.WithHistory(folder))
	conn.CreateResult = conversation.CreateResult{ConversationID: "c", TurnID: "turn-1"}

	_, err := m.CreateConversation(context.Background(), domain.ConversationRequest{}, ws)
	require.NoError(t, err)

	m.HistoryUpdater()("turn-1", []domain.AgentRound{{RoundID: 1}})
	assert.Len(t, m.Rounds("turn-1"), 1)

	require.NoError(t, m.Terminate("c"))
	assert.Empty(t, m.Rounds("turn-1"))
}

func TestWorkspacesAreIndependent(t *testing.T) {
	m, _, loc := setup(t)
	other := domain.WorkspaceInfo{ProjectURL: "/other"}
	otherConn := testutil.NewFakeConnection()
	loc.Set(other, otherConn)

	_, err := m.CreateConversation(context.Background(), domain.ConversationRequest{}, other)
	require.NoError(t, err)
	assert.Equal(t, []string{"CreateConversation"}, otherConn.Methods())

	loc.Remove(other)
	_, err = m.CreateConversation(context.Background(), domain.ConversationRequest{}, other)
	assert.ErrorIs(t, err, conversation.ErrConnectionUnavailable)
	_, err = m.CreateConversation(context.Background(), domain.ConversationRequest{}, ws)
	assert.NoError(t, err)
}
