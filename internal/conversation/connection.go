package conversation

import (
	"context"

	"github.com/joss/pairkit/internal/domain"
)

// CreateParams is everything sent to start a conversation
type CreateParams struct {
	Request          domain.ConversationRequest
	WorkspaceFolder  string
	WorkspaceFolders []domain.WorkspaceFolder
}

// TurnParams is everything sent to add a turn
type TurnParams struct {
	ConversationID   string
	Request          domain.ConversationRequest
	WorkspaceFolder  string
	WorkspaceFolders []domain.WorkspaceFolder
}

// CreateResult carries backend-assigned ids. Either may be empty.
type CreateResult struct {
	ConversationID string `json:"conversationId,omitempty"`
	TurnID         string `json:"turnId,omitempty"`
}

// Connection is the backend serving one workspace
type Connection interface {
	CreateConversation(ctx context.Context, params CreateParams) (CreateResult, error)
	CreateTurn(ctx context.Context, params TurnParams) (CreateResult, error)
	CancelProgress(ctx context.Context, token string) error
	RateConversation(ctx context.Context, turnID string, rating domain.ConversationRating) error
	CopyCode(ctx context.Context, req domain.CopyCodeRequest) error
	Templates(ctx context.Context) ([]domain.ChatTemplate, error)
	Models(ctx context.Context) ([]domain.Model, error)
	Agents(ctx context.Context) ([]domain.ChatAgent, error)
	NotifyDidChangeWatchedFiles(ctx context.Context, event domain.WatchedFilesEvent) error
}

// Locator finds the connection for a workspace. ok is false when none is
// available.
type Locator interface {
	Connection(ctx context.Context, ws domain.WorkspaceInfo) (Connection, bool)
}

// FolderResolver lists the workspace folders sent with every request
type FolderResolver interface {
	Folders(ws domain.WorkspaceInfo) []domain.WorkspaceFolder
}
