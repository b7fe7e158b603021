package domain

import "time"

// FileEditRecord captures one tool-caused file mutation.
// Records are appended to the ledger and never changed afterwards.
type FileEditRecord struct {
	Seq             int64     `json:"seq"`
	FileURL         string    `json:"fileURL"`
	OriginalContent string    `json:"originalContent"`
	ModifiedContent string    `json:"modifiedContent"`
	ToolName        string    `json:"toolName"`
	ConversationID  string    `json:"conversationId,omitempty"`
	TurnID          string    `json:"turnId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
