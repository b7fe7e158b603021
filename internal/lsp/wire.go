package lsp

import (
	"github.com/joss/pairkit/internal/conversation"
	"github.com/joss/pairkit/internal/domain"
)

const (
	MethodInitialize            = "initialize"
	MethodInitialized           = "initialized"
	MethodShutdown              = "shutdown"
	MethodExit                  = "exit"
	MethodRegisterTools         = "conversation/registerTools"
	MethodConversationCreate    = "conversation/create"
	MethodConversationTurn      = "conversation/turn"
	MethodConversationRating    = "conversation/rating"
	MethodConversationCopyCode  = "conversation/copyCode"
	MethodConversationTemplates = "conversation/templates"
	MethodConversationAgents    = "conversation/agents"
	MethodModels                = "copilot/models"
	MethodProgressCancel        = "window/workDoneProgress/cancel"
	MethodDidChangeWatchedFiles = "workspace/didChangeWatchedFiles"
	MethodProgress              = "$/progress"
	MethodInvokeClientTool      = "conversation/invokeClientTool"
)

const agentChatMode = "Agent"

type turnWire struct {
	Request  string `json:"request"`
	Response string `json:"response,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
}

type capabilitiesWire struct {
	Skills    []string `json:"skills"`
	AllSkills bool     `json:"allSkills"`
}

type createWire struct {
	WorkDoneToken    string                   `json:"workDoneToken"`
	Turns            []turnWire               `json:"turns"`
	Capabilities     capabilitiesWire         `json:"capabilities"`
	TextDocument     *domain.Doc              `json:"textDocument,omitempty"`
	Source           string                   `json:"source"`
	WorkspaceFolder  string                   `json:"workspaceFolder,omitempty"`
	WorkspaceFolders []domain.WorkspaceFolder `json:"workspaceFolders,omitempty"`
	IgnoredSkills    []string                 `json:"ignoredSkills,omitempty"`
	References       []domain.FileReference   `json:"references,omitempty"`
	Model            string                   `json:"model,omitempty"`
	ChatMode         string                   `json:"chatMode,omitempty"`
}

type turnRequestWire struct {
	WorkDoneToken    string                   `json:"workDoneToken"`
	ConversationID   string                   `json:"conversationId"`
	Message          string                   `json:"message"`
	TextDocument     *domain.Doc              `json:"textDocument,omitempty"`
	IgnoredSkills    []string                 `json:"ignoredSkills,omitempty"`
	References       []domain.FileReference   `json:"references,omitempty"`
	Model            string                   `json:"model,omitempty"`
	WorkspaceFolder  string                   `json:"workspaceFolder,omitempty"`
	WorkspaceFolders []domain.WorkspaceFolder `json:"workspaceFolders,omitempty"`
	ChatMode         string                   `json:"chatMode,omitempty"`
}

type ratingWire struct {
	TurnID string                    `json:"turnId"`
	Rating domain.ConversationRating `json:"rating"`
}

type cancelWire struct {
	Token string `json:"token"`
}

type registerToolsWire struct {
	Tools []domain.Tool `json:"tools"`
}

type progressWire struct {
	Token string `json:"token"`
	Value struct {
		Kind string `json:"kind"`
	} `json:"value"`
}

type toolContentWire struct {
	Value string `json:"value"`
}

type toolResultWire struct {
	Content []toolContentWire `json:"content"`
	Status  string            `json:"status"`
}

func chatMode(agent bool) string {
	if agent {
		return agentChatMode
	}
	return ""
}

func encodeCreate(p conversation.CreateParams) createWire {
	req := p.Request
	turns := make([]turnWire, 0, len(req.Turns)+1)
	for _, t := range req.Turns {
		turns = append(turns, turnWire{Request: t.Request, Response: t.Response, TurnID: t.TurnID})
	}
	turns = append(turns, turnWire{Request: req.Content})

	skills := req.Skills
	if skills == nil {
		skills = []string{}
	}
	return createWire{
		WorkDoneToken:    req.WorkDoneToken,
		Turns:            turns,
		Capabilities:     capabilitiesWire{Skills: skills},
		TextDocument:     req.ActiveDoc,
		Source:           "panel",
		WorkspaceFolder:  p.WorkspaceFolder,
		WorkspaceFolders: p.WorkspaceFolders,
		IgnoredSkills:    req.IgnoredSkills,
		References:       req.References,
		Model:            req.Model,
		ChatMode:         chatMode(req.AgentMode),
	}
}

func encodeTurn(p conversation.TurnParams) turnRequestWire {
	req := p.Request
	return turnRequestWire{
		WorkDoneToken:    req.WorkDoneToken,
		ConversationID:   p.ConversationID,
		Message:          req.Content,
		TextDocument:     req.ActiveDoc,
		IgnoredSkills:    req.IgnoredSkills,
		References:       req.References,
		Model:            req.Model,
		WorkspaceFolder:  p.WorkspaceFolder,
		WorkspaceFolders: p.WorkspaceFolders,
		ChatMode:         chatMode(req.AgentMode),
	}
}

// encodeToolResult builds the [result, error] pair the backend expects
func encodeToolResult(res domain.ToolInvocationResult) []any {
	return []any{
		toolResultWire{
			Content: []toolContentWire{{Value: res.Message}},
			Status:  string(res.Status),
		},
		nil,
	}
}
