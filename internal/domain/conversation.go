package domain

// ConversationRequest carries everything needed to start a conversation or
// append a turn to one.
type ConversationRequest struct {
	TurnID        string          `json:"turnId,omitempty"`
	Content       string          `json:"content"`
	WorkDoneToken string          `json:"workDoneToken"`
	ActiveDoc     *Doc            `json:"activeDoc,omitempty"`
	Skills        []string        `json:"skills,omitempty"`
	IgnoredSkills []string        `json:"ignoredSkills,omitempty"`
	References    []FileReference `json:"references,omitempty"`
	Model         string          `json:"model,omitempty"`
	Turns         []TurnSnapshot  `json:"turns,omitempty"`
	AgentMode     bool            `json:"agentMode,omitempty"`
}

// Doc is the document focused in the editor
type Doc struct {
	URI      string `json:"uri"`
	Language string `json:"languageId,omitempty"`
	Text     string `json:"text,omitempty"`
}

// TurnSnapshot is a prior turn resent when resuming a conversation
type TurnSnapshot struct {
	Request  string `json:"request"`
	Response string `json:"response,omitempty"`
	TurnID   string `json:"turnId,omitempty"`
}

type ConversationRating int

const (
	RatingUnhelpful ConversationRating = -1
	RatingNone      ConversationRating = 0
	RatingHelpful   ConversationRating = 1
)

type CopyKind string

const (
	CopyKeyboard CopyKind = "keyboard"
	CopyToolbar  CopyKind = "toolbar"
)

type CopyCodeRequest struct {
	TurnID           string   `json:"turnId"`
	CodeBlockIndex   int      `json:"codeBlockIndex"`
	CopyType         CopyKind `json:"copyType"`
	CopiedCharacters int      `json:"copiedCharacters"`
	TotalCharacters  int      `json:"totalCharacters"`
	CopiedText       string   `json:"copiedText"`
}

type ChatTemplate struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	ShortDesc   string  `json:"shortDescription"`
	Scopes      []Scope `json:"scopes"`
}

type ChatAgent struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Scope is where a model or template may be used
type Scope string

const (
	ScopeChatPanel  Scope = "chat-panel"
	ScopeAgentPanel Scope = "agent-panel"
	ScopeEditPanel  Scope = "edit-panel"
	ScopeInline     Scope = "inline"
)

// Model is a backend-advertised language model
type Model struct {
	ModelName      string  `json:"modelName"`
	ModelFamily    string  `json:"modelFamily"`
	Scopes         []Scope `json:"scopes"`
	IsChatDefault  bool    `json:"isChatDefault"`
	IsChatFallback bool    `json:"isChatFallback"`
	Preview        bool    `json:"preview,omitempty"`
}

func (m Model) InScope(s Scope) bool {
	for _, sc := range m.Scopes {
		if sc == s {
			return true
		}
	}
	return false
}

// LLMModel is a model as stored in preferences
type LLMModel struct {
	ModelName   string `json:"modelName"`
	ModelFamily string `json:"modelFamily"`
}

func (m Model) LLM() LLMModel {
	return LLMModel{ModelName: m.ModelName, ModelFamily: m.ModelFamily}
}
