// Package prefs holds user preferences that shape conversation requests:
// chat mode, selected model and the advertised model catalog.
package prefs

import (
	"encoding/json"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/logging"
)

const (
	KeyChatMode      = "selectedChatMode"
	KeySelectedModel = "selectedLLM"
)

type ChatMode string

const (
	ModeAsk   ChatMode = "Ask"
	ModeAgent ChatMode = "Agent"
)

// ParseChatMode maps anything other than exactly "Agent" to Ask
func ParseChatMode(s string) ChatMode {
	if s == string(ModeAgent) {
		return ModeAgent
	}
	return ModeAsk
}

// Prefs is the preference context passed to components that need it
type Prefs struct {
	backing Backing
	catalog *Catalog
	log     *logging.Logger
}

// New binds preferences to a backing store and a catalog. Either may be nil.
func New(backing Backing, catalog *Catalog) *Prefs {
	if backing == nil {
		backing = NewMemoryBacking()
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Prefs{backing: backing, catalog: catalog, log: logging.New("prefs")}
}

func (p *Prefs) Catalog() *Catalog { return p.catalog }

func (p *Prefs) ChatMode() ChatMode {
	raw, ok := p.backing.Get(KeyChatMode)
	if !ok {
		return ModeAsk
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ModeAsk
	}
	return ParseChatMode(s)
}

// SetChatMode stores mode as given. Reads normalize unknown values to Ask.
func (p *Prefs) SetChatMode(mode ChatMode) error {
	return p.backing.Set(KeyChatMode, string(mode))
}

func (p *Prefs) AgentModeEnabled() bool {
	return p.ChatMode() == ModeAgent
}

// Scope is the model scope of the current chat mode
func (p *Prefs) Scope() domain.Scope {
	if p.AgentModeEnabled() {
		return domain.ScopeAgentPanel
	}
	return domain.ScopeChatPanel
}

func (p *Prefs) SelectedModel() (domain.LLMModel, bool) {
	raw, ok := p.backing.Get(KeySelectedModel)
	if !ok {
		return domain.LLMModel{}, false
	}
	var m domain.LLMModel
	if err := json.Unmarshal(raw, &m); err != nil || m.ModelName == "" {
		return domain.LLMModel{}, false
	}
	return m, true
}

func (p *Prefs) SetSelectedModel(m domain.LLMModel) error {
	return p.backing.Set(KeySelectedModel, m)
}

// EffectiveModel is the selected model, else the catalog default for the
// current scope.
func (p *Prefs) EffectiveModel() (domain.LLMModel, bool) {
	if m, ok := p.SelectedModel(); ok {
		return m, true
	}
	return p.catalog.Default(p.Scope())
}

// SwitchMode changes the chat mode. A selected model that is not available
// in the new scope is replaced by that scope's default, or its first model.
func (p *Prefs) SwitchMode(mode ChatMode) error {
	if err := p.SetChatMode(mode); err != nil {
		return err
	}
	current, ok := p.SelectedModel()
	if !ok {
		return nil
	}

	scope := p.Scope()
	available := p.catalog.Available(scope)
	if len(available) == 0 {
		return nil
	}
	for _, m := range available {
		if m.ModelName == current.ModelName {
			return nil
		}
	}

	next, ok := p.catalog.Default(scope)
	if !ok {
		next = available[0]
	}
	p.log.Info("prefs.model_switched", map[string]any{
		"from":  current.ModelName,
		"to":    next.ModelName,
		"scope": string(scope),
	})
	return p.SetSelectedModel(next)
}
