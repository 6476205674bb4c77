package prompt

import (
	"strings"

	"fichecode/internal/assistant"
	"fichecode/internal/fiche"
)

// DefaultAssistants are always offered. Those a fiche does not rate get
// fiche.DefaultLevel.
var DefaultAssistants = []string{"chatgpt", "perplexity", "mistral"}

// Action is a downstream assistant link the user may be offered.
type Action struct {
	Name    string      `json:"name"`
	Level   fiche.Level `json:"level"`
	Enabled bool        `json:"enabled"`
}

// EnabledActions lists one action per rated assistant in rating order,
// followed by the default assistants the fiche leaves unrated. Level 1
// actions are listed but disabled.
func EnabledActions(f fiche.Fiche) []Action {
	out := make([]Action, 0, len(f.AI)+len(DefaultAssistants))
	for _, r := range f.AI {
		out = append(out, newAction(r.Assistant, r.Level))
	}
	for _, name := range DefaultAssistants {
		if _, rated := f.AI.Lookup(name); !rated {
			out = append(out, newAction(name, fiche.DefaultLevel))
		}
	}
	return out
}

// LevelFor returns the level the fiche gives assistant, or
// fiche.DefaultLevel when it does not rate it.
func LevelFor(f fiche.Fiche, name string) fiche.Level {
	if level, ok := f.AI.Lookup(name); ok {
		return level
	}
	return fiche.DefaultLevel
}

func newAction(name string, level fiche.Level) Action {
	return Action{Name: name, Level: level, Enabled: level.Invocable()}
}

// Catalog resolves assistant names to link targets.
type Catalog interface {
	Lookup(name string) (assistant.Assistant, error)
}

// ActionLink is an action ready for display.
type ActionLink struct {
	Action
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Links attaches display labels and, for enabled actions of known
// assistants, the link opening the assistant with prompt. A blank prompt
// yields no links.
func Links(actions []Action, catalog Catalog, prompt string) []ActionLink {
	blank := strings.TrimSpace(prompt) == ""

	out := make([]ActionLink, 0, len(actions))
	for _, action := range actions {
		link := ActionLink{Action: action, Label: action.Name}
		if catalog != nil {
			if a, err := catalog.Lookup(action.Name); err == nil {
				link.Label = a.Label
				if action.Enabled && !blank {
					link.URL = a.Link(prompt)
				}
			}
		}
		out = append(out, link)
	}
	return out
}
