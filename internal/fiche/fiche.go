package fiche

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyVariableID indicates a variable descriptor without a substitution key.
var ErrEmptyVariableID = errors.New("variable id must not be empty")

// ErrDuplicateVariableID indicates two variables share the same substitution key.
var ErrDuplicateVariableID = errors.New("variable ids must be unique")

// ErrInvalidLevel indicates a suitability level outside {1, 2, 3}.
var ErrInvalidLevel = errors.New("suitability level must be 1, 2 or 3")

// ErrEmptyAssistant indicates a rating without an assistant name.
var ErrEmptyAssistant = errors.New("assistant name must not be empty")

// ErrDuplicateAssistant indicates an assistant rated twice.
var ErrDuplicateAssistant = errors.New("assistant ratings must be unique")

// ErrInvalidText indicates a string that is not valid UTF-8 and would not
// survive transport unchanged.
var ErrInvalidText = errors.New("text must be valid UTF-8")

// Invariants lists the model invariants in the order Validate checks them.
var Invariants = []error{
	ErrEmptyVariableID,
	ErrDuplicateVariableID,
	ErrEmptyAssistant,
	ErrDuplicateAssistant,
	ErrInvalidLevel,
	ErrInvalidText,
}

// Level is the suitability of an external assistant for a fiche.
type Level int

const (
	LevelDisabled    Level = 1
	LevelCaution     Level = 2
	LevelRecommended Level = 3
)

// DefaultLevel applies to assistants a fiche does not rate.
const DefaultLevel = LevelRecommended

// Valid reports whether the level lies in the closed range {1, 2, 3}.
func (l Level) Valid() bool {
	return l >= LevelDisabled && l <= LevelRecommended
}

// Invocable reports whether an assistant at this level may be opened.
func (l Level) Invocable() bool {
	return l.Valid() && l != LevelDisabled
}

// Fiche is the unit of exchange between producer and consumer.
type Fiche struct {
	Meta      Meta       `json:"meta" yaml:"meta"`
	Geoloc    *Geoloc    `json:"geoloc,omitempty" yaml:"geoloc,omitempty"`
	Variables []Variable `json:"variables" yaml:"variables"`
	AI        Ratings    `json:"ai,omitempty" yaml:"ai,omitempty"`
}

// Meta carries the descriptive fields of a fiche. Every field is optional.
type Meta struct {
	Categorie  string `json:"categorie,omitempty" yaml:"categorie,omitempty"`
	Titre      string `json:"titre,omitempty" yaml:"titre,omitempty"`
	Objectif   string `json:"objectif,omitempty" yaml:"objectif,omitempty"`
	Concepteur string `json:"concepteur,omitempty" yaml:"concepteur,omitempty"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	DateMaj    string `json:"date_maj,omitempty" yaml:"date_maj,omitempty"`
}

// Coordinate holds a latitude or longitude in its textual form.
type Coordinate string

// Geoloc is a latitude/longitude pair.
type Geoloc struct {
	Latitude  Coordinate `json:"latitude" yaml:"latitude"`
	Longitude Coordinate `json:"longitude" yaml:"longitude"`
}

// Complete reports whether both coordinates are present. A partial pair is
// treated as absent everywhere.
func (g *Geoloc) Complete() bool {
	return g != nil &&
		strings.TrimSpace(string(g.Latitude)) != "" &&
		strings.TrimSpace(string(g.Longitude)) != ""
}

// Variable is a fillable slot of a fiche.
type Variable struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Help  string `json:"help,omitempty" yaml:"help,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// DisplayLabel returns the label, falling back to the id.
func (v Variable) DisplayLabel() string {
	if strings.TrimSpace(v.Label) != "" {
		return v.Label
	}
	return v.ID
}

// Rating is the suitability of one assistant.
type Rating struct {
	Assistant string
	Level     Level
}

// Ratings is an ordered assistant → level mapping.
type Ratings []Rating

// Lookup returns the level rated for the assistant.
func (r Ratings) Lookup(assistant string) (Level, bool) {
	for _, rating := range r {
		if rating.Assistant == assistant {
			return rating.Level, true
		}
	}
	return 0, false
}

// Variable returns the variable with the given id.
func (f Fiche) Variable(id string) (Variable, bool) {
	for _, v := range f.Variables {
		if v.ID == id {
			return v, true
		}
	}
	return Variable{}, false
}

// Validate checks the model invariants and names the first one violated.
func (f Fiche) Validate() error {
	seen := make(map[string]struct{}, len(f.Variables))
	for i, v := range f.Variables {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("variable[%d]: %w", i, ErrEmptyVariableID)
		}
		if _, exists := seen[v.ID]; exists {
			return fmt.Errorf("variable[%d] %q: %w", i, v.ID, ErrDuplicateVariableID)
		}
		seen[v.ID] = struct{}{}
	}

	rated := make(map[string]struct{}, len(f.AI))
	for i, rating := range f.AI {
		if strings.TrimSpace(rating.Assistant) == "" {
			return fmt.Errorf("ai[%d]: %w", i, ErrEmptyAssistant)
		}
		if _, exists := rated[rating.Assistant]; exists {
			return fmt.Errorf("ai %q: %w", rating.Assistant, ErrDuplicateAssistant)
		}
		rated[rating.Assistant] = struct{}{}
		if !rating.Level.Valid() {
			return fmt.Errorf("ai %q level %d: %w", rating.Assistant, rating.Level, ErrInvalidLevel)
		}
	}
	return f.validateText()
}

type textField struct {
	name  string
	value string
}

func (f Fiche) validateText() error {
	fields := []textField{
		{"meta.categorie", f.Meta.Categorie},
		{"meta.titre", f.Meta.Titre},
		{"meta.objectif", f.Meta.Objectif},
		{"meta.concepteur", f.Meta.Concepteur},
		{"meta.version", f.Meta.Version},
		{"meta.date_maj", f.Meta.DateMaj},
	}
	if f.Geoloc != nil {
		fields = append(fields,
			textField{"geoloc.latitude", string(f.Geoloc.Latitude)},
			textField{"geoloc.longitude", string(f.Geoloc.Longitude)},
		)
	}
	for i, v := range f.Variables {
		prefix := fmt.Sprintf("variable[%d].", i)
		fields = append(fields,
			textField{prefix + "id", v.ID},
			textField{prefix + "label", v.Label},
			textField{prefix + "help", v.Help},
			textField{prefix + "value", v.Value},
		)
	}
	for i, rating := range f.AI {
		fields = append(fields, textField{fmt.Sprintf("ai[%d]", i), rating.Assistant})
	}

	for _, field := range fields {
		if !utf8.ValidString(field.value) {
			return fmt.Errorf("%s: %w", field.name, ErrInvalidText)
		}
	}
	return nil
}

// Invariant returns the sentinel of the invariant err reports, or nil.
func Invariant(err error) error {
	for _, inv := range Invariants {
		if errors.Is(err, inv) {
			return inv
		}
	}
	return nil
}
