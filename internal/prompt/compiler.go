// Package prompt resolves fiche variables against user input and compiles the
// final prompt text.
package prompt

import (
	"regexp"
	"strings"

	"fichecode/internal/fiche"
)

const segmentSeparator = "\n\n"

// Source tells where a resolved value came from.
type Source string

const (
	SourceUser    Source = "user"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Resolved is one variable after value resolution.
type Resolved struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Resolve looks up every fiche variable by id in values. A blank or missing
// user value falls back to the declared default; without a default the
// variable resolves to the empty string. The fiche is not modified.
func Resolve(f fiche.Fiche, values map[string]string) []Resolved {
	out := make([]Resolved, 0, len(f.Variables))
	for _, v := range f.Variables {
		r := Resolved{ID: v.ID, Label: v.DisplayLabel(), Source: SourceNone}

		if user := strings.TrimSpace(values[v.ID]); user != "" {
			r.Value, r.Source = user, SourceUser
		} else if def := strings.TrimSpace(v.Value); def != "" {
			r.Value, r.Source = def, SourceDefault
		}
		out = append(out, r)
	}
	return out
}

// Renderer turns resolved variables into the body of a prompt.
type Renderer interface {
	Render(f fiche.Fiche, resolved []Resolved) string
}

// Compile renders the fiche with SectionRenderer and appends extra as a final
// segment when it is not blank.
func Compile(f fiche.Fiche, values map[string]string, extra string) string {
	return CompileWith(SectionRenderer{}, f, values, extra)
}

// CompileWith is Compile with a caller-chosen renderer.
func CompileWith(r Renderer, f fiche.Fiche, values map[string]string, extra string) string {
	var segments []string
	if body := strings.TrimSpace(r.Render(f, Resolve(f, values))); body != "" {
		segments = append(segments, body)
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		segments = append(segments, extra)
	}
	return strings.Join(segments, segmentSeparator)
}

// SectionRenderer states the fiche objective, or its title, followed by one
// "label : value" line per variable that resolved to a value.
type SectionRenderer struct{}

func (SectionRenderer) Render(f fiche.Fiche, resolved []Resolved) string {
	var segments []string

	heading := strings.TrimSpace(f.Meta.Objectif)
	if heading == "" {
		heading = strings.TrimSpace(f.Meta.Titre)
	}
	if heading != "" {
		segments = append(segments, heading)
	}

	var lines []string
	for _, r := range resolved {
		if r.Value == "" {
			continue
		}
		lines = append(lines, r.Label+" : "+r.Value)
	}
	if len(lines) > 0 {
		segments = append(segments, strings.Join(lines, "\n"))
	}

	return strings.Join(segments, segmentSeparator)
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// TemplateRenderer substitutes {{id}} placeholders in Template. Placeholders
// naming no fiche variable are left as written.
type TemplateRenderer struct {
	Template string
}

func (t TemplateRenderer) Render(_ fiche.Fiche, resolved []Resolved) string {
	byID := make(map[string]string, len(resolved))
	for _, r := range resolved {
		byID[r.ID] = r.Value
	}

	return placeholderPattern.ReplaceAllStringFunc(t.Template, func(match string) string {
		id := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := byID[id]; ok {
			return value
		}
		return match
	})
}
