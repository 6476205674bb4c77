package fiche

import "strings"

const (
	untitled    = "Sans titre"
	placeholder = "-"
	separator   = " • "
)

// Summary is the condensed header shown once a fiche is recovered.
type Summary struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Byline   string `json:"byline,omitempty"`
	Location string `json:"location,omitempty"`
}

// Summary condenses the metadata into display lines. Missing fields are
// skipped, never reported.
func (f Fiche) Summary() Summary {
	m := f.Meta

	title := strings.TrimSpace(m.Titre)
	if title == "" {
		title = untitled
	}

	var byline []string
	if m.Concepteur != "" {
		byline = append(byline, m.Concepteur)
	}
	if m.Version != "" {
		byline = append(byline, "v"+m.Version)
	}
	if m.DateMaj != "" {
		byline = append(byline, m.DateMaj)
	}

	s := Summary{
		Title:    title,
		Subtitle: joinNonEmpty(m.Categorie, m.Objectif),
		Byline:   strings.Join(byline, separator),
	}
	if f.Geoloc.Complete() {
		s.Location = string(f.Geoloc.Latitude) + ", " + string(f.Geoloc.Longitude)
	}
	return s
}

// Field is one labelled metadata entry.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Info lists every recognized metadata field, absent ones as "-".
func (f Fiche) Info() []Field {
	m := f.Meta
	return []Field{
		{Label: "Catégorie", Value: orPlaceholder(m.Categorie)},
		{Label: "Titre", Value: orPlaceholder(m.Titre)},
		{Label: "Objectif", Value: orPlaceholder(m.Objectif)},
		{Label: "Concepteur", Value: orPlaceholder(m.Concepteur)},
		{Label: "Version", Value: orPlaceholder(m.Version)},
		{Label: "Date", Value: orPlaceholder(m.DateMaj)},
	}
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, separator)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
