package flow

import (
	"errors"
	"fmt"
	"strings"

	"fichecode/internal/assistant"
	"fichecode/internal/codec"
	"fichecode/internal/fiche"
	"fichecode/internal/prompt"
	"fichecode/internal/scan"
	"fichecode/internal/urlpack"
)

// Flow chains the producer and consumer steps: scan normalization, payload
// decoding, prompt compilation and link packaging.
type Flow struct {
	catalog  *assistant.Registry
	packager *urlpack.Packager
}

// New constructs a flow backed by the provided catalog and packager.
func New(catalog *assistant.Registry, packager *urlpack.Packager) (*Flow, error) {
	if catalog == nil {
		return nil, errors.New("assistant catalog must not be nil")
	}
	if packager == nil {
		return nil, errors.New("url packager must not be nil")
	}
	return &Flow{catalog: catalog, packager: packager}, nil
}

// FromScan normalizes a scanner result and decodes it. It returns
// scan.ErrEmptyScanResult when nothing was read and a *codec.DecodingError
// when a code was read but is not a fiche.
func (fl *Flow) FromScan(raw scan.RawResult) (fiche.Fiche, error) {
	text, err := scan.Normalize(raw)
	if err != nil {
		return fiche.Fiche{}, err
	}
	return fl.FromText(text)
}

// FromText decodes scanned or pasted text, which is either a payload or a
// shared link carrying one.
func (fl *Flow) FromText(text string) (fiche.Fiche, error) {
	trimmed := strings.TrimSpace(text)
	if isLink(trimmed) {
		return fl.FromLink(trimmed)
	}
	return codec.Decode(trimmed)
}

// FromLink decodes the payload carried by a shared link.
func (fl *Flow) FromLink(rawURL string) (fiche.Fiche, error) {
	payload, err := urlpack.PayloadFromLink(rawURL)
	if err != nil {
		return fiche.Fiche{}, fmt.Errorf("read shared link: %w", err)
	}
	return codec.Decode(payload)
}

// Result is a compiled prompt with the assistant actions it may be sent to.
type Result struct {
	Prompt  string              `json:"prompt"`
	Actions []prompt.ActionLink `json:"actions"`
}

// Compile builds the prompt for f and the matching assistant links.
func (fl *Flow) Compile(f fiche.Fiche, values map[string]string, extra string) Result {
	return fl.CompileWith(prompt.SectionRenderer{}, f, values, extra)
}

// CompileWith is Compile with a caller-chosen renderer.
func (fl *Flow) CompileWith(r prompt.Renderer, f fiche.Fiche, values map[string]string, extra string) Result {
	text := prompt.CompileWith(r, f, values, extra)
	return Result{
		Prompt:  text,
		Actions: prompt.Links(prompt.EnabledActions(f), fl.catalog, text),
	}
}

// Actions lists the assistant actions of f without links.
func (fl *Flow) Actions(f fiche.Fiche) []prompt.ActionLink {
	return prompt.Links(prompt.EnabledActions(f), fl.catalog, "")
}

// Shared is a fiche packaged for sharing.
type Shared struct {
	Payload string
	Link    urlpack.Link
}

// Share encodes f and wraps the payload into a link under base.
func (fl *Flow) Share(f fiche.Fiche, base string) (Shared, error) {
	payload, err := codec.Encode(f)
	if err != nil {
		return Shared{}, err
	}
	link, err := fl.packager.ToURL(payload, base)
	if err != nil {
		return Shared{}, err
	}
	return Shared{Payload: payload, Link: link}, nil
}

func isLink(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
