package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fichecode/internal/fiche"
)

const (
	metaFields     = 6
	variableFields = 4
)

// wireBody is the positional form of a fiche inside a version 1 envelope.
// Trailing empty strings are dropped from every positional list.
type wireBody struct {
	Meta      []string     `json:"m,omitempty"`
	Geoloc    []string     `json:"g,omitempty"`
	Variables [][]string   `json:"v,omitempty"`
	AI        []wireRating `json:"a,omitempty"`
}

type wireRating struct {
	Assistant string
	Level     int
}

func (r wireRating) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Assistant, r.Level})
}

func (r *wireRating) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("rating must have 2 fields, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Assistant); err != nil {
		return fmt.Errorf("rating assistant: %w", err)
	}
	if err := json.Unmarshal(pair[1], &r.Level); err != nil {
		return fmt.Errorf("rating level: %w", err)
	}
	return nil
}

func toWire(f fiche.Fiche) wireBody {
	m := f.Meta
	body := wireBody{
		Meta: trimTrailing([]string{m.Categorie, m.Titre, m.Objectif, m.Concepteur, m.Version, m.DateMaj}),
	}
	if f.Geoloc.Complete() {
		body.Geoloc = []string{string(f.Geoloc.Latitude), string(f.Geoloc.Longitude)}
	}
	for _, v := range f.Variables {
		body.Variables = append(body.Variables, trimTrailing([]string{v.ID, v.Label, v.Help, v.Value}))
	}
	for _, r := range f.AI {
		body.AI = append(body.AI, wireRating{Assistant: r.Assistant, Level: int(r.Level)})
	}
	return body
}

func fromWire(body wireBody) (fiche.Fiche, error) {
	var f fiche.Fiche

	if len(body.Meta) > metaFields {
		return fiche.Fiche{}, fmt.Errorf("meta has %d fields, want at most %d", len(body.Meta), metaFields)
	}
	meta := pad(body.Meta, metaFields)
	f.Meta = fiche.Meta{
		Categorie:  meta[0],
		Titre:      meta[1],
		Objectif:   meta[2],
		Concepteur: meta[3],
		Version:    meta[4],
		DateMaj:    meta[5],
	}

	switch len(body.Geoloc) {
	case 0:
	case 2:
		f.Geoloc = &fiche.Geoloc{
			Latitude:  fiche.Coordinate(body.Geoloc[0]),
			Longitude: fiche.Coordinate(body.Geoloc[1]),
		}
	default:
		return fiche.Fiche{}, fmt.Errorf("geoloc has %d fields, want 2", len(body.Geoloc))
	}

	for i, raw := range body.Variables {
		if len(raw) == 0 || len(raw) > variableFields {
			return fiche.Fiche{}, fmt.Errorf("variable[%d] has %d fields, want 1 to %d", i, len(raw), variableFields)
		}
		v := pad(raw, variableFields)
		f.Variables = append(f.Variables, fiche.Variable{ID: v[0], Label: v[1], Help: v[2], Value: v[3]})
	}

	for _, r := range body.AI {
		f.AI = append(f.AI, fiche.Rating{Assistant: r.Assistant, Level: fiche.Level(r.Level)})
	}
	return f, nil
}

func marshalBody(body wireBody) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func unmarshalBody(data []byte) (wireBody, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var body wireBody
	if err := dec.Decode(&body); err != nil {
		return wireBody{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return wireBody{}, errors.New("body must contain a single JSON value")
	}
	return body, nil
}

func trimTrailing(fields []string) []string {
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	if n == 0 {
		return nil
	}
	return fields[:n]
}

func pad(fields []string, n int) []string {
	out := make([]string, n)
	copy(out, fields)
	return out
}
