package fiche

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errCoordinateType = errors.New("coordinate must be a number or a string")
	errRatingsType    = errors.New("ai must be an object of assistant levels")
	errLevelType      = errors.New("level must be an integer")
)

// UnmarshalJSON accepts the recognized keys and the legacy "date" key as an
// alias of date_maj.
func (m *Meta) UnmarshalJSON(data []byte) error {
	type alias struct {
		Categorie  string `json:"categorie"`
		Titre      string `json:"titre"`
		Objectif   string `json:"objectif"`
		Concepteur string `json:"concepteur"`
		Version    string `json:"version"`
		DateMaj    string `json:"date_maj"`
		Date       string `json:"date"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}

	m.Categorie = raw.Categorie
	m.Titre = raw.Titre
	m.Objectif = raw.Objectif
	m.Concepteur = raw.Concepteur
	m.Version = raw.Version
	m.DateMaj = raw.DateMaj
	if m.DateMaj == "" {
		m.DateMaj = raw.Date
	}
	return nil
}

// UnmarshalJSON accepts a JSON number or string.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode coordinate: %w", err)
		}
		*c = Coordinate(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", errCoordinateType, data)
	}
	*c = Coordinate(n.String())
	return nil
}

// MarshalJSON emits numeric coordinates as numbers and anything else as a string.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if c.numeric() {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

func (c Coordinate) numeric() bool {
	if c == "" {
		return false
	}
	if _, err := strconv.ParseFloat(string(c), 64); err != nil {
		return false
	}
	return json.Valid([]byte(c))
}

// MarshalJSON emits the ratings as an object, keeping their order.
func (r Ratings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rating := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rating.Assistant)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(int(rating.Level)))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of assistant levels in document order.
func (r *Ratings) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode ai: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errRatingsType
	}

	var out Ratings
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode ai: %w", err)
		}
		name, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode ai %q: %w", name, err)
		}
		level, err := parseLevel(value)
		if err != nil {
			return fmt.Errorf("ai %q: %w", name, err)
		}
		out = append(out, Rating{Assistant: name, Level: level})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode ai: %w", err)
	}

	*r = out
	return nil
}

// parseLevel accepts integers and numeric strings, mirroring how rating
// editors tend to emit them.
func parseLevel(value any) (Level, error) {
	switch v := value.(type) {
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, errLevelType
		}
		return Level(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errLevelType
		}
		return Level(n), nil
	case int:
		return Level(v), nil
	default:
		return 0, errLevelType
	}
}
