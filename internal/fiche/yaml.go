package fiche

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML mirrors the JSON form, including the "date" alias.
func (m *Meta) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Categorie  string `yaml:"categorie"`
		Titre      string `yaml:"titre"`
		Objectif   string `yaml:"objectif"`
		Concepteur string `yaml:"concepteur"`
		Version    string `yaml:"version"`
		DateMaj    string `yaml:"date_maj"`
		Date       string `yaml:"date"`
	}
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}

	*m = Meta{
		Categorie:  raw.Categorie,
		Titre:      raw.Titre,
		Objectif:   raw.Objectif,
		Concepteur: raw.Concepteur,
		Version:    raw.Version,
		DateMaj:    raw.DateMaj,
	}
	if m.DateMaj == "" {
		m.DateMaj = raw.Date
	}
	return nil
}

// UnmarshalYAML accepts any scalar, numeric or not.
func (c *Coordinate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w", node.Line, errCoordinateType)
	}
	if node.Tag == "!!null" {
		*c = ""
		return nil
	}
	*c = Coordinate(strings.TrimSpace(node.Value))
	return nil
}

// MarshalYAML keeps numeric coordinates unquoted.
func (c Coordinate) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: string(c), Tag: "!!str"}
	if c.numeric() {
		node.Tag = "!!float"
		if _, err := strconv.Atoi(string(c)); err == nil {
			node.Tag = "!!int"
		}
	}
	return node, nil
}

// UnmarshalYAML reads a mapping of assistant levels in document order.
func (r *Ratings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*r = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %w", node.Line, errRatingsType)
	}

	out := make(Ratings, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("ai %q: %w", key.Value, errLevelType)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value.Value))
		if err != nil {
			return fmt.Errorf("ai %q: %w", key.Value, errLevelType)
		}
		out = append(out, Rating{Assistant: key.Value, Level: Level(n)})
	}

	*r = out
	return nil
}

// MarshalYAML emits the ratings as an ordered mapping.
func (r Ratings) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, rating := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rating.Assistant},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(int(rating.Level))},
		)
	}
	return node, nil
}
