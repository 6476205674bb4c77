package fiche

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a fiche from a YAML or JSON file and validates it.
func Load(path string) (Fiche, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Fiche{}, fmt.Errorf("resolve fiche path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Fiche{}, fmt.Errorf("read fiche file %q: %w", absPath, err)
	}

	f, err := Parse(data, filepath.Ext(absPath))
	if err != nil {
		return Fiche{}, fmt.Errorf("parse fiche file %q: %w", absPath, err)
	}
	return f, nil
}

// Parse decodes a fiche document. ".json" selects JSON, anything else YAML.
func Parse(data []byte, ext string) (Fiche, error) {
	var f Fiche
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &f); err != nil {
			return Fiche{}, err
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Fiche{}, err
		}
	}

	if err := f.Validate(); err != nil {
		return Fiche{}, err
	}
	return f, nil
}
