// Package scan reconciles the shapes barcode scanners return into one text
// payload.
package scan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyScanResult means nothing was read. It is not a decoding failure:
// callers should report "no code detected".
var ErrEmptyScanResult = errors.New("no code detected")

// Shape identifies which form a scanner used for its result.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeText is a bare string.
	ShapeText
	// ShapeDataText is an object whose data field is a string.
	ShapeDataText
	// ShapeDataObject is an object whose data field is itself structured, as
	// some mobile platforms return.
	ShapeDataObject
)

func (s Shape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeDataText:
		return "data_text"
	case ShapeDataObject:
		return "data_object"
	default:
		return "none"
	}
}

// RawResult is a scanner result resolved into one of the known shapes.
type RawResult struct {
	shape  Shape
	text   string
	object json.RawMessage
	value  any
}

// Text wraps a bare string result.
func Text(s string) RawResult {
	return RawResult{shape: ShapeText, text: s}
}

// DataText wraps a {data: string} result.
func DataText(s string) RawResult {
	return RawResult{shape: ShapeDataText, text: s}
}

// DataObject wraps a {data: object} result held as a Go value. Maps are
// stringified with sorted keys.
func DataObject(v any) RawResult {
	if v == nil {
		return RawResult{}
	}
	return RawResult{shape: ShapeDataObject, value: v}
}

// Shape reports the resolved shape.
func (r RawResult) Shape() Shape {
	return r.shape
}

// ParseRaw resolves a scanner result that arrives as JSON: a string, or an
// object with a data field that is a string or a structured value. Key order
// of a structured data field is kept.
func ParseRaw(data json.RawMessage) (RawResult, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return RawResult{}, nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return RawResult{}, fmt.Errorf("decode scan text: %w", err)
		}
		return Text(s), nil
	case '{':
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return RawResult{}, fmt.Errorf("decode scan result: %w", err)
		}
		inner := bytes.TrimSpace(envelope.Data)
		if len(inner) == 0 {
			return RawResult{}, nil
		}
		switch inner[0] {
		case '"':
			var s string
			if err := json.Unmarshal(inner, &s); err != nil {
				return RawResult{}, fmt.Errorf("decode scan data: %w", err)
			}
			return DataText(s), nil
		case '{', '[':
			return RawResult{shape: ShapeDataObject, object: inner}, nil
		}
		return RawResult{}, nil
	default:
		return RawResult{}, nil
	}
}

// Normalize derives the plain text payload of a scan. It returns
// ErrEmptyScanResult when no text can be derived or the text is blank.
func Normalize(r RawResult) (string, error) {
	var text string
	switch r.shape {
	case ShapeText, ShapeDataText:
		text = r.text
	case ShapeDataObject:
		s, err := stringify(r)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEmptyScanResult, err)
		}
		text = s
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyScanResult
	}
	return text, nil
}

func stringify(r RawResult) (string, error) {
	if r.object != nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, r.object); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.value); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
