package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Description is the externally supplied form of a layout problem.
type Description struct {
	Shapes        []ShapeDesc `json:"shapes" yaml:"shapes"`
	VaryingValues []float64   `json:"varyingValues" yaml:"varyingValues"`
	Objectives    []TermDesc  `json:"objectives,omitempty" yaml:"objectives,omitempty"`
	Constraints   []TermDesc  `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

type ShapeDesc struct {
	Kind   string               `json:"kind" yaml:"kind"`
	Name   string               `json:"name" yaml:"name"`
	Fields map[string]FieldDesc `json:"fields" yaml:"fields"`
	Props  map[string]string    `json:"props,omitempty" yaml:"props,omitempty"`
}

// FieldDesc is either a fixed value or a varying marker. Range bounds the
// values drawn when the layout is resampled.
type FieldDesc struct {
	Value   *float64  `json:"value,omitempty" yaml:"value,omitempty"`
	Varying bool      `json:"varying,omitempty" yaml:"varying,omitempty"`
	Range   []float64 `json:"range,omitempty" yaml:"range,omitempty"`
}

type TermDesc struct {
	Name   string    `json:"name" yaml:"name"`
	Args   []string  `json:"args" yaml:"args"`
	Params []float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format by file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses a description. Unknown JSON fields are rejected.
func Decode(r io.Reader, format Format) (*Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &StateDecodeError{Message: "read", Cause: err}
	}

	var desc Description
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&desc); err != nil {
			return nil, &StateDecodeError{Message: "yaml", Cause: err}
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&desc); err != nil {
			return nil, &StateDecodeError{Message: "json", Cause: err}
		}
	default:
		return nil, decodeErr("", "", "unsupported format %q", format)
	}
	return &desc, nil
}

func DecodeFile(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, FormatFromPath(path))
}

// Encode writes desc in the given format.
func (d *Description) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(d)
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return fmt.Errorf("layout: unsupported format %q", format)
}
