// Package material loads option presets: the choices a material selects
// for a shader model, used to resolve the program it renders with.
package material

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

var ErrFormat = errors.New("unsupported preset format")

// Format is a preset file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Preset is a named set of option choices for one shader model.
type Preset struct {
	Model   string            `json:"model,omitempty" yaml:"model,omitempty"`
	Options map[string]string `json:"options" yaml:"options"`
}

// FormatFor infers the preset format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
	}
}

// Load reads a preset file.
func Load(path string) (*Preset, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a preset. Option values may be written as any scalar;
// they are kept as strings.
func Parse(data []byte, format Format) (*Preset, error) {
	var raw struct {
		Model   string         `json:"model" yaml:"model"`
		Options map[string]any `json:"options" yaml:"options"`
	}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s preset: %w", format, err)
	}

	p := &Preset{Model: raw.Model, Options: make(map[string]string, len(raw.Options))}
	for k, v := range raw.Options {
		switch v := v.(type) {
		case string:
			p.Options[k] = v
		case nil:
			return nil, fmt.Errorf("option %q has no choice", k)
		case map[string]any, []any:
			return nil, fmt.Errorf("option %q: choice must be a scalar", k)
		default:
			p.Options[k] = fmt.Sprint(v)
		}
	}
	return p, nil
}

// ParsePairs parses option=choice arguments.
func ParsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q (want name=choice)", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// Merge layers overrides over p and returns a new preset. A nil p is an
// empty preset.
func Merge(p *Preset, overrides map[string]string) *Preset {
	out := &Preset{Options: make(map[string]string)}
	if p != nil {
		out.Model = p.Model
		maps.Copy(out.Options, p.Options)
	}
	maps.Copy(out.Options, overrides)
	return out
}

// Names returns the constrained option names, sorted.
func (p *Preset) Names() []string {
	return slices.Sorted(maps.Keys(p.Options))
}

// Marshal encodes p in the given format.
func (p *Preset) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(p)
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
}
