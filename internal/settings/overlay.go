package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Overlay is the parsed content of an override file.
type Overlay struct {
	Settings       Settings
	Config         map[string]Settings
	ContainerYAMLs []string
}

// overlayFile represents the override file structure shared by YAML and JSON.
type overlayFile struct {
	Settings       map[string]any            `yaml:"settings" json:"settings"`
	Config         map[string]map[string]any `yaml:"config" json:"config"`
	ContainerYAMLs []string                  `yaml:"container_yamls" json:"container_yamls"`
}

// ReadOverlay reads and parses the override file at path. The format is
// chosen by extension: .yml and .yaml are YAML, .json and .jsonc are JSON
// with comments and trailing commas allowed.
func ReadOverlay(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overlay{}, fmt.Errorf("read override file: %w", err)
	}
	return ParseOverlay(filepath.Ext(path), data)
}

// ParseOverlay parses override file content in the format named by ext.
func ParseOverlay(ext string, data []byte) (Overlay, error) {
	var file overlayFile
	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Overlay{}, fmt.Errorf("%w: parse YAML: %w", ErrInvalidOverlay, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return Overlay{}, fmt.Errorf("%w: parse JSON: %w", ErrInvalidOverlay, err)
		}
	default:
		return Overlay{}, fmt.Errorf("%w: %q", ErrUnsupportedOverlay, ext)
	}

	overlay := Overlay{
		Settings:       make(Settings, len(file.Settings)),
		Config:         make(map[string]Settings, len(file.Config)),
		ContainerYAMLs: file.ContainerYAMLs,
	}
	for key, raw := range file.Settings {
		value, err := normalizeValue(raw)
		if err != nil {
			return Overlay{}, fmt.Errorf("%w: setting %q: %w", ErrInvalidOverlay, key, err)
		}
		overlay.Settings[key] = value
	}
	for name, props := range file.Config {
		obj := make(Settings, len(props))
		for key, raw := range props {
			value, err := normalizeValue(raw)
			if err != nil {
				return Overlay{}, fmt.Errorf("%w: config %s.%s: %w", ErrInvalidOverlay, name, key, err)
			}
			obj[key] = value
		}
		overlay.Config[name] = obj
	}

	return overlay, nil
}

// normalizeValue accepts strings, booleans and lists of strings.
func normalizeValue(raw any) (any, error) {
	switch v := raw.(type) {
	case string, bool:
		return v, nil
	case []any:
		list := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list item %d is %T, want string", i, item)
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Apply merges overlay into a copy of res. Settings keys and config object
// properties are replaced whole; container_yamls entries are appended to the
// sources.
func Apply(res Resolution, overlay Overlay) Resolution {
	out := res.Clone()
	for key, value := range overlay.Settings.Clone() {
		out.Settings[key] = value
	}
	for name, props := range overlay.Config {
		obj, ok := out.Config[name]
		if !ok {
			obj = Settings{}
			out.Config[name] = obj
		}
		for key, value := range props.Clone() {
			obj[key] = value
		}
	}
	out.Sources = append(out.Sources, overlay.ContainerYAMLs...)
	out.OverrideApplied = true
	return out
}
