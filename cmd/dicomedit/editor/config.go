package editor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/model"
)

// Config is the editor configuration for YAML serialization.
type Config struct {
	LogLevel   string       `yaml:"log_level,omitempty"`
	LogFile    string       `yaml:"log_file,omitempty"`
	Visibility string       `yaml:"visibility,omitempty"`
	Presets    []PresetYAML `yaml:"presets,omitempty"`
}

// PresetYAML is a saved bulk edit request.
type PresetYAML struct {
	Name    string `yaml:"name"`
	TagPath string `yaml:"tag_path"`
	Value   string `yaml:"value,omitempty"`
	Mode    string `yaml:"mode"`
}

// Request converts the preset to a bulk edit request.
func (p PresetYAML) Request() (bulkedit.Request, error) {
	mode, err := bulkedit.ParseMode(p.Mode)
	if err != nil {
		return bulkedit.Request{}, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return bulkedit.Request{TagPath: p.TagPath, Value: p.Value, Mode: mode}, nil
}

// PresetFromRequest names req for saving.
func PresetFromRequest(name string, req bulkedit.Request) PresetYAML {
	return PresetYAML{Name: name, TagPath: req.TagPath, Value: req.Value, Mode: req.Mode.String()}
}

// Preset returns the preset called name, compared case-insensitively.
func (c *Config) Preset(name string) (PresetYAML, bool) {
	for _, p := range c.Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return PresetYAML{}, false
}

// PutPreset adds p, replacing a preset of the same name.
func (c *Config) PutPreset(p PresetYAML) {
	for i := range c.Presets {
		if strings.EqualFold(c.Presets[i].Name, p.Name) {
			c.Presets[i] = p
			return
		}
	}
	c.Presets = append(c.Presets, p)
}

// VisibilityPolicy parses the configured visibility.
func (c *Config) VisibilityPolicy() (model.Visibility, error) {
	return model.ParseVisibility(c.Visibility)
}

// Validate checks the visibility and every preset.
func (c *Config) Validate() error {
	if _, err := c.VisibilityPolicy(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Presets))
	for i, p := range c.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset %d: name is required", i)
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return fmt.Errorf("preset %q: duplicate name", p.Name)
		}
		seen[key] = true
		if p.TagPath == "" {
			return fmt.Errorf("preset %q: %w", p.Name, bulkedit.ErrEmptyTagPath)
		}
		if bulkedit.IsForbiddenTagPath(p.TagPath) {
			return fmt.Errorf("preset %q: %w", p.Name, bulkedit.ErrForbiddenTag)
		}
		if _, err := p.Request(); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromYAML reads and validates a configuration file.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveToYAML writes cfg to path.
func SaveToYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
