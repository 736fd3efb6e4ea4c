package plugin

import (
	"github.com/leeforge/globaltree/json"
	"github.com/spf13/cast"
)

// Config is the mutable per-plugin configuration blob.
type Config struct {
	Enabled      bool           `json:"enabled" yaml:"enabled"`
	AutoActivate bool           `json:"autoActivate" yaml:"autoActivate"`
	Priority     int            `json:"priority" yaml:"priority"`
	Settings     map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// DefaultConfig is enabled and auto-activating with no settings.
func DefaultConfig() Config {
	return Config{Enabled: true, AutoActivate: true, Settings: map[string]any{}}
}

func (c Config) Get(key string) (any, bool) {
	v, ok := c.Settings[key]
	return v, ok
}

func (c Config) String(key, defaultVal string) string {
	v, ok := c.Settings[key]
	if !ok {
		return defaultVal
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return defaultVal
	}
	return s
}

func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.Settings[key]
	if !ok {
		return defaultVal
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.Settings[key]
	if !ok {
		return defaultVal
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// Bind decodes Settings into target, applying its `default` tags.
func (c Config) Bind(target any) error {
	settings := c.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return json.Convert(settings, target)
}

// Clone copies c including a shallow copy of Settings.
func (c Config) Clone() Config {
	out := c
	if c.Settings != nil {
		out.Settings = make(map[string]any, len(c.Settings))
		for k, v := range c.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// ConfigFromMap decodes a loosely typed blob (e.g. from the settings store).
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Convert(m, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ToMap encodes c into the loosely typed form stored in settings.
func (c Config) ToMap() map[string]any {
	m := map[string]any{
		"enabled":      c.Enabled,
		"autoActivate": c.AutoActivate,
		"priority":     c.Priority,
	}
	if len(c.Settings) > 0 {
		settings := make(map[string]any, len(c.Settings))
		for k, v := range c.Settings {
			settings[k] = v
		}
		m["settings"] = settings
	}
	return m
}
