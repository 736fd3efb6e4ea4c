package svg

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/json"
	"github.com/leeforge/globaltree/plugin"
)

// Kind is the renderer kind this package registers.
const Kind = "svg"

// Config configures an SVG renderer.
type Config struct {
	Width          int                    `json:"width" yaml:"width" default:"800" validate:"gt=0"`
	Height         int                    `json:"height" yaml:"height" default:"600" validate:"gt=0"`
	Padding        int                    `json:"padding" yaml:"padding" default:"40" validate:"gte=0"`
	Layout         string                 `json:"layout" yaml:"layout" default:"grid" validate:"required"`
	Theme          string                 `json:"theme" yaml:"theme" default:"default"`
	Background     string                 `json:"background,omitempty" yaml:"background,omitempty" validate:"omitempty,hexcolor"`
	MinZoom        float64                `json:"minZoom" yaml:"minZoom" default:"0.1" validate:"gt=0"`
	MaxZoom        float64                `json:"maxZoom" yaml:"maxZoom" default:"10" validate:"gtfield=MinZoom"`
	ThumbnailWidth int                    `json:"thumbnailWidth" yaml:"thumbnailWidth" default:"160" validate:"gt=0"`
	Interaction    plugin.InteractionMode `json:"interaction" yaml:"interaction" default:"view" validate:"oneof=view edit pan zoom"`
	Interactive    bool                   `json:"interactive" yaml:"interactive" default:"true"`
	MaxNodes       int                    `json:"maxNodes" yaml:"maxNodes" default:"5000" validate:"gt=0"`
}

// RendererKind ties Config to the svg backend.
func (Config) RendererKind() string { return Kind }

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewInvalid("svg config", c.Layout, err.Error()).WithInnerError(err)
	}
	return nil
}

// DecodeConfig accepts a Config, *Config or GenericConfig. Fields a
// GenericConfig leaves out keep their defaults.
func DecodeConfig(cfg plugin.RendererConfig) (Config, error) {
	switch v := cfg.(type) {
	case nil:
		return DefaultConfig(), nil
	case Config:
		return v, nil
	case *Config:
		if v == nil {
			return DefaultConfig(), nil
		}
		return *v, nil
	case plugin.GenericConfig:
		var c Config
		if err := json.Convert(map[string]any(v), &c); err != nil {
			return Config{}, apperrors.NewInvalid("svg config", "generic", err.Error()).WithInnerError(err)
		}
		return c, nil
	default:
		return Config{}, apperrors.NewInvalid("renderer config", cfg.RendererKind(), "not an svg config")
	}
}

// merge overlays the keys of a GenericConfig patch on c. A typed patch
// replaces c.
func (c Config) merge(patch plugin.RendererConfig) (Config, error) {
	g, ok := patch.(plugin.GenericConfig)
	if !ok {
		return DecodeConfig(patch)
	}
	blob := map[string]any{}
	if err := json.Convert(c, &blob); err != nil {
		return Config{}, err
	}
	for k, v := range g {
		blob[k] = v
	}
	var out Config
	if err := json.Convert(blob, &out); err != nil {
		return Config{}, apperrors.NewInvalid("svg config", "generic", err.Error()).WithInnerError(err)
	}
	return out, nil
}
