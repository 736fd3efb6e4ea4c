package plugin

import (
	"context"

	"github.com/leeforge/globaltree/graph"
	"github.com/spf13/cast"
)

// SceneConfig is a scene's top-level configuration. SetConfig merges it
// shallowly: a nested map in the patch replaces the whole nested map.
type SceneConfig map[string]any

// Merge returns c with every top-level key of patch applied.
func (c SceneConfig) Merge(patch SceneConfig) SceneConfig {
	out := make(SceneConfig, len(c)+len(patch))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func (c SceneConfig) Clone() SceneConfig {
	return SceneConfig(nil).Merge(c)
}

func (c SceneConfig) String(key, def string) string {
	if v, ok := c[key]; ok {
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
	}
	return def
}

func (c SceneConfig) Bool(key string, def bool) bool {
	if v, ok := c[key]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return def
}

func (c SceneConfig) Float(key string, def float64) float64 {
	if v, ok := c[key]; ok {
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
	}
	return def
}

func (c SceneConfig) Strings(key string) []string {
	if v, ok := c[key]; ok {
		if s, err := cast.ToStringSliceE(v); err == nil {
			return s
		}
	}
	return nil
}

func (c SceneConfig) Map(key string) map[string]any {
	if v, ok := c[key]; ok {
		if m, err := cast.ToStringMapE(v); err == nil {
			return m
		}
	}
	return nil
}

// Scene is a higher-level editing surface composed on a renderer engine.
type Scene interface {
	ID() string
	Kind() string
	Name() string
	Version() string
	// RendererID names the rendering technology the scene is built on.
	RendererID() string

	Initialize(ctx context.Context, container Container, cfg SceneConfig) error
	Render(ctx context.Context, data *graph.Data) error
	UpdateData(ctx context.Context, patch graph.Patch) error
	Destroy()

	Viewport
	Emitter
	DataHolder

	EnableInteraction()
	DisableInteraction()

	Tools() []Tool
	AddTool(tool Tool)
	RemoveTool(id string) bool
	// UseTool activates the tool and, when it acts on a viewport, applies it.
	UseTool(ctx context.Context, id string) error

	Config() SceneConfig
	SetConfig(patch SceneConfig)
}

// SceneFactory creates initialized scenes for one scene kind.
type SceneFactory interface {
	ID() string
	Name() string
	Create(container Container, cfg SceneConfig) (Scene, error)
	DefaultConfig() SceneConfig
	ValidateConfig(cfg SceneConfig) error
}
