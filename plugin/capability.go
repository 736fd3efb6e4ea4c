package plugin

import (
	"context"

	"github.com/leeforge/globaltree/graph"
)

// Tool is an editor tool offered by scenes.
type Tool interface {
	ID() string
	Name() string
	Icon() string
	Description() string
	Activate()
	Deactivate()
	Enabled() bool
	SetEnabled(enabled bool)
}

// ViewportAction is implemented by tools that act on a viewport when used.
type ViewportAction interface {
	Apply(ctx context.Context, target Viewport) error
}

// Theme is a named palette. Themes are values; registering one copies it.
type Theme struct {
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name" yaml:"name"`
	Colors  map[string]string `json:"colors" yaml:"colors"`
	Fonts   map[string]string `json:"fonts,omitempty" yaml:"fonts,omitempty"`
	Spacing map[string]int    `json:"spacing,omitempty" yaml:"spacing,omitempty"`
}

// Color returns the named color or def.
func (t Theme) Color(name, def string) string {
	if c, ok := t.Colors[name]; ok && c != "" {
		return c
	}
	return def
}

// Layout positions the nodes of a graph inside an area.
type Layout interface {
	ID() string
	Name() string
	Description() string
	Apply(ctx context.Context, data *graph.Data, area graph.Rect) error
}
