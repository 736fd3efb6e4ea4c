// Package flowchart is the flowchart Scene. Nodes keep the positions they
// carry; the rest are placed by a registered layout and everything is
// snapped to the grid before the svg renderer draws it.
package flowchart

import (
	"context"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/layout"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/scenes"
)

const (
	Kind       = "flowchart"
	RendererID = "svg"
)

type Scene struct {
	*scenes.Scene
}

// New returns an uninitialized scene.
func New(registry plugin.Registry, logger logging.Logger) *Scene {
	return &Scene{Scene: scenes.New(scenes.Profile{
		Kind:       Kind,
		Name:       "Flowchart",
		RendererID: RendererID,
		Defaults:   DefaultConfig,
		Validate:   ValidateConfig,
		Arrange:    arrange,
	}, registry, logger)}
}

func arrange(ctx context.Context, registry plugin.Registry, cfg plugin.SceneConfig, data *graph.Data, area graph.Rect) error {
	id := cfg.String("layout", layout.IDGrid)
	l, ok := registry.Layout(id)
	if !ok {
		l, ok = layout.ByID(id)
	}
	if !ok {
		return apperrors.NewNotFound("layout", id)
	}
	if err := layout.Fill(ctx, l, data, area); err != nil {
		return err
	}
	if cfg.Bool("snapToGrid", true) {
		layout.Snap(data, cfg.Float("gridSize", DefaultGridSize), area)
	}
	return nil
}

var _ plugin.Scene = (*Scene)(nil)
