package flowchart

import (
	"context"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
)

// DefaultGridSize is the snapping step in canvas units.
const DefaultGridSize = 10

// DefaultConfig grids unplaced nodes and snaps everything to a 10 unit grid.
func DefaultConfig() plugin.SceneConfig {
	return plugin.SceneConfig{
		"layout":     "grid",
		"gridSize":   DefaultGridSize,
		"snapToGrid": true,
		"toolbar":    []string{"center-view", "fit-view", "zoom-in", "zoom-out", "reset-zoom"},
		"autoLayout": true,
	}
}

// ValidateConfig checks the keys the scene reads.
func ValidateConfig(cfg plugin.SceneConfig) error {
	if v, ok := cfg["renderer"]; ok && v != nil && cfg.Map("renderer") == nil {
		return apperrors.NewInvalid("flowchart.renderer", v, "expected an object")
	}
	if v, ok := cfg["toolbar"]; ok && v != nil && cfg.Strings("toolbar") == nil {
		return apperrors.NewInvalid("flowchart.toolbar", v, "expected a list of tool ids")
	}
	if cfg.String("layout", "") == "" {
		return apperrors.NewInvalid("flowchart.layout", cfg["layout"], "required")
	}
	if v, ok := cfg["gridSize"]; ok && cfg.Float("gridSize", -1) <= 0 {
		return apperrors.NewInvalid("flowchart.gridSize", v, "must be a positive number")
	}
	return nil
}

// Factory creates flowchart scenes wired to a capability registry. Base is
// laid over DefaultConfig before the caller's config.
type Factory struct {
	registry plugin.Registry
	logger   logging.Logger
	base     plugin.SceneConfig
}

func NewFactory(registry plugin.Registry, logger logging.Logger, base plugin.SceneConfig) *Factory {
	return &Factory{registry: registry, logger: logging.OrNop(logger), base: base.Clone()}
}

func (f *Factory) ID() string   { return Kind }
func (f *Factory) Name() string { return "Flowchart" }

func (f *Factory) DefaultConfig() plugin.SceneConfig {
	return DefaultConfig().Merge(f.base)
}

func (f *Factory) ValidateConfig(cfg plugin.SceneConfig) error {
	return ValidateConfig(f.DefaultConfig().Merge(cfg))
}

// Create returns an initialized scene.
func (f *Factory) Create(container plugin.Container, cfg plugin.SceneConfig) (plugin.Scene, error) {
	s := New(f.registry, f.logger.Named("flowchart"))
	if err := s.Initialize(context.Background(), container, f.base.Merge(cfg)); err != nil {
		return nil, err
	}
	return s, nil
}

var _ plugin.SceneFactory = (*Factory)(nil)
