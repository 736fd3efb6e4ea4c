package mindmap

import (
	"context"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
)

// DefaultConfig lays the map out as a tree with a zoom toolbar.
func DefaultConfig() plugin.SceneConfig {
	return plugin.SceneConfig{
		"renderer":   map[string]any{"layout": "tree"},
		"toolbar":    []string{"zoom-in", "zoom-out", "fit-view"},
		"autoLayout": true,
	}
}

// ValidateConfig checks the keys the scene reads.
func ValidateConfig(cfg plugin.SceneConfig) error {
	if v, ok := cfg["renderer"]; ok && v != nil && cfg.Map("renderer") == nil {
		return apperrors.NewInvalid("mindmap.renderer", v, "expected an object")
	}
	if v, ok := cfg["toolbar"]; ok && v != nil && cfg.Strings("toolbar") == nil {
		return apperrors.NewInvalid("mindmap.toolbar", v, "expected a list of tool ids")
	}
	return nil
}

// Factory creates mind map scenes wired to a capability registry.
type Factory struct {
	registry plugin.Registry
	logger   logging.Logger
}

func NewFactory(registry plugin.Registry, logger logging.Logger) *Factory {
	return &Factory{registry: registry, logger: logging.OrNop(logger)}
}

func (f *Factory) ID() string                        { return Kind }
func (f *Factory) Name() string                      { return "Mind Map" }
func (f *Factory) DefaultConfig() plugin.SceneConfig { return DefaultConfig() }

func (f *Factory) ValidateConfig(cfg plugin.SceneConfig) error {
	return ValidateConfig(cfg)
}

// Create returns an initialized scene.
func (f *Factory) Create(container plugin.Container, cfg plugin.SceneConfig) (plugin.Scene, error) {
	s := New(f.registry, f.logger.Named("mindmap"))
	if err := s.Initialize(context.Background(), container, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

var _ plugin.SceneFactory = (*Factory)(nil)
