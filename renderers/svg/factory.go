package svg

import (
	"github.com/leeforge/globaltree/layout"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
)

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithLayouts resolves layout ids before the built-in set is consulted.
func WithLayouts(fn LayoutResolver) FactoryOption {
	return func(f *Factory) { f.layouts = fn }
}

// WithThemes resolves theme ids before DefaultTheme/DarkTheme.
func WithThemes(fn ThemeResolver) FactoryOption {
	return func(f *Factory) { f.themes = fn }
}

func WithLogger(logger logging.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// Factory creates SVG renderers.
type Factory struct {
	layouts LayoutResolver
	themes  ThemeResolver
	logger  logging.Logger
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrNop(f.logger)
	return f
}

func (f *Factory) ID() string   { return Kind }
func (f *Factory) Name() string { return "SVG Renderer" }

func (f *Factory) Capabilities() plugin.RendererCapabilities {
	return plugin.RendererCapabilities{
		Layouts: []string{layout.IDGrid, layout.IDCircular, layout.IDTree, layout.IDForce, layout.IDPreset},
		Formats: []plugin.ExportFormat{
			plugin.FormatJSON, plugin.FormatYAML, plugin.FormatSVG, plugin.FormatPNG, plugin.FormatThumbnail,
		},
		MaxNodes:    DefaultConfig().MaxNodes,
		Interactive: true,
		Animation:   false,
	}
}

func (f *Factory) DefaultConfig() plugin.RendererConfig {
	return DefaultConfig()
}

func (f *Factory) ValidateConfig(cfg plugin.RendererConfig) error {
	c, err := DecodeConfig(cfg)
	if err != nil {
		return err
	}
	return c.Validate()
}

func (f *Factory) Create(cfg plugin.RendererConfig) (plugin.Renderer, error) {
	c, err := DecodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r := New(c, f.layouts, f.themes, f.logger.Named("svg"))
	f.logger.Debug("svg renderer created")
	return r, nil
}

var _ plugin.RendererFactory = (*Factory)(nil)
