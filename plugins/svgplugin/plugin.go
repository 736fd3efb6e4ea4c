// Package svgplugin contributes the svg renderer, the built-in layouts and
// the default and dark themes.
package svgplugin

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/layout"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/renderers/svg"
	"go.uber.org/zap"
)

const ID = "svg"

// Settings is the typed form of the plugin's config settings.
type Settings struct {
	ForceIterations int `json:"forceIterations" default:"150" validate:"gte=1,lte=5000"`
}

var validate = validator.New()

type Plugin struct {
	mu     sync.RWMutex
	cfg    plugin.Config
	logger logging.Logger
}

func New() *Plugin {
	cfg := plugin.DefaultConfig()
	cfg.Priority = 1
	cfg.Settings["forceIterations"] = layout.DefaultForceIterations
	return &Plugin{cfg: cfg, logger: logging.NewNop()}
}

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		ID:          ID,
		Name:        "SVG Renderer",
		Version:     "1.0.0",
		Type:        plugin.TypeRenderer,
		Description: "Headless SVG renderer with grid, circular, tree and force layouts",
		Author:      "Global Tree Team",
	}
}

func (p *Plugin) Install(_ context.Context, app *plugin.AppContext) error {
	p.logger = app.Logger
	settings, err := p.settings()
	if err != nil {
		return err
	}

	reg := app.Registry
	reg.RegisterLayout(layout.Grid{})
	reg.RegisterLayout(layout.Circular{})
	reg.RegisterLayout(layout.Tree{})
	reg.RegisterLayout(layout.Preset{})
	reg.RegisterLayout(&force{plugin: p})
	reg.RegisterTheme(svg.DefaultTheme())
	reg.RegisterTheme(svg.DarkTheme())
	reg.RegisterRenderer(svg.NewFactory(
		svg.WithLayouts(reg.Layout),
		svg.WithThemes(reg.Theme),
		svg.WithLogger(app.Logger),
	))

	app.Logger.Info("svg plugin installed", zap.Int("forceIterations", settings.ForceIterations))
	return nil
}

func (p *Plugin) Uninstall(context.Context) error {
	p.logger.Info("svg plugin uninstalled")
	return nil
}

func (p *Plugin) Capabilities() []string {
	return []string{
		"renderer:svg",
		"layout:grid", "layout:circular", "layout:tree", "layout:force",
		"theme:default", "theme:dark",
		"export:json", "export:yaml", "export:svg", "export:png", "export:thumbnail",
	}
}

func (p *Plugin) Config() plugin.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Clone()
}

// SetConfig applies from the next layout run on.
func (p *Plugin) SetConfig(cfg plugin.Config) error {
	if err := p.ValidateConfig(cfg); err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg.Clone()
	p.mu.Unlock()
	return nil
}

func (p *Plugin) ValidateConfig(cfg plugin.Config) error {
	var s Settings
	if err := cfg.Bind(&s); err != nil {
		return apperrors.NewInvalid("svg.settings", cfg.Settings, err.Error()).WithInnerError(err)
	}
	if err := validate.Struct(s); err != nil {
		return apperrors.NewInvalid("svg.settings", cfg.Settings, err.Error()).WithInnerError(err)
	}
	return nil
}

func (p *Plugin) settings() (Settings, error) {
	cfg := p.Config()
	var s Settings
	if err := cfg.Bind(&s); err != nil {
		return s, apperrors.NewInvalid("svg.settings", cfg.Settings, err.Error()).WithInnerError(err)
	}
	return s, nil
}

// force runs the force layout with the iteration count currently configured.
type force struct {
	plugin *Plugin
}

func (f *force) ID() string          { return layout.IDForce }
func (f *force) Name() string        { return "Force" }
func (f *force) Description() string { return "Force-directed spring embedding" }

func (f *force) Apply(ctx context.Context, data *graph.Data, area graph.Rect) error {
	s, err := f.plugin.settings()
	if err != nil {
		return err
	}
	return layout.NewForce(s.ForceIterations).Apply(ctx, data, area)
}

var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.Uninstallable      = (*Plugin)(nil)
	_ plugin.Configurable       = (*Plugin)(nil)
	_ plugin.ConfigValidator    = (*Plugin)(nil)
	_ plugin.CapabilityReporter = (*Plugin)(nil)
)
