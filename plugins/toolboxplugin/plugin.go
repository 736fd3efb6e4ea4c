// Package toolboxplugin contributes the viewport toolbar tools.
package toolboxplugin

import (
	"context"
	"sync"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/plugin"
)

const ID = "toolbox"

// DefaultZoomStep is the factor zoom-in multiplies by.
const DefaultZoomStep = 1.2

type Plugin struct {
	mu    sync.RWMutex
	cfg   plugin.Config
	tools []*viewTool
}

func New() *Plugin {
	cfg := plugin.DefaultConfig()
	cfg.Priority = 3
	cfg.Settings["zoomStep"] = DefaultZoomStep
	return &Plugin{cfg: cfg}
}

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		ID:          ID,
		Name:        "Toolbox",
		Version:     "1.0.0",
		Type:        plugin.TypeTool,
		Description: "Zoom and fit tools for scene toolbars",
		Author:      "Global Tree Team",
	}
}

func (p *Plugin) Install(_ context.Context, app *plugin.AppContext) error {
	p.mu.Lock()
	p.tools = tools(p.zoomStep)
	registered := p.tools
	p.mu.Unlock()

	for _, t := range registered {
		app.Registry.RegisterTool(t)
	}
	app.Logger.Infof("toolbox installed with %d tools", len(registered))
	return nil
}

// Activate enables every tool, Deactivate disables them. Deactivated
// tools stay registered so toolbars keep their layout.
func (p *Plugin) Activate(context.Context) error {
	p.setEnabled(true)
	return nil
}

func (p *Plugin) Deactivate(context.Context) error {
	p.setEnabled(false)
	return nil
}

func (p *Plugin) setEnabled(enabled bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.tools {
		t.SetEnabled(enabled)
		if !enabled {
			t.Deactivate()
		}
	}
}

func (p *Plugin) Capabilities() []string {
	return []string{"tool:" + ToolZoomIn, "tool:" + ToolZoomOut, "tool:" + ToolFitView, "tool:" + ToolResetZoom}
}

func (p *Plugin) Config() plugin.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Clone()
}

func (p *Plugin) SetConfig(cfg plugin.Config) error {
	if err := p.ValidateConfig(cfg); err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg.Clone()
	p.mu.Unlock()
	return nil
}

// ValidateConfig requires zoomStep > 1 when set.
func (p *Plugin) ValidateConfig(cfg plugin.Config) error {
	v, ok := cfg.Get("zoomStep")
	if !ok {
		return nil
	}
	var in struct {
		ZoomStep float64 `json:"zoomStep"`
	}
	if err := cfg.Bind(&in); err != nil || in.ZoomStep <= 1 {
		return apperrors.NewInvalid("toolbox.zoomStep", v, "must be a number greater than 1")
	}
	return nil
}

func (p *Plugin) zoomStep() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var s struct {
		ZoomStep float64 `json:"zoomStep" default:"1.2"`
	}
	if err := p.cfg.Bind(&s); err != nil || s.ZoomStep <= 1 {
		return DefaultZoomStep
	}
	return s.ZoomStep
}

var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.Activatable        = (*Plugin)(nil)
	_ plugin.Deactivatable      = (*Plugin)(nil)
	_ plugin.Configurable       = (*Plugin)(nil)
	_ plugin.ConfigValidator    = (*Plugin)(nil)
	_ plugin.CapabilityReporter = (*Plugin)(nil)
)
