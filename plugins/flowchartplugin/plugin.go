// Package flowchartplugin contributes the flowchart scene and its
// center-view tool.
package flowchartplugin

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/http/responder"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/plugins/svgplugin"
	"github.com/leeforge/globaltree/plugins/toolboxplugin"
	"github.com/leeforge/globaltree/scenes/flowchart"
	"go.uber.org/zap"
)

const ID = "flowchart"

// Settings are the flowchart plugin's tunables. Grid settings become the
// scene defaults; the rest are advertised to editors.
type Settings struct {
	GridSize          float64 `json:"gridSize" default:"10"`
	SnapToGrid        bool    `json:"snapToGrid" default:"true"`
	AllowMultiSelect  bool    `json:"allowMultiSelect" default:"true"`
	KeyboardShortcuts bool    `json:"keyboardShortcuts" default:"true"`
	DefaultNodeWidth  int     `json:"defaultNodeWidth" default:"120"`
	DefaultNodeHeight int     `json:"defaultNodeHeight" default:"60"`
	ConnectionStyle   string  `json:"connectionStyle" default:"manhattan"`
}

type Plugin struct {
	mu       sync.RWMutex
	cfg      plugin.Config
	registry plugin.Registry
	logger   logging.Logger
	center   *centerTool
}

func New() *Plugin {
	cfg := plugin.DefaultConfig()
	cfg.Priority = 2
	cfg.Settings = map[string]any{
		"gridSize":          flowchart.DefaultGridSize,
		"snapToGrid":        true,
		"allowMultiSelect":  true,
		"keyboardShortcuts": true,
		"defaultNodeWidth":  120,
		"defaultNodeHeight": 60,
		"connectionStyle":   "manhattan",
	}
	return &Plugin{cfg: cfg, logger: logging.NewNop(), center: &centerTool{enabled: true}}
}

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		ID:                   ID,
		Name:                 "Flowchart",
		Version:              "1.0.0",
		Type:                 plugin.TypeScene,
		Description:          "Flowchart scene with grid snapping on the svg renderer",
		Author:               "Global Tree Team",
		Dependencies:         []string{svgplugin.ID},
		OptionalDependencies: []string{toolboxplugin.ID},
	}
}

func (p *Plugin) Install(_ context.Context, app *plugin.AppContext) error {
	settings, err := p.Settings()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.registry = app.Registry
	p.logger = app.Logger
	p.mu.Unlock()

	app.Registry.RegisterTool(p.center)
	app.Registry.RegisterScene(flowchart.NewFactory(app.Registry, app.Logger, plugin.SceneConfig{
		"gridSize":   settings.GridSize,
		"snapToGrid": settings.SnapToGrid,
	}))
	app.Logger.Info("flowchart plugin installed", zap.Float64("gridSize", settings.GridSize))
	return nil
}

func (p *Plugin) Activate(context.Context) error {
	p.center.SetEnabled(true)
	p.log().Info("flowchart plugin activated")
	return nil
}

func (p *Plugin) Deactivate(context.Context) error {
	p.center.SetEnabled(false)
	p.center.Deactivate()
	p.log().Info("flowchart plugin deactivated")
	return nil
}

func (p *Plugin) log() logging.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

func (p *Plugin) Capabilities() []string {
	return []string{"scene:" + flowchart.Kind, "scene:snap-to-grid", "scene:patch-updates", "tool:" + ToolCenterView}
}

// Settings decodes the current settings with defaults applied.
func (p *Plugin) Settings() (Settings, error) {
	p.mu.RLock()
	cfg := p.cfg
	p.mu.RUnlock()
	var s Settings
	if err := cfg.Bind(&s); err != nil {
		return Settings{}, apperrors.NewInvalid("flowchart.settings", cfg.Settings, err.Error()).WithInnerError(err)
	}
	return s, nil
}

func (p *Plugin) Config() plugin.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Clone()
}

// SetConfig applies to scenes created after the next install.
func (p *Plugin) SetConfig(cfg plugin.Config) error {
	if err := p.ValidateConfig(cfg); err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg.Clone()
	p.mu.Unlock()
	return nil
}

// ValidateConfig requires a positive grid and a known connection style.
func (p *Plugin) ValidateConfig(cfg plugin.Config) error {
	var s Settings
	if err := cfg.Bind(&s); err != nil {
		return apperrors.NewInvalid("flowchart.settings", cfg.Settings, err.Error()).WithInnerError(err)
	}
	if s.GridSize <= 0 {
		return apperrors.NewInvalid("flowchart.gridSize", s.GridSize, "must be greater than 0")
	}
	if s.DefaultNodeWidth <= 0 || s.DefaultNodeHeight <= 0 {
		return apperrors.NewInvalid("flowchart.defaultNodeSize", []int{s.DefaultNodeWidth, s.DefaultNodeHeight}, "must be positive")
	}
	switch s.ConnectionStyle {
	case "manhattan", "straight", "rounded":
	default:
		return apperrors.NewInvalid("flowchart.connectionStyle", s.ConnectionStyle, "expected manhattan, straight or rounded")
	}
	return nil
}

// HealthCheck fails once the svg renderer is gone.
func (p *Plugin) HealthCheck(context.Context) error {
	p.mu.RLock()
	reg := p.registry
	p.mu.RUnlock()
	if reg == nil {
		return apperrors.NewInvalid("plugin", ID, "not installed")
	}
	if _, ok := reg.RendererFactory(flowchart.RendererID); !ok {
		return apperrors.NewDependencyMissing(ID, flowchart.RendererID)
	}
	return nil
}

// RegisterRoutes exposes GET /demo, the sample flowchart rendered as SVG.
func (p *Plugin) RegisterRoutes(r chi.Router) {
	r.Get("/demo", p.serveDemo)
}

func (p *Plugin) serveDemo(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	reg, logger := p.registry, p.logger
	p.mu.RUnlock()

	if reg == nil {
		responder.WriteError(w, apperrors.NewInvalid("plugin", ID, "not installed"))
		return
	}
	container := plugin.NewMemoryContainer("demo", 800, 600)
	scene, err := reg.CreateScene(flowchart.Kind, container, plugin.SceneConfig{"layout": "tree"})
	if err != nil {
		logger.Warn("demo scene failed", zap.Error(err))
		responder.WriteError(w, err)
		return
	}
	defer scene.Destroy()

	if err := scene.Render(r.Context(), DemoData()); err != nil {
		logger.Warn("demo render failed", zap.Error(err))
		responder.WriteError(w, err)
		return
	}
	content, _ := container.Content()
	responder.Raw(w, http.StatusOK, content, "image/svg+xml")
}

// DemoData is a small decision flow: start, a process, a decision with two
// branches, a data store and an end.
func DemoData() *graph.Data {
	return &graph.Data{
		Nodes: []graph.Node{
			{ID: "start", Type: graph.NodeConcept, Label: "Start", Properties: map[string]any{"shape": "ellipse"}},
			{ID: "process", Type: graph.NodeEntity, Label: "Process", Properties: map[string]any{"shape": "rect"}},
			{ID: "decision", Type: graph.NodeRelation, Label: "Decision", Properties: map[string]any{"shape": "diamond"}},
			{ID: "a", Type: graph.NodeEntity, Label: "Option A", Properties: map[string]any{"shape": "rect"}},
			{ID: "b", Type: graph.NodeEntity, Label: "Option B", Properties: map[string]any{"shape": "rect"}},
			{ID: "store", Type: graph.NodeDocument, Label: "Data Store", Properties: map[string]any{"shape": "cylinder"}},
			{ID: "end", Type: graph.NodeConcept, Label: "End", Properties: map[string]any{"shape": "ellipse"}},
		},
		Edges: []graph.Edge{
			{ID: "e1", Source: "start", Target: "process", Type: graph.EdgeDepends},
			{ID: "e2", Source: "process", Target: "decision", Type: graph.EdgeDepends},
			{ID: "e3", Source: "decision", Target: "a", Type: graph.EdgeDepends, Label: "yes"},
			{ID: "e4", Source: "decision", Target: "b", Type: graph.EdgeDepends, Label: "no"},
			{ID: "e5", Source: "a", Target: "store", Type: graph.EdgeDepends},
			{ID: "e6", Source: "b", Target: "store", Type: graph.EdgeDepends},
			{ID: "e7", Source: "store", Target: "end", Type: graph.EdgeDepends},
		},
	}
}

var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.Activatable        = (*Plugin)(nil)
	_ plugin.Deactivatable      = (*Plugin)(nil)
	_ plugin.Configurable       = (*Plugin)(nil)
	_ plugin.ConfigValidator    = (*Plugin)(nil)
	_ plugin.CapabilityReporter = (*Plugin)(nil)
	_ plugin.HealthReporter     = (*Plugin)(nil)
	_ plugin.RouteProvider      = (*Plugin)(nil)
)
