// Package mindmapplugin contributes the mind map scene.
package mindmapplugin

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
	"github.com/leeforge/globaltree/scenes/mindmap"
	"go.uber.org/zap"
)

const ID = "mindmap"

type Plugin struct {
	mu       sync.RWMutex
	registry plugin.Registry
	logger   logging.Logger
}

func New() *Plugin {
	return &Plugin{logger: logging.NewNop()}
}

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		ID:                   ID,
		Name:                 "Mind Map",
		Version:              "1.0.0",
		Type:                 plugin.TypeScene,
		Description:          "Mind map scene on the svg renderer",
		Author:               "Global Tree Team",
		Dependencies:         []string{svgplugin.ID},
		OptionalDependencies: []string{toolboxplugin.ID},
	}
}

func (p *Plugin) Install(_ context.Context, app *plugin.AppContext) error {
	p.mu.Lock()
	p.registry = app.Registry
	p.logger = app.Logger
	p.mu.Unlock()

	app.Registry.RegisterScene(mindmap.NewFactory(app.Registry, app.Logger))
	app.Logger.Info("mindmap plugin installed")
	return nil
}

func (p *Plugin) Activate(context.Context) error {
	p.log().Info("mindmap plugin activated")
	return nil
}

func (p *Plugin) Deactivate(context.Context) error {
	p.log().Info("mindmap plugin deactivated")
	return nil
}

func (p *Plugin) log() logging.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

func (p *Plugin) Capabilities() []string {
	return []string{"scene:" + mindmap.Kind, "scene:tree-layout", "scene:patch-updates"}
}

// HealthCheck fails when the scene can no longer be built, e.g. after the
// svg renderer was withdrawn.
func (p *Plugin) HealthCheck(context.Context) error {
	p.mu.RLock()
	reg := p.registry
	p.mu.RUnlock()
	if reg == nil {
		return apperrors.NewInvalid("plugin", ID, "not installed")
	}
	if _, ok := reg.RendererFactory(mindmap.RendererID); !ok {
		return apperrors.NewDependencyMissing(ID, mindmap.RendererID)
	}
	return nil
}

// RegisterRoutes exposes GET /demo, a sample mind map rendered as SVG.
func (p *Plugin) RegisterRoutes(r chi.Router) {
	r.Get("/demo", p.serveDemo)
}

func (p *Plugin) serveDemo(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	reg, logger := p.registry, p.logger
	p.mu.RUnlock()

	out, err := renderDemo(r.Context(), reg)
	if err != nil {
		logger.Warn("demo render failed", zap.Error(err))
		responder.WriteError(w, err)
		return
	}
	responder.Raw(w, http.StatusOK, out, "image/svg+xml")
}

func renderDemo(ctx context.Context, reg plugin.Registry) ([]byte, error) {
	if reg == nil {
		return nil, apperrors.NewInvalid("plugin", ID, "not installed")
	}
	container := plugin.NewMemoryContainer("demo", 800, 600)
	scene, err := reg.CreateScene(mindmap.Kind, container, nil)
	if err != nil {
		return nil, err
	}
	defer scene.Destroy()

	if err := scene.Render(ctx, DemoData()); err != nil {
		return nil, err
	}
	content, _ := container.Content()
	return content, nil
}

// DemoData is a small central topic with two branches.
func DemoData() *graph.Data {
	return &graph.Data{
		Nodes: []graph.Node{
			{ID: "1", Type: graph.NodeConcept, Label: "Central Topic"},
			{ID: "1-1", Type: graph.NodeConcept, Label: "Branch 1"},
			{ID: "1-2", Type: graph.NodeConcept, Label: "Branch 2"},
			{ID: "1-1-1", Type: graph.NodeEntity, Label: "Child 1"},
			{ID: "1-1-2", Type: graph.NodeEntity, Label: "Child 2"},
		},
		Edges: []graph.Edge{
			{ID: "e1", Source: "1", Target: "1-1", Type: graph.EdgeContains},
			{ID: "e2", Source: "1", Target: "1-2", Type: graph.EdgeContains},
			{ID: "e3", Source: "1-1", Target: "1-1-1", Type: graph.EdgeContains},
			{ID: "e4", Source: "1-1", Target: "1-1-2", Type: graph.EdgeContains},
		},
	}
}

var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.Activatable        = (*Plugin)(nil)
	_ plugin.Deactivatable      = (*Plugin)(nil)
	_ plugin.CapabilityReporter = (*Plugin)(nil)
	_ plugin.HealthReporter     = (*Plugin)(nil)
	_ plugin.RouteProvider      = (*Plugin)(nil)
)
