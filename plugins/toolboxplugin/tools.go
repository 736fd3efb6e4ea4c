package toolboxplugin

import (
	"context"
	"sync"

	"github.com/leeforge/globaltree/plugin"
)

// Tool ids.
const (
	ToolZoomIn    = "zoom-in"
	ToolZoomOut   = "zoom-out"
	ToolFitView   = "fit-view"
	ToolResetZoom = "reset-zoom"
)

// viewTool is a toolbar button that acts on a viewport.
type viewTool struct {
	id, name, icon, desc string
	apply                func(plugin.Viewport)

	mu      sync.RWMutex
	enabled bool
	active  bool
}

func newTool(id, name, icon, desc string, apply func(plugin.Viewport)) *viewTool {
	return &viewTool{id: id, name: name, icon: icon, desc: desc, apply: apply, enabled: true}
}

func (t *viewTool) ID() string          { return t.id }
func (t *viewTool) Name() string        { return t.name }
func (t *viewTool) Icon() string        { return t.icon }
func (t *viewTool) Description() string { return t.desc }

func (t *viewTool) Activate() {
	t.mu.Lock()
	t.active = true
	t.mu.Unlock()
}

func (t *viewTool) Deactivate() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

func (t *viewTool) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

func (t *viewTool) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *viewTool) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *viewTool) Apply(_ context.Context, target plugin.Viewport) error {
	t.apply(target)
	return nil
}

// tools builds the toolbox. step returns the current zoom factor.
func tools(step func() float64) []*viewTool {
	return []*viewTool{
		newTool(ToolZoomIn, "Zoom In", "zoom-in", "Enlarge the view",
			func(v plugin.Viewport) { v.ZoomTo(v.Zoom() * step()) }),
		newTool(ToolZoomOut, "Zoom Out", "zoom-out", "Shrink the view",
			func(v plugin.Viewport) { v.ZoomTo(v.Zoom() / step()) }),
		newTool(ToolFitView, "Fit View", "expand", "Show the whole graph",
			func(v plugin.Viewport) { v.FitView() }),
		newTool(ToolResetZoom, "Reset Zoom", "one-to-one", "Back to 100% and centered",
			func(v plugin.Viewport) {
				v.ZoomTo(1)
				v.Center()
			}),
	}
}

var (
	_ plugin.Tool           = (*viewTool)(nil)
	_ plugin.ViewportAction = (*viewTool)(nil)
)
