package flowchartplugin

import (
	"context"
	"sync"

	"github.com/leeforge/globaltree/plugin"
)

// ToolCenterView recenters the viewport on the graph without zooming.
const ToolCenterView = "center-view"

type centerTool struct {
	mu      sync.RWMutex
	enabled bool
	active  bool
}

func (t *centerTool) ID() string          { return ToolCenterView }
func (t *centerTool) Name() string        { return "Center View" }
func (t *centerTool) Icon() string        { return "crosshair" }
func (t *centerTool) Description() string { return "Center the chart in the view" }

func (t *centerTool) Activate() {
	t.mu.Lock()
	t.active = true
	t.mu.Unlock()
}

func (t *centerTool) Deactivate() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

func (t *centerTool) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *centerTool) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *centerTool) Apply(_ context.Context, v plugin.Viewport) error {
	v.Center()
	return nil
}

var (
	_ plugin.Tool           = (*centerTool)(nil)
	_ plugin.ViewportAction = (*centerTool)(nil)
)
