package toolboxplugin

import (
	"context"
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViewport struct {
	zoom     float64
	fitted   int
	centered int
}

func (v *fakeViewport) FitView()             { v.fitted++ }
func (v *fakeViewport) ZoomTo(level float64) { v.zoom = level }
func (v *fakeViewport) PanTo(x, y float64)   {}
func (v *fakeViewport) Center()              { v.centered++ }
func (v *fakeViewport) Zoom() float64        { return v.zoom }

func use(t *testing.T, reg *runtime.Registry, id string, v plugin.Viewport) {
	t.Helper()
	tool, ok := reg.Tool(id)
	require.True(t, ok, id)
	require.NoError(t, tool.(plugin.ViewportAction).Apply(context.Background(), v))
}

func TestTools(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	ctx := context.Background()
	p := New()
	require.NoError(t, m.InstallPlugin(ctx, p))
	require.NoError(t, m.ActivatePlugin(ctx, ID))

	reg := m.Registry()
	assert.Equal(t, []string{"fit-view", "reset-zoom", "zoom-in", "zoom-out"}, reg.AvailableTools())

	v := &fakeViewport{zoom: 1}
	use(t, reg, ToolZoomIn, v)
	assert.InDelta(t, 1.2, v.zoom, 1e-9)
	use(t, reg, ToolZoomOut, v)
	assert.InDelta(t, 1.0, v.zoom, 1e-9)
	use(t, reg, ToolFitView, v)
	assert.Equal(t, 1, v.fitted)

	v.zoom = 3
	use(t, reg, ToolResetZoom, v)
	assert.Equal(t, 1.0, v.zoom)
	assert.Equal(t, 1, v.centered)
}

func TestZoomStepFromConfig(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	ctx := context.Background()
	require.NoError(t, m.InstallPlugin(ctx, New()))

	cfg, err := m.PluginConfig(ID)
	require.NoError(t, err)
	cfg.Settings["zoomStep"] = 2
	require.NoError(t, m.SetPluginConfig(ctx, ID, cfg))

	v := &fakeViewport{zoom: 1}
	use(t, m.Registry(), ToolZoomIn, v)
	assert.Equal(t, 2.0, v.zoom)

	cfg.Settings["zoomStep"] = 0.5
	assert.ErrorIs(t, m.SetPluginConfig(ctx, ID, cfg), apperrors.ErrInvalid)
}

func TestDeactivateDisablesTools(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	ctx := context.Background()
	require.NoError(t, m.InstallPlugin(ctx, New()))
	require.NoError(t, m.ActivatePlugin(ctx, ID))

	tool, _ := m.Registry().Tool(ToolFitView)
	tool.Activate()
	require.NoError(t, m.DeactivatePlugin(ctx, ID))
	assert.False(t, tool.Enabled())
	assert.False(t, tool.(*viewTool).Active())

	require.NoError(t, m.ActivatePlugin(ctx, ID))
	assert.True(t, tool.Enabled())
}
