package flowchartplugin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/plugins/svgplugin"
	"github.com/leeforge/globaltree/plugins/toolboxplugin"
	"github.com/leeforge/globaltree/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func install(t *testing.T, m *runtime.Manager, plugins ...plugin.Plugin) {
	t.Helper()
	for _, p := range plugins {
		require.NoError(t, m.InstallPlugin(context.Background(), p))
	}
}

func TestInstall_RequiresSVG(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	err := m.InstallPlugin(context.Background(), New())
	assert.ErrorIs(t, err, apperrors.ErrDependencyMissing)
}

func TestInstall_RegistersSceneAndTool(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	ctx := context.Background()
	install(t, m, svgplugin.New(), toolboxplugin.New(), New())

	assert.Contains(t, m.Registry().AvailableScenes(), "flowchart")
	_, ok := m.Registry().Tool(ToolCenterView)
	assert.True(t, ok)

	scene, err := m.Registry().CreateScene("flowchart", plugin.NewMemoryContainer("c", 800, 600), nil)
	require.NoError(t, err)
	defer scene.Destroy()

	ids := make([]string, 0, len(scene.Tools()))
	for _, tool := range scene.Tools() {
		ids = append(ids, tool.ID())
	}
	assert.Equal(t, []string{"center-view", "fit-view", "zoom-in", "zoom-out", "reset-zoom"}, ids)

	require.NoError(t, scene.Render(ctx, DemoData()))
	require.NoError(t, scene.UseTool(ctx, ToolCenterView))
	assert.Len(t, scene.Data().Nodes, 7)
}

func TestSettings_FeedSceneDefaults(t *testing.T) {
	p := New()
	cfg := p.Config()
	cfg.Settings["gridSize"] = 25
	cfg.Settings["snapToGrid"] = false
	require.NoError(t, p.SetConfig(cfg))

	m := runtime.NewManager(runtime.Config{})
	install(t, m, svgplugin.New(), p)

	scene, err := m.Registry().CreateScene("flowchart", plugin.NewMemoryContainer("c", 800, 600), nil)
	require.NoError(t, err)
	defer scene.Destroy()
	assert.Equal(t, 25.0, scene.Config().Float("gridSize", 0))
	assert.False(t, scene.Config().Bool("snapToGrid", true))
}

func TestValidateConfig(t *testing.T) {
	p := New()
	assert.NoError(t, p.ValidateConfig(p.Config()))

	s, err := p.Settings()
	require.NoError(t, err)
	assert.Equal(t, Settings{
		GridSize: 10, SnapToGrid: true, AllowMultiSelect: true, KeyboardShortcuts: true,
		DefaultNodeWidth: 120, DefaultNodeHeight: 60, ConnectionStyle: "manhattan",
	}, s)

	bad := map[string]map[string]any{
		"zero grid":     {"gridSize": 0},
		"negative size": {"defaultNodeWidth": -1},
		"style":         {"connectionStyle": "bezier"},
		"wrong type":    {"snapToGrid": "sometimes"},
	}
	for name, settings := range bad {
		cfg := p.Config()
		for k, v := range settings {
			cfg.Settings[k] = v
		}
		assert.ErrorIs(t, p.SetConfig(cfg), apperrors.ErrInvalid, name)
	}
	assert.Equal(t, 10, p.Config().Int("gridSize", 0), "rejected configs are not applied")
}

func TestActivation_TogglesTool(t *testing.T) {
	p := New()
	ctx := context.Background()
	require.NoError(t, p.Deactivate(ctx))
	assert.False(t, p.center.Enabled())
	require.NoError(t, p.Activate(ctx))
	assert.True(t, p.center.Enabled())
}

func TestHealthAndRoutes(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	ctx := context.Background()
	p := New()
	assert.Error(t, p.HealthCheck(ctx))

	router := chi.NewRouter()
	p.RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/demo", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "not installed")

	install(t, m, svgplugin.New(), p)
	assert.NoError(t, p.HealthCheck(ctx))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/demo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Data Store")

	m.Registry().Withdraw(svgplugin.ID)
	assert.ErrorIs(t, p.HealthCheck(ctx), apperrors.ErrDependencyMissing)
}
