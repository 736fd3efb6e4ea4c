package svgplugin

import (
	"context"
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall_RegistersCapabilities(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	ctx := context.Background()
	require.NoError(t, m.InstallPlugin(ctx, New()))

	reg := m.Registry()
	assert.Equal(t, []string{"svg"}, reg.AvailableRenderers())
	assert.Equal(t, []string{"circular", "force", "grid", "preset", "tree"}, reg.AvailableLayouts())
	assert.Equal(t, []string{"dark", "default"}, reg.AvailableThemes())
	assert.Equal(t, []string{"svg"}, reg.Owned(ID).Renderers)

	r, err := reg.CreateRenderer("svg", plugin.GenericConfig{"layout": "force", "theme": "dark"})
	require.NoError(t, err)
	data := &graph.Data{Nodes: []graph.Node{
		{ID: "a", Type: graph.NodeEntity},
		{ID: "b", Type: graph.NodeEntity},
	}}
	require.NoError(t, r.Render(ctx, plugin.NewMemoryContainer("c", 800, 600), data, nil))

	require.NoError(t, m.UninstallPlugin(ctx, ID))
	assert.Empty(t, reg.AvailableRenderers())
}

func TestConfig(t *testing.T) {
	p := New()
	assert.Equal(t, 150, p.Config().Int("forceIterations", 0))

	cfg := p.Config()
	cfg.Settings["forceIterations"] = 20
	require.NoError(t, p.SetConfig(cfg))
	s, err := p.settings()
	require.NoError(t, err)
	assert.Equal(t, 20, s.ForceIterations)

	cfg.Settings["forceIterations"] = 0
	assert.ErrorIs(t, p.SetConfig(cfg), apperrors.ErrInvalid)
	cfg.Settings["forceIterations"] = "many"
	assert.ErrorIs(t, p.ValidateConfig(cfg), apperrors.ErrInvalid)
	assert.Equal(t, 20, p.Config().Int("forceIterations", 0))
}

func TestStoredConfigAppliedOnInstall(t *testing.T) {
	m := runtime.NewManager(runtime.Config{})
	m.Settings().Set("plugins.svg", map[string]any{
		"enabled":  true,
		"settings": map[string]any{"forceIterations": 5},
	})
	p := New()
	require.NoError(t, m.InstallPlugin(context.Background(), p))
	assert.Equal(t, 5, p.Config().Int("forceIterations", 0))
}
