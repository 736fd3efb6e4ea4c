package builtin

import (
	"context"
	"testing"

	"github.com/leeforge/globaltree/loader"
	"github.com/leeforge/globaltree/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_LoadsEveryModule(t *testing.T) {
	ctx := context.Background()
	l := loader.New(nil, Catalog())
	m := runtime.NewManager(runtime.Config{})

	for _, id := range Modules() {
		p, err := l.Load(ctx, id)
		require.NoError(t, err, id)
		require.NoError(t, m.InstallPlugin(ctx, p), id)
		require.NoError(t, m.ActivatePlugin(ctx, p.Info().ID), id)
	}

	assert.Equal(t, []string{"svg", "toolbox", "mindmap", "flowchart"}, m.InstallOrder())
	assert.Equal(t, []string{"flowchart", "mindmap"}, m.Registry().AvailableScenes())
	assert.Contains(t, m.Registry().AvailableTools(), "center-view")
	assert.Empty(t, m.Health(ctx))
}

func TestCatalog_FreshInstances(t *testing.T) {
	ctx := context.Background()
	l := loader.New(nil, Catalog())
	a, err := l.Load(ctx, ModuleSVG)
	require.NoError(t, err)
	b, err := l.Load(ctx, ModuleSVG)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
