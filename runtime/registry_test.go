package runtime

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	id      string
	enabled bool
}

func (t *stubTool) ID() string              { return t.id }
func (t *stubTool) Name() string            { return t.id }
func (t *stubTool) Icon() string            { return "" }
func (t *stubTool) Description() string     { return "" }
func (t *stubTool) Activate()               {}
func (t *stubTool) Deactivate()             {}
func (t *stubTool) Enabled() bool           { return t.enabled }
func (t *stubTool) SetEnabled(enabled bool) { t.enabled = enabled }

type stubLayout struct{ id string }

func (l stubLayout) ID() string          { return l.id }
func (l stubLayout) Name() string        { return l.id }
func (l stubLayout) Description() string { return "" }
func (l stubLayout) Apply(context.Context, *graph.Data, graph.Rect) error {
	return nil
}

type stubRendererFactory struct {
	id       string
	created  []plugin.RendererConfig
	validate func(plugin.RendererConfig) error
}

func (f *stubRendererFactory) ID() string   { return f.id }
func (f *stubRendererFactory) Name() string { return f.id }
func (f *stubRendererFactory) Create(cfg plugin.RendererConfig) (plugin.Renderer, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}
func (f *stubRendererFactory) Capabilities() plugin.RendererCapabilities {
	return plugin.RendererCapabilities{}
}
func (f *stubRendererFactory) DefaultConfig() plugin.RendererConfig {
	return plugin.GenericConfig{"default": true}
}
func (f *stubRendererFactory) ValidateConfig(cfg plugin.RendererConfig) error {
	if f.validate != nil {
		return f.validate(cfg)
	}
	return nil
}

type stubSceneFactory struct {
	id      string
	created []plugin.SceneConfig
}

func (f *stubSceneFactory) ID() string   { return f.id }
func (f *stubSceneFactory) Name() string { return f.id }
func (f *stubSceneFactory) Create(_ plugin.Container, cfg plugin.SceneConfig) (plugin.Scene, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}
func (f *stubSceneFactory) DefaultConfig() plugin.SceneConfig {
	return plugin.SceneConfig{"layout": "tree", "toolbar": []string{"fit-view"}}
}
func (f *stubSceneFactory) ValidateConfig(cfg plugin.SceneConfig) error {
	if cfg.String("layout", "") == "" {
		return errors.New("layout required")
	}
	return nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	r := NewRegistry(bus)

	var registered []RegistrationEvent
	bus.On("tool:registered", func(_ context.Context, e eventbus.Event) error {
		registered = append(registered, e.Data.(RegistrationEvent))
		return nil
	})

	r.RegisterTool(&stubTool{id: "zoom-out"})
	r.ForPlugin("toolbox").RegisterTool(&stubTool{id: "zoom-in"})
	r.RegisterTheme(plugin.Theme{ID: "dark"})
	r.RegisterLayout(stubLayout{id: "grid"})

	assert.Equal(t, []string{"zoom-in", "zoom-out"}, r.AvailableTools())
	assert.Equal(t, []string{"dark"}, r.AvailableThemes())
	assert.Equal(t, []string{"grid"}, r.AvailableLayouts())
	assert.Empty(t, r.AvailableRenderers())

	_, ok := r.Tool("zoom-in")
	assert.True(t, ok)
	_, ok = r.Tool("missing")
	assert.False(t, ok)

	require.Len(t, registered, 2)
	assert.Equal(t, RegistrationEvent{ID: "zoom-in", Owner: "toolbox"}, registered[1])
}

func TestRegistry_LastWriteWinsTransfersOwnership(t *testing.T) {
	r := NewRegistry(nil)
	first, second := &stubTool{id: "pan"}, &stubTool{id: "pan"}

	r.ForPlugin("a").RegisterTool(first)
	r.ForPlugin("b").RegisterTool(second)

	got, _ := r.Tool("pan")
	assert.Same(t, second, got)
	assert.Empty(t, r.Owned("a").Tools)
	assert.Equal(t, []string{"pan"}, r.Owned("b").Tools)

	r.Withdraw("a")
	_, ok := r.Tool("pan")
	assert.True(t, ok, "withdrawing a must not remove b's entry")
}

func TestRegistry_WithdrawRestoresShadowedEntry(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	r := NewRegistry(bus)

	var registered []RegistrationEvent
	bus.On("renderer:registered", func(_ context.Context, e eventbus.Event) error {
		registered = append(registered, e.Data.(RegistrationEvent))
		return nil
	})

	base, override := &stubRendererFactory{id: "svg"}, &stubRendererFactory{id: "svg"}
	r.ForPlugin("base").RegisterRenderer(base)
	r.ForPlugin("override").RegisterRenderer(override)

	got, _ := r.RendererFactory("svg")
	assert.Same(t, override, got)

	owned := r.Withdraw("override")
	assert.Equal(t, []string{"svg"}, owned.Renderers)

	got, ok := r.RendererFactory("svg")
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.Equal(t, []string{"svg"}, r.Owned("base").Renderers)
	require.Len(t, registered, 3)
	assert.Equal(t, RegistrationEvent{ID: "svg", Owner: "base"}, registered[2])

	r.Withdraw("base")
	_, ok = r.RendererFactory("svg")
	assert.False(t, ok)
}

func TestRegistry_ReRegisterKeepsOneLayerPerOwner(t *testing.T) {
	r := NewRegistry(nil)
	r.ForPlugin("a").RegisterTool(&stubTool{id: "pan"})
	r.ForPlugin("a").RegisterTool(&stubTool{id: "pan"})

	r.Withdraw("a")
	_, ok := r.Tool("pan")
	assert.False(t, ok)
}

func TestRegistry_Withdraw(t *testing.T) {
	bus := eventbus.New(logging.NewNop())
	r := NewRegistry(bus)

	var removed []string
	bus.On("theme:unregistered", func(_ context.Context, e eventbus.Event) error {
		removed = append(removed, e.Data.(RegistrationEvent).ID)
		return nil
	})

	scoped := r.ForPlugin("svg")
	scoped.RegisterTheme(plugin.Theme{ID: "default"})
	scoped.RegisterTheme(plugin.Theme{ID: "dark"})
	scoped.RegisterRenderer(&stubRendererFactory{id: "svg"})
	r.RegisterTheme(plugin.Theme{ID: "host"})

	owned := r.Withdraw("svg")
	assert.Equal(t, []string{"dark", "default"}, owned.Themes)
	assert.Equal(t, []string{"svg"}, owned.Renderers)
	assert.Equal(t, []string{"host"}, r.AvailableThemes())
	assert.Equal(t, []string{"dark", "default"}, removed)
	assert.True(t, r.Owned("svg").Empty())
}

func TestRegistry_CreateRenderer(t *testing.T) {
	r := NewRegistry(nil)
	f := &stubRendererFactory{id: "svg"}
	r.RegisterRenderer(f)

	_, err := r.CreateRenderer("canvas", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = r.CreateRenderer("svg", nil)
	require.NoError(t, err)
	require.Len(t, f.created, 1)
	assert.Equal(t, plugin.GenericConfig{"default": true}, f.created[0])

	f.validate = func(plugin.RendererConfig) error { return errors.New("width must be positive") }
	_, err = r.CreateRenderer("svg", plugin.GenericConfig{"width": -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
	assert.Len(t, f.created, 1, "factory must not run after validation fails")
}

func TestRegistry_CreateSceneMergesDefaults(t *testing.T) {
	r := NewRegistry(nil)
	f := &stubSceneFactory{id: "mindmap"}
	r.RegisterScene(f)

	_, err := r.CreateScene("mindmap", plugin.NewMemoryContainer("c", 100, 100), plugin.SceneConfig{"theme": "dark"})
	require.NoError(t, err)
	require.Len(t, f.created, 1)
	assert.Equal(t, "tree", f.created[0].String("layout", ""))
	assert.Equal(t, "dark", f.created[0].String("theme", ""))

	_, err = r.CreateScene("mindmap", nil, plugin.SceneConfig{"layout": ""})
	assert.ErrorIs(t, err, apperrors.ErrInvalid)

	_, err = r.CreateScene("flow", nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry(nil)
	r.RegisterTool(&stubTool{id: "x"})
	r.RegisterScene(&stubSceneFactory{id: "mindmap"})
	r.Clear()
	assert.Empty(t, r.AvailableTools())
	assert.Empty(t, r.AvailableScenes())
}
