package loader

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedPlugin struct{ id string }

func (p *namedPlugin) Info() plugin.Info { return plugin.Info{ID: p.id} }
func (p *namedPlugin) Install(context.Context, *plugin.AppContext) error {
	return nil
}

func ctor(id string) Constructor {
	return func() (plugin.Plugin, error) { return &namedPlugin{id: id}, nil }
}

func resolvedID(t *testing.T, m *Module, id string) string {
	t.Helper()
	c, _, err := Resolve(m, id)
	require.NoError(t, err)
	p, err := c()
	require.NoError(t, err)
	return p.Info().ID
}

func TestResolve_Order(t *testing.T) {
	m := &Module{Exports: map[string]Constructor{
		"PLUGIN":        ctor("well-known"),
		"default":       ctor("default"),
		"MindMap":       ctor("derived"),
		"AnotherPlugin": ctor("scan"),
	}}
	assert.Equal(t, "well-known", resolvedID(t, m, "scenes/mind-map"))

	delete(m.Exports, "PLUGIN")
	assert.Equal(t, "default", resolvedID(t, m, "scenes/mind-map"))

	delete(m.Exports, "default")
	assert.Equal(t, "derived", resolvedID(t, m, "scenes/mind-map"))

	delete(m.Exports, "MindMap")
	assert.Equal(t, "scan", resolvedID(t, m, "scenes/mind-map"))
}

func TestResolve_ScanIsSorted(t *testing.T) {
	m := &Module{Exports: map[string]Constructor{
		"ZetaPlugin":  ctor("zeta"),
		"AlphaPlugin": ctor("alpha"),
		"helper":      ctor("helper"),
	}}
	assert.Equal(t, "alpha", resolvedID(t, m, "x"))
}

func TestResolve_NotFound(t *testing.T) {
	_, _, err := Resolve(&Module{Exports: map[string]Constructor{"helper": ctor("h")}}, "x")
	assert.ErrorIs(t, err, apperrors.ErrPluginClassNotFound)

	_, _, err = Resolve(nil, "x")
	assert.ErrorIs(t, err, apperrors.ErrPluginClassNotFound)
}

func TestDerivedName(t *testing.T) {
	assert.Equal(t, "X6Plugin", DerivedName("x6/X6Plugin"))
	assert.Equal(t, "MindMap", DerivedName("scenes/mind-map"))
	assert.Equal(t, "Svg", DerivedName("svg"))
}

func TestCatalogAndChain(t *testing.T) {
	first, second := NewCatalog(), NewCatalog()
	first.Register("svg", Module{Exports: map[string]Constructor{"PLUGIN": ctor("svg-1")}})
	second.Register("svg", Module{Exports: map[string]Constructor{"PLUGIN": ctor("svg-2")}})
	second.Register("toolbox", Module{Exports: map[string]Constructor{"PLUGIN": ctor("toolbox")}})

	assert.Equal(t, []string{"svg"}, first.IDs())

	l := New(logging.NewNop(), first, second)
	ctx := context.Background()

	p, err := l.Load(ctx, "svg")
	require.NoError(t, err)
	assert.Equal(t, "svg-1", p.Info().ID)

	p, err = l.Load(ctx, "toolbox")
	require.NoError(t, err)
	assert.Equal(t, "toolbox", p.Info().ID)

	_, err = l.Load(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

type brokenSource struct{}

func (brokenSource) Module(context.Context, string) (*Module, error) {
	return nil, errors.New("disk on fire")
}

func TestChain_StopsOnHardError(t *testing.T) {
	c := NewCatalog()
	c.Register("svg", Module{Exports: map[string]Constructor{"PLUGIN": ctor("svg")}})

	_, err := Chain{brokenSource{}, c}.Module(context.Background(), "svg")
	assert.EqualError(t, err, "disk on fire")
}

func TestLoader_ConstructorFailures(t *testing.T) {
	c := NewCatalog()
	c.Register("boom", Module{Exports: map[string]Constructor{
		"PLUGIN": func() (plugin.Plugin, error) { panic("bad init") },
	}})
	c.Register("nil", Module{Exports: map[string]Constructor{
		"PLUGIN": func() (plugin.Plugin, error) { return nil, nil },
	}})
	l := New(nil, c)

	_, err := l.Load(context.Background(), "boom")
	assert.ErrorIs(t, err, apperrors.ErrInternal)

	_, err = l.Load(context.Background(), "nil")
	assert.ErrorIs(t, err, apperrors.ErrPluginClassNotFound)
}

func TestSharedObjectSource_MissingFile(t *testing.T) {
	src := SharedObjectSource{Dir: t.TempDir()}
	_, err := src.Module(context.Background(), "scenes/mindmap")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAsConstructor(t *testing.T) {
	var p plugin.Plugin = &namedPlugin{id: "var"}
	c := asConstructor(&p)
	require.NotNil(t, c)
	got, err := c()
	require.NoError(t, err)
	assert.Equal(t, "var", got.Info().ID)

	fn := func() (plugin.Plugin, error) { return &namedPlugin{id: "fn"}, nil }
	require.NotNil(t, asConstructor(fn))
	assert.Nil(t, asConstructor(42))
}

func TestAsConstructor_NilSymbols(t *testing.T) {
	var nilPlugin plugin.Plugin
	var nilFn func() (plugin.Plugin, error)
	for name, sym := range map[string]any{
		"nil *Constructor":    (*Constructor)(nil),
		"nil *func":           (*func() (plugin.Plugin, error))(nil),
		"nil *plugin.Plugin":  (*plugin.Plugin)(nil),
		"*func holding nil":   &nilFn,
		"*Plugin holding nil": &nilPlugin,
	} {
		assert.NotPanics(t, func() {
			assert.Nil(t, asConstructor(sym), name)
		}, name)
	}
}
