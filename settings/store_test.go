package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}
func (failingBackend) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}
func (failingBackend) Delete(context.Context, string) error { return nil }
func (failingBackend) Close() error                         { return nil }

type change struct {
	newValue any
	oldValue any
}

func TestStore_SetGet(t *testing.T) {
	s := New(nil)

	s.Set("a.b.c", 5)
	v, ok := s.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, 5, v)

	assert.True(t, s.Has("a.b"))
	assert.False(t, s.Has("a.x"))
	assert.Equal(t, "fallback", s.GetOr("a.x", "fallback"))

	// reading through a scalar yields the default
	assert.Equal(t, 42, s.GetOr("a.b.c.d", 42))

	// writing through a scalar replaces it with a mapping
	s.Set("a.b.c.d", "deep")
	assert.Equal(t, "deep", s.GetOr("a.b.c.d", nil))
}

func TestStore_TypedGetters(t *testing.T) {
	s := New(nil)
	s.Set("app.debug", "true")
	s.Set("renderer.performance.maxNodes", 1000.0)
	s.Set("app.name", "Global Tree")

	assert.True(t, s.GetBool("app.debug", false))
	assert.Equal(t, 1000, s.GetInt("renderer.performance.maxNodes", 0))
	assert.Equal(t, "Global Tree", s.GetString("app.name", ""))
	assert.Equal(t, 7, s.GetInt("app.name", 7), "uncastable value falls back")
	assert.Equal(t, 1.5, s.GetFloat("missing", 1.5))
}

func TestStore_GetReturnsCopies(t *testing.T) {
	s := New(nil)
	s.Set("theme", map[string]any{"id": "default"})

	v, _ := s.Get("theme")
	v.(map[string]any)["id"] = "mutated"
	all := s.All()
	all["theme"].(map[string]any)["id"] = "mutated"

	assert.Equal(t, "default", s.GetString("theme.id", ""))
}

func TestStore_TypedValuesMatchReloadedTree(t *testing.T) {
	backend := storage.NewMemory()
	s := New(backend)

	sizes := map[string]int{"width": 800}
	s.Set("canvas", sizes)
	s.Set("toolbar", []string{"zoom-in", "fit-view"})
	sizes["width"] = 1

	reloaded := New(backend)
	for _, store := range []*Store{s, reloaded} {
		assert.Equal(t, 800, store.GetInt("canvas.width", 0))
		v, ok := store.Get("toolbar")
		require.True(t, ok)
		assert.Equal(t, []any{"zoom-in", "fit-view"}, v)
	}
	assert.Equal(t, reloaded.All(), s.All())
}

func TestStore_WatchExactAndAncestor(t *testing.T) {
	s := New(nil)
	s.Set("a.b.c", 5)

	var exact, parent, root []change
	s.Watch("a.b.c", func(n, o any) { exact = append(exact, change{n, o}) })
	s.Watch("a.b", func(n, o any) { parent = append(parent, change{n, o}) })
	s.Watch("a", func(n, o any) { root = append(root, change{n, o}) })

	s.Set("a.b.c", 6)

	require.Len(t, exact, 1)
	assert.Equal(t, change{6, 5}, exact[0])
	require.Len(t, parent, 1)
	assert.Equal(t, map[string]any{"c": 6}, parent[0].newValue)
	assert.Equal(t, map[string]any{"c": 5}, parent[0].oldValue, "ancestor old value is the pre-mutation snapshot")
	require.Len(t, root, 1)
	assert.Equal(t, map[string]any{"b": map[string]any{"c": 5}}, root[0].oldValue)

	// sibling writes do not reach the exact watcher
	s.Set("a.x", 1)
	assert.Len(t, exact, 1)
	assert.Len(t, root, 2)
}

func TestStore_WatchUnsubscribe(t *testing.T) {
	s := New(nil)
	calls := 0
	unsubscribe := s.Watch("app.debug", func(n, o any) { calls++ })

	s.Set("app.debug", true)
	unsubscribe()
	unsubscribe()
	s.Set("app.debug", false)

	assert.Equal(t, 1, calls)
}

func TestStore_WatcherMayWriteStore(t *testing.T) {
	s := New(nil)
	s.Watch("app.debug", func(n, o any) {
		s.Set("logging.level", map[bool]string{true: "debug", false: "info"}[n == true])
	})

	s.Set("app.debug", true)
	assert.Equal(t, "debug", s.GetString("logging.level", ""))
}

func TestStore_WatcherPanicIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(nil, WithLogger(logging.FromZap(zap.New(core))))

	called := false
	s.Watch("x", func(n, o any) { panic("bad watcher") })
	s.Watch("x", func(n, o any) { called = true })

	s.Set("x", 1)
	assert.True(t, called)
	assert.Equal(t, 1, logs.FilterMessage("settings watcher failed").Len())
}

func TestStore_Delete(t *testing.T) {
	s := New(nil)
	s.Set("a.b", 1)
	s.Set("a.c", 2)

	var got []change
	s.Watch("a.b", func(n, o any) { got = append(got, change{n, o}) })

	s.Delete("a.b")
	assert.False(t, s.Has("a.b"))
	assert.True(t, s.Has("a.c"))
	require.Len(t, got, 1)
	assert.Equal(t, change{nil, 1}, got[0])

	s.Delete("a.b")
	s.Delete("nope.deeper")
	assert.Len(t, got, 1, "deleting a missing path does not notify")
}

func TestStore_ClearResetKeys(t *testing.T) {
	s := New(nil)
	s.Set("b", 1)
	s.Set("a.x", 2)
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	calls := 0
	s.Watch("a", func(n, o any) { calls++ })
	s.Clear()
	assert.Empty(t, s.Keys())

	s.Set("a.x", 3)
	assert.Equal(t, 0, calls, "clear drops watchers")

	s.Reset(map[string]any{"theme.id": "dark", "locale": "en"})
	assert.Equal(t, []string{"locale", "theme"}, s.Keys())
	assert.Equal(t, "dark", s.GetString("theme.id", ""))
}

func TestStore_PersistsAndReloads(t *testing.T) {
	backend := storage.NewMemory()
	s := New(backend)
	s.Set("app.name", "Global Tree")
	s.Set("renderer.default", "svg")

	raw, ok, err := backend.Get(context.Background(), DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"default":"svg"`)

	reloaded := New(backend)
	assert.Equal(t, "Global Tree", reloaded.GetString("app.name", ""))
	assert.Equal(t, "svg", reloaded.GetString("renderer.default", ""))

	other := New(backend, WithStorageKey("other-slot"))
	assert.Empty(t, other.Keys())
}

func TestStore_PersistenceFailuresAreSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(failingBackend{}, WithLogger(logging.FromZap(zap.New(core))))

	s.Set("a.b", 1)
	assert.Equal(t, 1, s.GetOr("a.b", nil), "store keeps working in memory")
	s.Delete("a.b")
	assert.False(t, s.Has("a.b"))

	assert.Equal(t, 1, logs.FilterMessage("settings: load failed").Len())
	assert.Equal(t, 2, logs.FilterMessage("settings: save failed").Len())
}

func TestStore_CorruptBlobIgnored(t *testing.T) {
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(context.Background(), DefaultStorageKey, "{not json"))

	s := New(backend)
	assert.Empty(t, s.Keys())
	s.Set("ok", true)
	assert.True(t, s.GetBool("ok", false))
}
