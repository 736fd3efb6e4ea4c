package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func options(dir string) ConfigOptions {
	return ConfigOptions{BasePath: dir, FileName: "config", FileType: "yaml", EnvPrefix: "GTTEST"}
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
name: Atlas
debug: true
theme:
  mode: dark
plugins:
  - globaltree/svg
plugin-settings:
  svg:
    forceIterations: 20
logging:
  log-in-terminal: false
`)

	c, app, err := Load(options(dir))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "Atlas", app.Name)
	assert.Equal(t, "1.0.0", app.Version)
	assert.True(t, app.Debug)
	assert.Equal(t, "dark", app.Theme.Mode)
	assert.Equal(t, "default", app.Theme.ID)
	assert.Equal(t, "svg", app.Renderer.Default)
	assert.Equal(t, 1000, app.Renderer.Performance.MaxNodes)
	assert.Equal(t, []string{"globaltree/svg"}, app.Plugins)
	assert.EqualValues(t, 20, app.PluginSettings["svg"]["forceiterations"])
	assert.False(t, app.Logging.LogInTerminal, "file value wins over a true default")
	assert.Equal(t, ":8787", app.Diagnostics.Addr)
	assert.Len(t, c.Files(), 1)
}

func TestLoad_LocalOverlayAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "name: Base\nlocale: en-US\n")
	writeFile(t, dir, "config.local.yaml", "name: Local\n")
	t.Setenv("GTTEST_LOCALE", "fr-FR")

	c, app, err := Load(options(dir))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "Local", app.Name)
	assert.Equal(t, "fr-FR", app.Locale)
}

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Load(options(dir))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	opts := options(dir)
	opts.AllowMissing = true
	c, app, err := Load(opts)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, Default(), app)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "theme:\n  mode: sepia\n")
	_, _, err := Load(options(dir))
	require.ErrorIs(t, err, apperrors.ErrInvalid)
	assert.Contains(t, err.Error(), "oneof")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "debug: false\n")

	changed := make(chan fsnotify.Event, 4)
	opts := options(dir)
	opts.WatchAble = true
	opts.OnChange = func(e fsnotify.Event) { changed <- e }

	c, app, err := Load(opts)
	require.NoError(t, err)
	defer c.Close()
	assert.False(t, app.Debug)

	writeFile(t, dir, "config.yaml", "debug: true\n")
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	fresh, err := c.Reread()
	require.NoError(t, err)
	assert.True(t, fresh.Debug)
	assert.Equal(t, true, c.Get("debug"))
}

func TestClose_Unwatched(t *testing.T) {
	opts := options(t.TempDir())
	opts.AllowMissing = true
	c, err := NewConfig(opts)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
