package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/globaltree/errors"
)

const graphJSON = `{"nodes":[{"id":"r","type":"concept","label":"Root"},{"id":"c","type":"entity","label":"Child"}],
"edges":[{"id":"e","source":"r","target":"c","type":"contains"}]}`

const graphYAML = `nodes:
  - id: r
    type: concept
    label: Root
  - id: c
    type: entity
    label: Child
edges:
  - id: e
    source: r
    target: c
    type: contains
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config-dir", t.TempDir()}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPluginsCommand(t *testing.T) {
	out, err := execute(t, "", "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "mindmap")
	assert.Contains(t, out, "flowchart")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "CAPABILITY")
	assert.Contains(t, out, "zoom-in")

	out, err = execute(t, "", "plugins", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"initialized": true`)
}

func TestRenderCommand_Stdin(t *testing.T) {
	out, err := execute(t, graphJSON, "render")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Contains(t, out, "Child")
}

func TestRenderCommand_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(in, []byte(graphYAML), 0o644))
	dst := filepath.Join(dir, "graph.png")

	_, err := execute(t, "", "render", "--in", in, "--out", dst, "--format", "png", "--width", "320", "--height", "200")
	require.NoError(t, err)

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}

func TestRenderCommand_Errors(t *testing.T) {
	_, err := execute(t, graphJSON, "render", "--renderer", "canvas")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = execute(t, "{", "render")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)

	_, err = execute(t, graphJSON, "render", "--format", "gif")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)

	_, err = execute(t, graphJSON, "render", "--width", "0")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
}
