package svg

import (
	"testing"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otherConfig struct{}

func (otherConfig) RendererKind() string { return "canvas" }

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 800, c.Width)
	assert.Equal(t, "grid", c.Layout)
	assert.Equal(t, plugin.ModeView, c.Interaction)
	assert.True(t, c.Interactive)
	assert.NoError(t, c.Validate())
}

func TestDecodeConfig(t *testing.T) {
	c, err := DecodeConfig(plugin.GenericConfig{"width": 320, "interactive": false})
	require.NoError(t, err)
	assert.Equal(t, 320, c.Width)
	assert.Equal(t, 600, c.Height)
	assert.False(t, c.Interactive)

	c, err = DecodeConfig(&Config{Width: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, c.Width)

	_, err = DecodeConfig(otherConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
}

func TestConfig_Validate(t *testing.T) {
	c := DefaultConfig()
	c.MaxZoom = 0.05
	assert.ErrorIs(t, c.Validate(), apperrors.ErrInvalid)

	c = DefaultConfig()
	c.Background = "blue"
	assert.ErrorIs(t, c.Validate(), apperrors.ErrInvalid)

	c = DefaultConfig()
	c.Interaction = "rotate"
	assert.ErrorIs(t, c.Validate(), apperrors.ErrInvalid)
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	assert.Equal(t, Kind, f.ID())
	caps := f.Capabilities()
	assert.Contains(t, caps.Formats, plugin.FormatThumbnail)
	assert.Contains(t, caps.Layouts, "force")

	assert.NoError(t, f.ValidateConfig(f.DefaultConfig()))
	assert.ErrorIs(t, f.ValidateConfig(plugin.GenericConfig{"width": 0}), apperrors.ErrInvalid)

	_, err := f.Create(plugin.GenericConfig{"layout": ""})
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
}
