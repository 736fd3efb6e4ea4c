// Package mindmap is the mind-map Scene. It composes an svg renderer from
// the capability registry with the toolbar tools registered by plugins.
package mindmap

import (
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/scenes"
)

const (
	Kind       = "mindmap"
	RendererID = "svg"
)

// Scene events.
const (
	EventRendered      = scenes.EventRendered
	EventDataChanged   = scenes.EventDataChanged
	EventToolUsed      = scenes.EventToolUsed
	EventConfigChanged = scenes.EventConfigChanged
)

// Scene is a mind map backed by a renderer. The renderer's own layout
// places the nodes.
type Scene struct {
	*scenes.Scene
}

// New returns an uninitialized scene.
func New(registry plugin.Registry, logger logging.Logger) *Scene {
	return &Scene{Scene: scenes.New(scenes.Profile{
		Kind:       Kind,
		Name:       "Mind Map",
		RendererID: RendererID,
		Defaults:   DefaultConfig,
		Validate:   ValidateConfig,
	}, registry, logger)}
}

var _ plugin.Scene = (*Scene)(nil)
