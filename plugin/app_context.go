package plugin

import (
	"context"

	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/settings"
)

// AppContext is what a plugin receives in Install. Each plugin gets its own
// copy: Registry records everything registered through it as owned by
// PluginID, and Logger is named after the plugin.
type AppContext struct {
	PluginID string
	Logger   logging.Logger
	Events   EventBus
	Config   ConfigStore
	Data     ConfigStore
	Registry Registry
}

// Subscription is a handle that removes an event handler.
type Subscription interface {
	Unsubscribe()
}

// EventBus is the part of the event bus plugins may use.
type EventBus interface {
	On(event string, handler eventbus.Handler) *eventbus.Subscription
	Once(event string, handler eventbus.Handler) *eventbus.Subscription
	Off(event string, subs ...*eventbus.Subscription)
	Emit(ctx context.Context, event string, data any)
}

// ConfigStore is the part of the settings store plugins may use.
type ConfigStore interface {
	Get(path string) (any, bool)
	GetOr(path string, def any) any
	GetString(path, def string) string
	GetInt(path string, def int) int
	GetBool(path string, def bool) bool
	Set(path string, value any)
	Has(path string) bool
	Delete(path string)
	Watch(path string, fn settings.WatchFunc) (unsubscribe func())
}

// Registry is the capability registry as seen by plugins and hosts.
// Register calls replace any previous entry with the same id.
type Registry interface {
	RegisterRenderer(f RendererFactory)
	RegisterScene(f SceneFactory)
	RegisterTool(t Tool)
	RegisterTheme(t Theme)
	RegisterLayout(l Layout)

	CreateRenderer(kind string, cfg RendererConfig) (Renderer, error)
	CreateScene(kind string, container Container, cfg SceneConfig) (Scene, error)

	RendererFactory(id string) (RendererFactory, bool)
	SceneFactory(id string) (SceneFactory, bool)
	Tool(id string) (Tool, bool)
	Theme(id string) (Theme, bool)
	Layout(id string) (Layout, bool)
}

var (
	_ EventBus     = (*eventbus.Bus)(nil)
	_ ConfigStore  = (*settings.Store)(nil)
	_ Subscription = (*eventbus.Subscription)(nil)
)
