package runtime

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/plugin"
)

// Capability kinds, also the prefix of registry events.
const (
	KindRenderer = "renderer"
	KindScene    = "scene"
	KindTool     = "tool"
	KindTheme    = "theme"
	KindLayout   = "layout"
)

// RegistrationEvent is the payload of "<kind>:registered" and
// "<kind>:unregistered".
type RegistrationEvent struct {
	ID    string `json:"id"`
	Owner string `json:"owner,omitempty"`
}

type entry[T any] struct {
	value T
	owner string
}

// table keeps every live registration of an id in registration order. The
// last layer is the visible one; the ones below resurface when it is
// withdrawn.
type table[T any] map[string][]entry[T]

func (t table[T]) put(id string, e entry[T]) {
	layers := make([]entry[T], 0, len(t[id])+1)
	for _, l := range t[id] {
		if l.owner != e.owner {
			layers = append(layers, l)
		}
	}
	t[id] = append(layers, e)
}

func (t table[T]) get(id string) (T, bool) {
	layers := t[id]
	if len(layers) == 0 {
		var zero T
		return zero, false
	}
	return layers[len(layers)-1].value, true
}

func (t table[T]) ids() []string {
	out := make([]string, 0, len(t))
	for id := range t {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// withdraw drops every layer owned by owner. It returns the ids owner was
// visibly holding and, for those that fell back to an older layer, the
// registration now in effect.
func (t table[T]) withdraw(owner string) (removed []string, restored []RegistrationEvent) {
	for id, layers := range t {
		top := layers[len(layers)-1]
		kept := make([]entry[T], 0, len(layers))
		for _, l := range layers {
			if l.owner != owner {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(layers) {
			continue
		}
		if len(kept) == 0 {
			delete(t, id)
		} else {
			t[id] = kept
		}
		if top.owner != owner {
			continue
		}
		removed = append(removed, id)
		if len(kept) > 0 {
			restored = append(restored, RegistrationEvent{ID: id, Owner: kept[len(kept)-1].owner})
		}
	}
	sort.Strings(removed)
	sort.Slice(restored, func(i, j int) bool { return restored[i].ID < restored[j].ID })
	return removed, restored
}

func (t table[T]) owned(owner string) []string {
	var out []string
	for id, layers := range t {
		if layers[len(layers)-1].owner == owner {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Owned lists the capability ids a plugin currently owns.
type Owned struct {
	Renderers []string `json:"renderers,omitempty"`
	Scenes    []string `json:"scenes,omitempty"`
	Tools     []string `json:"tools,omitempty"`
	Themes    []string `json:"themes,omitempty"`
	Layouts   []string `json:"layouts,omitempty"`
}

// Empty reports whether nothing is owned.
func (o Owned) Empty() bool {
	return len(o.Renderers)+len(o.Scenes)+len(o.Tools)+len(o.Themes)+len(o.Layouts) == 0
}

// Registry holds every capability contributed by plugins or the host.
// Registering an id that already exists shadows the entry and transfers
// ownership; withdrawing the newer owner brings the older entry back.
type Registry struct {
	mu     sync.RWMutex
	events plugin.EventBus

	renderers table[plugin.RendererFactory]
	scenes    table[plugin.SceneFactory]
	tools     table[plugin.Tool]
	themes    table[plugin.Theme]
	layouts   table[plugin.Layout]
}

// NewRegistry creates an empty registry. events may be nil.
func NewRegistry(events plugin.EventBus) *Registry {
	return &Registry{
		events:    events,
		renderers: make(table[plugin.RendererFactory]),
		scenes:    make(table[plugin.SceneFactory]),
		tools:     make(table[plugin.Tool]),
		themes:    make(table[plugin.Theme]),
		layouts:   make(table[plugin.Layout]),
	}
}

// ForPlugin returns a view of r that records registrations as owned by
// pluginID.
func (r *Registry) ForPlugin(pluginID string) plugin.Registry {
	return &scopedRegistry{Registry: r, owner: pluginID}
}

func (r *Registry) RegisterRenderer(f plugin.RendererFactory) { r.registerRenderer(f, "") }
func (r *Registry) RegisterScene(f plugin.SceneFactory)       { r.registerScene(f, "") }
func (r *Registry) RegisterTool(t plugin.Tool)                { r.registerTool(t, "") }
func (r *Registry) RegisterTheme(t plugin.Theme)              { r.registerTheme(t, "") }
func (r *Registry) RegisterLayout(l plugin.Layout)            { r.registerLayout(l, "") }

func (r *Registry) registerRenderer(f plugin.RendererFactory, owner string) {
	r.mu.Lock()
	r.renderers.put(f.ID(), entry[plugin.RendererFactory]{value: f, owner: owner})
	r.mu.Unlock()
	r.emit(KindRenderer+":registered", f.ID(), owner)
}

func (r *Registry) registerScene(f plugin.SceneFactory, owner string) {
	r.mu.Lock()
	r.scenes.put(f.ID(), entry[plugin.SceneFactory]{value: f, owner: owner})
	r.mu.Unlock()
	r.emit(KindScene+":registered", f.ID(), owner)
}

func (r *Registry) registerTool(t plugin.Tool, owner string) {
	r.mu.Lock()
	r.tools.put(t.ID(), entry[plugin.Tool]{value: t, owner: owner})
	r.mu.Unlock()
	r.emit(KindTool+":registered", t.ID(), owner)
}

func (r *Registry) registerTheme(t plugin.Theme, owner string) {
	r.mu.Lock()
	r.themes.put(t.ID, entry[plugin.Theme]{value: t, owner: owner})
	r.mu.Unlock()
	r.emit(KindTheme+":registered", t.ID, owner)
}

func (r *Registry) registerLayout(l plugin.Layout, owner string) {
	r.mu.Lock()
	r.layouts.put(l.ID(), entry[plugin.Layout]{value: l, owner: owner})
	r.mu.Unlock()
	r.emit(KindLayout+":registered", l.ID(), owner)
}

// CreateRenderer builds a renderer of the given kind. A nil cfg uses the
// factory default; any cfg is validated before the factory sees it.
func (r *Registry) CreateRenderer(kind string, cfg plugin.RendererConfig) (plugin.Renderer, error) {
	factory, ok := r.RendererFactory(kind)
	if !ok {
		return nil, apperrors.NewNotFound("renderer", kind)
	}
	if cfg == nil {
		cfg = factory.DefaultConfig()
	}
	if err := factory.ValidateConfig(cfg); err != nil {
		return nil, asInvalid("renderer config", kind, err)
	}
	return factory.Create(cfg)
}

// CreateScene builds an initialized scene. cfg is merged over the factory
// default before validation.
func (r *Registry) CreateScene(kind string, container plugin.Container, cfg plugin.SceneConfig) (plugin.Scene, error) {
	factory, ok := r.SceneFactory(kind)
	if !ok {
		return nil, apperrors.NewNotFound("scene", kind)
	}
	merged := factory.DefaultConfig().Merge(cfg)
	if err := factory.ValidateConfig(merged); err != nil {
		return nil, asInvalid("scene config", kind, err)
	}
	return factory.Create(container, merged)
}

func (r *Registry) RendererFactory(id string) (plugin.RendererFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renderers.get(id)
}

func (r *Registry) SceneFactory(id string) (plugin.SceneFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scenes.get(id)
}

func (r *Registry) Tool(id string) (plugin.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools.get(id)
}

func (r *Registry) Theme(id string) (plugin.Theme, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.themes.get(id)
}

func (r *Registry) Layout(id string) (plugin.Layout, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layouts.get(id)
}

func (r *Registry) AvailableRenderers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renderers.ids()
}

func (r *Registry) AvailableScenes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scenes.ids()
}

func (r *Registry) AvailableTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools.ids()
}

func (r *Registry) AvailableThemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.themes.ids()
}

func (r *Registry) AvailableLayouts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layouts.ids()
}

// Owned lists what pluginID registered and still owns.
func (r *Registry) Owned(pluginID string) Owned {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Owned{
		Renderers: r.renderers.owned(pluginID),
		Scenes:    r.scenes.owned(pluginID),
		Tools:     r.tools.owned(pluginID),
		Themes:    r.themes.owned(pluginID),
		Layouts:   r.layouts.owned(pluginID),
	}
}

// Withdraw removes every capability registered by pluginID. Where an
// older registration of the same id exists it becomes visible again and
// "<kind>:registered" is emitted for it.
func (r *Registry) Withdraw(pluginID string) Owned {
	var removed Owned
	var restored [5][]RegistrationEvent
	r.mu.Lock()
	removed.Renderers, restored[0] = r.renderers.withdraw(pluginID)
	removed.Scenes, restored[1] = r.scenes.withdraw(pluginID)
	removed.Tools, restored[2] = r.tools.withdraw(pluginID)
	removed.Themes, restored[3] = r.themes.withdraw(pluginID)
	removed.Layouts, restored[4] = r.layouts.withdraw(pluginID)
	r.mu.Unlock()

	r.emitRemoved(KindRenderer, removed.Renderers, pluginID)
	r.emitRemoved(KindScene, removed.Scenes, pluginID)
	r.emitRemoved(KindTool, removed.Tools, pluginID)
	r.emitRemoved(KindTheme, removed.Themes, pluginID)
	r.emitRemoved(KindLayout, removed.Layouts, pluginID)
	for i, kind := range []string{KindRenderer, KindScene, KindTool, KindTheme, KindLayout} {
		for _, e := range restored[i] {
			r.emit(kind+":registered", e.ID, e.Owner)
		}
	}
	return removed
}

// Clear empties every table without emitting events.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers = make(table[plugin.RendererFactory])
	r.scenes = make(table[plugin.SceneFactory])
	r.tools = make(table[plugin.Tool])
	r.themes = make(table[plugin.Theme])
	r.layouts = make(table[plugin.Layout])
}

func (r *Registry) emit(event, id, owner string) {
	if r.events == nil {
		return
	}
	r.events.Emit(context.Background(), event, RegistrationEvent{ID: id, Owner: owner})
}

func (r *Registry) emitRemoved(kind string, ids []string, owner string) {
	for _, id := range ids {
		r.emit(kind+":unregistered", id, owner)
	}
}

func asInvalid(field, kind string, err error) error {
	if apperrors.TypeOf(err) != apperrors.ErrorTypeUnknown {
		return err
	}
	return apperrors.NewInvalid(field, kind, err.Error()).WithInnerError(err)
}

// scopedRegistry records ownership for one plugin.
type scopedRegistry struct {
	*Registry
	owner string
}

func (s *scopedRegistry) RegisterRenderer(f plugin.RendererFactory) {
	s.registerRenderer(f, s.owner)
}
func (s *scopedRegistry) RegisterScene(f plugin.SceneFactory) { s.registerScene(f, s.owner) }
func (s *scopedRegistry) RegisterTool(t plugin.Tool)          { s.registerTool(t, s.owner) }
func (s *scopedRegistry) RegisterTheme(t plugin.Theme)        { s.registerTheme(t, s.owner) }
func (s *scopedRegistry) RegisterLayout(l plugin.Layout)      { s.registerLayout(l, s.owner) }

var (
	_ plugin.Registry = (*Registry)(nil)
	_ plugin.Registry = (*scopedRegistry)(nil)
)
