// Package scenes holds the renderer-backed Scene the concrete scene
// packages build on. A Profile supplies what differs between them: kind,
// defaults, validation and, optionally, positioning done before the
// renderer sees the graph.
package scenes

import (
	"context"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/layout"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"go.uber.org/zap"
)

// Scene events.
const (
	EventRendered      = "scene:rendered"
	EventDataChanged   = "data:changed"
	EventToolUsed      = "tool:used"
	EventConfigChanged = "config:changed"
)

// forwarded renderer events are re-emitted on the scene bus.
var forwarded = []string{"render:complete", "zoom", "pan", "interaction:mode", "performance:warning"}

// Profile describes one kind of scene.
type Profile struct {
	Kind       string
	Name       string
	Version    string
	RendererID string
	Defaults   func() plugin.SceneConfig
	Validate   func(plugin.SceneConfig) error
	// Arrange positions every node of data inside area. When set, the
	// renderer is created with the preset layout so those positions stand.
	Arrange func(ctx context.Context, registry plugin.Registry, cfg plugin.SceneConfig, data *graph.Data, area graph.Rect) error
}

// areaProvider is implemented by renderers that expose their drawing area.
type areaProvider interface {
	Area() graph.Rect
}

// Scene is a graph view backed by a renderer from the registry.
type Scene struct {
	profile  Profile
	id       string
	registry plugin.Registry
	logger   logging.Logger
	events   *eventbus.Bus

	mu          sync.RWMutex
	container   plugin.Container
	renderer    plugin.Renderer
	cfg         plugin.SceneConfig
	tools       []plugin.Tool
	active      string
	data        *graph.Data
	initialized bool
}

// New returns an uninitialized scene of the given profile.
func New(profile Profile, registry plugin.Registry, logger logging.Logger) *Scene {
	logger = logging.OrNop(logger)
	if profile.Version == "" {
		profile.Version = "1.0.0"
	}
	return &Scene{
		profile:  profile,
		id:       profile.Kind + "-" + uuid.NewString(),
		registry: registry,
		logger:   logger,
		events:   eventbus.New(logger, eventbus.WithHistorySize(0)),
		cfg:      profile.defaults(),
	}
}

func (p Profile) defaults() plugin.SceneConfig {
	if p.Defaults == nil {
		return plugin.SceneConfig{}
	}
	return p.Defaults()
}

func (p Profile) validate(cfg plugin.SceneConfig) error {
	if p.Validate == nil {
		return nil
	}
	return p.Validate(cfg)
}

func (s *Scene) ID() string         { return s.id }
func (s *Scene) Kind() string       { return s.profile.Kind }
func (s *Scene) Name() string       { return s.profile.Name }
func (s *Scene) Version() string    { return s.profile.Version }
func (s *Scene) RendererID() string { return s.profile.RendererID }

// Initialize creates the renderer and resolves the toolbar. Calling it again
// replaces the previous renderer.
func (s *Scene) Initialize(ctx context.Context, container plugin.Container, cfg plugin.SceneConfig) error {
	if container == nil {
		return apperrors.NewInvalid("container", nil, "required")
	}
	merged := s.profile.defaults().Merge(cfg)
	if err := s.profile.validate(merged); err != nil {
		return err
	}

	renderer, err := s.registry.CreateRenderer(s.profile.RendererID, s.rendererConfig(merged))
	if err != nil {
		return err
	}
	for _, event := range forwarded {
		renderer.On(event, func(ctx context.Context, e eventbus.Event) error {
			s.events.Emit(ctx, e.Type, e.Data)
			return nil
		})
	}
	if !merged.Bool("interactive", true) {
		renderer.DisableInteraction()
	}

	s.mu.Lock()
	old := s.renderer
	s.container = container
	s.renderer = renderer
	s.cfg = merged
	s.tools = s.resolveTools(merged.Strings("toolbar"))
	s.initialized = true
	s.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
	s.logger.Debug("scene initialized", zap.String("scene", s.id), zap.Int("tools", len(s.tools)))
	return nil
}

func (s *Scene) rendererConfig(cfg plugin.SceneConfig) plugin.GenericConfig {
	out := plugin.GenericConfig{}
	for k, v := range cfg.Map("renderer") {
		out[k] = v
	}
	if s.profile.Arrange != nil {
		out["layout"] = layout.IDPreset
	}
	return out
}

// arrange runs the profile's positioning on a copy of data.
func (s *Scene) arrange(ctx context.Context, renderer plugin.Renderer, container plugin.Container, data *graph.Data) (*graph.Data, error) {
	if s.profile.Arrange == nil {
		return data, nil
	}
	if err := data.Validate(); err != nil {
		return nil, apperrors.NewInvalid("graph", s.id, err.Error()).WithInnerError(err)
	}
	var area graph.Rect
	if p, ok := renderer.(areaProvider); ok {
		area = p.Area()
	} else {
		w, h := container.Size()
		area = graph.Rect{Width: float64(w), Height: float64(h)}
	}
	s.mu.RLock()
	cfg := s.cfg.Clone()
	s.mu.RUnlock()

	out := data.Clone()
	if err := s.profile.Arrange(ctx, s.registry, cfg, out, area); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveTools looks toolbar ids up in the registry and skips unknown ones.
func (s *Scene) resolveTools(ids []string) []plugin.Tool {
	tools := make([]plugin.Tool, 0, len(ids))
	for _, id := range ids {
		t, ok := s.registry.Tool(id)
		if !ok {
			s.logger.Debug("toolbar tool not registered", zap.String("tool", id))
			continue
		}
		tools = append(tools, t)
	}
	return tools
}

func (s *Scene) ready() (plugin.Renderer, plugin.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, nil, apperrors.NewInvalid("scene", s.id, "not initialized")
	}
	return s.renderer, s.container, nil
}

func (s *Scene) Render(ctx context.Context, data *graph.Data) error {
	renderer, container, err := s.ready()
	if err != nil {
		return err
	}
	data, err = s.arrange(ctx, renderer, container, data)
	if err != nil {
		return err
	}
	if err := renderer.Render(ctx, container, data, nil); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data.Clone()
	fit := s.cfg.Bool("autoLayout", true)
	s.mu.Unlock()
	if fit {
		renderer.FitView()
	}
	s.events.Emit(ctx, EventRendered, renderer.PerformanceMetrics())
	return nil
}

// UpdateData applies patch to the current graph and redraws.
func (s *Scene) UpdateData(ctx context.Context, patch graph.Patch) error {
	renderer, container, err := s.ready()
	if err != nil {
		return err
	}
	s.mu.RLock()
	current, fit := s.data, s.cfg.Bool("autoLayout", true)
	s.mu.RUnlock()
	if current == nil {
		return apperrors.NewInvalid("scene", s.id, "update before render")
	}
	if patch.Empty() {
		return nil
	}

	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return apperrors.NewInvalid("graph patch", s.id, err.Error()).WithInnerError(err)
	}
	if next, err = s.arrange(ctx, renderer, container, next); err != nil {
		return err
	}
	if err := renderer.Update(ctx, next); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	if fit {
		renderer.FitView()
	}
	s.events.Emit(ctx, EventDataChanged, patch)
	return nil
}

// Destroy releases the renderer and drops listeners. Safe to call twice.
func (s *Scene) Destroy() {
	s.mu.Lock()
	renderer := s.renderer
	s.renderer = nil
	s.container = nil
	s.data = nil
	s.tools = nil
	s.initialized = false
	s.mu.Unlock()

	if renderer != nil {
		renderer.Destroy()
	}
	s.events.RemoveAllListeners()
}

// --- Viewport, delegated to the renderer ---

func (s *Scene) viewport() plugin.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.renderer == nil {
		return nil
	}
	return s.renderer
}

func (s *Scene) FitView() {
	if v := s.viewport(); v != nil {
		v.FitView()
	}
}

func (s *Scene) ZoomTo(level float64) {
	if v := s.viewport(); v != nil {
		v.ZoomTo(level)
	}
}

func (s *Scene) PanTo(x, y float64) {
	if v := s.viewport(); v != nil {
		v.PanTo(x, y)
	}
}

func (s *Scene) Center() {
	if v := s.viewport(); v != nil {
		v.Center()
	}
}

func (s *Scene) Zoom() float64 {
	if v := s.viewport(); v != nil {
		return v.Zoom()
	}
	return 1
}

func (s *Scene) EnableInteraction() {
	s.mu.RLock()
	r := s.renderer
	s.mu.RUnlock()
	if r != nil {
		r.EnableInteraction()
	}
}

func (s *Scene) DisableInteraction() {
	s.mu.RLock()
	r := s.renderer
	s.mu.RUnlock()
	if r != nil {
		r.DisableInteraction()
	}
}

// --- Events ---

func (s *Scene) On(event string, handler eventbus.Handler) *eventbus.Subscription {
	return s.events.On(event, handler)
}

func (s *Scene) Off(event string, subs ...*eventbus.Subscription) {
	s.events.Off(event, subs...)
}

func (s *Scene) Emit(ctx context.Context, event string, data any) {
	s.events.Emit(ctx, event, data)
}

// --- Data ---

func (s *Scene) Data() *graph.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.renderer != nil && s.data != nil {
		return s.renderer.Data()
	}
	return s.data.Clone()
}

// SetData replaces the graph without a patch.
func (s *Scene) SetData(data *graph.Data) {
	s.mu.Lock()
	s.data = data.Clone()
	r := s.renderer
	s.mu.Unlock()
	if r != nil {
		r.SetData(data)
	}
	s.events.Emit(context.Background(), EventDataChanged, nil)
}

// --- Tools ---

func (s *Scene) Tools() []plugin.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]plugin.Tool(nil), s.tools...)
}

// AddTool appends t, replacing a tool with the same id in place.
func (s *Scene) AddTool(t plugin.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tools {
		if existing.ID() == t.ID() {
			s.tools[i] = t
			return
		}
	}
	s.tools = append(s.tools, t)
}

func (s *Scene) RemoveTool(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tools {
		if t.ID() == id {
			if s.active == id {
				t.Deactivate()
				s.active = ""
			}
			s.tools = append(s.tools[:i], s.tools[i+1:]...)
			return true
		}
	}
	return false
}

// UseTool makes id the active tool, deactivating the previous one. Tools
// that implement plugin.ViewportAction are applied to the renderer.
func (s *Scene) UseTool(ctx context.Context, id string) error {
	s.mu.Lock()
	var tool, previous plugin.Tool
	for _, t := range s.tools {
		if t.ID() == id {
			tool = t
		}
		if t.ID() == s.active {
			previous = t
		}
	}
	if tool == nil {
		s.mu.Unlock()
		return apperrors.NewNotFound("tool", id)
	}
	if !tool.Enabled() {
		s.mu.Unlock()
		return apperrors.NewInvalid("tool", id, "disabled")
	}
	s.active = id
	renderer := s.renderer
	s.mu.Unlock()

	if previous != nil && previous != tool {
		previous.Deactivate()
	}
	tool.Activate()
	if action, ok := tool.(plugin.ViewportAction); ok && renderer != nil {
		if err := action.Apply(ctx, renderer); err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "apply tool "+id)
		}
	}
	s.events.Emit(ctx, EventToolUsed, id)
	return nil
}

// ActiveTool returns the id of the tool last used.
func (s *Scene) ActiveTool() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// --- Config ---

func (s *Scene) Config() plugin.SceneConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// SetConfig merges patch shallowly. A new toolbar is resolved again.
func (s *Scene) SetConfig(patch plugin.SceneConfig) {
	s.mu.Lock()
	s.cfg = s.cfg.Merge(patch)
	if _, ok := patch["toolbar"]; ok && s.initialized {
		s.tools = s.resolveTools(s.cfg.Strings("toolbar"))
	}
	cfg := s.cfg.Clone()
	s.mu.Unlock()
	s.events.Emit(context.Background(), EventConfigChanged, cfg)
}

var _ plugin.Scene = (*Scene)(nil)
