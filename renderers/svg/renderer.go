// Package svg is the reference renderer backend. It lays a graph out,
// draws it as SVG into a plugin.Container and exports JSON, YAML, SVG and
// PNG snapshots.
package svg

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/json"
	"github.com/leeforge/globaltree/layout"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Instance events.
const (
	EventRenderComplete  = "render:complete"
	EventZoom            = "zoom"
	EventPan             = "pan"
	EventInteractionMode = "interaction:mode"
	EventDataChanged     = "data:changed"
	EventPerformanceWarn = "performance:warning"
)

const mimeSVG = "image/svg+xml"

// LayoutResolver and ThemeResolver look capabilities up by id, typically
// in the capability registry.
type (
	LayoutResolver func(id string) (plugin.Layout, bool)
	ThemeResolver  func(id string) (plugin.Theme, bool)
)

// Renderer implements plugin.Renderer on top of generated SVG.
type Renderer struct {
	id      string
	logger  logging.Logger
	events  *eventbus.Bus
	layouts LayoutResolver
	themes  ThemeResolver

	mu          sync.RWMutex
	cfg         Config
	container   plugin.Container
	data        *graph.Data
	svg         []byte
	view        view
	mode        plugin.InteractionMode
	interactive bool
	metrics     plugin.PerformanceMetrics
	rendered    bool
	destroyed   bool
}

// New creates a renderer. Nil resolvers fall back to the built-in layouts
// and themes.
func New(cfg Config, layouts LayoutResolver, themes ThemeResolver, logger logging.Logger) *Renderer {
	logger = logging.OrNop(logger)
	return &Renderer{
		id:          Kind + "-" + uuid.NewString(),
		logger:      logger,
		events:      eventbus.New(logger, eventbus.WithHistorySize(0)),
		layouts:     layouts,
		themes:      themes,
		cfg:         cfg,
		view:        view{Zoom: 1},
		mode:        cfg.Interaction,
		interactive: cfg.Interactive,
	}
}

func (r *Renderer) ID() string      { return r.id }
func (r *Renderer) Kind() string    { return Kind }
func (r *Renderer) Name() string    { return "SVG Renderer" }
func (r *Renderer) Version() string { return "1.0.0" }

// Config returns the active configuration.
func (r *Renderer) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func (r *Renderer) Render(ctx context.Context, container plugin.Container, data *graph.Data, cfg plugin.RendererConfig) error {
	if container == nil {
		return apperrors.NewInvalid("container", nil, "required")
	}
	if err := data.Validate(); err != nil {
		return apperrors.NewInvalid("graph", "data", err.Error()).WithInnerError(err)
	}

	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return apperrors.NewInvalid("renderer", r.id, "destroyed")
	}
	if cfg != nil {
		next, err := r.cfg.merge(cfg)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.cfg = next
	}
	if r.container != nil && r.container != container {
		r.container.Clear()
	}
	r.container = container
	err := r.drawLocked(ctx, data.Clone(), true)
	metrics := r.metrics
	r.mu.Unlock()
	if err != nil {
		return err
	}

	r.events.Emit(ctx, EventRenderComplete, metrics)
	if metrics.NodeCount > r.Config().MaxNodes {
		r.events.Emit(ctx, EventPerformanceWarn, map[string]any{
			"renderer": r.id, "nodes": metrics.NodeCount, "maxNodes": r.Config().MaxNodes,
		})
	}
	return nil
}

func (r *Renderer) Update(ctx context.Context, data *graph.Data) error {
	r.mu.RLock()
	container, rendered := r.container, r.rendered
	r.mu.RUnlock()
	if !rendered || container == nil {
		return apperrors.NewInvalid("renderer", r.id, "update before render")
	}
	if err := r.Render(ctx, container, data, nil); err != nil {
		return err
	}
	r.events.Emit(ctx, EventDataChanged, r.Data())
	return nil
}

// drawLocked lays data out (when relayout is set), draws it and mounts the
// result. r.mu must be held.
func (r *Renderer) drawLocked(ctx context.Context, data *graph.Data, relayout bool) error {
	start := time.Now()
	if relayout {
		l, err := r.layoutLocked()
		if err != nil {
			return err
		}
		if err := l.Apply(ctx, data, r.areaLocked()); err != nil {
			return err
		}
	}

	pal := newPalette(r.themeLocked(), r.cfg)
	out := drawSVG(data, r.cfg, pal, r.view)
	if err := r.container.Mount(out, mimeSVG); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "mount svg")
	}

	elapsed := time.Since(start)
	fps := 0.0
	if elapsed > 0 {
		fps = float64(time.Second) / float64(elapsed)
	}
	r.data = data
	r.svg = out
	r.rendered = true
	r.metrics = plugin.PerformanceMetrics{
		RenderTime:  elapsed,
		NodeCount:   len(data.Nodes),
		EdgeCount:   len(data.Edges),
		MemoryUsage: int64(len(out)),
		FPS:         fps,
	}
	return nil
}

// redraw repaints after a viewport change without moving nodes.
func (r *Renderer) redrawLocked() {
	if !r.rendered || r.container == nil || r.data == nil {
		return
	}
	if err := r.drawLocked(context.Background(), r.data, false); err != nil {
		r.logger.Warn("svg redraw failed", zap.String("renderer", r.id), zap.Error(err))
	}
}

func (r *Renderer) layoutLocked() (plugin.Layout, error) {
	if r.layouts != nil {
		if l, ok := r.layouts(r.cfg.Layout); ok {
			return l, nil
		}
	}
	if l, ok := layout.ByID(r.cfg.Layout); ok {
		return l, nil
	}
	return nil, apperrors.NewNotFound("layout", r.cfg.Layout)
}

func (r *Renderer) themeLocked() plugin.Theme {
	if r.themes != nil {
		if t, ok := r.themes(r.cfg.Theme); ok {
			return t
		}
	}
	if r.cfg.Theme == "dark" {
		return DarkTheme()
	}
	return DefaultTheme()
}

// Area is the drawing region inside the padding.
func (r *Renderer) Area() graph.Rect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.areaLocked()
}

func (r *Renderer) areaLocked() graph.Rect {
	pad := float64(r.cfg.Padding)
	w, h := float64(r.cfg.Width), float64(r.cfg.Height)
	if 2*pad >= w || 2*pad >= h {
		pad = 0
	}
	return graph.Rect{X: pad, Y: pad, Width: w - 2*pad, Height: h - 2*pad}
}

func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.container != nil {
		r.container.Clear()
	}
	r.svg = nil
}

func (r *Renderer) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	if r.container != nil {
		r.container.Clear()
	}
	r.container = nil
	r.data = nil
	r.svg = nil
	r.rendered = false
	r.destroyed = true
	r.mu.Unlock()

	r.events.RemoveAllListeners()
}

// --- Viewport ---

func (r *Renderer) Zoom() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view.Zoom
}

// ZoomTo sets the zoom level, clamped to [MinZoom, MaxZoom].
func (r *Renderer) ZoomTo(level float64) {
	r.mu.Lock()
	level = clamp(level, r.cfg.MinZoom, r.cfg.MaxZoom)
	r.view.Zoom = level
	r.redrawLocked()
	r.mu.Unlock()
	r.events.Emit(context.Background(), EventZoom, map[string]any{"zoom": level})
}

func (r *Renderer) PanTo(x, y float64) {
	r.mu.Lock()
	r.view.PanX, r.view.PanY = x, y
	r.redrawLocked()
	r.mu.Unlock()
	r.events.Emit(context.Background(), EventPan, map[string]any{"x": x, "y": y})
}

// FitView zooms and pans so every node is visible.
func (r *Renderer) FitView() {
	r.mu.Lock()
	bounds, ok := r.contentBoundsLocked()
	if !ok {
		r.mu.Unlock()
		return
	}
	w, h := float64(r.cfg.Width), float64(r.cfg.Height)
	zoom := r.cfg.MaxZoom
	if bounds.Width > 0 {
		zoom = min(zoom, w/bounds.Width)
	}
	if bounds.Height > 0 {
		zoom = min(zoom, h/bounds.Height)
	}
	zoom = clamp(zoom, r.cfg.MinZoom, r.cfg.MaxZoom)
	c := bounds.Center()
	r.view = view{Zoom: zoom, PanX: w/2 - c.X*zoom, PanY: h/2 - c.Y*zoom}
	v := r.view
	r.redrawLocked()
	r.mu.Unlock()

	r.events.Emit(context.Background(), EventZoom, map[string]any{"zoom": v.Zoom})
	r.events.Emit(context.Background(), EventPan, map[string]any{"x": v.PanX, "y": v.PanY})
}

// Center pans so the content center sits in the middle of the canvas.
func (r *Renderer) Center() {
	r.mu.Lock()
	bounds, ok := r.contentBoundsLocked()
	if !ok {
		r.mu.Unlock()
		return
	}
	c := bounds.Center()
	r.view.PanX = float64(r.cfg.Width)/2 - c.X*r.view.Zoom
	r.view.PanY = float64(r.cfg.Height)/2 - c.Y*r.view.Zoom
	v := r.view
	r.redrawLocked()
	r.mu.Unlock()

	r.events.Emit(context.Background(), EventPan, map[string]any{"x": v.PanX, "y": v.PanY})
}

// contentBoundsLocked pads node positions by the node radius.
func (r *Renderer) contentBoundsLocked() (graph.Rect, bool) {
	if r.data == nil {
		return graph.Rect{}, false
	}
	b, ok := r.data.Bounds()
	if !ok {
		return b, false
	}
	rad := newPalette(r.themeLocked(), r.cfg).radius
	return graph.Rect{X: b.X - rad, Y: b.Y - rad, Width: b.Width + 2*rad, Height: b.Height + 2*rad}, true
}

// --- Interaction ---

func (r *Renderer) EnableInteraction() {
	r.mu.Lock()
	r.interactive = true
	r.mu.Unlock()
}

func (r *Renderer) DisableInteraction() {
	r.mu.Lock()
	r.interactive = false
	r.mu.Unlock()
}

func (r *Renderer) InteractionEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interactive
}

func (r *Renderer) SetInteractionMode(mode plugin.InteractionMode) error {
	if !mode.Valid() {
		return apperrors.NewInvalid("interaction mode", mode, "expected view, edit, pan or zoom")
	}
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
	r.events.Emit(context.Background(), EventInteractionMode, map[string]any{"mode": mode})
	return nil
}

func (r *Renderer) InteractionMode() plugin.InteractionMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// --- Events ---

func (r *Renderer) On(event string, handler eventbus.Handler) *eventbus.Subscription {
	return r.events.On(event, handler)
}

func (r *Renderer) Off(event string, subs ...*eventbus.Subscription) {
	r.events.Off(event, subs...)
}

func (r *Renderer) Emit(ctx context.Context, event string, data any) {
	r.events.Emit(ctx, event, data)
}

// --- Data ---

// Data returns a copy of the laid-out graph.
func (r *Renderer) Data() *graph.Data {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.Clone()
}

// SetData replaces the graph. A rendered instance redraws with a fresh
// layout; otherwise the data waits for Render.
func (r *Renderer) SetData(data *graph.Data) {
	r.mu.Lock()
	if r.rendered && r.container != nil {
		if err := r.drawLocked(context.Background(), data.Clone(), true); err != nil {
			r.logger.Warn("svg redraw failed", zap.String("renderer", r.id), zap.Error(err))
		}
	} else {
		r.data = data.Clone()
	}
	r.mu.Unlock()
	r.events.Emit(context.Background(), EventDataChanged, r.Data())
}

func (r *Renderer) PerformanceMetrics() plugin.PerformanceMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics
}

// --- Export ---

func (r *Renderer) Export(format plugin.ExportFormat) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch format {
	case plugin.FormatJSON:
		return json.MarshalIndent(r.exportDataLocked(), "", "  ")
	case plugin.FormatYAML:
		return yaml.Marshal(r.exportDataLocked())
	case plugin.FormatSVG:
		if r.svg == nil {
			return nil, apperrors.NewInvalid("export", format, "nothing rendered")
		}
		return append([]byte(nil), r.svg...), nil
	case plugin.FormatPNG, plugin.FormatThumbnail:
		if r.data == nil || !r.rendered {
			return nil, apperrors.NewInvalid("export", format, "nothing rendered")
		}
		img := rasterize(r.data, r.cfg, newPalette(r.themeLocked(), r.cfg), r.view)
		if format == plugin.FormatThumbnail {
			return thumbnail(img, r.cfg.ThumbnailWidth)
		}
		return encodePNG(img)
	default:
		return nil, apperrors.NewInvalid("export format", format, "expected json, yaml, svg, png or thumbnail")
	}
}

func (r *Renderer) exportDataLocked() *graph.Data {
	if r.data == nil {
		return &graph.Data{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	}
	return r.data
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

var _ plugin.Renderer = (*Renderer)(nil)
