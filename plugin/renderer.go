package plugin

import (
	"context"
	"time"

	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/graph"
)

// InteractionMode selects what pointer input does on a renderer.
type InteractionMode string

const (
	ModeView InteractionMode = "view"
	ModeEdit InteractionMode = "edit"
	ModePan  InteractionMode = "pan"
	ModeZoom InteractionMode = "zoom"
)

// Valid reports whether m is a known mode.
func (m InteractionMode) Valid() bool {
	switch m {
	case ModeView, ModeEdit, ModePan, ModeZoom:
		return true
	}
	return false
}

// ExportFormat names an Export output.
type ExportFormat string

const (
	FormatJSON      ExportFormat = "json"
	FormatYAML      ExportFormat = "yaml"
	FormatSVG       ExportFormat = "svg"
	FormatPNG       ExportFormat = "png"
	FormatThumbnail ExportFormat = "thumbnail"
)

// PerformanceMetrics describes the last render.
type PerformanceMetrics struct {
	RenderTime  time.Duration `json:"renderTime"`
	NodeCount   int           `json:"nodeCount"`
	EdgeCount   int           `json:"edgeCount"`
	MemoryUsage int64         `json:"memoryUsage"`
	FPS         float64       `json:"fps"`
}

// --- Capability sets ---
// Renderers and scenes compose these; hosts that only need one concern
// (a zoom tool, an exporter) accept the narrow interface.

// Viewport controls the visible region.
type Viewport interface {
	FitView()
	ZoomTo(level float64)
	PanTo(x, y float64)
	Center()
	Zoom() float64
}

// Interactive toggles pointer interaction.
type Interactive interface {
	EnableInteraction()
	DisableInteraction()
	SetInteractionMode(mode InteractionMode) error
	InteractionMode() InteractionMode
	InteractionEnabled() bool
}

// Emitter is the instance-local event sub-contract.
type Emitter interface {
	On(event string, handler eventbus.Handler) *eventbus.Subscription
	Off(event string, subs ...*eventbus.Subscription)
	Emit(ctx context.Context, event string, data any)
}

// DataHolder exposes the graph an instance mirrors.
type DataHolder interface {
	Data() *graph.Data
	SetData(data *graph.Data)
}

// Exporter serializes the current view.
type Exporter interface {
	Export(format ExportFormat) ([]byte, error)
}

// Metered reports render statistics.
type Metered interface {
	PerformanceMetrics() PerformanceMetrics
}

// Renderer is the drawing engine contract every backend adapter satisfies.
type Renderer interface {
	// ID is unique per instance; Kind is the factory id that created it.
	ID() string
	Kind() string
	Name() string
	Version() string

	// Render draws data into container, replacing previous content. A nil
	// cfg keeps the instance configuration.
	Render(ctx context.Context, container Container, data *graph.Data, cfg RendererConfig) error
	// Update redraws with new data. It fails before the first Render.
	Update(ctx context.Context, data *graph.Data) error
	// Clear removes drawn content but keeps the instance usable.
	Clear()
	// Destroy releases the container and every listener. It is idempotent.
	Destroy()

	Viewport
	Interactive
	Emitter
	DataHolder
	Exporter
	Metered
}

// RendererConfig is a backend-specific configuration. Each backend defines
// its own struct; GenericConfig carries untyped settings to any backend.
type RendererConfig interface {
	RendererKind() string
}

// GenericConfig is an untyped RendererConfig decoded by the factory.
type GenericConfig map[string]any

// RendererKind is empty: a GenericConfig fits any backend.
func (GenericConfig) RendererKind() string { return "" }

// RendererCapabilities advertises what a backend supports.
type RendererCapabilities struct {
	Layouts     []string       `json:"layouts"`
	Formats     []ExportFormat `json:"formats"`
	MaxNodes    int            `json:"maxNodes"`
	Interactive bool           `json:"interactive"`
	Animation   bool           `json:"animation"`
}

// RendererFactory creates renderer instances for one backend kind.
type RendererFactory interface {
	ID() string
	Name() string
	Create(cfg RendererConfig) (Renderer, error)
	Capabilities() RendererCapabilities
	DefaultConfig() RendererConfig
	ValidateConfig(cfg RendererConfig) error
}
