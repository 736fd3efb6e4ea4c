package diagnostics

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/graph"
	"github.com/leeforge/globaltree/http/responder"
	"github.com/leeforge/globaltree/json"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/utils"
)

const (
	defaultEventLimit = 50
	maxRenderBody     = 8 << 20
	defaultWidth      = 800
	defaultHeight     = 600
)

type healthReport struct {
	Status      string            `json:"status"`
	Initialized bool              `json:"initialized"`
	Plugins     map[string]string `json:"plugins"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := s.app.Status()
	report := healthReport{
		Status:      "ok",
		Initialized: status.Initialized,
		Plugins:     make(map[string]string, len(status.Plugins)),
	}
	for _, p := range status.Plugins {
		report.Plugins[p.Info.ID] = p.State.String()
	}
	for id, err := range s.app.Manager().Health(r.Context()) {
		report.Status = "degraded"
		report.Plugins[id] = err.Error()
	}

	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	responder.Write(w, code, report, s.meta(r)...)
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	plugins := s.app.Manager().DescribeAll()
	responder.OK(w, plugins, append(s.meta(r), responder.WithCount(len(plugins)))...)
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, ok := s.app.Manager().Describe(id)
	if !ok {
		responder.WriteError(w, apperrors.NewNotFound("plugin", id), s.meta(r)...)
		return
	}
	responder.OK(w, status, s.meta(r)...)
}

func (s *Server) activatePlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Manager().ActivatePlugin(r.Context(), id); err != nil {
		responder.WriteError(w, err, s.meta(r)...)
		return
	}
	s.getPlugin(w, r)
}

func (s *Server) deactivatePlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Manager().DeactivatePlugin(r.Context(), id); err != nil {
		responder.WriteError(w, err, s.meta(r)...)
		return
	}
	s.getPlugin(w, r)
}

func (s *Server) capabilities(w http.ResponseWriter, r *http.Request) {
	responder.OK(w, s.app.Status().Capabilities, s.meta(r)...)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			responder.WriteError(w, apperrors.NewInvalid("limit", raw, "must be a non-negative integer"), s.meta(r)...)
			return
		}
		limit = n
	}
	history := s.app.Events().History(limit)
	responder.OK(w, history, append(s.meta(r), responder.WithCount(len(history)))...)
}

func (s *Server) settings(w http.ResponseWriter, r *http.Request) {
	responder.OK(w, s.app.Settings().All(), s.meta(r)...)
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := utils.Routes(s.router)
	if err != nil {
		responder.WriteError(w, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "walk routes"), s.meta(r)...)
		return
	}
	responder.OK(w, routes, append(s.meta(r), responder.WithCount(len(routes)))...)
}

// metrics serves the text exposition, or the raw snapshot with
// ?format=json.
func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	collector := s.app.Metrics()
	if r.URL.Query().Get("format") == "json" {
		responder.OK(w, collector.Snapshot(), s.meta(r)...)
		return
	}
	collector.Handler().ServeHTTP(w, r)
}

// render draws the graph in the request body with a renderer of the given
// kind and returns the export. A scene kind is accepted too and always
// answers with the mounted SVG.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	format := plugin.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = plugin.FormatSVG
	}
	width, err := intParam(r, "width", defaultWidth)
	if err != nil {
		responder.WriteError(w, err, s.meta(r)...)
		return
	}
	height, err := intParam(r, "height", defaultHeight)
	if err != nil {
		responder.WriteError(w, err, s.meta(r)...)
		return
	}

	data, err := decodeGraph(r.Body)
	if err != nil {
		responder.WriteError(w, err, s.meta(r)...)
		return
	}

	if err := s.renders.Acquire(r.Context()); err != nil {
		responder.WriteError(w, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "render slot"), s.meta(r)...)
		return
	}
	defer s.renders.Release()

	container := plugin.NewMemoryContainer("diagnostics-render", width, height)
	out, mime, err := s.draw(r, kind, format, container, data)
	if err != nil {
		s.logger.Debug("render failed", zap.String("kind", kind), zap.Error(err))
		responder.WriteError(w, err, s.meta(r)...)
		return
	}
	responder.Raw(w, http.StatusOK, out, mime)
}

func (s *Server) draw(r *http.Request, kind string, format plugin.ExportFormat, container *plugin.MemoryContainer, data *graph.Data) ([]byte, string, error) {
	reg := s.app.Registry()
	if _, ok := reg.RendererFactory(kind); ok {
		renderer, err := reg.CreateRenderer(kind, nil)
		if err != nil {
			return nil, "", err
		}
		defer renderer.Destroy()
		if err := renderer.Render(r.Context(), container, data, nil); err != nil {
			return nil, "", err
		}
		out, err := renderer.Export(format)
		if err != nil {
			return nil, "", err
		}
		return out, mimeOf(format), nil
	}

	if _, ok := reg.SceneFactory(kind); !ok {
		return nil, "", apperrors.NewNotFound("renderer or scene", kind)
	}
	if format != plugin.FormatSVG {
		return nil, "", apperrors.NewInvalid("format", format, "scenes export svg only")
	}
	scene, err := reg.CreateScene(kind, container, nil)
	if err != nil {
		return nil, "", err
	}
	defer scene.Destroy()
	if err := scene.Render(r.Context(), data); err != nil {
		return nil, "", err
	}
	out, mime := container.Content()
	return out, mime, nil
}

func decodeGraph(body io.Reader) (*graph.Data, error) {
	if body == nil {
		return nil, apperrors.NewInvalid("body", nil, "graph JSON required")
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxRenderBody))
	if err != nil {
		return nil, invalid(err, "read body")
	}
	if len(raw) == 0 {
		return nil, apperrors.NewInvalid("body", nil, "graph JSON required")
	}
	var data graph.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, invalid(err, "decode graph")
	}
	if err := data.Validate(); err != nil {
		return nil, invalid(err, "graph")
	}
	return &data, nil
}

func invalid(err error, msg string) error {
	return apperrors.Wrap(err, apperrors.ErrorTypeInvalid, msg).WithHTTPStatus(http.StatusBadRequest)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperrors.NewInvalid(name, raw, "must be a positive integer")
	}
	return n, nil
}

func mimeOf(format plugin.ExportFormat) string {
	switch format {
	case plugin.FormatSVG:
		return "image/svg+xml"
	case plugin.FormatPNG, plugin.FormatThumbnail:
		return "image/png"
	case plugin.FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}
