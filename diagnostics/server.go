// Package diagnostics serves a read-mostly HTTP view of a running app:
// plugin states, capabilities, recent events, settings and metrics. It
// also renders graphs on demand and mounts the routes of active plugins.
package diagnostics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/leeforge/globaltree/app"
	"github.com/leeforge/globaltree/concurrency"
	"github.com/leeforge/globaltree/http/middleware"
	"github.com/leeforge/globaltree/http/responder"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugin"
)

const (
	defaultAddr             = ":8787"
	defaultRenderConcurrent = 4
	shutdownTimeout         = 5 * time.Second
)

type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithRenderConcurrency bounds how many /render requests run at once.
func WithRenderConcurrency(n int) Option {
	return func(s *Server) { s.renderSlots = n }
}

// Server exposes an App over HTTP.
type Server struct {
	app         *app.App
	logger      logging.Logger
	addr        string
	renderSlots int
	renders     *concurrency.Semaphore
	router      chi.Router

	mu      sync.Mutex
	mounted map[string]mount
}

// mount caches the router a RouteProvider built, keyed by plugin id.
type mount struct {
	owner   plugin.Plugin
	handler http.Handler
}

func New(a *app.App, opts ...Option) *Server {
	s := &Server{
		app:         a,
		addr:        defaultAddr,
		renderSlots: defaultRenderConcurrent,
		mounted:     make(map[string]mount),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	if s.renderSlots < 1 {
		s.renderSlots = 1
	}
	s.renders = concurrency.NewSemaphore(s.renderSlots)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.TraceID)
	r.Use(middleware.Access(s.logger, s.app.Metrics()))
	r.NotFound(s.notFound)

	r.Get("/healthz", s.health)
	r.Route("/plugins", func(r chi.Router) {
		r.Get("/", s.listPlugins)
		r.Get("/{id}", s.getPlugin)
		r.Post("/{id}/activate", s.activatePlugin)
		r.Post("/{id}/deactivate", s.deactivatePlugin)
	})
	r.Get("/capabilities", s.capabilities)
	r.Get("/events", s.events)
	r.Get("/settings", s.settings)
	r.Get("/metrics", s.metrics)
	r.Post("/render/{kind}", s.render)
	r.Get("/routes", s.listRoutes)
	r.HandleFunc("/x/{id}", s.pluginRoutes)
	r.HandleFunc("/x/{id}/*", s.pluginRoutes)
	return r
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("diagnostics listening", zap.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("diagnostics shutdown", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// pluginRoutes dispatches /x/{id}/... to the plugin's own router while the
// plugin is active. Routers are built on first use and rebuilt when the
// plugin instance changes.
func (s *Server) pluginRoutes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	manager := s.app.Manager()
	p, ok := manager.Plugin(id)
	if !ok || !manager.IsActive(id) {
		s.notFound(w, r)
		return
	}
	provider, ok := p.(plugin.RouteProvider)
	if !ok {
		s.notFound(w, r)
		return
	}

	s.mu.Lock()
	m, ok := s.mounted[id]
	if !ok || m.owner != p {
		sub := chi.NewRouter()
		sub.NotFound(s.notFound)
		provider.RegisterRoutes(sub)
		var h http.Handler = sub
		if len(sub.Routes()) == 0 {
			h = http.HandlerFunc(s.notFound)
		}
		m = mount{owner: p, handler: h}
		s.mounted[id] = m
	}
	s.mu.Unlock()

	// Same rewrite chi.Mount performs for sub-routers.
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		rctx.RoutePath = "/" + chi.URLParam(r, "*")
	}
	m.handler.ServeHTTP(w, r)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	responder.NotFound(w, r, s.meta(r)...)
}

func (s *Server) meta(r *http.Request) []responder.Option {
	return []responder.Option{
		responder.WithTraceID(middleware.GetTraceID(r.Context())),
		responder.WithTook(middleware.Took(r.Context())),
	}
}
