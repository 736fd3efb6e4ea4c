// Package app is the composition root: it owns the event bus, the config
// store, the plugin manager and the loader, and drives startup and
// shutdown.
package app

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/config"
	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/loader"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/metrics"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/plugins/builtin"
	"github.com/leeforge/globaltree/runtime"
	"github.com/leeforge/globaltree/settings"
	"github.com/leeforge/globaltree/storage"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// App events.
const (
	EventInitialized = "app:initialized"
	EventDestroyed   = "app:destroyed"
	EventError       = "error"
)

// DataStorageKey is where plugin data is persisted, next to the config tree.
const DataStorageKey = "global-tree-data"

type Option func(*App)

func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithStorage persists the config and data stores in backend. The caller
// keeps ownership and closes it.
func WithStorage(backend storage.Backend) Option {
	return func(a *App) { a.backend = backend }
}

// WithSources replaces the default module source (the built-in catalog).
func WithSources(sources ...loader.Source) Option {
	return func(a *App) { a.sources = sources }
}

func WithEvents(bus *eventbus.Bus) Option {
	return func(a *App) { a.events = bus }
}

// loaded pairs a module id with the id its plugin reported.
type loaded struct {
	module   string
	pluginID string
}

// App is safe for concurrent use.
type App struct {
	logger   logging.Logger
	events   *eventbus.Bus
	backend  storage.Backend
	sources  []loader.Source
	settings *settings.Store
	data     *settings.Store
	metrics  *metrics.Collector
	manager  *runtime.Manager
	loader   *loader.Loader

	// opMu serializes lifecycle operations; mu guards the fields below
	// and is never held while plugins or listeners run.
	opMu        sync.Mutex
	mu          sync.RWMutex
	cfg         config.AppConfig
	initialized bool
	loaded      []loaded
	subs        []*eventbus.Subscription
	unwatch     func()
}

// New wires an application from cfg. Start from config.Default() when no
// file is involved.
func New(cfg config.AppConfig, opts ...Option) *App {
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrNop(a.logger)
	if a.events == nil {
		a.events = eventbus.New(a.logger.Named("events"))
	}
	if len(a.sources) == 0 {
		a.sources = []loader.Source{builtin.Catalog()}
	}

	a.settings = settings.New(a.backend, settings.WithLogger(a.logger.Named("settings")))
	a.data = settings.New(a.backend, settings.WithLogger(a.logger.Named("data")), settings.WithStorageKey(DataStorageKey))
	a.metrics = metrics.NewCollector()
	a.manager = runtime.NewManager(runtime.Config{
		Logger:   a.logger.Named("plugins"),
		Events:   a.events,
		Settings: a.settings,
		Data:     a.data,
		Metrics:  a.metrics,
	})
	a.loader = loader.New(a.logger.Named("loader"), a.sources...)
	return a
}

func (a *App) Manager() *runtime.Manager   { return a.manager }
func (a *App) Events() *eventbus.Bus       { return a.events }
func (a *App) Settings() *settings.Store   { return a.settings }
func (a *App) Data() *settings.Store       { return a.data }
func (a *App) Metrics() *metrics.Collector { return a.metrics }
func (a *App) Logger() logging.Logger      { return a.logger }
func (a *App) Registry() *runtime.Registry { return a.manager.Registry() }

// Config returns the application config last applied.
func (a *App) Config() config.AppConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Initialize seeds default settings, hooks up logging listeners, loads the
// configured plugins and applies their settings. Plugins that fail to load
// are logged and skipped. A second call does nothing.
func (a *App) Initialize(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	if a.isInitialized() {
		return nil
	}
	cfg := a.Config()

	a.seedDefaults(cfg)
	a.subscribe()
	a.watchDebug()

	for _, module := range cfg.Plugins {
		if err := a.load(ctx, module); err != nil {
			a.logger.Error("plugin load failed", zap.String("module", module), zap.Error(err))
		}
	}
	a.applyPluginSettings(ctx, cfg.PluginSettings)

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()

	status := a.Status()
	a.logger.Info("application initialized",
		zap.String("name", cfg.Name), zap.Int("plugins", len(status.Modules)))
	a.events.Emit(ctx, EventInitialized, status)
	return nil
}

func (a *App) isInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// seedDefaults writes config defaults only where the store has no value,
// so persisted user settings survive a restart.
func (a *App) seedDefaults(cfg config.AppConfig) {
	perf := cfg.Renderer.Performance
	seed := []struct {
		path  string
		value any
	}{
		{"app.name", cfg.Name},
		{"app.version", cfg.Version},
		{"app.debug", cfg.Debug},
		{"theme.id", cfg.Theme.ID},
		{"theme.mode", cfg.Theme.Mode},
		{"locale", cfg.Locale},
		{"renderer.default", cfg.Renderer.Default},
		{"renderer.performance.enableVirtualization", perf.EnableVirtualization},
		{"renderer.performance.maxNodes", perf.MaxNodes},
		{"renderer.performance.enableAnimation", perf.EnableAnimation},
	}
	for _, s := range seed {
		if !a.settings.Has(s.path) {
			a.settings.Set(s.path, s.value)
		}
	}
}

func (a *App) subscribe() {
	a.subs = append(a.subs,
		a.events.On(runtime.EventPluginError, func(_ context.Context, e eventbus.Event) error {
			if pe, ok := e.Data.(runtime.PluginErrorEvent); ok {
				a.logger.Error("plugin error",
					zap.String("plugin", pe.PluginID), zap.String("hook", pe.Hook), zap.String("error", pe.Error))
			}
			return nil
		}),
		a.events.On(EventError, func(_ context.Context, e eventbus.Event) error {
			a.logger.Error("application error", zap.Any("error", e.Data))
			return nil
		}),
		a.events.On("performance:warning", func(_ context.Context, e eventbus.Event) error {
			a.logger.Warn("performance warning", zap.Any("detail", e.Data))
			return nil
		}),
	)
}

// watchDebug keeps the log level in step with app.debug.
func (a *App) watchDebug() {
	apply := func(v any) {
		level := "info"
		if cast.ToBool(v) {
			level = "debug"
		}
		a.logger.SetLevel(level)
	}
	apply(a.settings.GetBool("app.debug", false))
	a.unwatch = a.settings.Watch("app.debug", func(newValue, _ any) { apply(newValue) })
}

func (a *App) applyPluginSettings(ctx context.Context, all map[string]map[string]any) {
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg, err := a.manager.PluginConfig(id)
		if err == nil {
			cfg = cfg.Clone()
			if cfg.Settings == nil {
				cfg.Settings = map[string]any{}
			}
			for k, v := range all[id] {
				cfg.Settings[k] = v
			}
			err = a.manager.SetPluginConfig(ctx, id, cfg)
		}
		if err != nil {
			a.logger.Warn("plugin settings not applied", zap.String("plugin", id), zap.Error(err))
		}
	}
}

// LoadPlugin resolves module, installs its plugin and activates it unless
// its config disables auto activation.
func (a *App) LoadPlugin(ctx context.Context, module string) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	return a.load(ctx, module)
}

func (a *App) load(ctx context.Context, module string) error {
	if _, ok := a.find(module); ok {
		return apperrors.NewConflict("plugin module", module)
	}

	p, err := a.loader.Load(ctx, module)
	if err != nil {
		return err
	}
	id := p.Info().ID
	if err := a.manager.InstallPlugin(ctx, p); err != nil {
		return err
	}
	a.mu.Lock()
	a.loaded = append(a.loaded, loaded{module: module, pluginID: id})
	a.mu.Unlock()

	if c, ok := p.(plugin.Configurable); ok {
		if cfg := c.Config(); !cfg.Enabled || !cfg.AutoActivate {
			a.logger.Info("plugin installed without activation", zap.String("plugin", id))
			return nil
		}
	}
	return a.manager.ActivatePlugin(ctx, id)
}

// UnloadPlugin deactivates and uninstalls the plugin loaded from module.
// A plugin id is accepted as well.
func (a *App) UnloadPlugin(ctx context.Context, module string) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	l, ok := a.find(module)
	if !ok {
		return apperrors.NewNotFound("plugin module", module)
	}
	if err := a.manager.UninstallPlugin(ctx, l.pluginID); err != nil {
		return err
	}
	a.untrack(l)
	return nil
}

// find matches a module id or a plugin id.
func (a *App) find(module string) (loaded, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, l := range a.loaded {
		if l.module == module || l.pluginID == module {
			return l, true
		}
	}
	return loaded{}, false
}

func (a *App) untrack(l loaded) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, x := range a.loaded {
		if x == l {
			a.loaded = append(a.loaded[:i], a.loaded[i+1:]...)
			return
		}
	}
}

// Destroy unloads plugins in reverse load order, tears the manager down
// and drops every listener. Calling it twice, or on an app with nothing
// loaded, is harmless.
func (a *App) Destroy(ctx context.Context) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.RLock()
	tracked := append([]loaded(nil), a.loaded...)
	a.mu.RUnlock()
	// LoadPlugin may run before Initialize; those plugins still need unloading.
	if !a.isInitialized() && len(tracked) == 0 {
		return
	}
	for i := len(tracked) - 1; i >= 0; i-- {
		l := tracked[i]
		if err := a.manager.UninstallPlugin(ctx, l.pluginID); err != nil {
			a.logger.Error("plugin unload failed during destroy", zap.String("plugin", l.pluginID), zap.Error(err))
		}
	}
	a.mu.Lock()
	a.loaded = nil
	a.mu.Unlock()
	a.manager.Destroy(ctx)

	if a.unwatch != nil {
		a.unwatch()
		a.unwatch = nil
	}
	a.events.Emit(ctx, EventDestroyed, nil)
	for _, s := range a.subs {
		s.Unsubscribe()
	}
	a.subs = nil
	a.events.RemoveAllListeners()

	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()
	a.logger.Info("application destroyed")
}

// Reload destroys and initializes again with the current config.
func (a *App) Reload(ctx context.Context) error {
	a.Destroy(ctx)
	return a.Initialize(ctx)
}

// ApplyConfigChange takes a re-read config file into effect for the
// settings the store mirrors. Plugin lists are only read by Initialize.
func (a *App) ApplyConfigChange(cfg config.AppConfig) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.settings.Set("app.debug", cfg.Debug)
	a.settings.Set("theme.id", cfg.Theme.ID)
	a.settings.Set("theme.mode", cfg.Theme.Mode)
	a.settings.Set("locale", cfg.Locale)
	a.logger.Info("config change applied", zap.Bool("debug", cfg.Debug))
}

// Status is a point-in-time view of the application.
type Status struct {
	Initialized  bool                   `json:"initialized"`
	Plugins      []runtime.PluginStatus `json:"plugins"`
	Capabilities map[string][]string    `json:"capabilities"`
	Modules      map[string]string      `json:"modules"`
}

func (a *App) Status() Status {
	a.mu.RLock()
	initialized := a.initialized
	modules := make(map[string]string, len(a.loaded))
	for _, l := range a.loaded {
		modules[l.module] = l.pluginID
	}
	a.mu.RUnlock()

	reg := a.manager.Registry()
	caps := map[string][]string{
		runtime.KindRenderer: reg.AvailableRenderers(),
		runtime.KindScene:    reg.AvailableScenes(),
		runtime.KindTool:     reg.AvailableTools(),
		runtime.KindTheme:    reg.AvailableThemes(),
		runtime.KindLayout:   reg.AvailableLayouts(),
	}
	return Status{
		Initialized:  initialized,
		Plugins:      a.manager.DescribeAll(),
		Capabilities: caps,
		Modules:      modules,
	}
}
