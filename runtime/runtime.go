package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leeforge/globaltree/concurrency"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/eventbus"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/metrics"
	"github.com/leeforge/globaltree/plugin"
	"github.com/leeforge/globaltree/settings"
	"go.uber.org/zap"
)

// Lifecycle events emitted on the bus.
const (
	EventPluginInstalled     = "plugin:installed"
	EventPluginUninstalled   = "plugin:uninstalled"
	EventPluginActivated     = "plugin:activated"
	EventPluginDeactivated   = "plugin:deactivated"
	EventPluginError         = "plugin:error"
	EventPluginConfigChanged = "plugin:config-changed"
)

// Metric names.
const (
	MetricLifecycle    = "plugin_lifecycle_total"
	MetricHookDuration = "plugin_hook_duration_ms"
	MetricPlugins      = "plugins"
)

// PluginEvent is the payload of lifecycle events.
type PluginEvent struct {
	PluginID string       `json:"pluginId"`
	Plugin   *plugin.Info `json:"plugin,omitempty"`
}

// PluginErrorEvent is the payload of plugin:error.
type PluginErrorEvent struct {
	PluginID string `json:"pluginId"`
	Hook     string `json:"hook"`
	Error    string `json:"error"`
	Err      error  `json:"-"`
}

// ConfigChangedEvent is the payload of plugin:config-changed.
type ConfigChangedEvent struct {
	PluginID string        `json:"pluginId"`
	Config   plugin.Config `json:"config"`
}

// Config holds what a Manager is built from. Nil fields get in-memory
// defaults.
type Config struct {
	Logger   logging.Logger
	Events   *eventbus.Bus
	Settings *settings.Store
	Data     *settings.Store
	Metrics  *metrics.Collector
	// KeepCapabilities leaves registrations in place on uninstall.
	KeepCapabilities bool
	// BatchConcurrency bounds InstallPlugins/ActivatePlugins. Default 8.
	BatchConcurrency int
}

type record struct {
	plugin    plugin.Plugin
	state     plugin.State
	subs      []plugin.Subscription
	lastError error
}

// Manager drives plugins through uninstalled -> installed -> active and
// back. Hooks of one plugin never run concurrently.
type Manager struct {
	logger   logging.Logger
	events   *eventbus.Bus
	settings *settings.Store
	data     *settings.Store
	metrics  *metrics.Collector
	registry *Registry
	limiter  *concurrency.Limiter
	keepCaps bool

	mu      sync.RWMutex
	plugins map[string]*record
	order   []string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewManager creates a manager with an empty registry.
func NewManager(cfg Config) *Manager {
	logger := logging.OrNop(cfg.Logger)
	if cfg.Events == nil {
		cfg.Events = eventbus.New(logger)
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.New(nil, settings.WithLogger(logger))
	}
	if cfg.Data == nil {
		cfg.Data = settings.New(nil, settings.WithLogger(logger))
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector()
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}

	return &Manager{
		logger:   logger,
		events:   cfg.Events,
		settings: cfg.Settings,
		data:     cfg.Data,
		metrics:  cfg.Metrics,
		registry: NewRegistry(cfg.Events),
		limiter:  concurrency.NewLimiter(cfg.BatchConcurrency),
		keepCaps: cfg.KeepCapabilities,
		plugins:  make(map[string]*record),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) Registry() *Registry         { return m.registry }
func (m *Manager) Events() *eventbus.Bus       { return m.events }
func (m *Manager) Settings() *settings.Store   { return m.settings }
func (m *Manager) Metrics() *metrics.Collector { return m.metrics }
func (m *Manager) Data() *settings.Store       { return m.data }
func (m *Manager) Logger() logging.Logger      { return m.logger }

// InstallPlugin runs p's Install hook and records it as installed.
func (m *Manager) InstallPlugin(ctx context.Context, p plugin.Plugin) (err error) {
	info := p.Info()
	defer func() { m.count("install", err) }()

	if err := info.Validate(); err != nil {
		return err
	}

	unlock := m.lock(info.ID)
	defer unlock()

	for _, dep := range info.Dependencies {
		if !m.IsInstalled(dep) {
			return apperrors.NewDependencyMissing(info.ID, dep)
		}
	}
	if m.IsInstalled(info.ID) {
		return apperrors.NewConflict("plugin", info.ID)
	}

	for _, dep := range info.OptionalDependencies {
		if dep == info.ID || !m.IsInstalled(dep) {
			continue
		}
		if err := m.ActivatePlugin(ctx, dep); err != nil {
			m.logger.Warn("optional dependency failed to activate",
				zap.String("plugin", info.ID), zap.String("dependency", dep), zap.Error(err))
		}
	}

	app := m.appContext(info.ID)
	if err := m.runHook(ctx, info.ID, "install", func() error { return p.Install(ctx, app) }); err != nil {
		m.registry.Withdraw(info.ID)
		return err
	}

	m.mu.Lock()
	m.plugins[info.ID] = &record{plugin: p, state: plugin.StateInstalled}
	m.order = append(m.order, info.ID)
	m.mu.Unlock()

	m.applyStoredConfig(p)

	m.logger.Info("plugin installed", zap.String("plugin", info.ID), zap.String("version", info.Version))
	m.events.Emit(ctx, EventPluginInstalled, PluginEvent{PluginID: info.ID, Plugin: &info})
	return nil
}

// UninstallPlugin deactivates (when active) and removes a plugin. It refuses
// while an installed plugin hard-depends on id.
func (m *Manager) UninstallPlugin(ctx context.Context, id string) (err error) {
	defer func() { m.count("uninstall", err) }()

	unlock := m.lock(id)
	defer unlock()

	rec, ok := m.get(id)
	if !ok {
		return apperrors.NewNotFound("plugin", id)
	}
	if dependents := m.dependents(id); len(dependents) > 0 {
		return apperrors.New(apperrors.ErrorTypeConflict,
			fmt.Sprintf("plugin %s is required by %s", id, strings.Join(dependents, ", "))).
			WithDetail("plugin", id).
			WithDetail("dependents", dependents).
			WithHTTPStatus(http.StatusConflict)
	}

	if m.stateOf(rec) == plugin.StateActive {
		if err := m.deactivate(ctx, id, rec); err != nil {
			return err
		}
	}

	if u, ok := rec.plugin.(plugin.Uninstallable); ok {
		if err := m.runHook(ctx, id, "uninstall", func() error { return u.Uninstall(ctx) }); err != nil {
			m.setError(rec, err)
			return err
		}
	}

	m.mu.Lock()
	delete(m.plugins, id)
	m.order = remove(m.order, id)
	m.mu.Unlock()

	if !m.keepCaps {
		m.registry.Withdraw(id)
	}

	m.logger.Info("plugin uninstalled", zap.String("plugin", id))
	m.events.Emit(ctx, EventPluginUninstalled, PluginEvent{PluginID: id})
	return nil
}

// ActivatePlugin runs the Activate hook and subscribes the plugin's event
// handlers. Activating an active plugin is a no-op.
func (m *Manager) ActivatePlugin(ctx context.Context, id string) (err error) {
	defer func() { m.count("activate", err) }()

	unlock := m.lock(id)
	defer unlock()

	rec, ok := m.get(id)
	if !ok {
		return apperrors.NewNotFound("plugin", id)
	}
	if m.stateOf(rec) == plugin.StateActive {
		return nil
	}

	if a, ok := rec.plugin.(plugin.Activatable); ok {
		if err := m.runHook(ctx, id, "activate", func() error { return a.Activate(ctx) }); err != nil {
			m.setError(rec, err)
			return err
		}
	}

	var subs []plugin.Subscription
	if s, ok := rec.plugin.(plugin.EventSubscriber); ok {
		subs = s.SubscribeEvents(m.events)
	}

	m.mu.Lock()
	rec.state = plugin.StateActive
	rec.subs = subs
	rec.lastError = nil
	m.mu.Unlock()

	m.logger.Info("plugin activated", zap.String("plugin", id))
	m.events.Emit(ctx, EventPluginActivated, PluginEvent{PluginID: id})
	return nil
}

// DeactivatePlugin runs the Deactivate hook. Deactivating an inactive plugin
// is a no-op.
func (m *Manager) DeactivatePlugin(ctx context.Context, id string) (err error) {
	defer func() { m.count("deactivate", err) }()

	unlock := m.lock(id)
	defer unlock()

	rec, ok := m.get(id)
	if !ok {
		return apperrors.NewNotFound("plugin", id)
	}
	if m.stateOf(rec) != plugin.StateActive {
		return nil
	}
	return m.deactivate(ctx, id, rec)
}

// deactivate expects the plugin lock to be held.
func (m *Manager) deactivate(ctx context.Context, id string, rec *record) error {
	if d, ok := rec.plugin.(plugin.Deactivatable); ok {
		if err := m.runHook(ctx, id, "deactivate", func() error { return d.Deactivate(ctx) }); err != nil {
			m.setError(rec, err)
			return err
		}
	}

	m.mu.Lock()
	subs := rec.subs
	rec.subs = nil
	rec.state = plugin.StateInstalled
	m.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}

	m.logger.Info("plugin deactivated", zap.String("plugin", id))
	m.events.Emit(ctx, EventPluginDeactivated, PluginEvent{PluginID: id})
	return nil
}

// InstallPlugins installs every plugin concurrently. All are attempted and
// successes are kept; the error counts the failures.
func (m *Manager) InstallPlugins(ctx context.Context, plugins ...plugin.Plugin) error {
	fns := make([]func() error, len(plugins))
	for i, p := range plugins {
		fns[i] = func() error { return m.InstallPlugin(ctx, p) }
	}
	return batch("install", m.limiter.ExecuteBatch(ctx, fns))
}

// ActivatePlugins activates every id concurrently, like InstallPlugins.
func (m *Manager) ActivatePlugins(ctx context.Context, ids ...string) error {
	fns := make([]func() error, len(ids))
	for i, id := range ids {
		fns[i] = func() error { return m.ActivatePlugin(ctx, id) }
	}
	return batch("activate", m.limiter.ExecuteBatch(ctx, fns))
}

func batch(op string, results []error) error {
	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apperrors.NewBatch(op, errs)
}

// --- Queries ---

func (m *Manager) Plugin(id string) (plugin.Plugin, bool) {
	rec, ok := m.get(id)
	if !ok {
		return nil, false
	}
	return rec.plugin, true
}

// Plugins returns installed plugins in install order.
func (m *Manager) Plugins() []plugin.Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]plugin.Plugin, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.plugins[id].plugin)
	}
	return out
}

func (m *Manager) PluginsByType(t plugin.Type) []plugin.Plugin {
	var out []plugin.Plugin
	for _, p := range m.Plugins() {
		if p.Info().Type == t {
			out = append(out, p)
		}
	}
	return out
}

// InstallOrder returns installed ids in install order.
func (m *Manager) InstallOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...)
}

func (m *Manager) IsInstalled(id string) bool {
	_, ok := m.get(id)
	return ok
}

func (m *Manager) IsActive(id string) bool {
	s, _ := m.Status(id)
	return s == plugin.StateActive
}

// Status reports the state of id; unknown ids are StateUninstalled.
func (m *Manager) Status(id string) (plugin.State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.plugins[id]
	if !ok {
		return plugin.StateUninstalled, false
	}
	return rec.state, true
}

// PluginStatus summarizes one installed plugin.
type PluginStatus struct {
	Info         plugin.Info  `json:"info"`
	State        plugin.State `json:"state"`
	Capabilities []string     `json:"capabilities,omitempty"`
	Owned        Owned        `json:"owned"`
	LastError    string       `json:"lastError,omitempty"`
}

func (m *Manager) Describe(id string) (PluginStatus, bool) {
	m.mu.RLock()
	rec, ok := m.plugins[id]
	var (
		state   plugin.State
		lastErr error
	)
	if ok {
		state, lastErr = rec.state, rec.lastError
	}
	m.mu.RUnlock()
	if !ok {
		return PluginStatus{}, false
	}

	st := PluginStatus{
		Info:  rec.plugin.Info(),
		State: state,
		Owned: m.registry.Owned(id),
	}
	if c, ok := rec.plugin.(plugin.CapabilityReporter); ok {
		st.Capabilities = c.Capabilities()
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st, true
}

// Describe every installed plugin, in install order.
func (m *Manager) DescribeAll() []PluginStatus {
	ids := m.InstallOrder()
	out := make([]PluginStatus, 0, len(ids))
	for _, id := range ids {
		if st, ok := m.Describe(id); ok {
			out = append(out, st)
		}
	}
	return out
}

// PluginConfig returns the configuration of a Configurable plugin.
func (m *Manager) PluginConfig(id string) (plugin.Config, error) {
	rec, ok := m.get(id)
	if !ok {
		return plugin.Config{}, apperrors.NewNotFound("plugin", id)
	}
	c, ok := rec.plugin.(plugin.Configurable)
	if !ok {
		return plugin.Config{}, apperrors.NewInvalid("plugin", id, "not configurable")
	}
	return c.Config(), nil
}

// SetPluginConfig validates and applies cfg, then persists it under
// "plugins.<id>".
func (m *Manager) SetPluginConfig(ctx context.Context, id string, cfg plugin.Config) error {
	rec, ok := m.get(id)
	if !ok {
		return apperrors.NewNotFound("plugin", id)
	}
	if err := m.configure(rec.plugin, cfg); err != nil {
		return err
	}
	m.settings.Set(settingsKey(id), cfg.ToMap())
	m.events.Emit(ctx, EventPluginConfigChanged, ConfigChangedEvent{PluginID: id, Config: cfg.Clone()})
	return nil
}

func (m *Manager) configure(p plugin.Plugin, cfg plugin.Config) error {
	id := p.Info().ID
	c, ok := p.(plugin.Configurable)
	if !ok {
		return apperrors.NewInvalid("plugin", id, "not configurable")
	}
	if v, ok := p.(plugin.ConfigValidator); ok {
		if err := v.ValidateConfig(cfg); err != nil {
			return asInvalid("plugin config", id, err)
		}
	}
	if err := c.SetConfig(cfg); err != nil {
		return asInvalid("plugin config", id, err)
	}
	return nil
}

// applyStoredConfig applies "plugins.<id>" from settings to a freshly
// installed plugin.
func (m *Manager) applyStoredConfig(p plugin.Plugin) {
	id := p.Info().ID
	if _, ok := p.(plugin.Configurable); !ok {
		return
	}
	raw, ok := m.settings.Get(settingsKey(id))
	if !ok {
		return
	}
	blob, ok := raw.(map[string]any)
	if !ok {
		m.logger.Warn("stored plugin config is not a mapping", zap.String("plugin", id))
		return
	}
	cfg, err := plugin.ConfigFromMap(blob)
	if err == nil {
		err = m.configure(p, cfg)
	}
	if err != nil {
		m.logger.Warn("stored plugin config rejected", zap.String("plugin", id), zap.Error(err))
	}
}

// Health runs every active HealthReporter. The map holds only failures.
func (m *Manager) Health(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, p := range m.Plugins() {
		id := p.Info().ID
		h, ok := p.(plugin.HealthReporter)
		if !ok || !m.IsActive(id) {
			continue
		}
		if err := apperrors.Recover(func() error { return h.HealthCheck(ctx) }); err != nil {
			failures[id] = err
		}
	}
	return failures
}

// Destroy deactivates active plugins in reverse install order, then forgets
// every plugin and registration.
func (m *Manager) Destroy(ctx context.Context) {
	ids := m.InstallOrder()
	for i := len(ids) - 1; i >= 0; i-- {
		if err := m.DeactivatePlugin(ctx, ids[i]); err != nil {
			m.logger.Error("plugin deactivate failed during destroy",
				zap.String("plugin", ids[i]), zap.Error(err))
		}
	}

	m.mu.Lock()
	m.plugins = make(map[string]*record)
	m.order = nil
	m.mu.Unlock()

	m.registry.Clear()
	m.gauge()
	m.logger.Info("plugin manager destroyed", zap.Int("plugins", len(ids)))
}

// --- Internal ---

func (m *Manager) appContext(id string) *plugin.AppContext {
	return &plugin.AppContext{
		PluginID: id,
		Logger:   m.logger.Named(id),
		Events:   m.events,
		Config:   m.settings,
		Data:     m.data,
		Registry: m.registry.ForPlugin(id),
	}
}

// runHook times fn, converts panics and failures to hook_failure, and
// reports failures on the bus.
func (m *Manager) runHook(ctx context.Context, id, hook string, fn func() error) error {
	start := time.Now()
	err := apperrors.Recover(fn)
	m.metrics.ObserveHistogram(MetricHookDuration,
		float64(time.Since(start).Microseconds())/1000, map[string]string{"op": hook})
	if err == nil {
		return nil
	}

	m.logger.Error("plugin hook failed",
		zap.String("plugin", id), zap.String("hook", hook), zap.Error(err))
	m.events.Emit(ctx, EventPluginError, PluginErrorEvent{PluginID: id, Hook: hook, Error: err.Error(), Err: err})
	return apperrors.NewHookFailure(id, hook, err)
}

func (m *Manager) count(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperrors.TypeOf(err))
	}
	m.metrics.IncCounter(MetricLifecycle, map[string]string{"op": op, "result": result})
	m.gauge()
}

// gauge publishes how many plugins sit in each state.
func (m *Manager) gauge() {
	var installed, active int
	m.mu.RLock()
	for _, rec := range m.plugins {
		if rec.state == plugin.StateActive {
			active++
		} else {
			installed++
		}
	}
	m.mu.RUnlock()
	m.metrics.SetGauge(MetricPlugins, float64(installed), map[string]string{"state": plugin.StateInstalled.String()})
	m.metrics.SetGauge(MetricPlugins, float64(active), map[string]string{"state": plugin.StateActive.String()})
}

func (m *Manager) lock(id string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Manager) get(id string) (*record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.plugins[id]
	return rec, ok
}

func (m *Manager) stateOf(rec *record) plugin.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rec.state
}

func (m *Manager) setError(rec *record, err error) {
	m.mu.Lock()
	rec.lastError = err
	m.mu.Unlock()
}

// dependents lists installed plugins with a hard dependency on id.
func (m *Manager) dependents(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for other, rec := range m.plugins {
		for _, dep := range rec.plugin.Info().Dependencies {
			if dep == id {
				out = append(out, other)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func settingsKey(id string) string {
	return "plugins." + id
}

func remove(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
