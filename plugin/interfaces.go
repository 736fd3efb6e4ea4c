package plugin

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/leeforge/globaltree/errors"
)

// Type classifies a plugin by the capability it mainly contributes.
type Type string

const (
	TypeRenderer Type = "renderer"
	TypeScene    Type = "scene"
	TypeTool     Type = "tool"
	TypeTheme    Type = "theme"
	TypeLayout   Type = "layout"
)

// Valid reports whether t is one of the known plugin types.
func (t Type) Valid() bool {
	switch t {
	case TypeRenderer, TypeScene, TypeTool, TypeTheme, TypeLayout:
		return true
	}
	return false
}

// Info is the static identity and dependency declaration of a plugin.
type Info struct {
	ID          string `json:"id" validate:"required,max=128,printascii"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Type        Type   `json:"type" validate:"omitempty,oneof=renderer scene tool theme layout"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`

	// Dependencies must be installed before this plugin installs.
	Dependencies []string `json:"dependencies,omitempty"`
	// OptionalDependencies are activated before install when present.
	OptionalDependencies []string `json:"optionalDependencies,omitempty"`
	// PeerDependencies are informational only.
	PeerDependencies []string `json:"peerDependencies,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks the identity fields the manager relies on.
func (i Info) Validate() error {
	validateOnce.Do(func() { validate = validator.New() })
	if err := validate.Struct(i); err != nil {
		return apperrors.NewInvalid("plugin.id", i.ID, err.Error()).WithInnerError(err)
	}
	return nil
}

// Plugin is the minimal interface every plugin must implement. Install is
// where a plugin registers its capabilities through app.Registry.
type Plugin interface {
	Info() Info
	Install(ctx context.Context, app *AppContext) error
}

// --- Optional Lifecycle Interfaces ---
// The manager detects these via type assertion; a missing hook is a no-op.

// Uninstallable -- release what Install acquired.
type Uninstallable interface {
	Uninstall(ctx context.Context) error
}

// Activatable -- start doing work after install.
type Activatable interface {
	Activate(ctx context.Context) error
}

// Deactivatable -- stop work; the plugin stays installed.
type Deactivatable interface {
	Deactivate(ctx context.Context) error
}

// --- Optional Capability Interfaces ---

// Configurable -- expose a mutable configuration blob.
type Configurable interface {
	Config() Config
	SetConfig(cfg Config) error
}

// ConfigValidator -- reject a configuration before it is applied.
type ConfigValidator interface {
	ValidateConfig(cfg Config) error
}

// CapabilityReporter -- advertise feature names (e.g. "export:png").
type CapabilityReporter interface {
	Capabilities() []string
}

// EventSubscriber -- subscribe to bus events while active. Subscriptions
// returned are removed on deactivate.
type EventSubscriber interface {
	SubscribeEvents(bus EventBus) []Subscription
}

// HealthReporter -- provide a custom health check.
type HealthReporter interface {
	HealthCheck(ctx context.Context) error
}

// RouteProvider -- mount diagnostic HTTP routes while active.
type RouteProvider interface {
	RegisterRoutes(router chi.Router)
}
