package config

import (
	"errors"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/leeforge/globaltree/errors"
)

var validate = validator.New()

// Default returns an AppConfig holding only defaults.
func Default() *AppConfig {
	cfg := &AppConfig{}
	_ = defaults.Set(cfg)
	return cfg
}

// Validate checks the struct tags and flattens every violation into one
// invalid error.
func (a *AppConfig) Validate() error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "config validation failed")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+": "+fe.Tag())
	}
	return apperrors.NewInvalid("config", a.Name, strings.Join(parts, "; ")).WithInnerError(err)
}

// Load reads, binds and validates the application config. The returned
// Config keeps watching when opts.WatchAble is set; Close it when done.
func Load(opts ConfigOptions) (*Config, *AppConfig, error) {
	c, err := NewConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	app := &AppConfig{}
	if err := c.BindWithDefaults(app); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	if err := app.Validate(); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return c, app, nil
}

// Reread binds a fresh AppConfig from the current file contents, e.g. from
// an OnChange callback.
func (c *Config) Reread() (*AppConfig, error) {
	app := Default()
	c.watchMutex.RLock()
	err := c.instance.Unmarshal(app)
	c.watchMutex.RUnlock()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "failed to unmarshal config")
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}
