// Package env_mode resolves the deployment environment that selects which
// config overlays are read.
package env_mode

import (
	"os"
	"strings"
	"sync"
)

// EnvKey names the variable holding the environment. LegacyEnvKey is read
// when EnvKey is unset.
const (
	EnvKey       = "GLOBALTREE_ENV"
	LegacyEnvKey = "GO_ENV_MODE"
)

type Env string

const (
	DevMode  Env = "development"
	ProMode  Env = "production"
	TestMode Env = "test"
)

var aliases = map[Env][]string{
	DevMode:  {"dev", "development"},
	ProMode:  {"pro", "prod", "production"},
	TestMode: {"test"},
}

// Aliases lists the config file suffixes that also belong to e.
func (e Env) Aliases() []string {
	return append([]string(nil), aliases[e]...)
}

var (
	current Env
	once    sync.Once
)

// ParseEnv maps common spellings to an Env. Anything unknown is
// development.
func ParseEnv(s string) Env {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// Mode returns the environment read from the process on first use.
func Mode() Env {
	once.Do(func() {
		raw := os.Getenv(EnvKey)
		if raw == "" {
			raw = os.Getenv(LegacyEnvKey)
		}
		current = ParseEnv(raw)
	})
	return current
}
