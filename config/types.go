package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/storage"
	"github.com/spf13/viper"
)

type Config struct {
	instance   *viper.Viper
	opts       ConfigOptions
	files      []string
	watchOnce  sync.Once
	watchMutex sync.RWMutex
	watcher    *fsnotify.Watcher
	done       chan struct{}
}

type ConfigOptions struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	WatchAble bool
	OnChange  func(e fsnotify.Event)
	// AllowMissing yields an empty config when no file is found, so the
	// bound struct only carries its defaults.
	AllowMissing bool
	Logger       logging.Logger
}

// AppConfig is the application configuration file.
type AppConfig struct {
	Name    string `mapstructure:"name" json:"name" yaml:"name" default:"Global Tree" validate:"required"`
	Version string `mapstructure:"version" json:"version" yaml:"version" default:"1.0.0" validate:"required"`
	Debug   bool   `mapstructure:"debug" json:"debug" yaml:"debug"`
	Locale  string `mapstructure:"locale" json:"locale" yaml:"locale" default:"zh-CN" validate:"required"`

	Theme    ThemeConfig    `mapstructure:"theme" json:"theme" yaml:"theme"`
	Renderer RendererConfig `mapstructure:"renderer" json:"renderer" yaml:"renderer"`

	// Plugins are module ids loaded in order at startup.
	Plugins []string `mapstructure:"plugins" json:"plugins" yaml:"plugins" validate:"dive,required"`
	// PluginSettings are per-plugin settings keyed by plugin id.
	PluginSettings map[string]map[string]any `mapstructure:"plugin-settings" json:"pluginSettings" yaml:"plugin-settings"`

	Logging     logging.Config    `mapstructure:"logging" json:"logging" yaml:"logging"`
	Storage     storage.Config    `mapstructure:"storage" json:"storage" yaml:"storage"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" json:"diagnostics" yaml:"diagnostics"`
}

type ThemeConfig struct {
	ID   string `mapstructure:"id" json:"id" yaml:"id" default:"default" validate:"required"`
	Mode string `mapstructure:"mode" json:"mode" yaml:"mode" default:"light" validate:"oneof=light dark"`
}

type RendererConfig struct {
	Default     string            `mapstructure:"default" json:"default" yaml:"default" default:"svg" validate:"required"`
	Performance PerformanceConfig `mapstructure:"performance" json:"performance" yaml:"performance"`
}

type PerformanceConfig struct {
	EnableVirtualization bool `mapstructure:"enable-virtualization" json:"enableVirtualization" yaml:"enable-virtualization" default:"true"`
	MaxNodes             int  `mapstructure:"max-nodes" json:"maxNodes" yaml:"max-nodes" default:"1000" validate:"gt=0"`
	EnableAnimation      bool `mapstructure:"enable-animation" json:"enableAnimation" yaml:"enable-animation" default:"true"`
}

type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" default:"true"`
	Addr    string `mapstructure:"addr" json:"addr" yaml:"addr" default:":8787" validate:"required"`
}
