package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/env_mode"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "GLOBALTREE",
	}
}

func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	var opts ConfigOptions
	if len(optsArr) == 0 {
		opts = DefaultConfigOptions()
	} else {
		opts = optsArr[0]
	}
	opts.Logger = logging.OrNop(opts.Logger)

	instance, files, err := CreateConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Config{
		instance: instance,
		opts:     opts,
		files:    files,
	}, nil
}

// Files lists the configuration files that were merged, in merge order.
func (c *Config) Files() []string {
	return append([]string(nil), c.files...)
}

func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return apperrors.NewInvalid("config", nil, "instance is nil")
	}

	if instance == nil {
		return apperrors.NewInvalid("config.target", nil, "instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInvalid,
			fmt.Sprintf("failed to unmarshal config (path: %s, file: %s.%s)", c.opts.BasePath, c.opts.FileName, c.opts.FileType))
	}

	if c.opts.WatchAble {
		var werr error
		c.watchOnce.Do(func() { werr = c.watch(instance) })
		if werr != nil {
			return werr
		}
	}

	return nil
}

// BindWithDefaults applies `default` tags before unmarshalling so values
// from the file win over defaults.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "failed to set defaults")
	}

	return c.Bind(instance)
}

// watch re-reads every candidate file when one of them changes, rebinds
// instance and calls OnChange.
func (c *Config) watch(instance any) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "failed to create config watcher")
	}
	if err := watcher.Add(c.opts.BasePath); err != nil {
		_ = watcher.Close()
		return apperrors.Wrap(err, apperrors.ErrorTypeInternal, "failed to watch "+c.opts.BasePath)
	}
	c.watcher = watcher
	c.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.done:
				return
			case e, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
					continue
				}
				if !strings.HasSuffix(e.Name, "."+c.opts.FileType) {
					continue
				}
				c.reload(e, instance)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.opts.Logger.Warn("config watch error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (c *Config) reload(e fsnotify.Event, instance any) {
	v, files, err := CreateConfig(c.opts)
	if err != nil {
		c.opts.Logger.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
		return
	}

	c.watchMutex.Lock()
	c.instance = v
	c.files = files
	err = v.Unmarshal(instance)
	c.watchMutex.Unlock()
	if err != nil {
		c.opts.Logger.Warn("config rebind failed", zap.String("file", e.Name), zap.Error(err))
		return
	}

	c.opts.Logger.Info("config reloaded", zap.String("file", e.Name))
	if c.opts.OnChange != nil {
		c.opts.OnChange(e)
	}
}

// Close stops watching. It is safe to call on an unwatched config.
func (c *Config) Close() error {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	if c.watcher == nil {
		return nil
	}
	close(c.done)
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

// CreateConfig merges every matching file, lowest priority first, and
// layers environment variables on top.
func CreateConfig(opts ConfigOptions) (*viper.Viper, []string, error) {
	configPaths := getConfigFilePaths(opts)
	if len(configPaths) == 0 && !opts.AllowMissing {
		return nil, nil, apperrors.NewNotFound("config file", filepath.Join(opts.BasePath, opts.FileName+"."+opts.FileType))
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, configPath := range configPaths {
		tempV := viper.New()
		tempV.SetConfigFile(configPath)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrorTypeInvalid, "error reading config file "+configPath)
		}

		for _, key := range tempV.AllKeys() {
			v.Set(key, tempV.Get(key))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	// Override with environment variables (higher priority than config files)
	applyEnvOverrides(v, opts.EnvPrefix)

	return v, configPaths, nil
}

// applyEnvOverrides checks all config keys and overrides with environment variables if they exist.
// This ensures environment variables have higher priority than config file values.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_")

	for _, key := range v.AllKeys() {
		// Convert config key to env var name: database.host -> DATABASE_HOST
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}

		// Check if environment variable exists and override
		if envValue := os.Getenv(envKey); envValue != "" {
			v.Set(key, envValue)
		}
	}
}

func getConfigFilePaths(opts ConfigOptions) (configFiles []string) {
	env := env_mode.Mode()
	fileNames := []string{
		opts.FileName,
		fmt.Sprintf("%s.local", opts.FileName),
		fmt.Sprintf("%s.%s", opts.FileName, env),
		fmt.Sprintf("%s.%s.local", opts.FileName, env),
	}

	for _, alias := range env.Aliases() {
		if alias == string(env) {
			continue
		}
		fileNames = append(fileNames,
			fmt.Sprintf("%s.%s", opts.FileName, alias),
			fmt.Sprintf("%s.%s.local", opts.FileName, alias))
	}

	for _, fileName := range fileNames {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", fileName, opts.FileType))
		if isDir, exists, _ := utils.Exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}
