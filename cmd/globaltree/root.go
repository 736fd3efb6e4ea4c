package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/leeforge/globaltree/app"
	"github.com/leeforge/globaltree/config"
	"github.com/leeforge/globaltree/loader"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/plugins/builtin"
	"github.com/leeforge/globaltree/storage"
	"github.com/leeforge/globaltree/utils"
)

const envPrefix = "GLOBALTREE"

type rootOptions struct {
	configDir  string
	configName string
	pluginDir  string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "globaltree",
		Short:         "Plugin host for graph renderers and scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configDir, "config-dir", "config", "directory holding the config files")
	flags.StringVar(&opts.configName, "config-name", "config", "config file name without extension")
	flags.StringVar(&opts.pluginDir, "plugin-dir", "", "directory of .so plugin modules, tried after the built-ins")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to the terminal")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newPluginsCommand(opts))
	cmd.AddCommand(newRenderCommand(opts))
	return cmd
}

func (o *rootOptions) configOptions() config.ConfigOptions {
	return config.ConfigOptions{
		BasePath:     o.configDir,
		FileName:     o.configName,
		FileType:     "yaml",
		EnvPrefix:    envPrefix,
		AllowMissing: true,
	}
}

// load reads the config once, without watching.
func (o *rootOptions) load() (*config.AppConfig, error) {
	c, cfg, err := config.Load(o.configOptions())
	if err != nil {
		return nil, err
	}
	_ = c.Close()
	return cfg, nil
}

func (o *rootOptions) logger(cfg *config.AppConfig) logging.Logger {
	if !o.verbose {
		return logging.NewNop()
	}
	return logging.NewLogger(cfg.Logging)
}

func (o *rootOptions) sources() []loader.Source {
	sources := []loader.Source{builtin.Catalog()}
	if o.pluginDir != "" {
		sources = append(sources, loader.SharedObjectSource{Dir: o.pluginDir})
	}
	return sources
}

// boot builds and initializes an App. An empty plugin list means every
// built-in module.
func (o *rootOptions) boot(ctx context.Context, cfg *config.AppConfig, logger logging.Logger, backend storage.Backend) (*app.App, error) {
	if len(cfg.Plugins) == 0 {
		cfg.Plugins = builtin.Modules()
	}
	a := app.New(*cfg,
		app.WithLogger(logger),
		app.WithStorage(backend),
		app.WithSources(o.sources()...),
	)
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func dirExists(path string) bool {
	isDir, exists, err := utils.Exists(path)
	return err == nil && exists && isDir
}
