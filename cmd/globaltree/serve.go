package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/globaltree/app"
	"github.com/leeforge/globaltree/config"
	"github.com/leeforge/globaltree/diagnostics"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/storage"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the configured plugins and serve diagnostics until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "diagnostics listen address, overrides diagnostics.addr")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, addr string) error {
	// The watcher may fire before the app exists.
	var (
		current atomic.Pointer[app.App]
		watched atomic.Pointer[config.Config]
	)

	opts := root.configOptions()
	opts.WatchAble = dirExists(opts.BasePath)
	opts.OnChange = func(e fsnotify.Event) {
		a, c := current.Load(), watched.Load()
		if a == nil || c == nil {
			return
		}
		next, err := c.Reread()
		if err != nil {
			a.Logger().Warn("config change ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		a.ApplyConfigChange(*next)
	}

	c, cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	defer c.Close()
	watched.Store(c)

	log := logging.NewLogger(cfg.Logging)
	defer log.Sync()

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	a, err := root.boot(ctx, cfg, log, backend)
	if err != nil {
		return err
	}
	current.Store(a)
	defer a.Destroy(context.Background())

	if !cfg.Diagnostics.Enabled {
		log.Info("diagnostics disabled; waiting for a signal")
		<-ctx.Done()
		return nil
	}
	if addr == "" {
		addr = cfg.Diagnostics.Addr
	}
	srv := diagnostics.New(a,
		diagnostics.WithLogger(log.Named("diagnostics")),
		diagnostics.WithAddr(addr),
	)
	return srv.ListenAndServe(ctx)
}
