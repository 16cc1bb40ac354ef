package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/extpoint/pkg/admin"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/plugins"
)

func newWatchCommand(app *App) *Command {
	cmd := &Command{
		Name:        "watch",
		Description: "Invalidate the metadata cache when module files change",
		Flags:       flag.NewFlagSet("watch", flag.ContinueOnError),
	}

	rf := addRegistryFlags(cmd.Flags)
	debounce := cmd.Flags.Duration("debounce", plugins.DefaultDebounce, "Wait this long for changes to settle")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := app.config(rf)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(app.context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.registry(cfg, nil).Watcher(*debounce).Run(ctx)
	}

	return cmd
}

func newServeCommand(app *App) *Command {
	cmd := &Command{
		Name:        "serve",
		Description: "Serve registry introspection over HTTP",
		Flags:       flag.NewFlagSet("serve", flag.ContinueOnError),
	}

	rf := addRegistryFlags(cmd.Flags)
	addr := cmd.Flags.String("addr", "", "Listen address (overrides EXTPOINT_ADMIN_ADDR)")
	watch := cmd.Flags.Bool("watch", false, "Reload the registry when module files change")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := app.config(rf)
		if err != nil {
			return err
		}
		if *addr != "" {
			cfg.Admin.Addr = *addr
		}

		log := app.logger(cfg)

		var (
			gatherer prometheus.Gatherer
			metrics  *observability.Metrics
		)
		if cfg.Observability.MetricsEnabled {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics = observability.NewMetrics(reg)
			gatherer = reg
		}

		r := app.registry(cfg, metrics)
		if err := r.EnsureBuilt(); err != nil {
			log.Warnf("Registry failed to build, serving unhealthy: %v", err)
		}

		listener, err := net.Listen("tcp", cfg.Admin.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Admin.Addr, err)
		}

		httpServer := &http.Server{
			Handler:           admin.NewServer(r, gatherer, metrics, log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, cancel := context.WithCancel(app.context())
		defer cancel()

		sm := observability.NewShutdownManager(log, httpServer, cfg.Admin.ShutdownTimeout)

		if *watch {
			watcher := r.Watcher(plugins.DefaultDebounce)
			watchCtx, stopWatch := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := watcher.Run(watchCtx); err != nil {
					log.Errorf("Module watcher stopped: %v", err)
				}
			}()
			sm.RegisterShutdownFunc(func(ctx context.Context) error {
				stopWatch()
				select {
				case <-done:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}

		serveErr := make(chan error, 1)
		go func() {
			defer close(serveErr)
			log.Infof("Admin server listening on %s", listener.Addr())
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Admin server failed: %v", err)
				serveErr <- err
				cancel()
			}
		}()

		shutdownErr := sm.WaitForShutdown(ctx)
		if err, ok := <-serveErr; ok {
			return fmt.Errorf("admin server failed: %w", err)
		}
		return shutdownErr
	}

	return cmd
}
