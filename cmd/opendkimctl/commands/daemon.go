package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/milterops/opendkimctl/internal/api"
	"github.com/milterops/opendkimctl/internal/config"
	"github.com/milterops/opendkimctl/internal/watcher"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the reconciler as a long-lived service",
	Long: `Run an initial reconciliation cycle, then keep watching the operator
configuration file and re-reconcile on every change. Serves the admin API
and Prometheus metrics when enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runDaemon(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	logger := slog.Default()

	resolver, closer, err := buildResolver(cfg)
	if err != nil {
		return fmt.Errorf("connecting secret backend: %w", err)
	}
	if closer != nil {
		defer closer()
	}

	rec := buildReconciler(cfg, resolver, logger)

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API.ListenAddr, logger)
	}

	// A one-slot trigger channel coalesces bursts of file events; the
	// loop below guarantees at most one cycle in flight.
	trigger := make(chan struct{}, 1)
	kick := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	kick() // initial cycle

	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath
	}
	w := watcher.New(watchPath, time.Duration(cfg.Watch.Interval)*time.Second, kick, logger)
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	group, ctx := errgroup.WithContext(ctx)

	if server != nil {
		group.Go(server.Start)
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-trigger:
				// Reload the config so edits picked up by the watcher
				// feed the next cycle.
				current, err := config.LoadConfig(watchPath)
				if err != nil {
					logger.Error("config reload failed, keeping previous desired state", "error", err)
					current = cfg
				}
				outcome := rec.Reconcile(ctx, current.Inputs())
				if server != nil {
					server.SetOutcome(outcome)
				}
			}
		}
	})

	return group.Wait()
}
