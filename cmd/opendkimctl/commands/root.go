package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/milterops/opendkimctl/internal/config"
	"github.com/milterops/opendkimctl/internal/reconciler"
	"github.com/milterops/opendkimctl/internal/relation"
	"github.com/milterops/opendkimctl/internal/secrets"
	"github.com/milterops/opendkimctl/internal/system"
)

var (
	// Global configuration
	configPath string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:   "opendkimctl",
		Short: "OpenDKIM configuration reconciler",
		Long: `opendkimctl converges a running OpenDKIM daemon to the desired state
declared in its configuration file: signing tables, key tables and private
key material are rendered to disk, the service is restarted or reloaded as
needed, and the result is validated with opendkim-testkey.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			setupLogging(cfg)
			return nil
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildResolver constructs the secret backend selected in the config. The
// returned closer is non-nil for backends holding a connection.
func buildResolver(cfg *config.Config) (secrets.Resolver, func() error, error) {
	switch cfg.Secrets.Backend {
	case "redis":
		store := secrets.NewRedisStore(secrets.RedisConfig{
			Addr:     cfg.Secrets.Addr,
			Password: cfg.Secrets.Password,
			DB:       cfg.Secrets.DB,
		})
		if err := store.Connect(); err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return secrets.NewFileStore(cfg.Secrets.Path), nil, nil
	}
}

// buildReconciler wires the real collaborators into a reconciler.
func buildReconciler(cfg *config.Config, resolver secrets.Resolver, logger *slog.Logger) *reconciler.Reconciler {
	return reconciler.New(reconciler.Deps{
		Secrets:         resolver,
		Relations:       relation.NewDirRegistry(cfg.Paths.PeersDir),
		Files:           system.NewFiles(),
		Service:         system.NewSystemd(logger),
		Checker:         system.NewTestkey(logger),
		Unit:            cfg.Service.Unit,
		ValidateTimeout: validateTimeout(cfg),
		Logger:          logger,
	})
}
