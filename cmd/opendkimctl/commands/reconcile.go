package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/milterops/opendkimctl/internal/config"
	"github.com/milterops/opendkimctl/internal/reconciler"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation cycle",
	Long: `Run a single reconciliation cycle against the configured desired state
and print the resulting status. Exits non-zero unless the daemon converged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, closer, err := buildResolver(cfg)
		if err != nil {
			return fmt.Errorf("connecting secret backend: %w", err)
		}
		if closer != nil {
			defer closer()
		}

		rec := buildReconciler(cfg, resolver, slog.Default())
		outcome := rec.Reconcile(cmd.Context(), cfg.Inputs())
		status := reconciler.Report(outcome)

		if status.Message != "" {
			fmt.Printf("%s: %s\n", status.State, status.Message)
		} else {
			fmt.Println(status.State)
		}
		if status.State != reconciler.StateActive {
			return fmt.Errorf("not converged: %s", outcome.Kind)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func validateTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Service.ValidateTimeout) * time.Second
}
