package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/milterops/opendkimctl/internal/system"
)

const (
	opendkimPackage  = "opendkim"
	logrotateSyslog  = "/etc/logrotate.d/rsyslog"
	logRetentionDays = 120
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision the opendkim package",
	Long: `Install the opendkim package through apt and tighten the syslog
logrotate policy (daily rotation, 120 days retention) so signing activity
stays auditable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()

		if err := system.InstallPackage(cmd.Context(), logger, opendkimPackage); err != nil {
			return err
		}

		content, err := system.UpdateLogrotateConf(logrotateSyslog, "daily", logRetentionDays, true)
		if err != nil {
			return err
		}
		if content == "" {
			logger.Warn("logrotate config missing, skipping retention update", "path", logrotateSyslog)
			return nil
		}
		if err := system.NewFiles().WriteFile(logrotateSyslog, content, 0o644, "root"); err != nil {
			return err
		}

		fmt.Println("opendkim installed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
