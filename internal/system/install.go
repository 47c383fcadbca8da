package system

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// InstallPackage provisions the opendkim package through apt, refreshing
// the package cache first.
func InstallPackage(ctx context.Context, logger *slog.Logger, name string) error {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("updating package cache")
	if err := runApt(ctx, "update"); err != nil {
		return err
	}
	logger.Info("installing package", "package", name)
	return runApt(ctx, "install", "-y", name)
}

func runApt(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "apt-get", args...)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("apt-get %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
