package system

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Systemd drives service lifecycle through systemctl.
type Systemd struct {
	logger *slog.Logger
}

// NewSystemd creates a systemctl-backed service manager.
func NewSystemd(logger *slog.Logger) *Systemd {
	if logger == nil {
		logger = slog.Default()
	}
	return &Systemd{logger: logger.With("component", "systemd")}
}

// Restart stops and starts the unit.
func (s *Systemd) Restart(ctx context.Context, unit string) error {
	return s.run(ctx, "restart", unit)
}

// Reload asks the unit to re-read its configuration without dropping
// active connections.
func (s *Systemd) Reload(ctx context.Context, unit string) error {
	return s.run(ctx, "reload", unit)
}

func (s *Systemd) run(ctx context.Context, verb, unit string) error {
	s.logger.Info("systemctl", "verb", verb, "unit", unit)
	out, err := exec.CommandContext(ctx, "systemctl", verb, unit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w: %s", verb, unit, err, strings.TrimSpace(string(out)))
	}
	return nil
}
