package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Testkey validates an applied configuration with the opendkim-testkey
// binary shipped alongside the daemon.
type Testkey struct {
	logger *slog.Logger
}

// NewTestkey creates the external validator collaborator.
func NewTestkey(logger *slog.Logger) *Testkey {
	if logger == nil {
		logger = slog.Default()
	}
	return &Testkey{logger: logger.With("component", "testkey")}
}

// Check runs "opendkim-testkey -x <configPath> -vv" bounded by timeout.
// A timeout is reported the same way as a failed check, with the tool's
// output surfaced verbatim.
func (t *Testkey) Check(ctx context.Context, configPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t.logger.Info("validating configuration", "config", configPath)
	out, err := exec.CommandContext(ctx, "opendkim-testkey", "-x", configPath, "-vv").CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("opendkim-testkey timed out after %s", timeout)
	}
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			return fmt.Errorf("opendkim-testkey: %w", err)
		}
		return fmt.Errorf("opendkim-testkey: %s", detail)
	}
	return nil
}
