// Package reconciler converges the OpenDKIM daemon to the desired state
// described by the operator configuration. One call to Reconcile runs one
// full cycle: validate, gate on registered milter consumers, apply
// artifacts, restart or reload, externally validate, report. Cycles are
// independent; the only state shared between them is what the filesystem
// already holds.
package reconciler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/milterops/opendkimctl/internal/metrics"
	"github.com/milterops/opendkimctl/internal/opendkim"
	"github.com/milterops/opendkimctl/internal/relation"
	"github.com/milterops/opendkimctl/internal/secrets"
)

// FileWriter writes and reads artifact files. WriteFile applies the
// permission mode and ownership after the content lands; ReadFile returns
// an empty string for an absent file.
type FileWriter interface {
	WriteFile(path, content string, mode fs.FileMode, owner string) error
	ReadFile(path string) (string, error)
}

// ServiceManager drives the managed service's lifecycle.
type ServiceManager interface {
	Restart(ctx context.Context, unit string) error
	Reload(ctx context.Context, unit string) error
}

// Checker runs the external daemon validation against the applied
// configuration, bounded by the timeout.
type Checker interface {
	Check(ctx context.Context, configPath string, timeout time.Duration) error
}

// Deps are the collaborators one Reconciler needs. All are required except
// Logger, which defaults to slog.Default.
type Deps struct {
	Secrets   secrets.Resolver
	Relations relation.Registry
	Files     FileWriter
	Service   ServiceManager
	Checker   Checker

	Unit            string
	MilterPort      int
	ValidateTimeout time.Duration

	Logger *slog.Logger
}

// Reconciler runs reconciliation cycles. It holds no per-cycle state.
type Reconciler struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a Reconciler, filling in defaults for the unit name, milter
// port and validation timeout.
func New(deps Deps) *Reconciler {
	if deps.Unit == "" {
		deps.Unit = "opendkim"
	}
	if deps.MilterPort == 0 {
		deps.MilterPort = opendkim.MilterPort
	}
	if deps.ValidateTimeout == 0 {
		deps.ValidateTimeout = 100 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		deps:   deps,
		logger: logger.With("component", "reconciler"),
	}
}

// Reconcile runs one cycle against the given desired-state inputs and
// returns its terminal outcome. It never returns an error: every failure
// mode is folded into the outcome so the caller has exactly one thing to
// report.
func (r *Reconciler) Reconcile(ctx context.Context, in opendkim.Inputs) Outcome {
	start := time.Now()
	cycleID := uuid.NewString()
	logger := r.logger.With("cycle", cycleID[:8])

	outcome := r.run(ctx, in, logger)
	outcome.CycleID = cycleID

	metrics.ObserveCycle(outcome.Kind.String(), time.Since(start))
	logger.Info("reconciliation finished",
		"outcome", outcome.Kind.String(),
		"reason", outcome.Reason,
		"duration", time.Since(start))
	return outcome
}

func (r *Reconciler) run(ctx context.Context, in opendkim.Inputs, logger *slog.Logger) Outcome {
	cfg, err := opendkim.ConfigFromInputs(ctx, in, r.deps.Secrets)
	if err != nil {
		var verr *opendkim.ValidationError
		if errors.As(err, &verr) {
			logger.Warn("invalid configuration", "error", verr)
			return Outcome{Kind: InvalidConfig, Reason: verr.Error()}
		}
		logger.Error("configuration build failed", "error", err)
		return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
	}

	// The relation gate comes before any write: no key material may land
	// on disk without a consumer declared for it.
	peers, err := r.deps.Relations.List()
	if err != nil {
		logger.Error("listing milter relations failed", "error", err)
		return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
	}
	if len(peers) == 0 {
		logger.Info("no milter relations registered, holding back")
		return Outcome{Kind: WaitingForRelation, Reason: "missing milter relations"}
	}

	port := strconv.Itoa(r.deps.MilterPort)
	for _, peer := range peers {
		if err := peer.SetLocal("port", port); err != nil {
			logger.Error("publishing port to peer failed", "peer", peer.Name(), "error", err)
			return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
		}
	}

	artifacts, err := opendkim.RenderArtifacts(cfg)
	if err != nil {
		logger.Error("rendering artifacts failed", "error", err)
		return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
	}

	// Keys and tables carry no restart semantics of their own and are
	// rewritten every cycle. Only the main configuration is diffed.
	var primary opendkim.Artifact
	for _, artifact := range artifacts {
		if artifact.Primary(cfg) {
			primary = artifact
			continue
		}
		if err := r.deps.Files.WriteFile(artifact.Path, artifact.Content, artifact.Mode, artifact.Owner); err != nil {
			logger.Error("writing artifact failed", "path", artifact.Path, "error", err)
			return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
		}
	}

	previous, err := r.deps.Files.ReadFile(primary.Path)
	if err != nil {
		logger.Error("reading previous configuration failed", "path", primary.Path, "error", err)
		return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
	}

	if NeedsRestart(primary.Content, previous) {
		if err := r.deps.Files.WriteFile(primary.Path, primary.Content, primary.Mode, primary.Owner); err != nil {
			logger.Error("writing main configuration failed", "path", primary.Path, "error", err)
			return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
		}
		logger.Info("main configuration changed, restarting", "unit", r.deps.Unit)
		if err := r.deps.Service.Restart(ctx, r.deps.Unit); err != nil {
			logger.Error("restart failed", "unit", r.deps.Unit, "error", err)
			return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
		}
		metrics.RecordRestart()
	}

	// Reload runs unconditionally so table and key updates take effect
	// even when the main configuration is unchanged.
	logger.Info("reloading", "unit", r.deps.Unit)
	if err := r.deps.Service.Reload(ctx, r.deps.Unit); err != nil {
		logger.Error("reload failed", "unit", r.deps.Unit, "error", err)
		return Outcome{Kind: CollaboratorFailure, Reason: err.Error()}
	}
	metrics.RecordReload()

	if err := r.deps.Checker.Check(ctx, cfg.ConfigPath, r.deps.ValidateTimeout); err != nil {
		logger.Error("external validation failed", "error", err)
		metrics.RecordValidationFailure()
		return Outcome{Kind: ExternalValidationFailed, Reason: err.Error()}
	}

	return Outcome{Kind: Converged}
}
