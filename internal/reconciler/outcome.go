package reconciler

// OutcomeKind classifies the terminal state of one reconciliation cycle.
type OutcomeKind int

const (
	// Converged means every artifact is applied and the daemon accepted
	// the configuration.
	Converged OutcomeKind = iota

	// WaitingForRelation means no milter consumer is registered yet;
	// nothing was written.
	WaitingForRelation

	// InvalidConfig means the desired-state inputs failed validation;
	// the reason lists every invalid field.
	InvalidConfig

	// ExternalValidationFailed means artifacts were applied but the
	// daemon's own validator rejected the result.
	ExternalValidationFailed

	// CollaboratorFailure means a collaborator (secret store,
	// filesystem, service manager) failed mid-cycle.
	CollaboratorFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Converged:
		return "converged"
	case WaitingForRelation:
		return "waiting-for-relation"
	case InvalidConfig:
		return "invalid-config"
	case ExternalValidationFailed:
		return "external-validation-failed"
	case CollaboratorFailure:
		return "collaborator-failure"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one cycle.
type Outcome struct {
	Kind    OutcomeKind
	Reason  string
	CycleID string
}
