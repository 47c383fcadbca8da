package reconciler

// Externally visible states.
const (
	StateActive  = "active"
	StateBlocked = "blocked"
)

// Status is the externally visible condition of the managed daemon.
type Status struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// Report maps a cycle outcome to its externally visible status. Pure
// mapping, no side effects.
func Report(o Outcome) Status {
	switch o.Kind {
	case Converged:
		return Status{State: StateActive}
	case WaitingForRelation:
		return Status{State: StateBlocked, Message: "missing milter relations"}
	default:
		return Status{State: StateBlocked, Message: o.Reason}
	}
}
