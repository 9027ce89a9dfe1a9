package model

// GoalState is the lifecycle state of a search goal.
type GoalState int

const (
	GoalAccepted GoalState = iota
	GoalExecuting
	GoalSucceeded
	GoalAborted
	GoalCanceled
)

// IsTerminal reports whether s is one of the absorbing end states.
func (s GoalState) IsTerminal() bool {
	switch s {
	case GoalSucceeded, GoalAborted, GoalCanceled:
		return true
	default:
		return false
	}
}

func (s GoalState) String() string {
	switch s {
	case GoalAccepted:
		return "ACCEPTED"
	case GoalExecuting:
		return "EXECUTING"
	case GoalSucceeded:
		return "SUCCEEDED"
	case GoalAborted:
		return "ABORTED"
	case GoalCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the terminal result of a goal. Reason is set for aborted goals.
type Outcome struct {
	State  GoalState
	Reason string
}

// Succeeded returns the outcome for a goal that reached a local maximum.
func Succeeded() Outcome { return Outcome{State: GoalSucceeded} }

// Aborted returns the outcome for a goal stopped by a dependency failure.
func Aborted(reason string) Outcome { return Outcome{State: GoalAborted, Reason: reason} }

// Canceled returns the outcome for a goal stopped by its caller.
func Canceled() Outcome { return Outcome{State: GoalCanceled} }

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.State.String()
	}
	return o.State.String() + ": " + o.Reason
}

// ParseGoalState is the inverse of GoalState.String.
func ParseGoalState(s string) (GoalState, bool) {
	for _, st := range []GoalState{GoalAccepted, GoalExecuting, GoalSucceeded, GoalAborted, GoalCanceled} {
		if st.String() == s {
			return st, true
		}
	}
	return GoalAborted, false
}
