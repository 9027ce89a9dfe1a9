package search

import "errors"

var (
	// ErrCanceled is returned by collaborators when the caller's cancellation
	// signal was observed before the request completed.
	ErrCanceled = errors.New("canceled")
	// ErrNavigationRejected is returned by Navigator.GoTo when the navigation
	// service refuses the target.
	ErrNavigationRejected = errors.New("navigation request rejected")

	// ErrGoalActive is returned by Supervisor.Submit while another goal is
	// still executing.
	ErrGoalActive = errors.New("a goal is already executing")
	// ErrGoalNotFound is returned when a goal id is unknown.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrSupervisorClosed is returned by Submit after Shutdown.
	ErrSupervisorClosed = errors.New("supervisor is shut down")

	// ErrInvalidTransition is returned when a lifecycle change is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("invalid goal state transition")
	// ErrGoalTerminal is returned when a goal already holds an outcome.
	ErrGoalTerminal = errors.New("goal already finished")
)
