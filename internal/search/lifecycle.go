package search

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/peakfinder/model"
)

var allowedTransitions = map[model.GoalState][]model.GoalState{
	model.GoalAccepted:  {model.GoalExecuting, model.GoalAborted, model.GoalCanceled},
	model.GoalExecuting: {model.GoalSucceeded, model.GoalAborted, model.GoalCanceled},
}

// Lifecycle tracks a goal through Accepted -> Executing -> terminal. Terminal
// states are absorbing and the outcome is recorded exactly once.
type Lifecycle struct {
	mu      sync.Mutex
	state   model.GoalState
	outcome model.Outcome
	done    chan struct{}
}

// NewLifecycle returns a lifecycle in the Accepted state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state: model.GoalAccepted,
		done:  make(chan struct{}),
	}
}

// State returns the current state.
func (l *Lifecycle) State() model.GoalState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start moves an accepted goal to Executing.
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transitionLocked(model.GoalExecuting)
}

// Finish records the terminal outcome. It fails with ErrGoalTerminal when an
// outcome was already recorded.
func (l *Lifecycle) Finish(outcome model.Outcome) error {
	if !outcome.State.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, outcome.State)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.transitionLocked(outcome.State); err != nil {
		return err
	}
	l.outcome = outcome
	close(l.done)
	return nil
}

// Outcome returns the terminal outcome once one is recorded.
func (l *Lifecycle) Outcome() (model.Outcome, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.IsTerminal() {
		return model.Outcome{}, false
	}
	return l.outcome, true
}

// Done is closed when the goal reaches a terminal state.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

func (l *Lifecycle) transitionLocked(next model.GoalState) error {
	if l.state.IsTerminal() {
		return fmt.Errorf("%w: state %s", ErrGoalTerminal, l.state)
	}
	for _, allowed := range allowedTransitions[l.state] {
		if allowed == next {
			l.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, next)
}
