package search

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/peakfinder/model"
)

// Goal is the handle for one submitted search. The caller may cancel it at
// any time; the controller observes the request cooperatively.
type Goal struct {
	id        string
	createdAt time.Time
	lifecycle *Lifecycle

	cancelOnce sync.Once
	cancelCh   chan struct{}

	mu         sync.Mutex
	iterations int
	last       model.SearchState
	hasLast    bool
}

// NewGoal creates a goal in the Accepted state.
func NewGoal(id string) *Goal {
	return &Goal{
		id:        id,
		createdAt: time.Now(),
		lifecycle: NewLifecycle(),
		cancelCh:  make(chan struct{}),
	}
}

// ID returns the goal identifier.
func (g *Goal) ID() string { return g.id }

// CreatedAt returns the submission time.
func (g *Goal) CreatedAt() time.Time { return g.createdAt }

// Cancel requests cancellation. Repeated calls are harmless.
func (g *Goal) Cancel() {
	g.cancelOnce.Do(func() { close(g.cancelCh) })
}

// CancelRequested reports whether Cancel has been called.
func (g *Goal) CancelRequested() bool {
	select {
	case <-g.cancelCh:
		return true
	default:
		return false
	}
}

// Canceled returns a channel closed once cancellation is requested.
func (g *Goal) Canceled() <-chan struct{} { return g.cancelCh }

// State returns the lifecycle state.
func (g *Goal) State() model.GoalState { return g.lifecycle.State() }

// Outcome returns the terminal outcome once the goal has finished.
func (g *Goal) Outcome() (model.Outcome, bool) { return g.lifecycle.Outcome() }

// Done is closed when the goal reaches a terminal state.
func (g *Goal) Done() <-chan struct{} { return g.lifecycle.Done() }

// Wait blocks until the goal finishes or ctx is done.
func (g *Goal) Wait(ctx context.Context) (model.Outcome, error) {
	select {
	case <-g.Done():
		out, _ := g.Outcome()
		return out, nil
	case <-ctx.Done():
		return model.Outcome{}, ctx.Err()
	}
}

// Progress returns the number of completed sampling rounds and the most
// recent search state, if any.
func (g *Goal) Progress() (int, model.SearchState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.iterations, g.last, g.hasLast
}

func (g *Goal) recordProgress(state model.SearchState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.iterations = state.Iteration
	g.last = state
	g.hasLast = true
}
