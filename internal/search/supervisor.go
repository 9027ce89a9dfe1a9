package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/model"
)

// DefaultGoalHistory is how many finished goals a Supervisor keeps for
// status queries.
const DefaultGoalHistory = 64

// Executor runs a single goal to completion.
type Executor interface {
	Execute(ctx context.Context, goal *Goal) model.Outcome
}

// Supervisor accepts goals, executes each on its own goroutine and keeps the
// handles queryable. Only one goal executes at a time; concurrent searches
// need independent supervisors over independent collaborators.
type Supervisor struct {
	exec    Executor
	log     logging.Logger
	history int
	newID   func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	goals  map[string]*Goal
	order  []string
	active *Goal
	closed bool
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the supervisor logger.
func WithSupervisorLogger(log logging.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if log != nil {
			s.log = log
		}
	}
}

// WithGoalHistory sets how many finished goals are retained.
func WithGoalHistory(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n >= 0 {
			s.history = n
		}
	}
}

// WithIDGenerator overrides goal id generation.
func WithIDGenerator(fn func() string) SupervisorOption {
	return func(s *Supervisor) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewSupervisor returns a supervisor that runs goals with exec.
func NewSupervisor(exec Executor, opts ...SupervisorOption) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		exec:    exec,
		log:     logging.Noop(),
		history: DefaultGoalHistory,
		newID:   func() string { return uuid.NewString() },
		ctx:     ctx,
		cancel:  cancel,
		goals:   make(map[string]*Goal),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit accepts a new goal and starts executing it in the background. The
// goal does not inherit ctx: it keeps running after the submitting call
// returns and stops only when canceled, finished or the supervisor shuts
// down.
func (s *Supervisor) Submit(ctx context.Context) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSupervisorClosed
	}
	if s.active != nil && !s.active.State().IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrGoalActive, s.active.ID())
	}

	goal := NewGoal(s.newID())
	s.goals[goal.ID()] = goal
	s.order = append(s.order, goal.ID())
	s.active = goal
	s.pruneLocked()

	reqLog := logging.LoggerFromContext(ctx, s.log)
	reqLog.Info(ctx, "goal accepted", logging.String("goal_id", goal.ID()))

	s.wg.Add(1)
	go s.run(goal)
	return goal, nil
}

func (s *Supervisor) run(goal *Goal) {
	defer s.wg.Done()
	outcome := s.exec.Execute(s.ctx, goal)

	// Executors are expected to record the outcome themselves; make sure the
	// goal is never left without one.
	if _, ok := goal.Outcome(); !ok {
		if err := goal.lifecycle.Finish(outcome); err != nil {
			_ = goal.lifecycle.Finish(model.Aborted(fmt.Sprintf("executor returned invalid outcome %s", outcome.State)))
		}
	}

	s.mu.Lock()
	if s.active == goal {
		s.active = nil
	}
	s.pruneLocked()
	s.mu.Unlock()
}

// Get returns the goal with the given id.
func (s *Supervisor) Get(id string) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal, ok := s.goals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGoalNotFound, id)
	}
	return goal, nil
}

// Cancel requests cancellation of the goal with the given id.
func (s *Supervisor) Cancel(id string) (*Goal, error) {
	goal, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	goal.Cancel()
	return goal, nil
}

// List returns known goals in submission order.
func (s *Supervisor) List() []*Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Goal, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.goals[id])
	}
	return out
}

// Active returns the goal currently executing, if any.
func (s *Supervisor) Active() (*Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, false
	}
	return s.active, true
}

// Shutdown stops accepting goals, cancels running ones and waits for their
// tasks to report an outcome. If ctx expires first the task context is
// canceled as well and ctx.Err is returned.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, goal := range s.goals {
		if !goal.State().IsTerminal() {
			goal.Cancel()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// pruneLocked drops the oldest finished goals beyond the history limit.
func (s *Supervisor) pruneLocked() {
	finished := 0
	for _, id := range s.order {
		if s.goals[id].State().IsTerminal() {
			finished++
		}
	}
	if finished <= s.history {
		return
	}
	drop := finished - s.history
	kept := s.order[:0]
	for _, id := range s.order {
		if drop > 0 && s.goals[id].State().IsTerminal() {
			delete(s.goals, id)
			drop--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
