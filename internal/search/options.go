package search

import (
	"time"

	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/model"
)

const (
	// DefaultPollInterval bounds each wait on the navigator.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultPreconditionTimeout bounds each readiness probe at goal start.
	DefaultPreconditionTimeout = 2 * time.Second
)

// Limits are optional safety caps on a single goal. Zero disables a cap.
type Limits struct {
	MaxIterations int
	MaxDuration   time.Duration
}

// MetricsRecorder receives search events. Implementations must be safe for
// concurrent use.
type MetricsRecorder interface {
	GoalStarted()
	GoalFinished(outcome model.Outcome, elapsed time.Duration)
	IterationCompleted()
	SampleObserved(ok bool, elapsed time.Duration)
	NavigationLegFinished(status model.NavigationStatus)
}

// Observer is invoked after every fully sampled iteration.
type Observer func(goalID string, state model.SearchState)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetricsRecorder wires search metrics.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithObserver registers a hook that sees each iteration's search state.
func WithObserver(fn Observer) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithPollInterval overrides the navigation poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPreconditionTimeout overrides the readiness probe timeout.
func WithPreconditionTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.preconditionTimeout = d
		}
	}
}

// WithLimits sets the per-goal safety caps.
func WithLimits(l Limits) Option {
	return func(c *Controller) { c.limits = l }
}

type noopMetrics struct{}

func (noopMetrics) GoalStarted()                                 {}
func (noopMetrics) GoalFinished(model.Outcome, time.Duration)    {}
func (noopMetrics) IterationCompleted()                          {}
func (noopMetrics) SampleObserved(bool, time.Duration)           {}
func (noopMetrics) NavigationLegFinished(model.NavigationStatus) {}
