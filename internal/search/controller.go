package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/peakfinder/core"
	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/peakfinder/internal/search"

// Controller executes hill-climbing goals. It is not safe to run two goals on
// the same Controller concurrently because the Navigator allows only one
// outstanding request; the Supervisor enforces that.
type Controller struct {
	elevation ElevationSampler
	navigator Navigator
	pose      PoseProvider

	pollInterval        time.Duration
	preconditionTimeout time.Duration
	limits              Limits

	log      logging.Logger
	metrics  MetricsRecorder
	observer Observer
	tracer   trace.Tracer

	// legOpen is set while a navigation request accepted by GoTo has not
	// reached a terminal status or been canceled.
	legOpen bool
}

// NewController wires the three collaborators into a controller.
func NewController(elevation ElevationSampler, navigator Navigator, pose PoseProvider, opts ...Option) (*Controller, error) {
	if elevation == nil {
		return nil, fmt.Errorf("elevation sampler is nil")
	}
	if navigator == nil {
		return nil, fmt.Errorf("navigator is nil")
	}
	if pose == nil {
		return nil, fmt.Errorf("pose provider is nil")
	}
	c := &Controller{
		elevation:           elevation,
		navigator:           navigator,
		pose:                pose,
		pollInterval:        DefaultPollInterval,
		preconditionTimeout: DefaultPreconditionTimeout,
		log:                 logging.Noop(),
		metrics:             noopMetrics{},
		tracer:              otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute runs goal to completion and returns its terminal outcome. ctx
// bounds the whole task; when it is done the goal is treated as canceled at
// the next checkpoint. Panics raised by collaborators are converted into an
// aborted outcome.
func (c *Controller) Execute(ctx context.Context, goal *Goal) (outcome model.Outcome) {
	ctx = logging.ContextWithGoalID(ctx, goal.ID())
	log := c.log.With(logging.String("goal_id", goal.ID()))
	ctx, span := c.tracer.Start(ctx, "search.Execute",
		trace.WithAttributes(attribute.String("goal.id", goal.ID())))
	defer span.End()

	started := time.Now()
	c.metrics.GoalStarted()

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "goal task failed unexpectedly", logging.Any("panic", r))
			if c.legOpen {
				c.cancelNavigation(ctx, log)
			}
			outcome = c.finish(ctx, log, goal, model.Aborted(fmt.Sprintf("unexpected failure: %v", r)))
		}
		if outcome.State == model.GoalAborted {
			span.SetStatus(codes.Error, outcome.Reason)
		}
		span.SetAttributes(attribute.String("goal.outcome", outcome.State.String()))
		c.metrics.GoalFinished(outcome, time.Since(started))
	}()

	if failed, ok := c.checkPreconditions(ctx, log); !ok {
		return c.finish(ctx, log, goal, failed)
	}
	if err := goal.lifecycle.Start(); err != nil {
		// Only reachable if someone else already finished the goal.
		out, _ := goal.Outcome()
		return out
	}
	log.Info(ctx, "goal executing")

	return c.finish(ctx, log, goal, c.run(ctx, log, goal))
}

// finish records outcome on the goal unless another outcome was already
// recorded, and returns whichever outcome the goal ends up holding.
func (c *Controller) finish(ctx context.Context, log logging.Logger, goal *Goal, outcome model.Outcome) model.Outcome {
	if err := goal.lifecycle.Finish(outcome); err != nil {
		existing, _ := goal.Outcome()
		return existing
	}
	switch outcome.State {
	case model.GoalAborted:
		log.Error(ctx, "goal aborted", logging.String("reason", outcome.Reason))
	default:
		log.Info(ctx, "goal finished", logging.String("outcome", outcome.State.String()))
	}
	return outcome
}

func (c *Controller) checkPreconditions(ctx context.Context, log logging.Logger) (model.Outcome, bool) {
	check := func(fn func(context.Context) error) error {
		pctx, cancel := context.WithTimeout(ctx, c.preconditionTimeout)
		defer cancel()
		return fn(pctx)
	}

	if err := check(c.elevation.Ready); err != nil {
		log.Error(ctx, "elevation service must be available to run a search", logging.Err(err))
		return model.Aborted(fmt.Sprintf("elevation service unavailable: %v", err)), false
	}
	if err := check(func(pctx context.Context) error {
		_, err := c.pose.CurrentPosition(pctx)
		return err
	}); err != nil {
		log.Error(ctx, "robot position could not be looked up", logging.Err(err))
		return model.Aborted(fmt.Sprintf("robot position unresolvable: %v", err)), false
	}
	if err := check(c.navigator.Ready); err != nil {
		log.Error(ctx, "navigation service must be available to run a search", logging.Err(err))
		return model.Aborted(fmt.Sprintf("navigation service unavailable: %v", err)), false
	}
	return model.Outcome{}, true
}

func (c *Controller) run(ctx context.Context, log logging.Logger, goal *Goal) model.Outcome {
	started := time.Now()
	for iteration := 1; ; iteration++ {
		if c.cancelRequested(ctx, goal) {
			return model.Canceled()
		}
		if limit := c.limits.MaxIterations; limit > 0 && iteration > limit {
			return model.Aborted(fmt.Sprintf("iteration limit of %d reached before finding a peak", limit))
		}
		if limit := c.limits.MaxDuration; limit > 0 && time.Since(started) > limit {
			return model.Aborted(fmt.Sprintf("search exceeded its %s deadline", limit))
		}

		if outcome, done := c.iterate(ctx, log.With(logging.Int("iteration", iteration)), goal, iteration); done {
			return outcome
		}
	}
}

// iterate performs one sample-decide-move round. done is false when the
// robot reached the next position and the search should continue.
func (c *Controller) iterate(ctx context.Context, log logging.Logger, goal *Goal, iteration int) (model.Outcome, bool) {
	ctx, span := c.tracer.Start(ctx, "search.Iteration",
		trace.WithAttributes(attribute.Int("search.iteration", iteration)))
	defer span.End()

	log.Debug(ctx, "getting current position")
	current, err := c.pose.CurrentPosition(ctx)
	if err != nil {
		return model.Aborted(fmt.Sprintf("robot position unresolvable: %v", err)), true
	}

	state := model.SearchState{Iteration: iteration, Current: current}

	elevation, outcome, ok := c.sample(ctx, log, goal, current)
	if !ok {
		return outcome, true
	}
	state.CurrentElevation = elevation
	log.Debug(ctx, "current elevation", logging.Float64("elevation", elevation))

	ring := core.RingPositions(current, core.RingRadius)
	for i, at := range ring {
		elevation, outcome, ok := c.sample(ctx, log, goal, at)
		if !ok {
			return outcome, true
		}
		state.Ring[i] = model.SamplePoint{Position: at, Elevation: elevation, OK: true}
	}

	goal.recordProgress(state)
	c.metrics.IterationCompleted()
	if c.observer != nil {
		c.observer(goal.ID(), state)
	}

	elevations := state.Elevations()
	best := core.ArgMax(elevations)
	log.Info(ctx, "sampled ring",
		logging.Any("position", current.String()),
		logging.Float64("current_elevation", state.CurrentElevation),
		logging.Any("ring_elevations", elevations),
		logging.Float64("max_elevation", elevations[best]),
	)

	if core.AtPeak(state.CurrentElevation, elevations) {
		log.Info(ctx, "at peak")
		return model.Succeeded(), true
	}

	return c.moveTo(ctx, log, goal, ring[best])
}

func (c *Controller) sample(ctx context.Context, log logging.Logger, goal *Goal, at model.Position) (float64, model.Outcome, bool) {
	started := time.Now()
	elevation, err := c.elevation.Sample(ctx, at, goal.Canceled())
	c.metrics.SampleObserved(err == nil, time.Since(started))
	if err == nil {
		return elevation, model.Outcome{}, true
	}
	if errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled) {
		log.Info(ctx, "cancellation observed while sampling", logging.Any("position", at.String()))
		return 0, model.Canceled(), false
	}
	return 0, model.Aborted(fmt.Sprintf("elevation sampling failed at %s: %v", at, err)), false
}

func (c *Controller) moveTo(ctx context.Context, log logging.Logger, goal *Goal, target model.Position) (model.Outcome, bool) {
	log.Info(ctx, "moving to new position", logging.Any("target", target.String()))
	if err := c.navigator.GoTo(ctx, target); err != nil {
		if errors.Is(err, ErrNavigationRejected) {
			return model.Aborted(fmt.Sprintf("navigation rejected target %s: %v", target, err)), true
		}
		return model.Aborted(fmt.Sprintf("navigation request failed: %v", err)), true
	}
	c.legOpen = true

	for {
		status, err := c.navigator.Poll(ctx, c.pollInterval)
		if err != nil {
			c.cancelNavigation(ctx, log)
			if c.cancelRequested(ctx, goal) {
				return model.Canceled(), true
			}
			return model.Aborted(fmt.Sprintf("navigation status unavailable: %v", err)), true
		}

		switch status {
		case model.NavigationPending:
			if c.cancelRequested(ctx, goal) {
				c.cancelNavigation(ctx, log)
				return model.Canceled(), true
			}
		case model.NavigationSucceeded:
			c.legOpen = false
			c.metrics.NavigationLegFinished(status)
			return model.Outcome{}, false
		default:
			c.legOpen = false
			c.metrics.NavigationLegFinished(status)
			return model.Aborted(fmt.Sprintf("navigation to %s ended with status %s", target, status)), true
		}
	}
}

// cancelNavigation stops the outstanding navigation request. It runs on a
// context detached from ctx so shutdown does not skip the cleanup.
func (c *Controller) cancelNavigation(ctx context.Context, log logging.Logger) {
	c.legOpen = false
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.preconditionTimeout)
	defer cancel()
	if err := c.navigator.Cancel(cctx); err != nil {
		log.Warn(ctx, "failed to cancel navigation", logging.Err(err))
	}
	c.metrics.NavigationLegFinished(model.NavigationCanceled)
}

func (c *Controller) cancelRequested(ctx context.Context, goal *Goal) bool {
	return goal.CancelRequested() || ctx.Err() != nil
}
