// Package api serves the PeakFinderService goal API over the goal
// supervisor.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/internal/search"
	"go.opentelemetry.io/otel/attribute"
)

// Goals is the part of the supervisor the API needs.
type Goals interface {
	Submit(ctx context.Context) (*search.Goal, error)
	Get(id string) (*search.Goal, error)
	Cancel(id string) (*search.Goal, error)
	List() []*search.Goal
}

// Server implements rpc.PeakFinderServer.
type Server struct {
	goals Goals
	log   logging.Logger
}

var _ rpc.PeakFinderServer = (*Server)(nil)

// NewServer returns a goal API over goals.
func NewServer(goals Goals, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{goals: goals, log: log}
}

// ParkAtPeak accepts a new search goal.
func (s *Server) ParkAtPeak(ctx context.Context, _ *rpc.ParkAtPeakRequest) (*rpc.ParkAtPeakResponse, error) {
	ctx, span := StartChildSpan(ctx, "PeakFinder.Submit", "")
	defer span.End()

	goal, err := s.goals.Submit(ctx)
	if err != nil {
		logging.LoggerFromContext(ctx, s.log).Warn(ctx, "goal rejected", logging.Err(err))
		span.RecordError(err)
		return nil, ToStatusError(err)
	}
	span.SetAttributes(attribute.String("goal.id", goal.ID()))
	return &rpc.ParkAtPeakResponse{GoalID: goal.ID()}, nil
}

// CancelGoal requests cancellation and returns the goal's status at the time
// of the request. The goal reaches CANCELED asynchronously.
func (s *Server) CancelGoal(ctx context.Context, req *rpc.GoalRequest) (*rpc.GoalStatus, error) {
	id, err := goalID(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	_, span := StartChildSpan(ctx, "PeakFinder.Cancel", id)
	defer span.End()

	goal, err := s.goals.Cancel(id)
	if err != nil {
		return nil, ToStatusError(err)
	}
	logging.LoggerFromContext(ctx, s.log).Info(ctx, "goal cancel requested", logging.String("goal_id", id))
	st := StatusOf(goal)
	return &st, nil
}

// GetGoal returns a goal's status.
func (s *Server) GetGoal(_ context.Context, req *rpc.GoalRequest) (*rpc.GoalStatus, error) {
	id, err := goalID(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	goal, err := s.goals.Get(id)
	if err != nil {
		return nil, ToStatusError(err)
	}
	st := StatusOf(goal)
	return &st, nil
}

// ListGoals returns retained goals in submission order.
func (s *Server) ListGoals(context.Context, *rpc.ListGoalsRequest) (*rpc.ListGoalsResponse, error) {
	goals := s.goals.List()
	out := &rpc.ListGoalsResponse{Goals: make([]rpc.GoalStatus, 0, len(goals))}
	for _, g := range goals {
		out.Goals = append(out.Goals, StatusOf(g))
	}
	return out, nil
}

// StatusOf renders a goal for the wire.
func StatusOf(g *search.Goal) rpc.GoalStatus {
	st := rpc.GoalStatus{
		GoalID:          g.ID(),
		State:           g.State().String(),
		CreatedAt:       g.CreatedAt().UTC().Format(time.RFC3339Nano),
		CancelRequested: g.CancelRequested(),
	}
	if out, ok := g.Outcome(); ok {
		st.State = out.State.String()
		st.Reason = out.Reason
	}
	if iterations, last, ok := g.Progress(); ok {
		st.Iterations = iterations
		st.X = last.Current.X
		st.Y = last.Current.Y
		st.Elevation = last.CurrentElevation
	}
	return st
}

func goalID(req *rpc.GoalRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.GoalID) == "" {
		return "", fmt.Errorf("%w: goal_id is required", ErrInvalidArgument)
	}
	return strings.TrimSpace(req.GoalID), nil
}
