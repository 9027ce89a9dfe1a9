package search

import (
	"context"
	"time"

	"github.com/signalsfoundry/peakfinder/model"
)

// ElevationSampler measures the scalar field at a single position.
type ElevationSampler interface {
	// Ready reports whether the sampling service can currently be reached.
	Ready(ctx context.Context) error
	// Sample blocks until the elevation at the given position is known, the
	// per-call timeout elapses, or cancel is closed. It returns an error
	// wrapping ErrCanceled in the last case. Implementations do not retry.
	Sample(ctx context.Context, at model.Position, cancel <-chan struct{}) (float64, error)
}

// Navigator drives the robot to a point. At most one request is outstanding.
type Navigator interface {
	Ready(ctx context.Context) error
	// GoTo submits a navigation request. A refused target yields an error
	// wrapping ErrNavigationRejected.
	GoTo(ctx context.Context, target model.Position) error
	// Poll waits at most timeout for the outstanding request to finish and
	// reports its status, NavigationPending if it is still running.
	Poll(ctx context.Context, timeout time.Duration) (model.NavigationStatus, error)
	// Cancel stops the outstanding request. It is a no-op when none is
	// outstanding.
	Cancel(ctx context.Context) error
}

// PoseProvider resolves the robot's current position in the map frame.
type PoseProvider interface {
	CurrentPosition(ctx context.Context) (model.Position, error)
}
