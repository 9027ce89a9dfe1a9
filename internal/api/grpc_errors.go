package api

import (
	"errors"

	"github.com/signalsfoundry/peakfinder/internal/search"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidArgument is a package-level sentinel used for request validation
// failures.
var ErrInvalidArgument = errors.New("invalid argument")

// ToStatusError maps goal supervisor errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, search.ErrGoalNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, search.ErrGoalActive):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, search.ErrSupervisorClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
