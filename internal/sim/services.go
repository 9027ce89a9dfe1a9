package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/observability"
	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/model"
)

// Frames the pose service can resolve.
const (
	MapFrame           = model.MapFrame
	BaseFootprintFrame = "base_footprint"
	BaseLinkFrame      = "base_link"
)

// ElevationService samples the terrain at requested points.
type ElevationService struct {
	terrain   Terrain
	failEvery int64
	delay     time.Duration
	log       logging.Logger
	tele      *observability.SimCollector

	count atomic.Int64
}

// SampleElevation implements rpc.ElevationServer.
func (s *ElevationService) SampleElevation(ctx context.Context, req *rpc.SampleElevationRequest) (*rpc.SampleElevationResponse, error) {
	at := model.Position{X: req.X, Y: req.Y}
	if !at.IsFinite() {
		s.tele.SampleServed(false)
		return &rpc.SampleElevationResponse{Message: fmt.Sprintf("cannot sample at %s", at)}, nil
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		case <-timer.C:
		}
	}

	n := s.count.Add(1)
	if s.failEvery > 0 && n%s.failEvery == 0 {
		s.tele.SampleServed(false)
		logging.LoggerFromContext(ctx, s.log).Warn(ctx, "injected elevation failure",
			logging.Int("sample", int(n)),
		)
		return &rpc.SampleElevationResponse{Message: "sensor read failed"}, nil
	}

	s.tele.SampleServed(true)
	return &rpc.SampleElevationResponse{Success: true, Elevation: s.terrain.Elevation(at)}, nil
}

// NavigationService exposes the Drive over gRPC.
type NavigationService struct {
	drive *Drive
}

// NavigateToPoint implements rpc.NavigationServer. Rejections are reported
// in the response rather than as errors.
func (s *NavigationService) NavigateToPoint(_ context.Context, req *rpc.NavigateToPointRequest) (*rpc.NavigateToPointResponse, error) {
	if req.FrameID != MapFrame {
		return &rpc.NavigateToPointResponse{Message: fmt.Sprintf("unsupported frame %q", req.FrameID)}, nil
	}
	id, err := s.drive.Submit(model.Position{X: req.X, Y: req.Y})
	if err != nil {
		return &rpc.NavigateToPointResponse{Message: err.Error()}, nil
	}
	return &rpc.NavigateToPointResponse{Accepted: true, RequestID: id}, nil
}

// WaitResult implements rpc.NavigationServer.
func (s *NavigationService) WaitResult(ctx context.Context, req *rpc.WaitResultRequest) (*rpc.WaitResultResponse, error) {
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if timeout < 0 {
		timeout = 0
	}
	st, err := s.drive.Wait(ctx, req.RequestID, timeout)
	if err != nil {
		return nil, driveStatusError(err)
	}
	return &rpc.WaitResultResponse{Status: st.String()}, nil
}

// CancelNavigation implements rpc.NavigationServer.
func (s *NavigationService) CancelNavigation(_ context.Context, req *rpc.CancelNavigationRequest) (*rpc.CancelNavigationResponse, error) {
	canceled, err := s.drive.Cancel(req.RequestID)
	if err != nil {
		return nil, driveStatusError(err)
	}
	return &rpc.CancelNavigationResponse{Canceled: canceled}, nil
}

func driveStatusError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownRequest):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// PoseService resolves the robot base in the map frame.
type PoseService struct {
	robot   *Robot
	terrain Terrain
}

// LookupTransform implements rpc.PoseServer. Only map <- base_footprint and
// map <- base_link are known; other pairs report a diagnostic.
func (s *PoseService) LookupTransform(_ context.Context, req *rpc.LookupTransformRequest) (*rpc.LookupTransformResponse, error) {
	if req.TargetFrame != MapFrame || (req.SourceFrame != BaseFootprintFrame && req.SourceFrame != BaseLinkFrame) {
		return &rpc.LookupTransformResponse{
			Message: fmt.Sprintf("no transform from %q to %q", req.SourceFrame, req.TargetFrame),
		}, nil
	}
	p := s.robot.Position()
	z := s.terrain.Elevation(p)
	if math.IsNaN(z) || math.IsInf(z, 0) {
		z = 0
	}
	return &rpc.LookupTransformResponse{Success: true, X: p.X, Y: p.Y, Z: z}, nil
}

// Register installs the three services and a health server reporting each
// of them SERVING.
func (s *Sim) Register(srv *grpc.Server) *health.Server {
	rpc.RegisterElevationServer(srv, s.Elevation)
	rpc.RegisterNavigationServer(srv, s.Navigation)
	rpc.RegisterPoseServer(srv, s.Pose)

	hs := health.NewServer()
	for _, name := range []string{"", rpc.ElevationServiceName, rpc.NavigationServiceName, rpc.PoseServiceName} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	healthpb.RegisterHealthServer(srv, hs)
	return hs
}
