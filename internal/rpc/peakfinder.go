package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// PeakFinderServer is the goal API.
type PeakFinderServer interface {
	ParkAtPeak(context.Context, *ParkAtPeakRequest) (*ParkAtPeakResponse, error)
	CancelGoal(context.Context, *GoalRequest) (*GoalStatus, error)
	GetGoal(context.Context, *GoalRequest) (*GoalStatus, error)
	ListGoals(context.Context, *ListGoalsRequest) (*ListGoalsResponse, error)
}

// PeakFinderServiceDesc describes peakfinder.v1.PeakFinderService.
var PeakFinderServiceDesc = grpc.ServiceDesc{
	ServiceName: PeakFinderServiceName,
	HandlerType: (*PeakFinderServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(PeakFinderServiceName, "ParkAtPeak", PeakFinderServer.ParkAtPeak),
		unaryMethod(PeakFinderServiceName, "CancelGoal", PeakFinderServer.CancelGoal),
		unaryMethod(PeakFinderServiceName, "GetGoal", PeakFinderServer.GetGoal),
		unaryMethod(PeakFinderServiceName, "ListGoals", PeakFinderServer.ListGoals),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "peakfinder/v1/peakfinder",
}

// RegisterPeakFinderServer registers srv on s.
func RegisterPeakFinderServer(s grpc.ServiceRegistrar, srv PeakFinderServer) {
	s.RegisterService(&PeakFinderServiceDesc, srv)
}

// PeakFinderClient calls peakfinder.v1.PeakFinderService.
type PeakFinderClient struct {
	cc grpc.ClientConnInterface
}

// NewPeakFinderClient wraps cc.
func NewPeakFinderClient(cc grpc.ClientConnInterface) *PeakFinderClient {
	return &PeakFinderClient{cc: cc}
}

// ParkAtPeak submits a new goal.
func (c *PeakFinderClient) ParkAtPeak(ctx context.Context, opts ...grpc.CallOption) (*ParkAtPeakResponse, error) {
	return invoke[ParkAtPeakRequest, ParkAtPeakResponse](ctx, c.cc, fullMethod(PeakFinderServiceName, "ParkAtPeak"), &ParkAtPeakRequest{}, opts...)
}

// CancelGoal requests cancellation and returns the goal's current status.
func (c *PeakFinderClient) CancelGoal(ctx context.Context, goalID string, opts ...grpc.CallOption) (*GoalStatus, error) {
	return invoke[GoalRequest, GoalStatus](ctx, c.cc, fullMethod(PeakFinderServiceName, "CancelGoal"), &GoalRequest{GoalID: goalID}, opts...)
}

// GetGoal returns a goal's status.
func (c *PeakFinderClient) GetGoal(ctx context.Context, goalID string, opts ...grpc.CallOption) (*GoalStatus, error) {
	return invoke[GoalRequest, GoalStatus](ctx, c.cc, fullMethod(PeakFinderServiceName, "GetGoal"), &GoalRequest{GoalID: goalID}, opts...)
}

// ListGoals returns retained goals in submission order.
func (c *PeakFinderClient) ListGoals(ctx context.Context, opts ...grpc.CallOption) (*ListGoalsResponse, error) {
	return invoke[ListGoalsRequest, ListGoalsResponse](ctx, c.cc, fullMethod(PeakFinderServiceName, "ListGoals"), &ListGoalsRequest{}, opts...)
}
