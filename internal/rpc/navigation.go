package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// NavigationServer drives the robot to requested points.
type NavigationServer interface {
	NavigateToPoint(context.Context, *NavigateToPointRequest) (*NavigateToPointResponse, error)
	WaitResult(context.Context, *WaitResultRequest) (*WaitResultResponse, error)
	CancelNavigation(context.Context, *CancelNavigationRequest) (*CancelNavigationResponse, error)
}

// NavigationServiceDesc describes peakfinder.v1.NavigationService.
var NavigationServiceDesc = grpc.ServiceDesc{
	ServiceName: NavigationServiceName,
	HandlerType: (*NavigationServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(NavigationServiceName, "NavigateToPoint", NavigationServer.NavigateToPoint),
		unaryMethod(NavigationServiceName, "WaitResult", NavigationServer.WaitResult),
		unaryMethod(NavigationServiceName, "CancelNavigation", NavigationServer.CancelNavigation),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "peakfinder/v1/navigation",
}

// RegisterNavigationServer registers srv on s.
func RegisterNavigationServer(s grpc.ServiceRegistrar, srv NavigationServer) {
	s.RegisterService(&NavigationServiceDesc, srv)
}

// NavigationClient calls peakfinder.v1.NavigationService.
type NavigationClient struct {
	cc grpc.ClientConnInterface
}

// NewNavigationClient wraps cc.
func NewNavigationClient(cc grpc.ClientConnInterface) *NavigationClient {
	return &NavigationClient{cc: cc}
}

// NavigateToPoint submits a navigation request.
func (c *NavigationClient) NavigateToPoint(ctx context.Context, req *NavigateToPointRequest, opts ...grpc.CallOption) (*NavigateToPointResponse, error) {
	return invoke[NavigateToPointRequest, NavigateToPointResponse](ctx, c.cc, fullMethod(NavigationServiceName, "NavigateToPoint"), req, opts...)
}

// WaitResult waits a bounded time for a navigation request to finish.
func (c *NavigationClient) WaitResult(ctx context.Context, req *WaitResultRequest, opts ...grpc.CallOption) (*WaitResultResponse, error) {
	return invoke[WaitResultRequest, WaitResultResponse](ctx, c.cc, fullMethod(NavigationServiceName, "WaitResult"), req, opts...)
}

// CancelNavigation stops a navigation request.
func (c *NavigationClient) CancelNavigation(ctx context.Context, req *CancelNavigationRequest, opts ...grpc.CallOption) (*CancelNavigationResponse, error) {
	return invoke[CancelNavigationRequest, CancelNavigationResponse](ctx, c.cc, fullMethod(NavigationServiceName, "CancelNavigation"), req, opts...)
}
