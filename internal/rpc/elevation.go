package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ElevationServer serves elevation samples.
type ElevationServer interface {
	SampleElevation(context.Context, *SampleElevationRequest) (*SampleElevationResponse, error)
}

// ElevationServiceDesc describes peakfinder.v1.ElevationService.
var ElevationServiceDesc = grpc.ServiceDesc{
	ServiceName: ElevationServiceName,
	HandlerType: (*ElevationServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(ElevationServiceName, "SampleElevation", ElevationServer.SampleElevation),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "peakfinder/v1/elevation",
}

// RegisterElevationServer registers srv on s.
func RegisterElevationServer(s grpc.ServiceRegistrar, srv ElevationServer) {
	s.RegisterService(&ElevationServiceDesc, srv)
}

// ElevationClient calls peakfinder.v1.ElevationService.
type ElevationClient struct {
	cc grpc.ClientConnInterface
}

// NewElevationClient wraps cc.
func NewElevationClient(cc grpc.ClientConnInterface) *ElevationClient {
	return &ElevationClient{cc: cc}
}

// SampleElevation requests one elevation sample.
func (c *ElevationClient) SampleElevation(ctx context.Context, req *SampleElevationRequest, opts ...grpc.CallOption) (*SampleElevationResponse, error) {
	return invoke[SampleElevationRequest, SampleElevationResponse](ctx, c.cc, fullMethod(ElevationServiceName, "SampleElevation"), req, opts...)
}
