package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// PoseServer resolves frame transforms.
type PoseServer interface {
	LookupTransform(context.Context, *LookupTransformRequest) (*LookupTransformResponse, error)
}

// PoseServiceDesc describes peakfinder.v1.PoseService.
var PoseServiceDesc = grpc.ServiceDesc{
	ServiceName: PoseServiceName,
	HandlerType: (*PoseServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(PoseServiceName, "LookupTransform", PoseServer.LookupTransform),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "peakfinder/v1/pose",
}

// RegisterPoseServer registers srv on s.
func RegisterPoseServer(s grpc.ServiceRegistrar, srv PoseServer) {
	s.RegisterService(&PoseServiceDesc, srv)
}

// PoseClient calls peakfinder.v1.PoseService.
type PoseClient struct {
	cc grpc.ClientConnInterface
}

// NewPoseClient wraps cc.
func NewPoseClient(cc grpc.ClientConnInterface) *PoseClient {
	return &PoseClient{cc: cc}
}

// LookupTransform resolves a transform.
func (c *PoseClient) LookupTransform(ctx context.Context, req *LookupTransformRequest, opts ...grpc.CallOption) (*LookupTransformResponse, error) {
	return invoke[LookupTransformRequest, LookupTransformResponse](ctx, c.cc, fullMethod(PoseServiceName, "LookupTransform"), req, opts...)
}
