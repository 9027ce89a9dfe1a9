// Package rpc defines the peakfinder gRPC services without generated code.
// Messages are plain Go structs carried on the wire as
// google.protobuf.Struct, so the default proto codec and every standard gRPC
// interceptor, health check and stats handler work unchanged.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode converts a message into its wire form.
func Encode(msg any) (*structpb.Struct, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	return out, nil
}

// Decode fills msg from its wire form. Unknown fields are ignored.
func Decode(in *structpb.Struct, msg any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := in.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	return nil
}

func fullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// unaryMethod builds a MethodDesc whose handler decodes Req, runs the
// interceptor chain with the typed request and encodes Resp.
func unaryMethod[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			req := new(Req)
			if err := Decode(in, req); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "%s: %v", method, err)
			}
			handler := func(ctx context.Context, r interface{}) (interface{}, error) {
				resp, err := call(srv.(S), ctx, r.(*Req))
				if err != nil {
					return nil, err
				}
				out, err := Encode(resp)
				if err != nil {
					return nil, status.Errorf(codes.Internal, "%s: %v", method, err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(service, method)}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// invoke performs a unary call with typed request and response messages.
func invoke[Req any, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req *Req, opts ...grpc.CallOption) (*Resp, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := Decode(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
