package api

import (
	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/observability"
	"google.golang.org/grpc"
)

// ServerOptions returns the interceptor chain shared by peakfinder and
// terrain-sim: otelgrpc stats, request ids, span attributes and RPC metrics.
// metrics may be nil.
func ServerOptions(log logging.Logger, metrics *observability.RPCCollector) []grpc.ServerOption {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if metrics != nil {
		interceptors = append(interceptors, metrics.UnaryServerInterceptor())
	}
	return []grpc.ServerOption{
		observability.ServerStatsHandler(),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
}

// DialOptions returns the client-side counterpart of ServerOptions.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		observability.ClientStatsHandler(),
		grpc.WithChainUnaryInterceptor(RequestIDUnaryClientInterceptor()),
	}
}
