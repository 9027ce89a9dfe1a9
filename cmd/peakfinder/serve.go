package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/peakfinder/internal/api"
	"github.com/signalsfoundry/peakfinder/internal/config"
	"github.com/signalsfoundry/peakfinder/internal/elevation"
	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/navigation"
	"github.com/signalsfoundry/peakfinder/internal/observability"
	"github.com/signalsfoundry/peakfinder/internal/pose"
	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/internal/search"
)

const shutdownTimeout = 5 * time.Second

func serve(ctx context.Context, cfg config.Config, log logging.Logger) error {
	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	return run(ctx, cfg, log, lis)
}

// run serves the goal API on lis until ctx is done, then cancels the active
// goal and stops gracefully.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("rpc metrics: %w", err)
	}
	searchMetrics, err := observability.NewSearchCollector(reg)
	if err != nil {
		return fmt.Errorf("search metrics: %w", err)
	}

	conns := newConnPool()
	defer conns.Close()
	elevConn, err := conns.Dial(cfg.Elevation.Addr)
	if err != nil {
		return err
	}
	navConn, err := conns.Dial(cfg.Navigation.Addr)
	if err != nil {
		return err
	}
	poseConn, err := conns.Dial(cfg.Pose.Addr)
	if err != nil {
		return err
	}

	ctrl, err := search.NewController(
		elevation.New(elevConn,
			elevation.WithSampleTimeout(cfg.Elevation.SampleTimeout),
			elevation.WithPollInterval(cfg.Elevation.PollInterval),
			elevation.WithLogger(log),
		),
		navigation.New(navConn,
			navigation.WithRequestTimeout(cfg.Navigation.RequestTimeout),
			navigation.WithLogger(log),
		),
		pose.New(poseConn,
			pose.WithFrames(cfg.Pose.TargetFrame, cfg.Pose.SourceFrame),
			pose.WithTimeout(cfg.Pose.Timeout),
		),
		search.WithLogger(log),
		search.WithMetricsRecorder(searchMetrics),
		search.WithPollInterval(cfg.Search.PollInterval),
		search.WithPreconditionTimeout(cfg.Search.PreconditionTimeout),
		search.WithLimits(search.Limits{
			MaxIterations: cfg.Search.MaxIterations,
			MaxDuration:   cfg.Search.MaxDuration,
		}),
	)
	if err != nil {
		return err
	}
	supervisor := search.NewSupervisor(ctrl,
		search.WithSupervisorLogger(log),
		search.WithGoalHistory(cfg.Search.GoalHistory),
	)

	server := grpc.NewServer(api.ServerOptions(log, rpcMetrics)...)
	rpc.RegisterPeakFinderServer(server, api.NewServer(supervisor, log))
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(rpc.PeakFinderServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	metricsSrv := newMetricsServer(cfg.MetricsListen, reg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "serving goal API", logging.String("addr", lis.Addr().String()))
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			log.Info(ctx, "serving Prometheus metrics", logging.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")
		hs.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := supervisor.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "active goal did not stop in time", logging.Err(err))
		}
		stopGracefully(shutdownCtx, server)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

// stopGracefully falls back to a hard stop once ctx expires.
func stopGracefully(ctx context.Context, server *grpc.Server) {
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		server.Stop()
	}
}

func newMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.HandlerFor(gatherer))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// connPool shares one client connection per collaborator address.
type connPool struct {
	conns map[string]*grpc.ClientConn
}

func newConnPool() *connPool {
	return &connPool{conns: make(map[string]*grpc.ClientConn)}
}

func (p *connPool) Dial(addr string) (*grpc.ClientConn, error) {
	if cc, ok := p.conns[addr]; ok {
		return cc, nil
	}
	opts := append(api.DialOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	p.conns[addr] = cc
	return cc, nil
}

func (p *connPool) Close() {
	for _, cc := range p.conns {
		_ = cc.Close()
	}
}
