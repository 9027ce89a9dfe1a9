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

	"github.com/signalsfoundry/peakfinder/internal/api"
	"github.com/signalsfoundry/peakfinder/internal/config"
	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/observability"
	"github.com/signalsfoundry/peakfinder/internal/sim"
)

const shutdownTimeout = 5 * time.Second

func serve(ctx context.Context, cfg config.SimConfig, log logging.Logger) error {
	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	return run(ctx, cfg, log, lis)
}

// run serves the simulator on lis and advances simulation time until ctx is
// done.
func run(ctx context.Context, cfg config.SimConfig, log logging.Logger, lis net.Listener) error {
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
	telemetry, err := observability.NewSimCollector(reg)
	if err != nil {
		return fmt.Errorf("sim metrics: %w", err)
	}

	s := sim.New(cfg, sim.WithLogger(log), sim.WithTelemetry(telemetry))
	server := grpc.NewServer(api.ServerOptions(log, rpcMetrics)...)
	hs := s.Register(server)

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.HandlerFor(reg))
		metricsSrv = &http.Server{Addr: cfg.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	log.Info(ctx, "terrain ready",
		logging.String("summit", s.Terrain.Summit().String()),
		logging.Float64("summit_elevation", s.Terrain.Elevation(s.Terrain.Summit())),
		logging.String("robot", s.Robot.Position().String()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("simulation clock: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info(ctx, "serving simulated services", logging.String("addr", lis.Addr().String()))
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
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
		done := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			server.Stop()
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}
