// Package elevation adapts the elevation gRPC service to the search
// controller's ElevationSampler.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/internal/search"
	"github.com/signalsfoundry/peakfinder/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultSampleTimeout = 5 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
)

var (
	// ErrUnavailable means the service could not be reached.
	ErrUnavailable = errors.New("elevation service unavailable")
	// ErrTimeout means no answer arrived within the sample timeout.
	ErrTimeout = errors.New("elevation sample timed out")
	// ErrRefused means the service answered with success=false.
	ErrRefused = errors.New("elevation service reported failure")
	// ErrInvalidElevation means the service returned a non-finite value.
	ErrInvalidElevation = errors.New("elevation is not a finite number")
	// ErrCanceled is search.ErrCanceled so the controller can recognise it.
	ErrCanceled = search.ErrCanceled
)

// Client samples elevation over gRPC. It never retries; retry policy belongs
// to the caller.
type Client struct {
	cc            grpc.ClientConnInterface
	rpc           *rpc.ElevationClient
	sampleTimeout time.Duration
	pollInterval  time.Duration
	log           logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSampleTimeout bounds each sample request.
func WithSampleTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.sampleTimeout = d
		}
	}
}

// WithPollInterval sets how often a pending sample logs that it is still
// waiting.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a client over cc.
func New(cc grpc.ClientConnInterface, opts ...Option) *Client {
	c := &Client{
		cc:            cc,
		rpc:           rpc.NewElevationClient(cc),
		sampleTimeout: DefaultSampleTimeout,
		pollInterval:  DefaultPollInterval,
		log:           logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether the elevation service is up and serving.
func (c *Client) Ready(ctx context.Context) error {
	if err := rpc.CheckServing(ctx, c.cc, rpc.ElevationServiceName); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type sampleResult struct {
	resp *rpc.SampleElevationResponse
	err  error
}

// Sample requests the elevation at the given position. It returns
// ErrCanceled as soon as cancel is closed, abandoning the in-flight request.
func (c *Client) Sample(ctx context.Context, at model.Position, cancel <-chan struct{}) (float64, error) {
	callCtx, stop := context.WithTimeout(ctx, c.sampleTimeout)
	defer stop()

	done := make(chan sampleResult, 1)
	go func() {
		resp, err := c.rpc.SampleElevation(callCtx, &rpc.SampleElevationRequest{X: at.X, Y: at.Y})
		done <- sampleResult{resp: resp, err: err}
	}()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	started := time.Now()

	for {
		select {
		case res := <-done:
			if res.err != nil {
				return 0, c.mapError(ctx, res.err)
			}
			return checkResponse(res.resp)
		case <-cancel:
			return 0, ErrCanceled
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			c.log.Debug(ctx, "waiting for elevation sample",
				logging.Any("position", at.String()),
				logging.Duration("waited", time.Since(started)),
			)
		}
	}
}

func (c *Client) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w after %s", ErrTimeout, c.sampleTimeout)
	case codes.Unavailable:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return fmt.Errorf("sample elevation: %w", err)
	}
}

func checkResponse(resp *rpc.SampleElevationResponse) (float64, error) {
	if resp == nil || !resp.Success {
		msg := ""
		if resp != nil {
			msg = resp.Message
		}
		if msg == "" {
			return 0, ErrRefused
		}
		return 0, fmt.Errorf("%w: %s", ErrRefused, msg)
	}
	if math.IsNaN(resp.Elevation) || math.IsInf(resp.Elevation, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidElevation, resp.Elevation)
	}
	return resp.Elevation, nil
}
