// Package navigation adapts the navigation gRPC service to the search
// controller's Navigator.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/internal/search"
	"github.com/signalsfoundry/peakfinder/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultRequestTimeout bounds the submit and cancel calls.
const DefaultRequestTimeout = 2 * time.Second

// pollGrace is how far past its timeout a Poll call may run before it gives
// up on the service and reports the request as still pending.
const pollGrace = 250 * time.Millisecond

var (
	// ErrUnavailable means the service could not be reached.
	ErrUnavailable = errors.New("navigation service unavailable")
	// ErrBusy is returned by GoTo while a request is still outstanding.
	ErrBusy = errors.New("navigation request already outstanding")
	// ErrNoRequest is returned by Poll when nothing is outstanding.
	ErrNoRequest = errors.New("no outstanding navigation request")
	// ErrRejected is search.ErrNavigationRejected.
	ErrRejected = search.ErrNavigationRejected
)

// Client drives one robot through the navigation service. At most one
// request is outstanding at a time.
type Client struct {
	cc             grpc.ClientConnInterface
	rpc            *rpc.NavigationClient
	frameID        string
	requestTimeout time.Duration
	log            logging.Logger

	mu          sync.Mutex
	outstanding string
}

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout bounds NavigateToPoint and CancelNavigation calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithFrame sets the frame targets are expressed in.
func WithFrame(frameID string) Option {
	return func(c *Client) {
		if frameID != "" {
			c.frameID = frameID
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
		cc:             cc,
		rpc:            rpc.NewNavigationClient(cc),
		frameID:        model.MapFrame,
		requestTimeout: DefaultRequestTimeout,
		log:            logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether the navigation service is up and serving.
func (c *Client) Ready(ctx context.Context) error {
	if err := rpc.CheckServing(ctx, c.cc, rpc.NavigationServiceName); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GoTo submits a navigation request to target. When the submit times out
// GoTo asks the service to cancel whatever it is running, since the request
// may have been accepted.
func (c *Client) GoTo(ctx context.Context, target model.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outstanding != "" {
		return fmt.Errorf("%w: %s", ErrBusy, c.outstanding)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	resp, err := c.rpc.NavigateToPoint(callCtx, &rpc.NavigateToPointRequest{
		FrameID: c.frameID,
		X:       target.X,
		Y:       target.Y,
	})
	if err != nil {
		if code := status.Code(err); code == codes.DeadlineExceeded || code == codes.Canceled {
			c.cancelUnknown(ctx)
		}
		return c.mapError("navigate to point", err)
	}
	if !resp.Accepted {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	if resp.RequestID == "" {
		return fmt.Errorf("navigation accepted without a request id")
	}
	c.outstanding = resp.RequestID
	c.log.Debug(ctx, "navigation accepted",
		logging.String("nav_request_id", resp.RequestID),
		logging.Any("target", target.String()),
	)
	return nil
}

// Poll waits up to timeout for the outstanding request to finish and returns
// its status. NavigationPending means it is still running, which is also what
// Poll reports when the service does not answer shortly after timeout.
func (c *Client) Poll(ctx context.Context, timeout time.Duration) (model.NavigationStatus, error) {
	c.mu.Lock()
	id := c.outstanding
	c.mu.Unlock()
	if id == "" {
		return model.NavigationFailed, ErrNoRequest
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout+pollGrace)
	defer cancel()
	resp, err := c.rpc.WaitResult(callCtx, &rpc.WaitResultRequest{
		RequestID: id,
		TimeoutMS: timeout.Milliseconds(),
	})
	if err != nil {
		if ctx.Err() == nil && status.Code(err) == codes.DeadlineExceeded {
			c.log.Debug(ctx, "navigation status wait overran its timeout",
				logging.String("nav_request_id", id))
			return model.NavigationPending, nil
		}
		return model.NavigationFailed, c.mapError("wait for navigation result", err)
	}

	st := model.ParseNavigationStatus(resp.Status)
	if st != model.NavigationPending {
		c.mu.Lock()
		if c.outstanding == id {
			c.outstanding = ""
		}
		c.mu.Unlock()
	}
	return st, nil
}

// Cancel stops the outstanding request. It is a no-op when nothing is
// outstanding. The request is forgotten even if the service call fails.
func (c *Client) Cancel(ctx context.Context) error {
	c.mu.Lock()
	id := c.outstanding
	c.outstanding = ""
	c.mu.Unlock()
	if id == "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	resp, err := c.rpc.CancelNavigation(callCtx, &rpc.CancelNavigationRequest{RequestID: id})
	if err != nil {
		return c.mapError("cancel navigation", err)
	}
	c.log.Debug(ctx, "navigation cancel sent",
		logging.String("nav_request_id", id),
		logging.Bool("canceled", resp.Canceled),
	)
	return nil
}

// cancelUnknown stops whatever request the service is running after a submit
// whose outcome is unknown. The service may have accepted the request without
// the id reaching us.
func (c *Client) cancelUnknown(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout)
	defer cancel()
	if _, err := c.rpc.CancelNavigation(callCtx, &rpc.CancelNavigationRequest{}); err != nil {
		c.log.Warn(ctx, "failed to cancel navigation after unanswered submit", logging.Err(err))
	}
}

// Outstanding returns the id of the running request, if any.
func (c *Client) Outstanding() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding, c.outstanding != ""
}

func (c *Client) mapError(op string, err error) error {
	if status.Code(err) == codes.Unavailable {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
