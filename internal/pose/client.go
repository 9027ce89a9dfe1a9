// Package pose resolves the robot's position in the map frame through the
// transform gRPC service.
package pose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/model"
	"google.golang.org/grpc"
)

const (
	DefaultTargetFrame = model.MapFrame
	DefaultSourceFrame = "base_footprint"
	DefaultTimeout     = time.Second
	// LatestTime asks for the most recent transform available.
	LatestTime = "latest"
)

// ErrUnresolvable wraps the transform service's diagnostic when the robot's
// position cannot be looked up.
var ErrUnresolvable = errors.New("robot position unresolvable")

// Client looks up SourceFrame in TargetFrame.
type Client struct {
	rpc         *rpc.PoseClient
	targetFrame string
	sourceFrame string
	timeout     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithFrames overrides the target and source frames.
func WithFrames(target, source string) Option {
	return func(c *Client) {
		if target != "" {
			c.targetFrame = target
		}
		if source != "" {
			c.sourceFrame = source
		}
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New returns a client over cc.
func New(cc grpc.ClientConnInterface, opts ...Option) *Client {
	c := &Client{
		rpc:         rpc.NewPoseClient(cc),
		targetFrame: DefaultTargetFrame,
		sourceFrame: DefaultSourceFrame,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentPosition returns the robot's planar position in the target frame.
func (c *Client) CurrentPosition(ctx context.Context) (model.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.rpc.LookupTransform(ctx, &rpc.LookupTransformRequest{
		TargetFrame: c.targetFrame,
		SourceFrame: c.sourceFrame,
		Time:        LatestTime,
	})
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: lookup %s->%s: %v", ErrUnresolvable, c.targetFrame, c.sourceFrame, err)
	}
	if !resp.Success {
		return model.Position{}, fmt.Errorf("%w: %s", ErrUnresolvable, resp.Message)
	}
	pos := model.Position{X: resp.X, Y: resp.Y}
	if !pos.IsFinite() {
		return model.Position{}, fmt.Errorf("%w: non-finite translation %s", ErrUnresolvable, pos)
	}
	return pos, nil
}
