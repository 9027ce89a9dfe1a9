package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/observability"
	"github.com/signalsfoundry/peakfinder/model"
	"github.com/signalsfoundry/peakfinder/timectrl"
)

var (
	// ErrDriveBusy indicates another navigation request is still running.
	ErrDriveBusy = errors.New("navigation already in progress")
	// ErrTargetTooFar indicates the target exceeds the maximum leg length.
	ErrTargetTooFar = errors.New("target beyond maximum leg length")
	// ErrInvalidTarget indicates a non-finite target.
	ErrInvalidTarget = errors.New("target is not finite")
	// ErrUnknownRequest indicates a request id the drive never issued or
	// has already forgotten.
	ErrUnknownRequest = errors.New("unknown navigation request")
)

// legHistory bounds how many finished requests stay queryable.
const legHistory = 32

// Leg is a snapshot of one navigation request.
type Leg struct {
	ID       string
	Target   model.Position
	Status   model.NavigationStatus
	Started  time.Time
	Finished time.Time
}

type leg struct {
	Leg
	done chan struct{}
}

// Drive moves the robot toward one target at a time, advanced by the
// simulation clock.
type Drive struct {
	robot  *Robot
	clock  timectrl.Clock
	speed  float64
	maxLeg float64
	log    logging.Logger
	tele   *observability.SimCollector

	mu     sync.Mutex
	active *leg
	legs   map[string]*leg
	order  []string
}

// DriveOption configures a Drive.
type DriveOption func(*Drive)

// WithMaxLeg rejects targets farther than d from the robot. 0 disables.
func WithMaxLeg(d float64) DriveOption {
	return func(dr *Drive) { dr.maxLeg = d }
}

// WithDriveLogger sets the logger.
func WithDriveLogger(log logging.Logger) DriveOption {
	return func(dr *Drive) {
		if log != nil {
			dr.log = log
		}
	}
}

// WithDriveTelemetry records leg outcomes and robot motion.
func WithDriveTelemetry(c *observability.SimCollector) DriveOption {
	return func(dr *Drive) { dr.tele = c }
}

// NewDrive returns a drive moving robot at speed map units per simulated
// second. It subscribes to tc so every tick advances the active leg.
func NewDrive(robot *Robot, tc *timectrl.TimeController, speed float64, opts ...DriveOption) *Drive {
	d := &Drive{
		robot: robot,
		clock: tc,
		speed: speed,
		log:   logging.Noop(),
		legs:  make(map[string]*leg),
	}
	for _, opt := range opts {
		opt(d)
	}
	tc.AddListener(d.advance)
	return d
}

// Submit starts a navigation request to target and returns its id.
func (d *Drive) Submit(target model.Position) (string, error) {
	if !target.IsFinite() {
		return "", ErrInvalidTarget
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return "", fmt.Errorf("%w: %s", ErrDriveBusy, d.active.ID)
	}
	if dist := d.robot.Position().DistanceTo(target); d.maxLeg > 0 && dist > d.maxLeg {
		return "", fmt.Errorf("%w: %.3f > %.3f", ErrTargetTooFar, dist, d.maxLeg)
	}

	l := &leg{
		Leg: Leg{
			ID:      xid.New().String(),
			Target:  target,
			Status:  model.NavigationPending,
			Started: d.clock.Now(),
		},
		done: make(chan struct{}),
	}
	d.active = l
	d.legs[l.ID] = l
	d.order = append(d.order, l.ID)
	d.pruneLocked()

	d.log.Debug(context.Background(), "navigation started",
		logging.String("nav_request_id", l.ID),
		logging.String("target", target.String()),
	)
	return l.ID, nil
}

// Wait blocks up to timeout for request id to finish and returns its status.
// A request still running when the timeout elapses reports
// NavigationPending.
func (d *Drive) Wait(ctx context.Context, id string, timeout time.Duration) (model.NavigationStatus, error) {
	d.mu.Lock()
	l, ok := d.legs[id]
	if !ok {
		d.mu.Unlock()
		return model.NavigationFailed, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	status, done := l.Status, l.done
	d.mu.Unlock()
	if status != model.NavigationPending {
		return status, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
		return model.NavigationPending, ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return l.Status, nil
}

// Cancel stops request id. It reports false when the request had already
// finished. An empty id cancels whichever request is running.
func (d *Drive) Cancel(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" {
		if d.active == nil {
			return false, nil
		}
		d.finishLocked(d.active, model.NavigationCanceled)
		return true, nil
	}
	l, ok := d.legs[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	if l.Status != model.NavigationPending {
		return false, nil
	}
	d.finishLocked(l, model.NavigationCanceled)
	return true, nil
}

// Active returns the running request, if any.
func (d *Drive) Active() (Leg, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return Leg{}, false
	}
	return d.active.Leg, true
}

// Lookup returns a snapshot of request id.
func (d *Drive) Lookup(id string) (Leg, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.legs[id]
	if !ok {
		return Leg{}, false
	}
	return l.Leg, true
}

func (d *Drive) advance(_ time.Time, dt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return
	}
	arrived := d.robot.stepToward(d.active.Target, d.speed*dt.Seconds())
	d.tele.RobotMoved(d.robot.Position())
	if arrived {
		d.finishLocked(d.active, model.NavigationSucceeded)
	}
}

func (d *Drive) finishLocked(l *leg, status model.NavigationStatus) {
	l.Status = status
	l.Finished = d.clock.Now()
	close(l.done)
	if d.active == l {
		d.active = nil
	}
	d.tele.LegFinished(status)
	d.log.Debug(context.Background(), "navigation finished",
		logging.String("nav_request_id", l.ID),
		logging.String("status", status.String()),
	)
}

func (d *Drive) pruneLocked() {
	for len(d.order) > legHistory {
		id := d.order[0]
		if l := d.legs[id]; l != nil && l == d.active {
			return
		}
		delete(d.legs, id)
		d.order = d.order[1:]
	}
}
