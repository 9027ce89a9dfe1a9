package sim

import (
	"context"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/config"
	"github.com/signalsfoundry/peakfinder/internal/logging"
	"github.com/signalsfoundry/peakfinder/internal/observability"
	"github.com/signalsfoundry/peakfinder/model"
	"github.com/signalsfoundry/peakfinder/timectrl"
)

// Sim wires terrain, robot, clock and services together.
type Sim struct {
	Terrain Terrain
	Robot   *Robot
	Clock   *timectrl.TimeController
	Drive   *Drive

	Elevation  *ElevationService
	Navigation *NavigationService
	Pose       *PoseService
}

// Option configures a Sim.
type Option func(*options)

type options struct {
	log   logging.Logger
	tele  *observability.SimCollector
	mode  timectrl.Mode
	start time.Time
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithTelemetry records simulator metrics into c.
func WithTelemetry(c *observability.SimCollector) Option {
	return func(o *options) { o.tele = c }
}

// WithManualClock makes time advance only through Clock.Step.
func WithManualClock() Option {
	return func(o *options) { o.mode = timectrl.Manual }
}

// New builds a simulator from cfg.
func New(cfg config.SimConfig, opts ...Option) *Sim {
	o := options{log: logging.Noop(), mode: timectrl.RealTime, start: time.Now().UTC()}
	for _, opt := range opts {
		opt(&o)
	}

	terrain := Terrain{Base: cfg.Terrain.Base}
	for _, h := range cfg.Terrain.Hills {
		terrain.Hills = append(terrain.Hills, Hill{
			Center: model.Position{X: h.X, Y: h.Y},
			Height: h.Height,
			Sigma:  h.Sigma,
		})
	}

	robot := NewRobot(model.Position{X: cfg.Robot.StartX, Y: cfg.Robot.StartY})
	clock := timectrl.NewTimeController(o.start, cfg.Drive.Tick, o.mode)
	drive := NewDrive(robot, clock, cfg.Drive.Speed,
		WithMaxLeg(cfg.Drive.MaxLeg),
		WithDriveLogger(o.log),
		WithDriveTelemetry(o.tele),
	)
	o.tele.RobotMoved(robot.Position())

	return &Sim{
		Terrain: terrain,
		Robot:   robot,
		Clock:   clock,
		Drive:   drive,
		Elevation: &ElevationService{
			terrain:   terrain,
			failEvery: int64(cfg.Faults.FailEvery),
			delay:     cfg.Faults.SampleDelay,
			log:       o.log,
			tele:      o.tele,
		},
		Navigation: &NavigationService{drive: drive},
		Pose:       &PoseService{robot: robot, terrain: terrain},
	}
}

// Run advances simulation time until ctx is done.
func (s *Sim) Run(ctx context.Context) error {
	return s.Clock.Run(ctx)
}
