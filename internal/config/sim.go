package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/observability"
)

// SimConfig is the terrain-sim configuration.
type SimConfig struct {
	Listen        string                      `yaml:"listen" mapstructure:"listen"`
	MetricsListen string                      `yaml:"metrics_listen" mapstructure:"metrics_listen"`
	Log           LogConfig                   `yaml:"log" mapstructure:"log"`
	Tracing       observability.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Terrain       TerrainConfig               `yaml:"terrain" mapstructure:"terrain"`
	Robot         RobotConfig                 `yaml:"robot" mapstructure:"robot"`
	Drive         DriveConfig                 `yaml:"drive" mapstructure:"drive"`
	Faults        FaultConfig                 `yaml:"faults" mapstructure:"faults"`
}

// TerrainConfig describes the elevation field as a base plus Gaussian hills.
type TerrainConfig struct {
	Base  float64      `yaml:"base" mapstructure:"base"`
	Hills []HillConfig `yaml:"hills" mapstructure:"hills"`
}

// HillConfig is one Gaussian bump.
type HillConfig struct {
	X      float64 `yaml:"x" mapstructure:"x"`
	Y      float64 `yaml:"y" mapstructure:"y"`
	Height float64 `yaml:"height" mapstructure:"height"`
	Sigma  float64 `yaml:"sigma" mapstructure:"sigma"`
}

// RobotConfig places the simulated robot.
type RobotConfig struct {
	StartX float64 `yaml:"start_x" mapstructure:"start_x"`
	StartY float64 `yaml:"start_y" mapstructure:"start_y"`
}

// DriveConfig governs simulated motion.
type DriveConfig struct {
	Speed  float64       `yaml:"speed" mapstructure:"speed"` // map units per second
	Tick   time.Duration `yaml:"tick" mapstructure:"tick"`
	MaxLeg float64       `yaml:"max_leg" mapstructure:"max_leg"` // 0 accepts any distance
}

// FaultConfig injects failures for exercising the controller's abort paths.
type FaultConfig struct {
	// FailEvery makes every Nth elevation sample report failure. 0 disables.
	FailEvery   int           `yaml:"fail_every" mapstructure:"fail_every"`
	SampleDelay time.Duration `yaml:"sample_delay" mapstructure:"sample_delay"`
}

// DefaultSim returns a two-hill terrain with the robot on the lower slope of
// the taller hill.
func DefaultSim() SimConfig {
	return SimConfig{
		Listen:        "127.0.0.1:50061",
		MetricsListen: ":9091",
		Log:           LogConfig{Level: "info", Format: "text"},
		Tracing:       observability.DefaultTracingConfig("terrain-sim"),
		Terrain: TerrainConfig{
			Hills: []HillConfig{
				{X: 1.0, Y: 0.5, Height: 10, Sigma: 0.8},
				{X: -1.5, Y: -1.0, Height: 6, Sigma: 0.5},
			},
		},
		Drive: DriveConfig{
			Speed:  0.5,
			Tick:   20 * time.Millisecond,
			MaxLeg: 1.0,
		},
	}
}

// Validate reports the first setting that cannot work.
func (c SimConfig) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalid)
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if err := validateTracing(c.Tracing); err != nil {
		return err
	}
	for i, h := range c.Terrain.Hills {
		if h.Sigma <= 0 {
			return fmt.Errorf("%w: terrain.hills[%d].sigma must be positive", ErrInvalid, i)
		}
		if math.IsNaN(h.Height) || math.IsInf(h.Height, 0) {
			return fmt.Errorf("%w: terrain.hills[%d].height must be finite", ErrInvalid, i)
		}
	}
	if c.Drive.Speed <= 0 {
		return fmt.Errorf("%w: drive.speed must be positive", ErrInvalid)
	}
	if c.Drive.Tick <= 0 {
		return fmt.Errorf("%w: drive.tick must be positive", ErrInvalid)
	}
	if c.Drive.MaxLeg < 0 {
		return fmt.Errorf("%w: drive.max_leg must not be negative", ErrInvalid)
	}
	if c.Faults.FailEvery < 0 || c.Faults.SampleDelay < 0 {
		return fmt.Errorf("%w: fault settings must not be negative", ErrInvalid)
	}
	return nil
}
