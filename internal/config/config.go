// Package config holds the settings for the peakfinder goal server and the
// terrain simulator, and loads them through viper from defaults, an optional
// YAML file, PEAKFINDER_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/observability"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the peakfinder goal server configuration.
type Config struct {
	Listen        string                      `yaml:"listen" mapstructure:"listen"`
	MetricsListen string                      `yaml:"metrics_listen" mapstructure:"metrics_listen"`
	Log           LogConfig                   `yaml:"log" mapstructure:"log"`
	Tracing       observability.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Search        SearchConfig                `yaml:"search" mapstructure:"search"`
	Elevation     ElevationConfig             `yaml:"elevation" mapstructure:"elevation"`
	Navigation    NavigationConfig            `yaml:"navigation" mapstructure:"navigation"`
	Pose          PoseConfig                  `yaml:"pose" mapstructure:"pose"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SearchConfig tunes the controller and goal supervisor.
type SearchConfig struct {
	PollInterval        time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	PreconditionTimeout time.Duration `yaml:"precondition_timeout" mapstructure:"precondition_timeout"`
	MaxIterations       int           `yaml:"max_iterations" mapstructure:"max_iterations"`
	MaxDuration         time.Duration `yaml:"max_duration" mapstructure:"max_duration"`
	GoalHistory         int           `yaml:"goal_history" mapstructure:"goal_history"`
}

// ElevationConfig points at the elevation service.
type ElevationConfig struct {
	Addr          string        `yaml:"addr" mapstructure:"addr"`
	SampleTimeout time.Duration `yaml:"sample_timeout" mapstructure:"sample_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// NavigationConfig points at the navigation service.
type NavigationConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// PoseConfig points at the transform service.
type PoseConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	TargetFrame string        `yaml:"target_frame" mapstructure:"target_frame"`
	SourceFrame string        `yaml:"source_frame" mapstructure:"source_frame"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Default returns the goal server defaults. All three collaborator services
// default to a terrain-sim on localhost.
func Default() Config {
	return Config{
		Listen:        "127.0.0.1:50060",
		MetricsListen: ":9090",
		Log:           LogConfig{Level: "info", Format: "text"},
		Tracing:       observability.DefaultTracingConfig("peakfinder"),
		Search: SearchConfig{
			PollInterval:        100 * time.Millisecond,
			PreconditionTimeout: 2 * time.Second,
			GoalHistory:         64,
		},
		Elevation: ElevationConfig{
			Addr:          "127.0.0.1:50061",
			SampleTimeout: 5 * time.Second,
			PollInterval:  100 * time.Millisecond,
		},
		Navigation: NavigationConfig{
			Addr:           "127.0.0.1:50061",
			RequestTimeout: 2 * time.Second,
		},
		Pose: PoseConfig{
			Addr:        "127.0.0.1:50061",
			TargetFrame: "map",
			SourceFrame: "base_footprint",
			Timeout:     time.Second,
		},
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalid)
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if err := validateTracing(c.Tracing); err != nil {
		return err
	}
	if c.Search.PollInterval <= 0 {
		return fmt.Errorf("%w: search.poll_interval must be positive", ErrInvalid)
	}
	if c.Search.PreconditionTimeout <= 0 {
		return fmt.Errorf("%w: search.precondition_timeout must be positive", ErrInvalid)
	}
	if c.Search.MaxIterations < 0 || c.Search.MaxDuration < 0 {
		return fmt.Errorf("%w: search limits must not be negative", ErrInvalid)
	}
	if c.Search.GoalHistory < 0 {
		return fmt.Errorf("%w: search.goal_history must not be negative", ErrInvalid)
	}
	for name, addr := range map[string]string{
		"elevation.addr":  c.Elevation.Addr,
		"navigation.addr": c.Navigation.Addr,
		"pose.addr":       c.Pose.Addr,
	} {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalid, name)
		}
	}
	if c.Elevation.SampleTimeout <= 0 || c.Elevation.PollInterval <= 0 {
		return fmt.Errorf("%w: elevation timeouts must be positive", ErrInvalid)
	}
	if c.Elevation.PollInterval > c.Elevation.SampleTimeout {
		return fmt.Errorf("%w: elevation.poll_interval exceeds elevation.sample_timeout", ErrInvalid)
	}
	if c.Navigation.RequestTimeout <= 0 {
		return fmt.Errorf("%w: navigation.request_timeout must be positive", ErrInvalid)
	}
	if c.Pose.TargetFrame == "" || c.Pose.SourceFrame == "" {
		return fmt.Errorf("%w: pose frames are required", ErrInvalid)
	}
	if c.Pose.Timeout <= 0 {
		return fmt.Errorf("%w: pose.timeout must be positive", ErrInvalid)
	}
	return nil
}

func (l LogConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, l.Format)
	}
	return nil
}

func validateTracing(t observability.TracingConfig) error {
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0,1]", ErrInvalid)
	}
	switch strings.ToLower(t.Exporter) {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("%w: unsupported tracing exporter %q", ErrInvalid, t.Exporter)
	}
	return nil
}
