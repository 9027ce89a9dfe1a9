package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/peakfinder/internal/config"
	"github.com/signalsfoundry/peakfinder/internal/logging"
)

var flagKeys = map[string]string{
	"config":         "config",
	"listen":         "listen",
	"metrics-listen": "metrics_listen",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"start-x":        "robot.start_x",
	"start-y":        "robot.start_y",
	"speed":          "drive.speed",
	"tick":           "drive.tick",
	"max-leg":        "drive.max_leg",
	"fail-every":     "faults.fail_every",
	"sample-delay":   "faults.sample_delay",
	"tracing":        "tracing.enabled",
}

func newRootCommand() *cobra.Command {
	v := config.NewSimViper()
	def := config.DefaultSim()

	cmd := &cobra.Command{
		Use:           "terrain-sim",
		Short:         "Simulate a robot on hilly terrain behind the peakfinder service interfaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return serve(cmd.Context(), cfg, log)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to a YAML configuration file")
	flags.String("listen", def.Listen, "gRPC address for the simulated services")
	flags.String("metrics-listen", def.MetricsListen, "HTTP address for Prometheus /metrics (empty disables)")
	flags.String("log-level", def.Log.Level, "log level: debug, info, warn, error")
	flags.String("log-format", def.Log.Format, "log format: text or json")
	flags.Float64("start-x", def.Robot.StartX, "initial robot x")
	flags.Float64("start-y", def.Robot.StartY, "initial robot y")
	flags.Float64("speed", def.Drive.Speed, "drive speed in map units per second")
	flags.Duration("tick", def.Drive.Tick, "simulation step")
	flags.Float64("max-leg", def.Drive.MaxLeg, "reject navigation targets farther than this (0 accepts any)")
	flags.Int("fail-every", def.Faults.FailEvery, "fail every Nth elevation sample (0 disables)")
	flags.Duration("sample-delay", def.Faults.SampleDelay, "delay before answering each elevation sample")
	flags.Bool("tracing", def.Tracing.Enabled, "enable OpenTelemetry tracing")

	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			data, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}

func loadConfig(v *viper.Viper) (config.SimConfig, error) {
	if err := config.ReadFile(v, v.GetString("config")); err != nil {
		return config.SimConfig{}, err
	}
	cfg, err := config.Load(v, config.DefaultSim())
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
