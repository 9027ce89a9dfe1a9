package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/peakfinder/internal/config"
	"github.com/signalsfoundry/peakfinder/internal/logging"
)

// flagKeys maps serve flags onto configuration keys.
var flagKeys = map[string]string{
	"listen":               "listen",
	"metrics-listen":       "metrics_listen",
	"log-level":            "log.level",
	"log-format":           "log.format",
	"elevation-addr":       "elevation.addr",
	"navigation-addr":      "navigation.addr",
	"pose-addr":            "pose.addr",
	"poll-interval":        "search.poll_interval",
	"precondition-timeout": "search.precondition_timeout",
	"max-iterations":       "search.max_iterations",
	"max-duration":         "search.max_duration",
	"goal-history":         "search.goal_history",
	"tracing":              "tracing.enabled",
	"tracing-exporter":     "tracing.exporter",
}

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	def := config.Default()

	cmd := &cobra.Command{
		Use:           "peakfinder",
		Short:         "Drive a robot to the nearest local elevation peak",
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

	pflags := cmd.PersistentFlags()
	pflags.String("config", "", "path to a YAML configuration file")
	pflags.String("log-level", def.Log.Level, "log level: debug, info, warn, error")
	pflags.String("log-format", def.Log.Format, "log format: text or json")
	bind(v, pflags, "config", "config")

	flags := cmd.Flags()
	flags.String("listen", def.Listen, "gRPC address for the goal API")
	flags.String("metrics-listen", def.MetricsListen, "HTTP address for Prometheus /metrics (empty disables)")
	flags.String("elevation-addr", def.Elevation.Addr, "elevation service address")
	flags.String("navigation-addr", def.Navigation.Addr, "navigation service address")
	flags.String("pose-addr", def.Pose.Addr, "pose service address")
	flags.Duration("poll-interval", def.Search.PollInterval, "how long each navigation poll waits")
	flags.Duration("precondition-timeout", def.Search.PreconditionTimeout, "bound on the readiness checks before a goal starts")
	flags.Int("max-iterations", def.Search.MaxIterations, "abort after this many sampling rounds (0 is unbounded)")
	flags.Duration("max-duration", def.Search.MaxDuration, "abort a goal running longer than this (0 is unbounded)")
	flags.Int("goal-history", def.Search.GoalHistory, "finished goals kept for status queries")
	flags.Bool("tracing", def.Tracing.Enabled, "enable OpenTelemetry tracing")
	flags.String("tracing-exporter", def.Tracing.Exporter, "trace exporter: stdout or otlp")

	for name, key := range flagKeys {
		set := flags
		if set.Lookup(name) == nil {
			set = pflags
		}
		bind(v, set, name, key)
	}

	cmd.AddCommand(
		newConfigCommand(v),
		newParkCommand(),
		newCancelCommand(),
		newStatusCommand(),
		newListCommand(),
	)
	return cmd
}

func bind(v *viper.Viper, set *pflag.FlagSet, name, key string) {
	flag := set.Lookup(name)
	if flag == nil {
		panic(fmt.Sprintf("flag %q not found", name))
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func loadConfig(v *viper.Viper) (config.Config, error) {
	if err := config.ReadFile(v, v.GetString("config")); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(v, config.Default())
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newConfigCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
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
	}
}
