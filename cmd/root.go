// Package cmd assembles the birdnet-census command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-census/cmd/configure"
	"github.com/tphakala/birdnet-census/cmd/estimate"
	"github.com/tphakala/birdnet-census/cmd/graph"
	"github.com/tphakala/birdnet-census/cmd/runs"
	"github.com/tphakala/birdnet-census/cmd/simulate"
	"github.com/tphakala/birdnet-census/internal/conf"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/observability"
	"github.com/tphakala/birdnet-census/internal/runtime"
	"github.com/tphakala/birdnet-census/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(rt *runtime.Context) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "birdnet-census",
		Short:         "Estimate bird abundance from a wireless acoustic sensor network",
		Version:       rt.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml, searched in the default locations when empty")
	if err := setupFlags(rootCmd); err != nil {
		panic(err)
	}

	subcommands := []*cobra.Command{
		estimate.Command(rt),
		simulate.Command(rt),
		graph.Command(rt),
		runs.Command(rt),
		configure.Command(rt),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// --sequential inverts census.parallel
		if cmd.Flags().Changed("sequential") {
			sequential, _ := cmd.Flags().GetBool("sequential")
			viper.Set("census.parallel", !sequential)
		}

		settings, err := conf.LoadFile(configPath)
		if err != nil {
			return err
		}
		rt.Settings = settings
		return initialize(cmd.Context(), rt)
	}

	return rootCmd
}

// initialize is called before any subcommand runs, after the settings are
// loaded. It sets up logging, error reporting and metrics; the matching
// cleanup is registered on rt.
func initialize(ctx context.Context, rt *runtime.Context) error {
	settings := rt.Settings
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(centralLogger)
	rt.OnShutdown(func() {
		if err := centralLogger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
		}
	})

	closeTelemetry, err := telemetry.Init(settings, rt.Build)
	if err != nil {
		return err
	}
	rt.OnShutdown(closeTelemetry)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	rt.Metrics = metrics

	if settings.Metrics.Enabled {
		if ctx == nil {
			ctx = context.Background()
		}
		endpointCtx, cancel := context.WithCancel(ctx)
		endpoint := observability.NewEndpoint(settings.Metrics.Listen, metrics)
		done, err := endpoint.Start(endpointCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
		rt.OnShutdown(func() {
			cancel()
			<-done
		})
	}

	return nil
}

// setupFlags defines flags that are global to the command line interface and
// binds them to their configuration keys.
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.Float64P("radius", "r", conf.DefaultHearingRadius, "Hearing radius of every node in meters")
	flags.String("coords", conf.CoordinatesPlanar, "Node coordinates: 2d (x,y in meters) or geo (lat,lon)")
	flags.String("time-format", "", "Go time layout of detection timestamps, RFC 3339 when empty")
	flags.Int("workers", 0, "Species estimated concurrently, 0 for one per CPU")
	flags.Bool("sequential", false, "Estimate species one after another")
	flags.String("log-level", logger.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.Bool("metrics", false, "Serve Prometheus metrics while the command runs")
	flags.String("metrics-listen", conf.DefaultMetricsListen, "Address of the metrics endpoint")

	bindings := map[string]string{
		"debug":          "debug",
		"radius":         "census.hearingradius",
		"coords":         "input.coordinates",
		"time-format":    "input.timeformat",
		"workers":        "census.workers",
		"log-level":      "logging.console.level",
		"metrics":        "metrics.enabled",
		"metrics-listen": "metrics.listen",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}
