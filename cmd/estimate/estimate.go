// Package estimate provides the command estimating species abundance from
// node and detection files.
package estimate

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-census/internal/analysis"
	"github.com/tphakala/birdnet-census/internal/runtime"
)

type options struct {
	nodes      string
	detections string
	format     string
	output     string
	verbose    bool
	sqlite     bool
	mqtt       bool
}

// Command creates a new estimate command
func Command(rt *runtime.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the number of birds per species",
		Long: `Estimate reads node positions and timestamped detections, groups the
detections of every species into classification windows and reports the
largest number of individuals heard in any window.`,
		Example: `  birdnet-census estimate --nodes nodes.csv --detections detections.csv
  birdnet-census estimate -n nodes.csv -i detections.csv --format json --sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sqlite") {
				rt.Settings.Output.SQLite.Enabled = opts.sqlite
			}
			if cmd.Flags().Changed("mqtt") {
				rt.Settings.Output.MQTT.Enabled = opts.mqtt
			}
			return run(cmd, rt, opts)
		},
	}

	if err := setupFlags(cmd, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
	}

	return cmd
}

func run(cmd *cobra.Command, rt *runtime.Context, opts *options) error {
	in, err := analysis.LoadInput(rt.Settings, opts.nodes, opts.detections)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := analysis.OpenSinks(rt.Settings, rt.Metrics)
	if err != nil {
		return err
	}
	defer closeSinks()

	res, runErr := analysis.Run(cmd.Context(), rt.Settings, in, rt.Metrics, sinks...)
	if res == nil {
		return runErr
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := analysis.WriteResult(w, res, opts.format, opts.verbose); err != nil {
		return err
	}

	// The result is still printed when a sink fails.
	return runErr
}

func setupFlags(cmd *cobra.Command, opts *options) error {
	cmd.Flags().StringVarP(&opts.nodes, "nodes", "n", "", "CSV file of node positions")
	cmd.Flags().StringVarP(&opts.detections, "detections", "i", "", "CSV file of detections")
	cmd.Flags().StringVarP(&opts.format, "format", "f", analysis.FormatTable, "Output format: table, csv or json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Include per window details in table output")
	cmd.Flags().BoolVar(&opts.sqlite, "sqlite", false, "Store the run in the SQLite database")
	cmd.Flags().BoolVar(&opts.mqtt, "mqtt", false, "Publish the estimates to the MQTT broker")

	for _, name := range []string{"nodes", "detections"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			return fmt.Errorf("error marking %s required: %w", name, err)
		}
	}
	return nil
}
