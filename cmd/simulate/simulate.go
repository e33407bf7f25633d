// Package simulate provides the command running the census over generated
// sensor layouts with known populations.
package simulate

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-census/internal/analysis"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/runtime"
	"github.com/tphakala/birdnet-census/internal/scenario"
)

type options struct {
	layout   string
	scenario string
	out      string
	format   string
	verbose  bool
	seed     uint64
	species  []string
	minSongs int
	maxSongs int
	duration time.Duration
	xRows    int
	yRows    int
	nodes    int
	sqlite   bool
	mqtt     bool
}

// Command creates a new simulate command
func Command(rt *runtime.Context) *cobra.Command {
	opts := &options{}
	defaults := analysis.DefaultSimulationConfig()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the census over a simulated sensor network",
		Long: `Simulate places nodes in a diamond or random layout, lets birds of known
species sing at random positions and compares the census estimates with the
true number of birds.`,
		Example: `  birdnet-census simulate --layout diamond --species comcha=3 --seed 42
  birdnet-census simulate --layout random --nodes 20 --out scenario.yaml
  birdnet-census simulate --scenario scenario.yaml`,
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

	cmd.Flags().StringVarP(&opts.layout, "layout", "l", defaults.Layout, "Node layout: diamond, random or bestcase")
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "Load a saved scenario instead of generating one")
	cmd.Flags().StringVar(&opts.out, "out", "", "Save the generated scenario as YAML")
	cmd.Flags().StringVarP(&opts.format, "format", "f", analysis.FormatTable, "Output format: table, csv or json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Include per window details in table output")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed of the layout and song generators")
	cmd.Flags().StringArrayVar(&opts.species, "species", nil, "Population as code=birds, repeatable")
	cmd.Flags().IntVar(&opts.minSongs, "min-songs", defaults.Generate.Populations[0].MinSongs, "Minimum songs per bird")
	cmd.Flags().IntVar(&opts.maxSongs, "max-songs", defaults.Generate.Populations[0].MaxSongs, "Maximum songs per bird")
	cmd.Flags().DurationVar(&opts.duration, "duration", defaults.Generate.End.Sub(defaults.Generate.Begin), "Length of the simulated period")
	cmd.Flags().IntVar(&opts.xRows, "x-rows", defaults.Diamond.XRows, "Columns of the diamond layout")
	cmd.Flags().IntVar(&opts.yRows, "y-rows", defaults.Diamond.YRows, "Rows of the diamond layout")
	cmd.Flags().IntVar(&opts.nodes, "nodes", defaults.Random.N, "Nodes in the random layout")
	cmd.Flags().BoolVar(&opts.sqlite, "sqlite", false, "Store the run in the SQLite database")
	cmd.Flags().BoolVar(&opts.mqtt, "mqtt", false, "Publish the estimates to the MQTT broker")

	return cmd
}

func run(cmd *cobra.Command, rt *runtime.Context, opts *options) error {
	s, err := loadScenario(rt, opts)
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := scenario.Save(opts.out, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "scenario saved to %s\n", opts.out)
	}

	sinks, closeSinks, err := analysis.OpenSinks(rt.Settings, rt.Metrics)
	if err != nil {
		return err
	}
	defer closeSinks()

	sim, simErr := analysis.Simulate(cmd.Context(), rt.Settings, s, rt.Metrics, sinks...)
	if sim == nil {
		return simErr
	}

	w := cmd.OutOrStdout()
	if err := analysis.WriteResult(w, sim.Result, opts.format, opts.verbose); err != nil {
		return err
	}
	if opts.format == analysis.FormatTable {
		if err := writeEvaluation(w, sim.Evaluation); err != nil {
			return err
		}
	}
	return simErr
}

func loadScenario(rt *runtime.Context, opts *options) (*scenario.Scenario, error) {
	if opts.scenario != "" {
		return scenario.Load(opts.scenario)
	}

	cfg := analysis.DefaultSimulationConfig()
	cfg.Layout = opts.layout
	cfg.Diamond.XRows = opts.xRows
	cfg.Diamond.YRows = opts.yRows
	cfg.Diamond.Seed = opts.seed
	cfg.Random.N = opts.nodes
	cfg.Random.Seed = opts.seed
	cfg.Generate.Seed = opts.seed
	cfg.Generate.End = cfg.Generate.Begin.Add(opts.duration)

	populations, err := parsePopulations(opts.species, opts.minSongs, opts.maxSongs)
	if err != nil {
		return nil, err
	}
	if len(populations) > 0 {
		cfg.Generate.Populations = populations
	} else {
		cfg.Generate.Populations[0].MinSongs = opts.minSongs
		cfg.Generate.Populations[0].MaxSongs = opts.maxSongs
	}

	return analysis.BuildScenario(rt.Settings, cfg)
}

// parsePopulations parses code=birds pairs.
func parsePopulations(values []string, minSongs, maxSongs int) ([]scenario.Population, error) {
	out := make([]scenario.Population, 0, len(values))
	for _, v := range values {
		code, birds, ok := strings.Cut(v, "=")
		code = strings.TrimSpace(code)
		n, err := strconv.Atoi(strings.TrimSpace(birds))
		if !ok || code == "" || err != nil || n < 0 {
			return nil, errors.InvalidInput("simulate", "invalid population %q, expected code=birds", v).
				Context("value", v).
				Build()
		}
		out = append(out, scenario.Population{Species: code, Birds: n, MinSongs: minSongs, MaxSongs: maxSongs})
	}
	return out, nil
}

func writeEvaluation(w io.Writer, ev scenario.Evaluation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SPECIES\tTRUTH\tESTIMATE\tERROR")
	for _, se := range ev.Species {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%+d\n", se.Species, se.Truth, se.Estimate, se.Error)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "mean absolute error\t%.3f\n", ev.MeanAbsoluteError)
	fmt.Fprintf(tw, "mean signed error\t%+.3f\n", ev.MeanSignedError)
	fmt.Fprintf(tw, "error std dev\t%.3f\n", ev.StdDevError)
	fmt.Fprintf(tw, "accuracy\t%.1f%%\n", 100*ev.AccuracyRate)
	return tw.Flush()
}
