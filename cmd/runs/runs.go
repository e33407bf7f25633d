// Package runs provides commands for browsing census runs stored in the
// SQLite database.
package runs

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-census/internal/datastore"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/runtime"
)

// Command creates a new runs command
func Command(rt *runtime.Context) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse stored census runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database, output.sqlite.path when empty")

	open := func() (*datastore.SQLiteStore, error) {
		path := dbPath
		if path == "" {
			path = rt.Settings.Output.SQLite.Path
		}
		var m *datastore.Metrics
		if rt.Metrics != nil {
			m = rt.Metrics.Datastore
		}
		store := datastore.NewSQLiteStore(path, rt.Settings.Debug, m, nil)
		if err := store.Open(); err != nil {
			return nil, err
		}
		return store, nil
	}

	cmd.AddCommand(
		listCommand(open),
		showCommand(open),
		historyCommand(open),
		deleteCommand(open),
	)
	return cmd
}

type opener func() (*datastore.SQLiteStore, error)

func closeStore(store *datastore.SQLiteStore) {
	if err := store.Close(); err != nil {
		datastore.GetLogger().Warn("closing run store failed", logger.Error(err))
	}
}

func listCommand(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Runs to list, 0 for all")
	return cmd
}

func showCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the estimates and windows of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRun(cmd.OutOrStdout(), run)
		},
	}
}

func historyCommand(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <species-code>",
		Short: "Show the stored estimates of a species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			estimates, err := store.SpeciesHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RECORDED\tRUN\tESTIMATE")
			for _, e := range estimates {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", e.CreatedAt.Local().Format(time.DateTime), e.RunID, e.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Estimates to show, 0 for all")
	return cmd
}

func deleteCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
			return nil
		},
	}
}

func writeRuns(w io.Writer, runs []datastore.CensusRun) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSOURCE\tSPECIES\tINDIVIDUALS")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Source, r.Species, r.Individuals)
	}
	return tw.Flush()
}

func writeRun(w io.Writer, run *datastore.CensusRun) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", run.ID)
	fmt.Fprintf(tw, "started\t%s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "duration\t%s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "source\t%s\n", run.Source)
	fmt.Fprintf(tw, "hearing radius\t%g m\n", run.HearingRadius)
	fmt.Fprintf(tw, "individuals\t%d\n", run.Individuals)

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SPECIES\tESTIMATE")
	for _, e := range run.Estimates {
		fmt.Fprintf(tw, "%s\t%d\n", e.SpeciesCode, e.Count)
	}

	if len(run.WindowResults) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "SPECIES\tWINDOW\tBEGIN\tNODES\tDETECTIONS\tEDGES REMOVED\tCOUNT")
		for i := range run.WindowResults {
			wr := &run.WindowResults[i]
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%d\t%d\n",
				wr.SpeciesCode, wr.WindowIndex, wr.BeginTime.UTC().Format(time.RFC3339),
				strings.ReplaceAll(wr.Nodes, ",", " "), wr.Detections, wr.EdgesRemoved, wr.Count)
		}
	}
	return tw.Flush()
}
