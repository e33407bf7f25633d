// Package graph provides the command inspecting the unit disk graph of a
// sensor network.
package graph

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/records"
	"github.com/tphakala/birdnet-census/internal/runtime"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// Command creates a new graph command
func Command(rt *runtime.Context) *cobra.Command {
	var (
		nodesPath string
		window    string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the hearing graph of a sensor network",
		Long: `Graph builds the unit disk graph of the nodes, lists the triangles whose
nodes share no common hearing area and, with --window, shows how a window of
detecting nodes is alternated and covered by cliques.`,
		Example: `  birdnet-census graph --nodes nodes.csv
  birdnet-census graph --nodes nodes.csv --window 0,1,2,5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeSet, err := records.LoadNodes(nodesPath, records.Options{
				Coordinates: rt.Settings.Input.Coordinates,
				TimeFormat:  rt.Settings.Input.TimeFormat,
			})
			if err != nil {
				return err
			}
			g, err := sensorgraph.Build(nodeSet.Nodes, rt.Settings.Census.HearingRadius)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if err := describeGraph(w, g); err != nil {
				return err
			}
			if window == "" {
				return nil
			}
			ids, err := parseIDs(window)
			if err != nil {
				return err
			}
			return describeWindow(w, g, ids)
		},
	}

	cmd.Flags().StringVarP(&nodesPath, "nodes", "n", "", "CSV file of node positions")
	cmd.Flags().StringVar(&window, "window", "", "Comma separated ids of the nodes detecting in one window")
	_ = cmd.MarkFlagRequired("nodes")

	return cmd
}

func describeGraph(w io.Writer, g *sensorgraph.Graph) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "nodes\t%d\n", g.Len())
	fmt.Fprintf(tw, "edges\t%d\n", g.EdgeCount())
	fmt.Fprintf(tw, "hearing radius\t%g m\n", g.Radius())
	fmt.Fprintf(tw, "triangles\t%d\n", len(g.Triangles()))

	failing := g.FailingTriangles()
	fmt.Fprintf(tw, "triangles without common area\t%d\n", len(failing))
	for _, t := range failing {
		fmt.Fprintf(tw, "\t{%d,%d,%d}\n", t.A, t.B, t.C)
	}

	required := g.RequiresAlternation()
	fmt.Fprintf(tw, "requires alternation\t%t\n", required)
	if required {
		_, removed, err := census.Alternate(g.Full())
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "edges removed from the full graph\t%s\n", orNone(formatEdges(removed)))
	}
	return tw.Flush()
}

func formatEdges(edges []sensorgraph.Edge) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = fmt.Sprintf("%d-%d", e.U, e.V)
	}
	return strings.Join(parts, " ")
}

func describeWindow(w io.Writer, g *sensorgraph.Graph, ids []int64) error {
	sub, err := g.Induce(ids)
	if err != nil {
		return err
	}
	alternated, removed, err := census.Alternate(sub)
	if err != nil {
		return err
	}
	cliques := census.CoverCliques(alternated)

	covers := make([]string, len(cliques))
	for i, c := range cliques {
		covers[i] = "{" + joinIDs(c) + "}"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "window nodes\t%s\n", joinIDs(alternated.Nodes()))
	fmt.Fprintf(tw, "edges removed\t%s\n", orNone(formatEdges(removed)))
	fmt.Fprintf(tw, "cliques\t%s\n", orNone(strings.Join(covers, " ")))
	fmt.Fprintf(tw, "individuals\t%d\n", len(cliques))
	return tw.Flush()
}

func parseIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, errors.InvalidInput("graph", "invalid node id %q", p).
				Context("window", s).
				Build()
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
