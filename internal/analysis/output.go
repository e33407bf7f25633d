package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/errors"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// WriteResult writes res to w in format. Windows are included when verbose
// is set; the JSON format always includes them.
func WriteResult(w io.Writer, res *census.Result, format string, verbose bool) error {
	var err error
	switch strings.ToLower(format) {
	case "", FormatTable:
		err = writeTable(w, res, verbose)
	case FormatCSV:
		err = writeCSV(w, res)
	case FormatJSON:
		err = writeJSON(w, res)
	default:
		return errors.InvalidInput(componentName, "unknown output format %q", format).
			Context("format", format).
			Build()
	}
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("format", format).
			Build()
	}
	return nil
}

func writeTable(w io.Writer, res *census.Result, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SPECIES\tESTIMATE\tWINDOWS\n")
	for _, code := range res.Species() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", code, res.Estimate(code), len(res.WindowsFor(code)))
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\n", res.Total(), len(res.Windows))
	if err := tw.Flush(); err != nil {
		return err
	}

	if !verbose {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SPECIES\tWINDOW\tBEGIN\tEND\tNODES\tREMOVED\tCLIQUES\n")
	for i := range res.Windows {
		win := &res.Windows[i]
		removed := make([]string, len(win.EdgesRemoved))
		for j, e := range win.EdgesRemoved {
			removed[j] = fmt.Sprintf("%d-%d", e.U, e.V)
		}
		cliques := make([]string, len(win.Cliques))
		for j, c := range win.Cliques {
			cliques[j] = "{" + joinInts(c, ",") + "}"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			win.Species, win.Index,
			win.Begin.UTC().Format(time.RFC3339Nano), win.End.UTC().Format(time.RFC3339Nano),
			joinInts(win.Nodes, ","), strings.Join(removed, " "), strings.Join(cliques, " "))
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, res *census.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"species_code", "estimate", "windows", "run_id"}); err != nil {
		return err
	}
	for _, code := range res.Species() {
		row := []string{
			code,
			strconv.Itoa(res.Estimate(code)),
			strconv.Itoa(len(res.WindowsFor(code))),
			res.RunID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonWindow struct {
	Species      string     `json:"species"`
	Index        int        `json:"index"`
	Begin        time.Time  `json:"begin"`
	End          time.Time  `json:"end"`
	Nodes        []int64    `json:"nodes"`
	Detections   int        `json:"detections"`
	EdgesRemoved [][2]int64 `json:"edgesRemoved"`
	Cliques      [][]int64  `json:"cliques"`
	Count        int        `json:"count"`
}

type jsonResult struct {
	RunID         string         `json:"runId"`
	StartedAt     time.Time      `json:"startedAt"`
	DurationMs    float64        `json:"durationMs"`
	HearingRadius float64        `json:"hearingRadius"`
	Estimates     map[string]int `json:"estimates"`
	Total         int            `json:"total"`
	Windows       []jsonWindow   `json:"windows"`
}

func writeJSON(w io.Writer, res *census.Result) error {
	out := jsonResult{
		RunID:         res.RunID,
		StartedAt:     res.StartedAt.UTC(),
		DurationMs:    float64(res.Duration) / float64(time.Millisecond),
		HearingRadius: res.Radius,
		Estimates:     res.Estimates,
		Total:         res.Total(),
		Windows:       make([]jsonWindow, len(res.Windows)),
	}
	for i := range res.Windows {
		win := &res.Windows[i]
		edges := make([][2]int64, len(win.EdgesRemoved))
		for j, e := range win.EdgesRemoved {
			edges[j] = [2]int64{e.U, e.V}
		}
		out.Windows[i] = jsonWindow{
			Species:      win.Species,
			Index:        win.Index,
			Begin:        win.Begin.UTC(),
			End:          win.End.UTC(),
			Nodes:        win.Nodes,
			Detections:   win.Detections,
			EdgesRemoved: edges,
			Cliques:      win.Cliques,
			Count:        win.Count,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func joinInts(ids []int64, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, sep)
}
