package census

import (
	"slices"
	"time"

	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

// WindowResult is the outcome of counting one detection window.
type WindowResult struct {
	Species      string
	Index        int // Position in the species' window sequence
	Begin        time.Time
	End          time.Time
	Nodes        []int64            // Distinct detecting nodes, ascending
	Detections   int                // Detections merged into the window
	EdgesRemoved []sensorgraph.Edge // Alternation removals, in removal order
	Cliques      [][]int64          // Clique cover, in removal order
	Count        int                // Individuals counted, len(Cliques)
}

// Result is the outcome of one estimation run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Radius    float64

	// Estimates maps species code to the maximum window count of that species.
	Estimates map[string]int

	// Windows are ordered by species code, then window index.
	Windows []WindowResult
}

// Species returns the estimated species codes in ascending order.
func (r *Result) Species() []string {
	codes := make([]string, 0, len(r.Estimates))
	for code := range r.Estimates {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Estimate returns the estimate for a species; species without detections
// count as zero.
func (r *Result) Estimate(species string) int {
	return r.Estimates[species]
}

// WindowsFor returns the window results of one species.
func (r *Result) WindowsFor(species string) []WindowResult {
	var out []WindowResult
	for i := range r.Windows {
		if r.Windows[i].Species == species {
			out = append(out, r.Windows[i])
		}
	}
	return out
}

// Total returns the sum of all species estimates.
func (r *Result) Total() int {
	total := 0
	for _, n := range r.Estimates {
		total += n
	}
	return total
}
