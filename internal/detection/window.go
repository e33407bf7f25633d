package detection

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/birdnet-census/internal/errors"
)

// Window is a maximal group of one species' detections whose intervals are
// connected by pairwise overlap. It is the unit the census counts.
type Window struct {
	Species    string
	Index      int         // Position in the species' window sequence
	Detections []Detection // Sorted by begin time
	Begin      time.Time   // Earliest begin time
	End        time.Time   // Latest end time
}

// Nodes returns the distinct nodes that detected the species in this window,
// in ascending order.
func (w *Window) Nodes() []int64 {
	nodes := make([]int64, 0, len(w.Detections))
	for i := range w.Detections {
		nodes = append(nodes, w.Detections[i].Node)
	}
	slices.Sort(nodes)
	return slices.Compact(nodes)
}

// Len returns the number of detections in the window.
func (w *Window) Len() int { return len(w.Detections) }

// Duration returns the span from the first begin to the last end.
func (w *Window) Duration() time.Duration { return w.End.Sub(w.Begin) }

// Partition groups one species' detections into windows. Two detections share
// a window iff a chain of overlapping intervals connects them. Windows are
// returned in ascending order of their earliest begin time.
//
// Detections must be valid and of a single species. An empty input yields no
// windows.
func Partition(detections []Detection) ([]Window, error) {
	if len(detections) == 0 {
		return nil, nil
	}

	species := detections[0].SpeciesCode
	for i := range detections {
		if err := detections[i].Validate(); err != nil {
			return nil, err
		}
		if detections[i].SpeciesCode != species {
			return nil, errors.InvalidInput(componentName, "cannot window mixed species %q and %q", species, detections[i].SpeciesCode).
				Context("species", species).
				Build()
		}
	}

	sorted := slices.Clone(detections)
	slices.SortStableFunc(sorted, compareDetections)

	var windows []Window
	current := Window{
		Species:    species,
		Detections: []Detection{sorted[0]},
		Begin:      sorted[0].BeginTime,
		End:        sorted[0].EndTime,
	}
	for _, d := range sorted[1:] {
		// Half-open intervals: touching at an instant is not an overlap.
		if !d.BeginTime.Before(current.End) {
			windows = append(windows, current)
			current = Window{
				Species: species,
				Index:   len(windows),
				Begin:   d.BeginTime,
				End:     d.EndTime,
			}
		}
		current.Detections = append(current.Detections, d)
		if d.EndTime.After(current.End) {
			current.End = d.EndTime
		}
	}
	windows = append(windows, current)

	return windows, nil
}

// compareDetections orders by begin time, then end time, then node.
func compareDetections(a, b Detection) int {
	if c := a.BeginTime.Compare(b.BeginTime); c != 0 {
		return c
	}
	if c := a.EndTime.Compare(b.EndTime); c != 0 {
		return c
	}
	return cmp.Compare(a.Node, b.Node)
}
