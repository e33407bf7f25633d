package census

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

var t0 = time.Date(2024, 5, 12, 4, 30, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func det(node int64, species string, begin, end float64) detection.Detection {
	return detection.Detection{Node: node, SpeciesCode: species, BeginTime: at(begin), EndTime: at(end)}
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	return opts
}

// bestCaseGraph is the seven node layout in which three birds are heard by
// {0,1,2}, {5,6} and {2,4}. Node 3 hears nothing.
func bestCaseGraph(t *testing.T) *sensorgraph.Graph {
	t.Helper()
	g, err := sensorgraph.Build([]sensorgraph.Node{
		{ID: 0, Position: geometry.Point{X: 0, Y: 0}},
		{ID: 1, Position: geometry.Point{X: 180, Y: 0}},
		{ID: 2, Position: geometry.Point{X: 80, Y: 125}},
		{ID: 3, Position: geometry.Point{X: 300, Y: 0}},
		{ID: 4, Position: geometry.Point{X: 20, Y: 290}},
		{ID: 5, Position: geometry.Point{X: 250, Y: 185}},
		{ID: 6, Position: geometry.Point{X: 300, Y: 300}},
	}, 100)
	require.NoError(t, err)
	return g
}

func bestCaseDetections() []detection.Detection {
	return []detection.Detection{
		det(0, "comcha", 0, 3),
		det(1, "comcha", 0.5, 3.5),
		det(2, "comcha", 0, 3),
		det(2, "comcha", 1, 4),
		det(4, "comcha", 1.5, 4.5),
		det(5, "comcha", 2, 5),
		det(6, "comcha", 2, 5),
	}
}

func TestBestCaseEstimatesThree(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(bestCaseGraph(t), quietOptions())
	require.NoError(t, err)

	res, err := e.Estimate(context.Background(), bestCaseDetections())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"comcha": 3}, res.Estimates)
	require.Len(t, res.Windows, 1)

	w := res.Windows[0]
	assert.Equal(t, []int64{0, 1, 2, 4, 5, 6}, w.Nodes)
	assert.Equal(t, 7, w.Detections)
	assert.Equal(t, []sensorgraph.Edge{{U: 1, V: 5}}, w.EdgesRemoved)
	if diff := cmp.Diff([][]int64{{2, 0, 1}, {5, 6}, {4}}, w.Cliques); diff != "" {
		t.Errorf("cliques mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, at(0), w.Begin)
	assert.Equal(t, at(5), w.End)
	assert.NotEmpty(t, res.RunID)
	assert.InDelta(t, 100, res.Radius, 0)
}

func TestBestCaseWithoutAlternationOvercounts(t *testing.T) {
	t.Parallel()

	g := bestCaseGraph(t)
	sub, err := g.Induce([]int64{0, 1, 2, 4, 5, 6})
	require.NoError(t, err)

	// The raw subgraph merges the birds at {0,1,2} and {5,6} through edge 1-5.
	assert.Len(t, CoverCliques(sub.Clone()), 4)

	altered, removed, err := Alternate(sub)
	require.NoError(t, err)
	assert.Equal(t, []sensorgraph.Edge{{U: 1, V: 5}}, removed)
	assert.Len(t, CoverCliques(altered), 3)
}

func TestEstimateSpeciesCountsSingleNode(t *testing.T) {
	t.Parallel()

	g, err := sensorgraph.Build([]sensorgraph.Node{{ID: 7}}, 50)
	require.NoError(t, err)

	got, err := EstimateSpeciesCounts(g, []detection.Detection{det(7, "X", 0, 3)})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"X": 1}, got)
}

func TestOverlappingDuplicatesAreNotDoubleCounted(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(bestCaseGraph(t), quietOptions())
	require.NoError(t, err)

	res, err := e.Estimate(context.Background(), []detection.Detection{
		det(3, "greti1", 0, 3),
		det(3, "greti1", 1, 4),
	})
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Equal(t, 2, res.Windows[0].Detections)
	assert.Equal(t, 1, res.Estimate("greti1"))
}

func TestEstimateIsMaxOverWindows(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(bestCaseGraph(t), quietOptions())
	require.NoError(t, err)

	ds := bestCaseDetections()
	// A later, separate window where only node 3 hears the species.
	ds = append(ds, det(3, "comcha", 60, 63))

	res, err := e.Estimate(context.Background(), ds)
	require.NoError(t, err)

	windows := res.WindowsFor("comcha")
	require.Len(t, windows, 2)
	assert.Equal(t, 3, windows[0].Count)
	assert.Equal(t, 1, windows[1].Count)
	assert.Equal(t, 1, windows[1].Index)
	assert.Equal(t, 3, res.Estimate("comcha"))
}

func TestSpeciesWithoutDetectionsIsZero(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(bestCaseGraph(t), quietOptions())
	require.NoError(t, err)

	res, err := e.Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Estimates)
	assert.Zero(t, res.Estimate("eurbla"))
	assert.Zero(t, res.Total())
}

func TestEstimateRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(bestCaseGraph(t), quietOptions())
	require.NoError(t, err)

	tests := []struct {
		name string
		ds   []detection.Detection
	}{
		{"unknown node", []detection.Detection{det(0, "x", 0, 3), det(99, "x", 0, 3)}},
		{"reversed interval", []detection.Detection{det(0, "x", 3, 0)}},
		{"empty interval", []detection.Detection{det(0, "x", 3, 3)}},
		{"missing species", []detection.Detection{det(0, "", 0, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Estimate(context.Background(), tt.ds)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestNewEstimatorRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := NewEstimator(nil, quietOptions())
	assert.True(t, errors.IsInvalidInput(err))

	opts := quietOptions()
	opts.Workers = -1
	_, err = NewEstimator(bestCaseGraph(t), opts)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestEstimateCancelled(t *testing.T) {
	t.Parallel()

	e, err := NewEstimator(bestCaseGraph(t), quietOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Estimate(ctx, bestCaseDetections())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	g := bestCaseGraph(t)
	var ds []detection.Detection
	for _, species := range []string{"comcha", "greti1", "eurbla", "eurrob1"} {
		for _, d := range bestCaseDetections() {
			d.SpeciesCode = species
			ds = append(ds, d)
		}
	}
	ds = append(ds, det(3, "greti1", 10, 13), det(1, "eurbla", 10, 12), det(5, "eurbla", 11, 13))

	seqOpts := quietOptions()
	seqOpts.Parallel = false
	seq, err := NewEstimator(g, seqOpts)
	require.NoError(t, err)

	parOpts := quietOptions()
	parOpts.Workers = 3
	par, err := NewEstimator(g, parOpts)
	require.NoError(t, err)

	a, err := seq.Estimate(context.Background(), ds)
	require.NoError(t, err)
	b, err := par.Estimate(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, a.Estimates, b.Estimates)
	if diff := cmp.Diff(a.Windows, b.Windows); diff != "" {
		t.Errorf("windows differ between sequential and parallel runs (-seq +par):\n%s", diff)
	}
	assert.Equal(t, []string{"comcha", "eurbla", "eurrob1", "greti1"}, a.Species())
}

// countingRecorder captures the estimator's metrics.
type countingRecorder struct {
	mu        sync.Mutex
	hits      int
	misses    int
	windows   int
	estimates map[string]int
	errors    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{estimates: map[string]int{}, errors: map[string]int{}}
}

func (r *countingRecorder) RecordOperation(operation, status string)         {}
func (r *countingRecorder) RecordDuration(operation string, seconds float64) {}

func (r *countingRecorder) RecordError(operation, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[errorType]++
}

func (r *countingRecorder) RecordWindow(species string, nodes, edgesRemoved, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows++
}

func (r *countingRecorder) SetEstimate(species string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.estimates[species] = count
}

func (r *countingRecorder) RecordCacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestAlternationCacheReusesNodeSets(t *testing.T) {
	t.Parallel()

	rec := newCountingRecorder()
	opts := quietOptions()
	opts.Parallel = false
	opts.Metrics = rec

	e, err := NewEstimator(bestCaseGraph(t), opts)
	require.NoError(t, err)

	var ds []detection.Detection
	for _, species := range []string{"a", "b", "c"} {
		for _, d := range bestCaseDetections() {
			d.SpeciesCode = species
			ds = append(ds, d)
		}
	}

	res, err := e.Estimate(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 3}, res.Estimates)

	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 2, rec.hits)
	assert.Equal(t, 3, rec.windows)
	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 3}, rec.estimates)

	// Every species reports the edge removal even when served from the cache.
	for _, w := range res.Windows {
		assert.Equal(t, []sensorgraph.Edge{{U: 1, V: 5}}, w.EdgesRemoved)
	}
}

func TestSkipsAlternationWhenGraphNeedsNone(t *testing.T) {
	t.Parallel()

	g, err := sensorgraph.Build([]sensorgraph.Node{
		{ID: 1, Position: geometry.Point{X: 0, Y: 0}},
		{ID: 2, Position: geometry.Point{X: 60, Y: 0}},
		{ID: 3, Position: geometry.Point{X: 30, Y: 50}},
		{ID: 4, Position: geometry.Point{X: 500, Y: 500}},
	}, 100)
	require.NoError(t, err)

	rec := newCountingRecorder()
	opts := quietOptions()
	opts.Metrics = rec
	e, err := NewEstimator(g, opts)
	require.NoError(t, err)

	res, err := e.Estimate(context.Background(), []detection.Detection{
		det(1, "x", 0, 3), det(2, "x", 0, 3), det(3, "x", 0, 3), det(4, "x", 1, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Estimate("x"))
	assert.Zero(t, rec.hits+rec.misses, "alternation cache must not be consulted")
}
