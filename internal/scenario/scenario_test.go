package scenario

import (
	"math"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/census"
	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

func TestDiamondLayout(t *testing.T) {
	t.Parallel()

	cfg := DefaultDiamondConfig()
	nodes, err := DiamondLayout(cfg)
	require.NoError(t, err)
	assert.Len(t, nodes, 4+3+4+3+4+3+4)

	for i, n := range nodes {
		assert.Equal(t, int64(i), n.ID)
	}

	// Node 4 is the first of row 1: shifted half a column, half a row up.
	grid := geometry.Point{X: cfg.DistanceX / 2, Y: cfg.DistanceY / 2}
	assert.LessOrEqual(t, geometry.Distance(grid, nodes[4].Position), cfg.Offset*math.Sqrt2)

	again, err := DiamondLayout(cfg)
	require.NoError(t, err)
	assert.Equal(t, nodes, again, "same seed gives the same layout")

	cfg.Seed = 7
	other, err := DiamondLayout(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, nodes, other)

	_, err = DiamondLayout(DiamondConfig{XRows: 0, YRows: 3})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestRandomConditionalLayout(t *testing.T) {
	t.Parallel()

	cfg := DefaultRandomConfig()
	cfg.Seed = 3
	nodes, err := RandomConditionalLayout(cfg)
	require.NoError(t, err)
	require.Len(t, nodes, cfg.N)

	r := cfg.HearingRadius
	side := math.Sqrt(math.Pi*r*r*float64(cfg.N)) - 2*r
	budget := cfg.AreaOverlap * math.Pi * r * r
	for i, n := range nodes {
		assert.True(t, n.Position.X >= 0 && n.Position.X <= side && n.Position.Y >= 0 && n.Position.Y <= side,
			"node %d at %v outside the square", i, n.Position)

		overlap := 0.0
		for _, prev := range nodes[:i] {
			overlap += segmentOverlap(n.Position, prev.Position, r)
		}
		assert.Less(t, overlap, budget, "node %d exceeds the overlap budget", i)
	}

	again, err := RandomConditionalLayout(cfg)
	require.NoError(t, err)
	assert.Equal(t, nodes, again)

	_, err = RandomConditionalLayout(RandomConfig{N: 1, HearingRadius: 100, AreaOverlap: 0, MaxAttempts: 10})
	assert.True(t, errors.IsInvalidInput(err), "a zero budget rejects every candidate")

	_, err = RandomConditionalLayout(RandomConfig{N: 3, HearingRadius: -1})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSegmentOverlap(t *testing.T) {
	t.Parallel()

	r := 100.0
	o := geometry.Point{}
	assert.InDelta(t, math.Pi*r*r, segmentOverlap(o, o, r), 1e-9)
	assert.Zero(t, segmentOverlap(o, geometry.Point{X: 2 * r}, r))
	assert.Zero(t, segmentOverlap(o, geometry.Point{X: 500}, r))

	theta := 2 * math.Pi / 3
	assert.InDelta(t, 0.5*r*r*(theta-math.Sin(theta)), segmentOverlap(o, geometry.Point{X: r}, r), 1e-9)
}

func TestBoundingBox(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Box{}, BoundingBox(nil, 100))

	box := BoundingBox(BestCase().SensorNodes(), 100)
	assert.Equal(t, Box{MinX: -100, MaxX: 400, MinY: -100, MaxY: 400}, box)
	assert.InDelta(t, 500, box.Width(), 0)
	assert.InDelta(t, 500, box.Height(), 0)
	assert.True(t, box.Contains(geometry.Point{X: 400, Y: -100}))
	assert.False(t, box.Contains(geometry.Point{X: 400.1, Y: 0}))
}

func TestGenerateDetections(t *testing.T) {
	t.Parallel()

	nodes, err := DiamondLayout(DefaultDiamondConfig())
	require.NoError(t, err)

	cfg := DefaultGenerateConfig()
	cfg.End = cfg.Begin.Add(10 * time.Minute)
	cfg.Populations = []Population{
		{Species: "comcha", Birds: 3, MinSongs: 10, MaxSongs: 20},
		{Species: "eurrob1", Birds: 2, MinSongs: 5, MaxSongs: 5},
	}
	cfg.Seed = 11

	ds, songs, truth, err := GenerateDetections(nodes, cfg)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"comcha": 3, "eurrob1": 2}, truth)
	assert.GreaterOrEqual(t, len(songs), 3*10+2*5)
	assert.LessOrEqual(t, len(songs), 3*20+2*5)
	assert.True(t, slices.IsSortedFunc(ds, func(a, b detection.Detection) int {
		return a.BeginTime.Compare(b.BeginTime)
	}))
	require.NoError(t, detection.ValidateAll(ds))

	box := BoundingBox(nodes, cfg.HearingRadius)
	for _, s := range songs {
		assert.True(t, box.Contains(s.Position))
		assert.False(t, s.Begin.Before(cfg.Begin))
		assert.False(t, s.End.After(cfg.End))
		assert.Equal(t, ClassificationInterval, s.End.Sub(s.Begin))
	}

	again, _, _, err := GenerateDetections(nodes, cfg)
	require.NoError(t, err)
	assert.Equal(t, ds, again, "same seed gives the same detections")

	_, _, _, err = GenerateDetections(nil, cfg)
	assert.True(t, errors.IsInvalidInput(err))

	bad := cfg
	bad.Populations = []Population{{Species: "comcha", Birds: 1, MinSongs: 5, MaxSongs: 4}}
	_, _, _, err = GenerateDetections(nodes, bad)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestHear(t *testing.T) {
	t.Parallel()

	nodes := []sensorgraph.Node{
		{ID: 1, Position: geometry.Point{X: 0, Y: 0}},
		{ID: 2, Position: geometry.Point{X: 100, Y: 0}},
		{ID: 3, Position: geometry.Point{X: 300, Y: 0}},
	}
	song := Song{Species: "comcha", Position: geometry.Point{X: 50, Y: 0}, Begin: time.Unix(0, 0), End: time.Unix(3, 0)}

	ds := Hear(nodes, 50, song)
	require.Len(t, ds, 2, "nodes exactly at the hearing radius hear the song")
	assert.Equal(t, int64(1), ds[0].Node)
	assert.Equal(t, int64(2), ds[1].Node)
}

func TestBestCaseCountsThree(t *testing.T) {
	t.Parallel()

	s := BestCase()
	g, err := s.Graph()
	require.NoError(t, err)

	ds := s.SensorDetections()
	nodes := make([]int64, 0, len(ds))
	for _, d := range ds {
		nodes = append(nodes, d.Node)
	}
	slices.Sort(nodes)
	assert.Equal(t, []int64{0, 1, 2, 4, 5, 6}, nodes)

	estimates, err := census.EstimateSpeciesCounts(g, ds)
	require.NoError(t, err)
	assert.Equal(t, s.Truth, estimates)

	ev := Evaluate(s.Truth, estimates)
	assert.Zero(t, ev.MeanAbsoluteError)
	assert.InDelta(t, 1.0, ev.AccuracyRate, 0)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "best-case.yaml")
	want := BestCase()
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scenario mismatch (-want +got):\n%s", diff)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	ev := Evaluate(
		map[string]int{"comcha": 3, "eurrob1": 2, "grtit1": 1},
		map[string]int{"comcha": 4, "eurrob1": 2, "blutit": 1},
	)

	assert.Equal(t, []SpeciesError{
		{Species: "blutit", Truth: 0, Estimate: 1, Error: 1},
		{Species: "comcha", Truth: 3, Estimate: 4, Error: 1},
		{Species: "eurrob1", Truth: 2, Estimate: 2, Error: 0},
		{Species: "grtit1", Truth: 1, Estimate: 0, Error: -1},
	}, ev.Species)
	assert.InDelta(t, 0.75, ev.MeanAbsoluteError, 1e-12)
	assert.InDelta(t, 0.25, ev.MeanSignedError, 1e-12)
	assert.InDelta(t, math.Sqrt(2.75/3), ev.StdDevError, 1e-12)
	assert.InDelta(t, 0.25, ev.AccuracyRate, 1e-12)

	empty := Evaluate(nil, nil)
	assert.Empty(t, empty.Species)
	assert.Zero(t, empty.MeanAbsoluteError)
}

func TestSimulatedPipeline(t *testing.T) {
	t.Parallel()

	nodes, err := DiamondLayout(DefaultDiamondConfig())
	require.NoError(t, err)

	cfg := DefaultGenerateConfig()
	cfg.End = cfg.Begin.Add(5 * time.Minute)
	cfg.Populations = []Population{{Species: "comcha", Birds: 3, MinSongs: 5, MaxSongs: 10}}

	ds, songs, truth, err := GenerateDetections(nodes, cfg)
	require.NoError(t, err)

	g, err := sensorgraph.Build(nodes, cfg.HearingRadius)
	require.NoError(t, err)

	estimates, err := census.EstimateSpeciesCounts(g, ds)
	require.NoError(t, err)

	ev := Evaluate(truth, estimates)
	require.Len(t, ev.Species, 1)
	if len(ds) > 0 {
		assert.Positive(t, estimates["comcha"])
	}

	s := New("diamond", cfg.HearingRadius, nodes, ds, songs, truth)
	assert.Len(t, s.Nodes, len(nodes))
	assert.Len(t, s.SensorDetections(), len(ds))
}
