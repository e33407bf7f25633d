package records

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/detection"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/geometry"
	"github.com/tphakala/birdnet-census/internal/sensorgraph"
)

func TestReadNodesPlanar(t *testing.T) {
	t.Parallel()

	in := "node,n_x,n_y\n0,0,0\n1, 180 ,0\n\n# comment\n2,80,125\n1,999,999\n"
	set, err := ReadNodes(strings.NewReader(in), Options{})
	require.NoError(t, err)

	assert.Nil(t, set.Origin)
	assert.Equal(t, []sensorgraph.Node{
		{ID: 0, Position: geometry.Point{X: 0, Y: 0}},
		{ID: 1, Position: geometry.Point{X: 180, Y: 0}},
		{ID: 2, Position: geometry.Point{X: 80, Y: 125}},
	}, set.Nodes, "duplicate node keeps its first position")
}

func TestReadNodesCombinedExport(t *testing.T) {
	t.Parallel()

	in := "node,n_x,n_y,begin_time,end_time,species_code,b_x,b_y,true_count\n" +
		"3,10.5,-4,1970-01-01 00:00:01.5,1970-01-01 00:00:04.5,comcha,0,0,3\n" +
		"3,10.5,-4,1970-01-01 00:00:09,1970-01-01 00:00:12,comcha,0,0,3\n"

	set, err := ReadNodes(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, set.Nodes, 1)
	assert.Equal(t, geometry.Point{X: 10.5, Y: -4}, set.Nodes[0].Position)

	ds, err := ReadDetections(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 1, 500_000_000, time.UTC), ds[0].BeginTime)
	assert.Equal(t, "comcha", ds[1].SpeciesCode)
}

func TestReadNodesGeographic(t *testing.T) {
	t.Parallel()

	in := "node,lat,lon\n1,60.0,25.0\n2,60.001,25.0\n"
	set, err := ReadNodes(strings.NewReader(in), Options{Coordinates: Geographic})
	require.NoError(t, err)
	require.NotNil(t, set.Origin)
	require.Len(t, set.Nodes, 2)

	got := geometry.Distance(set.Nodes[0].Position, set.Nodes[1].Position)
	want := geometry.GeodesicDistance(geometry.LatLon{Lat: 60, Lon: 25}, geometry.LatLon{Lat: 60.001, Lon: 25})
	assert.InDelta(t, want, got, 0.01)
	assert.InDelta(t, set.Nodes[0].Position.X, set.Nodes[1].Position.X, 1e-6, "same longitude stays on the north axis")
}

func TestReadNodesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		opts Options
	}{
		{name: "empty file", in: ""},
		{name: "missing column", in: "node,n_x\n1,2\n"},
		{name: "geo columns for planar", in: "node,lat,lon\n1,60,25\n"},
		{name: "bad id", in: "node,n_x,n_y\nx,1,2\n"},
		{name: "bad coordinate", in: "node,n_x,n_y\n1,one,2\n"},
		{name: "no rows", in: "node,n_x,n_y\n"},
		{name: "latitude out of range", in: "node,lat,lon\n1,91,25\n", opts: Options{Coordinates: Geographic}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadNodes(strings.NewReader(tt.in), tt.opts)
			require.Error(t, err)
			var ee *errors.EnhancedError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, "records", ee.GetComponent())
		})
	}
}

func TestReadDetections(t *testing.T) {
	t.Parallel()

	in := "Node,Species_Code,Begin_Time,End_Time,Confidence,extra\n" +
		"1,comcha,2024-05-01T06:00:00Z,2024-05-01T06:00:03Z,0.91,x\n" +
		"2,eurrob1,2024-05-01T06:00:01+03:00,2024-05-01T06:00:04+03:00,,\n"

	ds, err := ReadDetections(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, ds, 2)

	assert.Equal(t, int64(1), ds[0].Node)
	assert.Equal(t, "comcha", ds[0].SpeciesCode)
	assert.InDelta(t, 0.91, ds[0].Confidence, 1e-9)
	assert.Equal(t, 3*time.Second, ds[0].Duration())
	assert.Zero(t, ds[1].Confidence)
	assert.True(t, ds[1].BeginTime.Equal(time.Date(2024, 5, 1, 3, 0, 1, 0, time.UTC)))
}

func TestReadDetectionsSpeciesNameLabel(t *testing.T) {
	t.Parallel()

	in := "node,species_name_en,begin_time,end_time\n" +
		"1,Fringilla coelebs_Common Chaffinch_comcha,2024-05-01T06:00:00Z,2024-05-01T06:00:03Z\n" +
		"2,Common Chaffinch,2024-05-01T06:00:00Z,2024-05-01T06:00:03Z\n"

	ds, err := ReadDetections(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "comcha", ds[0].SpeciesCode)
	assert.Equal(t, "Common Chaffinch", ds[0].CommonName)
	assert.Equal(t, "Common Chaffinch", ds[1].SpeciesCode)
}

func TestReadDetectionsTimeFormat(t *testing.T) {
	t.Parallel()

	in := "node,species_code,begin_time,end_time\n1,comcha,01.05.2024 06:00:00,01.05.2024 06:00:03\n"

	_, err := ReadDetections(strings.NewReader(in), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	ds, err := ReadDetections(strings.NewReader(in), Options{TimeFormat: "02.01.2006 15:04:05"})
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, time.May, ds[0].BeginTime.Month())
}

func TestReadDetectionsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		category errors.ErrorCategory
	}{
		{
			name:     "no species column",
			in:       "node,begin_time,end_time\n1,2024-05-01T06:00:00Z,2024-05-01T06:00:03Z\n",
			category: errors.CategoryFileParsing,
		},
		{
			name:     "end before begin",
			in:       "node,species_code,begin_time,end_time\n1,comcha,2024-05-01T06:00:03Z,2024-05-01T06:00:00Z\n",
			category: errors.CategoryInvalidInput,
		},
		{
			name:     "empty species",
			in:       "node,species_code,begin_time,end_time\n1,,2024-05-01T06:00:00Z,2024-05-01T06:00:03Z\n",
			category: errors.CategoryInvalidInput,
		},
		{
			name:     "bad confidence",
			in:       "node,species_code,begin_time,end_time,confidence\n1,comcha,2024-05-01T06:00:00Z,2024-05-01T06:00:03Z,high\n",
			category: errors.CategoryFileParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadDetections(strings.NewReader(tt.in), Options{})
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodes := []sensorgraph.Node{
		{ID: 4, Position: geometry.Point{X: 20, Y: 290}},
		{ID: 5, Position: geometry.Point{X: 250.25, Y: 185}},
	}
	begin := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	ds := []detection.Detection{
		{Node: 4, SpeciesCode: "comcha", CommonName: "Common Chaffinch", BeginTime: begin, EndTime: begin.Add(3 * time.Second), Confidence: 0.8},
		{Node: 5, SpeciesCode: "comcha", CommonName: "Common Chaffinch", BeginTime: begin.Add(time.Second), EndTime: begin.Add(4 * time.Second)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteNodes(&buf, nodes))
	nodesPath := filepath.Join(dir, "nodes.csv")
	require.NoError(t, os.WriteFile(nodesPath, buf.Bytes(), 0o600))

	buf.Reset()
	require.NoError(t, WriteDetections(&buf, ds))
	detectionsPath := filepath.Join(dir, "detections.csv")
	require.NoError(t, os.WriteFile(detectionsPath, buf.Bytes(), 0o600))

	set, err := LoadNodes(nodesPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, nodes, set.Nodes)

	loaded, err := LoadDetections(detectionsPath, Options{})
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for i := range ds {
		assert.Equal(t, ds[i].Node, loaded[i].Node)
		assert.Equal(t, ds[i].CommonName, loaded[i].CommonName)
		assert.True(t, ds[i].BeginTime.Equal(loaded[i].BeginTime))
		assert.True(t, ds[i].EndTime.Equal(loaded[i].EndTime))
	}

	_, err = LoadNodes(filepath.Join(dir, "missing.csv"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
