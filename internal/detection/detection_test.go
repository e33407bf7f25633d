package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/errors"
)

var t0 = time.Date(2024, 5, 12, 4, 30, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func det(node int64, species string, begin, end float64) Detection {
	return Detection{Node: node, SpeciesCode: species, BeginTime: at(begin), EndTime: at(end)}
}

func TestNewDetection_Valid(t *testing.T) {
	t.Parallel()

	d, err := NewDetection(3, " comcha ", at(0), at(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Node)
	assert.Equal(t, "comcha", d.SpeciesCode)
	assert.Equal(t, 3*time.Second, d.Duration())
}

func TestDetectionValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Detection
	}{
		{"missing species", det(1, "", 0, 3)},
		{"empty interval", det(1, "comcha", 3, 3)},
		{"reversed interval", det(1, "comcha", 3, 0)},
		{"zero times", Detection{Node: 1, SpeciesCode: "comcha"}},
		{"zero begin", Detection{Node: 1, SpeciesCode: "comcha", EndTime: at(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.d.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}

func TestValidateAllReportsFirstFailure(t *testing.T) {
	t.Parallel()

	err := ValidateAll([]Detection{det(1, "a", 0, 1), det(2, "a", 5, 4), det(3, "", 0, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node 2")

	require.NoError(t, ValidateAll(nil))
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	t.Parallel()

	a := det(1, "x", 0, 3)
	b := det(2, "x", 3, 6)
	c := det(3, "x", 2.9, 4)

	assert.False(t, a.Overlaps(&b))
	assert.False(t, b.Overlaps(&a))
	assert.True(t, a.Overlaps(&c))
	assert.True(t, c.Overlaps(&b))
}

func TestGroupBySpecies(t *testing.T) {
	t.Parallel()

	in := []Detection{
		det(1, "greti1", 0, 3),
		det(2, "comcha", 0, 3),
		det(3, "greti1", 4, 7),
	}
	codes, groups := GroupBySpecies(in)

	assert.Equal(t, []string{"comcha", "greti1"}, codes)
	require.Len(t, groups["greti1"], 2)
	assert.Equal(t, int64(1), groups["greti1"][0].Node)
	assert.Equal(t, int64(3), groups["greti1"][1].Node)
	assert.Len(t, groups["comcha"], 1)

	codes, groups = GroupBySpecies(nil)
	assert.Empty(t, codes)
	assert.Empty(t, groups)
}

func TestParseSpeciesLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  Species
		key   string
	}{
		{"Turdus merula_Eurasian Blackbird_eurbla", Species{"Turdus merula", "Eurasian Blackbird", "eurbla"}, "eurbla"},
		{"Parus major_Great Tit", Species{"Parus major", "Great Tit", ""}, "Great Tit"},
		{"comcha", Species{Code: "comcha"}, "comcha"},
		{"Common Chaffinch", Species{CommonName: "Common Chaffinch"}, "Common Chaffinch"},
		{"  \r", Species{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Parallel()
			got := ParseSpeciesLabel(tt.label)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.key, got.Key())
		})
	}

	assert.Equal(t, "Great Tit", ParseSpeciesLabel("Parus major_Great Tit").String())
	assert.Equal(t, "comcha", ParseSpeciesLabel("comcha").String())
}
