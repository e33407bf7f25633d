package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/scenario"
)

func TestParsePopulations(t *testing.T) {
	t.Parallel()

	got, err := parsePopulations([]string{"comcha=3", " eurrob = 1 "}, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []scenario.Population{
		{Species: "comcha", Birds: 3, MinSongs: 10, MaxSongs: 20},
		{Species: "eurrob", Birds: 1, MinSongs: 10, MaxSongs: 20},
	}, got)

	for _, bad := range []string{"comcha", "=3", "comcha=x", "comcha=-1"} {
		_, err := parsePopulations([]string{bad}, 1, 2)
		require.Error(t, err, bad)
		assert.True(t, errors.IsInvalidInput(err), bad)
	}
}
