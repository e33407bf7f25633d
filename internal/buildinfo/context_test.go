package buildinfo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{name: "nil context", ctx: nil, want: UnknownValue},
		{name: "empty version", ctx: NewContext("", "2024-05-01", "test-system"), want: UnknownValue},
		{name: "valid version", ctx: NewContext("1.0.0", "2024-05-01", "test-system"), want: "1.0.0"},
		{name: "pre-release tag", ctx: NewContext("1.0.0-beta.1", "2024-05-01", "test-system"), want: "1.0.0-beta.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.Version())
		})
	}
}

func TestContextBuildDateAndString(t *testing.T) {
	t.Parallel()

	var nilCtx *Context
	assert.Equal(t, UnknownValue, nilCtx.BuildDate())
	assert.Equal(t, UnknownValue, nilCtx.SystemID())
	assert.Equal(t, "unknown (built unknown)", nilCtx.String())

	ctx := NewContext("1.2.3", "2024-05-01", "site-a")
	assert.Equal(t, "2024-05-01", ctx.BuildDate())
	assert.Equal(t, "site-a", ctx.SystemID())
	assert.Equal(t, "1.2.3 (built 2024-05-01)", ctx.String())
}

func TestNewContextGeneratesSystemID(t *testing.T) {
	t.Parallel()

	a := NewContext("", "", "")
	b := NewContext("", "", "")
	_, err := uuid.Parse(a.SystemID())
	require.NoError(t, err)
	assert.NotEqual(t, a.SystemID(), b.SystemID())
}
