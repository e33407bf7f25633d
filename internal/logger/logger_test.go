package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("visible", logger.Int("windows", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "windows=3")
	assert.NotContains(t, out, "time=")
}

func TestModuleNesting(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelTrace, time.UTC).Module("census").Module("window")

	log.Trace("alternated", logger.Int64("node", 4), logger.Float64("radius", 100.00049))

	out := buf.String()
	assert.Contains(t, out, "module=census.window")
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "radius=100")
}

func TestWithAndContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "run-1")
	log := base.With(logger.String("species", "comcha")).WithContext(ctx)
	log.Debug("counted", logger.Error(fmt.Errorf("none")))

	out := buf.String()
	assert.Contains(t, out, "species=comcha")
	assert.Contains(t, out, "trace_id=run-1")
	assert.Contains(t, out, "error=none")

	buf.Reset()
	base.Info("plain")
	assert.NotContains(t, buf.String(), "species=")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "census.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"census": "debug"},
	})
	require.NoError(t, err)

	cl.Module("census").Module("window").Debug("window counted", logger.Int("count", 2))
	cl.Module("records").Debug("filtered by module level")
	require.NoError(t, cl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 1)
	assert.Equal(t, "census.window", lines[0]["module"])
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.InDelta(t, 2, lines[0]["count"], 0)
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}
