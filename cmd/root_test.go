package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-census/internal/buildinfo"
	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/records"
	"github.com/tphakala/birdnet-census/internal/runtime"
	"github.com/tphakala/birdnet-census/internal/scenario"
)

// The commands share the global viper instance, so these tests do not run
// in parallel.

// writeConfig writes a config file pointing the run store into dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "output:\n  sqlite:\n    path: " + filepath.Join(dir, "census.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	rt := runtime.NewContext(buildinfo.NewContext("test", "", "test-system"))
	defer rt.Shutdown()

	root := RootCommand(rt)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeBestCaseFiles(t *testing.T, dir string) (nodesPath, detectionsPath string) {
	t.Helper()
	s := scenario.BestCase()

	var nodes, detections bytes.Buffer
	require.NoError(t, records.WriteNodes(&nodes, s.SensorNodes()))
	require.NoError(t, records.WriteDetections(&detections, s.SensorDetections()))

	nodesPath = filepath.Join(dir, "nodes.csv")
	detectionsPath = filepath.Join(dir, "detections.csv")
	require.NoError(t, os.WriteFile(nodesPath, nodes.Bytes(), 0o600))
	require.NoError(t, os.WriteFile(detectionsPath, detections.Bytes(), 0o600))
	return nodesPath, detectionsPath
}

func TestSimulateBestCase(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--config", writeConfig(t, dir), "simulate", "--layout", "bestcase")
	require.NoError(t, err)

	assert.Contains(t, out, "comcha")
	assert.Contains(t, out, "accuracy")
	assert.Contains(t, out, "100.0%")
}

func TestSimulateRejectsBadPopulation(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "simulate", "--species", "comcha")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestEstimateStoresRun(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, dir)
	nodesPath, detectionsPath := writeBestCaseFiles(t, dir)

	out, err := execute(t, "--config", config, "estimate",
		"--nodes", nodesPath, "--detections", detectionsPath,
		"--format", "csv", "--sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "species_code,estimate,windows,run_id")
	assert.Contains(t, out, "comcha,3,1,")

	runID := regexp.MustCompile(`comcha,3,1,([0-9a-f-]{36})`).FindStringSubmatch(out)
	require.Len(t, runID, 2)

	out, err = execute(t, "--config", config, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, runID[1])

	out, err = execute(t, "--config", config, "runs", "show", runID[1])
	require.NoError(t, err)
	assert.Contains(t, out, "individuals")
	assert.Contains(t, out, "comcha")

	out, err = execute(t, "--config", config, "runs", "history", "comcha")
	require.NoError(t, err)
	assert.Contains(t, out, runID[1])

	_, err = execute(t, "--config", config, "runs", "delete", runID[1])
	require.NoError(t, err)
	_, err = execute(t, "--config", config, "runs", "show", runID[1])
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestEstimateRequiresInputs(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "estimate")
	require.Error(t, err)
}

func TestGraphWindow(t *testing.T) {
	dir := t.TempDir()
	nodesPath, _ := writeBestCaseFiles(t, dir)

	out, err := execute(t, "--config", writeConfig(t, dir), "graph",
		"--nodes", nodesPath, "--window", "0,1,2,4,5,6")
	require.NoError(t, err)
	assert.Contains(t, out, "nodes")
	assert.Contains(t, out, "requires alternation")
	assert.Regexp(t, `edges removed\s+1-5`, out)
	assert.Regexp(t, `individuals\s+3`, out)
}

func TestGraphUnknownNode(t *testing.T) {
	dir := t.TempDir()
	nodesPath, _ := writeBestCaseFiles(t, dir)

	_, err := execute(t, "--config", writeConfig(t, dir), "graph", "--nodes", nodesPath, "--window", "0,99")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new", "config.yaml")

	out, err := execute(t, "--config", writeConfig(t, dir), "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "--config", writeConfig(t, dir), "config", "init", path)
	require.Error(t, err)

	out, err = execute(t, "--config", path, "--radius", "75", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "hearingradius: 75")
}
