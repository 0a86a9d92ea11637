package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"studentrisk/config"
	"studentrisk/ml"
)

var fixtureModel = filepath.Join("..", "ml", "testdata", "forest.json")

var fixtureArgs = []string{
	"--suicidal-thoughts", "1",
	"--academic-pressure", "4",
	"--financial-stress", "4",
	"--age", "22",
	"--work-hours", "6",
	"--unhealthy-diet", "0",
	"--study-satisfaction", "2",
	"--sleep-more-8h", "0",
	"--sleep-less-5h", "0",
	"--family-history", "0",
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func predictArgs(extra ...string) []string {
	args := append([]string{"predict", "--model", fixtureModel}, fixtureArgs...)
	return append(args, extra...)
}

func TestPredictHuman(t *testing.T) {
	out, err := execute(t, predictArgs()...)
	require.NoError(t, err)
	assert.Contains(t, out, "The model predicts: HIGH RISK OF DEPRESSION")
	assert.Contains(t, out, "Probability of Depression (Risk Score): 0.63")
}

func TestPredictJSON(t *testing.T) {
	out, err := execute(t, predictArgs("-o", "json")...)
	require.NoError(t, err)

	var got predictionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Label)
	assert.Equal(t, "high", got.Risk)
	assert.InDelta(t, 1.9/3, got.Probability, 1e-9)
}

func TestPredictYAML(t *testing.T) {
	out, err := execute(t, predictArgs("--family-history", "1", "--age", "30", "-o", "yaml")...)
	require.NoError(t, err)

	var got predictionOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	// Tree C takes its age > 25 branch: (0.9 + 0.7 + 0.5) / 3.
	assert.InDelta(t, 0.7, got.Probability, 1e-9)
	assert.Equal(t, "HIGH RISK OF DEPRESSION", got.Summary)
}

func TestPredictMissingFlag(t *testing.T) {
	args := []string{"predict", "--model", fixtureModel}
	for i := 0; i < len(fixtureArgs); i += 2 {
		if fixtureArgs[i] != "--age" {
			args = append(args, fixtureArgs[i], fixtureArgs[i+1])
		}
	}

	_, err := execute(t, args...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ml.ErrInvalidInput)

	var invalid *ml.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"age"}, invalid.Missing)
}

func TestPredictOutOfRange(t *testing.T) {
	_, err := execute(t, predictArgs("--work-hours", "16")...)

	var invalid *ml.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "must be between 1 and 15", invalid.Fields["work_hours"])
}

func TestPredictMissingModel(t *testing.T) {
	args := append([]string{"predict", "--model", filepath.Join(t.TempDir(), "none.json")}, fixtureArgs...)
	_, err := execute(t, args...)
	assert.ErrorIs(t, err, ml.ErrModelNotFound)
}

func TestPredictUnknownOutput(t *testing.T) {
	_, err := execute(t, predictArgs("-o", "xml")...)
	assert.ErrorContains(t, err, "unknown output format")
}

func TestPredictExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "model:\n  type: decision_tree\n  path: " + fixtureModel + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	args := append([]string{"predict", "--config", path}, fixtureArgs...)
	_, err := execute(t, args...)
	// The fixture is a forest, so the configured type is rejected.
	assert.ErrorIs(t, err, ml.ErrModelLoadFailure)

	_, err = execute(t, append([]string{"predict", "--config", filepath.Join(dir, "missing.yaml")}, fixtureArgs...)...)
	assert.ErrorContains(t, err, "open config")
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, ml.FeatureCount+1)
	assert.Contains(t, lines[1], "--suicidal-thoughts")
	assert.Contains(t, lines[4], "18-60")
	assert.Contains(t, lines[10], "Family_History_of_Mental_Illness_Encoded")

	out, err = execute(t, "schema", "-o", "json")
	require.NoError(t, err)
	var features []ml.Feature
	require.NoError(t, json.Unmarshal([]byte(out), &features))
	assert.Equal(t, ml.FeatureColumns[:], features)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "studentrisk version test\n", out)
}

func TestServiceWiring(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Path = fixtureModel

	svc, err := newService(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.predictor.Available())
	assert.NotNil(t, svc.stream)
	assert.Equal(t, ":8080", svc.server.Addr())

	w := httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceWiringWithoutModel(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "none.json")

	cfg.Http.MetricsStream = 0

	svc, err := newService(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, svc.predictor.Available(), ml.ErrModelUnavailable)
	assert.Nil(t, svc.stream)

	w := httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "FATAL ERROR")
}
