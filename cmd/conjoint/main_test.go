package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()

	specPath := filepath.Join(dir, "spec.json")
	require.NoError(t, os.WriteFile(specPath, []byte(`{
		"attributes": {
			"price": ["$9.99", "$14.99", "$19.99"],
			"size": ["Small", "Large"]
		},
		"method": "cbc",
		"tasks_per_version": 4,
		"profiles_per_task": 2,
		"n_versions": 2,
		"min_attribute_diff": 1,
		"seed": 42
	}`), 0o644))

	// generate-design
	csPath := filepath.Join(dir, "choice_sets.json")
	require.NoError(t, runCLI(t, "generate-design", specPath, "-o", csPath))

	data, err := os.ReadFile(csPath)
	require.NoError(t, err)
	var csDoc struct {
		DesignID string `json:"design_id"`
		Versions []struct {
			Version    int                   `json:"version"`
			ChoiceSets [][]map[string]string `json:"choice_sets"`
		} `json:"versions"`
		BalanceScores map[string]float64 `json:"balance_scores"`
	}
	require.NoError(t, json.Unmarshal(data, &csDoc))
	assert.NotEmpty(t, csDoc.DesignID)
	require.Len(t, csDoc.Versions, 2)
	require.Len(t, csDoc.Versions[0].ChoiceSets, 4)
	require.Len(t, csDoc.Versions[0].ChoiceSets[0], 2)
	assert.Len(t, csDoc.BalanceScores, 2)

	// Generation is reproducible: a second run writes the same bytes.
	csPath2 := filepath.Join(dir, "choice_sets_2.json")
	require.NoError(t, runCLI(t, "generate-design", specPath, "-o", csPath2))
	data2, err := os.ReadFile(csPath2)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(data2))

	// analyze, from observations covering every task of both versions
	obsPath := filepath.Join(dir, "observations.csv")
	obs := "version,task,choice,segment\n"
	for v := 1; v <= 2; v++ {
		for task := 1; task <= 4; task++ {
			obs += fmt.Sprintf("%d,%d,1,students\n", v, task)
			obs += fmt.Sprintf("%d,%d,2,professionals\n", v, task)
		}
	}
	require.NoError(t, os.WriteFile(obsPath, []byte(obs), 0o644))

	outDir := filepath.Join(dir, "results")
	require.NoError(t, runCLI(t, "analyze", obsPath, csPath, "--output-dir", outDir))

	utilData, err := os.ReadFile(filepath.Join(outDir, "utilities.json"))
	require.NoError(t, err)
	var utilDoc struct {
		Utilities     map[string]map[string]float64 `json:"utilities"`
		Importance    map[string]float64            `json:"importance"`
		NObservations int                           `json:"n_observations"`
	}
	require.NoError(t, json.Unmarshal(utilData, &utilDoc))
	assert.Equal(t, 16, utilDoc.NObservations)
	require.Contains(t, utilDoc.Utilities, "price")
	require.Contains(t, utilDoc.Utilities, "size")

	totalImportance := 0.0
	for _, imp := range utilDoc.Importance {
		totalImportance += imp
	}
	assert.InDelta(t, 100, totalImportance, 1e-6)

	assert.FileExists(t, filepath.Join(outDir, "utilities.csv"))
	assert.FileExists(t, filepath.Join(outDir, "segment_analysis.json"))

	// analyze also accepts the spec itself and regenerates the design
	outDir2 := filepath.Join(dir, "results_from_spec")
	require.NoError(t, runCLI(t, "analyze", obsPath, specPath, "--output-dir", outDir2))
	fromSpec, err := os.ReadFile(filepath.Join(outDir2, "utilities.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(utilData), string(fromSpec))

	// market-sim
	candidatesPath := filepath.Join(dir, "candidates.json")
	require.NoError(t, os.WriteFile(candidatesPath, []byte(`[
		{"price": "$9.99", "size": "Large"},
		{"price": "$19.99", "size": "Small"}
	]`), 0o644))
	sharesPath := filepath.Join(dir, "shares.json")
	require.NoError(t, runCLI(t, "market-sim",
		filepath.Join(outDir, "utilities.json"), candidatesPath, "-o", sharesPath))

	sharesData, err := os.ReadFile(sharesPath)
	require.NoError(t, err)
	var preds []struct {
		Profile map[string]string `json:"profile"`
		Share   float64           `json:"share"`
	}
	require.NoError(t, json.Unmarshal(sharesData, &preds))
	require.Len(t, preds, 2)
	assert.InDelta(t, 1.0, preds[0].Share+preds[1].Share, 1e-9)
}

func TestCLIErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("impossible min diff", func(t *testing.T) {
		specPath := filepath.Join(dir, "bad_spec.json")
		require.NoError(t, os.WriteFile(specPath, []byte(`{
			"attributes": {"price": ["a", "b"], "size": ["S", "L"]},
			"min_attribute_diff": 2
		}`), 0o644))
		err := runCLI(t, "generate-design", specPath, "-o", filepath.Join(dir, "out.json"))
		require.ErrorContains(t, err, "min_attribute_diff")
	})

	t.Run("unknown simulation level", func(t *testing.T) {
		utilPath := filepath.Join(dir, "utilities.json")
		require.NoError(t, os.WriteFile(utilPath, []byte(`{
			"utilities": {"price": {"low": 0.5, "high": -0.5}},
			"importance": {"price": 100},
			"n_observations": 10
		}`), 0o644))
		candPath := filepath.Join(dir, "candidates.json")
		require.NoError(t, os.WriteFile(candPath, []byte(`[{"price": "free"}]`), 0o644))
		err := runCLI(t, "market-sim", utilPath, candPath, "-o", "")
		require.ErrorContains(t, err, "free")
	})

	t.Run("empty observations", func(t *testing.T) {
		specPath := filepath.Join(dir, "spec.json")
		require.NoError(t, os.WriteFile(specPath, []byte(`{
			"attributes": {"price": ["a", "b"], "size": ["S", "L"]},
			"min_attribute_diff": 1
		}`), 0o644))
		obsPath := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(obsPath, []byte(`[]`), 0o644))
		err := runCLI(t, "analyze", obsPath, specPath, "--output-dir", dir)
		require.ErrorContains(t, err, "insufficient")
	})
}
