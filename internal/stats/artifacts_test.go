package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/evo"
	"symevo/internal/symbol"
	"symevo/internal/tree"
)

func sampleResult(t *testing.T) evo.Result {
	t.Helper()
	variable, err := symbol.NewVariable(symbol.VariableName, []string{"x0"})
	require.NoError(t, err)
	best := tree.New(tree.NewVariable(variable, "x0"))
	return evo.Result{
		State:            evo.StateMaxGenerationsReached,
		Generations:      2,
		Evaluations:      30,
		Best:             evo.Individual{Tree: best, Fitness: -0.5},
		BestByGeneration: []float64{-3, -1, -0.5},
		Diagnostics: []evo.GenerationDiagnostics{
			{Generation: 0, BestFitness: -3, BestSoFar: -3, MeanFitness: -9, MinFitness: -20, MeanLength: 5, Diversity: 10, Evaluations: 10},
			{Generation: 1, BestFitness: -1, BestSoFar: -1, MeanFitness: -4, MinFitness: -8, MeanLength: 4.5, Diversity: 8, Evaluations: 20},
			{Generation: 2, BestFitness: -0.5, BestSoFar: -0.5, MeanFitness: -2, MinFitness: -6, MeanLength: 3, Diversity: 6, Evaluations: 30},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	cfg := map[string]any{"population_size": 10, "seed": 7}
	artifacts := NewRunArtifacts(runID, cfg, sampleResult(t))

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	require.NoError(t, err)

	files := []string{"config.json", "fitness_history.json", "fitness_history.csv", "summary.json", "best.txt"}
	for _, file := range files {
		require.FileExists(t, filepath.Join(runDir, file))
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	require.NoError(t, err)
	for _, file := range files {
		require.FileExists(t, filepath.Join(exportedDir, file))
	}

	summary, ok, err := ReadRunSummary(baseDir, runID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "max_generations_reached", summary.State)
	assert.Equal(t, 30, summary.Evaluations)
	assert.Equal(t, int64(1500), summary.ElapsedMS)
	assert.Equal(t, "x0", summary.BestTree)
	assert.Equal(t, 1, summary.BestLength)
	assert.Equal(t, 1, summary.BestDepth)

	best, ok, err := ReadBestTree(baseDir, runID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x0", best)

	var loaded map[string]any
	ok, err = ReadConfig(baseDir, runID, &loaded)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(7), loaded["seed"])

	history, ok, err := ReadFitnessHistory(baseDir, runID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{-3, -1, -0.5}, history)

	csvData, err := os.ReadFile(filepath.Join(runDir, "fitness_history.csv"))
	require.NoError(t, err)
	assert.Regexp(t, `^generation,best_so_far,best_fitness,mean_fitness`, string(csvData))
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	require.Error(t, err)
}

func TestReadMissingArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	_, ok, err := ReadFitnessHistory(baseDir, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = ReadRunSummary(baseDir, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = ExportRunArtifacts(baseDir, "missing", t.TempDir())
	require.Error(t, err, "export of a missing run")
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	first := RunIndexEntry{RunID: "a", Problem: "regression", CreatedAtUTC: "2026-01-01T00:00:00Z", FinalBestFitness: -2}
	second := RunIndexEntry{RunID: "b", Problem: "classification", CreatedAtUTC: "2026-01-02T00:00:00Z", FinalBestFitness: 0.9}
	for _, entry := range []RunIndexEntry{first, second} {
		require.NoError(t, AppendRunIndex(baseDir, entry), entry.RunID)
	}

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].RunID, "newest first")
	assert.Equal(t, "a", entries[1].RunID)

	first.FinalBestFitness = -1
	first.State = "converged"
	require.NoError(t, AppendRunIndex(baseDir, first))
	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "upsert keeps one entry per run")
	assert.Equal(t, -1.0, entries[1].FinalBestFitness)
	assert.Equal(t, "converged", entries[1].State)

	require.Error(t, AppendRunIndex(baseDir, RunIndexEntry{}), "missing run id")
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	stamp := "2026-01-01T00:00:00Z"
	for _, id := range []string{"first", "second"} {
		require.NoError(t, AppendRunIndex(baseDir, RunIndexEntry{RunID: id, CreatedAtUTC: stamp}))
	}
	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "second", entries[0].RunID)
}

func TestTimestampLayoutSortsLexically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	whole := base.Format(TimestampLayout)
	later := base.Add(100 * time.Millisecond).Format(TimestampLayout)
	assert.Len(t, later, len(whole))
	assert.Less(t, whole, later)
}
