package stats

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/evo"
)

func writeHistory(t *testing.T, baseDir, runID string, bestByGeneration []float64) {
	t.Helper()
	result := sampleResult(t)
	result.BestByGeneration = bestByGeneration
	result.Diagnostics = result.Diagnostics[:0]
	for generation, best := range bestByGeneration {
		result.Diagnostics = append(result.Diagnostics, diagnosticsAt(generation, best))
	}
	_, err := WriteRunArtifacts(baseDir, NewRunArtifacts(runID, nil, result))
	require.NoError(t, err, runID)
}

func TestBuildReport(t *testing.T) {
	baseDir := t.TempDir()
	writeHistory(t, baseDir, "r1", []float64{-4, -2, -0.5})
	writeHistory(t, baseDir, "r2", []float64{-5, -3, -3, -2})
	writeHistory(t, baseDir, "r3", []float64{-0.1})

	goal := -1.0
	exp := Experiment{
		ID:             "exp-1",
		PopulationSize: 10,
		FitnessGoal:    &goal,
		Seeds:          []uint32{1, 2, 3},
		RunIDs:         []string{"r1", "r2", "r3"},
	}
	report, err := BuildReport(baseDir, exp)
	require.NoError(t, err)

	stats := report.Evaluations
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 2, stats.SuccessRuns)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-12)
	// r1 reaches the goal at generation 2 (30 evaluations), r3 at generation 0 (10).
	require.Len(t, stats.Runs, 3)
	assert.Equal(t, 30, stats.Runs[0].Evaluations)
	assert.Equal(t, 2, stats.Runs[0].ReachedGeneration)
	assert.False(t, stats.Runs[1].Success)
	assert.Equal(t, -2.0, stats.Runs[1].FinalBest)
	assert.Equal(t, 20.0, stats.AvgEvaluations)
	assert.Equal(t, 10.0, stats.StdEvaluations)
	assert.Equal(t, 10.0, stats.MinEvaluations)
	assert.Equal(t, 30.0, stats.MaxEvaluations)

	require.Len(t, report.Curve, 4)
	first := report.Curve[0]
	assert.Equal(t, 3, first.Runs)
	assert.Equal(t, -0.1, first.Max)
	assert.Equal(t, -5.0, first.Min)
	last := report.Curve[3]
	assert.Equal(t, 1, last.Runs)
	assert.Equal(t, -2.0, last.Mean)
	assert.Zero(t, last.Std)

	reportDir, err := WriteReport(baseDir, report)
	require.NoError(t, err)
	for _, file := range []string{"report.json", "curve.csv"} {
		require.FileExists(t, filepath.Join(reportDir, file))
	}
}

func TestBuildReportMissingRun(t *testing.T) {
	_, err := BuildReport(t.TempDir(), Experiment{ID: "e", RunIDs: []string{"nope"}})
	require.Error(t, err)
}

func TestEvaluationStatsWithoutGoal(t *testing.T) {
	stats := BuildEvaluationStats([]string{"a"}, [][]float64{{-3, -2}}, 5, nil)
	assert.Equal(t, 1, stats.SuccessRuns, "every run succeeds without a goal")
	require.Len(t, stats.Runs, 1)
	assert.Equal(t, 10, stats.Runs[0].Evaluations)
}

func TestAvgStdStaysFiniteAtWorstFitness(t *testing.T) {
	mean, std := avgStd([]float64{-math.MaxFloat64, 0})
	assert.False(t, math.IsInf(mean, 0) || math.IsNaN(mean), "mean=%v", mean)
	assert.False(t, math.IsInf(std, 0) || math.IsNaN(std), "std=%v", std)
}

func TestExperimentRoundTripAndList(t *testing.T) {
	baseDir := t.TempDir()
	older := Experiment{ID: "old", StartedAtUTC: "2026-01-01T00:00:00Z", Seeds: []uint32{1}}
	newer := Experiment{ID: "new", StartedAtUTC: "2026-02-01T00:00:00Z", Seeds: []uint32{2}}
	undated := Experiment{ID: "undated", Seeds: []uint32{3}}
	for _, exp := range []Experiment{older, undated, newer} {
		require.NoError(t, WriteExperiment(baseDir, exp), exp.ID)
	}

	loaded, ok, err := ReadExperiment(baseDir, "old")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, loaded.Seeds)
	_, ok, err = ReadExperiment(baseDir, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	exps, err := ListExperiments(baseDir)
	require.NoError(t, err)
	ids := make([]string, 0, len(exps))
	for _, exp := range exps {
		ids = append(ids, exp.ID)
	}
	assert.Equal(t, []string{"new", "old", "undated"}, ids)

	require.Error(t, WriteExperiment(baseDir, Experiment{}), "missing id")
}

func diagnosticsAt(generation int, best float64) evo.GenerationDiagnostics {
	return evo.GenerationDiagnostics{
		Generation:  generation,
		BestFitness: best,
		BestSoFar:   best,
		MeanFitness: best - 1,
		MinFitness:  best - 2,
		MeanLength:  3,
		Diversity:   5,
		Evaluations: 10 * (generation + 1),
	}
}
