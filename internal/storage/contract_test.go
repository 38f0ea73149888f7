package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/model"
)

func sampleRun(id string, started time.Time) model.RunRecord {
	return model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		StartedAt:       started,
		Seed:            42,
		Problem:         "regression",
		State:           "running",
		Config:          json.RawMessage(`{"population_size":20}`),
	}
}

func sampleGeneration(runID string, generation int) model.GenerationSnapshot {
	return model.GenerationSnapshot{
		VersionedRecord: CurrentVersion(),
		RunID:           runID,
		Generation:      generation,
		BestFitness:     -float64(10 - generation),
		BestSoFar:       -float64(10 - generation),
		MeanFitness:     -20,
		MinFitness:      -40,
		MeanLength:      7.5,
		Diversity:       12,
		Evaluations:     20 * (generation + 1),
		BestTree:        "(+ x0 1)",
	}
}

// exerciseStore runs the behaviour every Store backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	later := sampleRun("run-b", base.Add(time.Minute))
	earlier := sampleRun("run-a", base)
	for _, run := range []model.RunRecord{later, earlier} {
		require.NoError(t, store.SaveRun(ctx, run), run.ID)
	}

	got, ok, err := store.GetRun(ctx, "run-a")
	require.NoError(t, err)
	require.True(t, ok, "expected run-a to exist")
	assert.Equal(t, uint32(42), got.Seed)
	assert.Equal(t, "regression", got.Problem)
	assert.JSONEq(t, `{"population_size":20}`, string(got.Config))
	assert.True(t, got.StartedAt.Equal(base), "unexpected start time: %v", got.StartedAt)

	_, ok, err = store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	earlier.State = "converged"
	earlier.FinishedAt = base.Add(30 * time.Second)
	earlier.BestFitness = -0.25
	earlier.BestTree = "(* x0 x0)"
	require.NoError(t, store.SaveRun(ctx, earlier))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, "converged", runs[0].State)
	assert.Equal(t, "(* x0 x0)", runs[0].BestTree)
	assert.True(t, runs[0].FinishedAt.Equal(earlier.FinishedAt), "unexpected finish time: %v", runs[0].FinishedAt)

	for _, generation := range []int{2, 0, 1} {
		require.NoError(t, store.SaveGeneration(ctx, sampleGeneration("run-a", generation)))
	}
	require.NoError(t, store.SaveGeneration(ctx, sampleGeneration("run-b", 0)))
	overwrite := sampleGeneration("run-a", 1)
	overwrite.Diversity = 3
	require.NoError(t, store.SaveGeneration(ctx, overwrite))

	generations, err := store.ListGenerations(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, generations, 3)
	for i, snapshot := range generations {
		require.Equal(t, i, snapshot.Generation)
	}
	assert.Equal(t, 3, generations[1].Diversity, "expected overwritten snapshot")

	require.NoError(t, store.DeleteRun(ctx, "run-a"))
	_, ok, _ = store.GetRun(ctx, "run-a")
	assert.False(t, ok, "expected run-a deleted")
	generations, err = store.ListGenerations(ctx, "run-a")
	require.NoError(t, err)
	assert.Empty(t, generations, "generations are removed with their run")
	remaining, err := store.ListGenerations(ctx, "run-b")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	stale := sampleRun("run-c", base)
	stale.SchemaVersion = CurrentSchemaVersion + 1
	require.ErrorIs(t, store.SaveRun(ctx, stale), ErrVersionMismatch)
	staleGeneration := sampleGeneration("run-b", 4)
	staleGeneration.CodecVersion = 0
	require.ErrorIs(t, store.SaveGeneration(ctx, staleGeneration), ErrVersionMismatch)
}
