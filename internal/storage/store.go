package storage

import (
	"context"

	"symevo/internal/model"
)

// Store persists run summaries and their per-generation snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs ordered by start time, oldest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	SaveGeneration(ctx context.Context, snapshot model.GenerationSnapshot) error
	// ListGenerations returns the snapshots of one run in generation order.
	ListGenerations(ctx context.Context, runID string) ([]model.GenerationSnapshot, error)
}
