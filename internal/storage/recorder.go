package storage

import (
	"context"
	"fmt"

	"symevo/internal/evo"
	"symevo/internal/model"
)

// Recorder persists a snapshot for every generation of one run.
type Recorder struct {
	Store Store
	RunID string
}

var _ evo.GenerationObserver = (*Recorder)(nil)

func (r *Recorder) OnGeneration(ctx context.Context, p evo.Progress) error {
	d := p.Diagnostics
	snapshot := model.GenerationSnapshot{
		VersionedRecord: CurrentVersion(),
		RunID:           r.RunID,
		Generation:      p.Generation,
		BestFitness:     d.BestFitness,
		BestSoFar:       d.BestSoFar,
		MeanFitness:     d.MeanFitness,
		MinFitness:      d.MinFitness,
		MeanLength:      d.MeanLength,
		Diversity:       d.Diversity,
		Evaluations:     d.Evaluations,
	}
	if p.BestTree != nil {
		snapshot.BestTree = p.BestTree.String()
	}
	if err := r.Store.SaveGeneration(ctx, snapshot); err != nil {
		return fmt.Errorf("record generation %d of %s: %w", p.Generation, r.RunID, err)
	}
	return nil
}
