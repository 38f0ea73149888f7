package symevo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"symevo/internal/config"
	"symevo/internal/dataset"
	"symevo/internal/stats"
)

type BenchmarkRequest struct {
	Config  config.Config
	Dataset *dataset.Dataset
	// Seeds replaces Config.Seed, one run per entry.
	Seeds        []uint32
	ExperimentID string
	Notes        string
}

type BenchmarkSummary struct {
	ExperimentID string
	Directory    string
	Runs         []RunSummary
	Report       stats.Report
}

// Benchmark repeats one configuration over several seeds and reports how
// reliably and how fast the runs reach the fitness goal.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkSummary, error) {
	if len(req.Seeds) == 0 {
		return BenchmarkSummary{}, errors.New("benchmark requires at least one seed")
	}
	data := req.Dataset
	if data == nil {
		if req.Config.Problem.Dataset == "" {
			return BenchmarkSummary{}, fmt.Errorf("%w: problem.dataset is required", config.ErrInvalid)
		}
		loaded, err := dataset.LoadCSVFile(req.Config.Problem.Dataset, req.Config.Problem.Target)
		if err != nil {
			return BenchmarkSummary{}, fmt.Errorf("load dataset: %w", err)
		}
		data = loaded
	}

	expID := req.ExperimentID
	if expID == "" {
		expID = uuid.NewString()
	}
	exp := stats.Experiment{
		ID:             expID,
		Notes:          req.Notes,
		StartedAtUTC:   time.Now().UTC().Format(stats.TimestampLayout),
		PopulationSize: req.Config.PopulationSize,
		FitnessGoal:    req.Config.FitnessGoal,
		Seeds:          append([]uint32(nil), req.Seeds...),
	}
	if err := stats.WriteExperiment(c.artifactsDir, exp); err != nil {
		return BenchmarkSummary{}, err
	}

	summary := BenchmarkSummary{ExperimentID: expID}
	for i, seed := range req.Seeds {
		if ctx.Err() != nil {
			break
		}
		cfg := req.Config
		cfg.Seed = seed
		run, err := c.Run(ctx, RunRequest{
			Config:  cfg,
			Dataset: data,
			RunID:   fmt.Sprintf("%s-%03d", expID, i),
		})
		if err != nil {
			return summary, fmt.Errorf("benchmark run %d (seed %d): %w", i, seed, err)
		}
		summary.Runs = append(summary.Runs, run)
		exp.RunIDs = append(exp.RunIDs, run.RunID)
		if err := stats.WriteExperiment(c.artifactsDir, exp); err != nil {
			return summary, err
		}
	}
	exp.CompletedAtUTC = time.Now().UTC().Format(stats.TimestampLayout)
	if err := stats.WriteExperiment(c.artifactsDir, exp); err != nil {
		return summary, err
	}

	report, err := stats.BuildReport(c.artifactsDir, exp)
	if err != nil {
		return summary, err
	}
	dir, err := stats.WriteReport(c.artifactsDir, report)
	if err != nil {
		return summary, err
	}
	summary.Report = report
	summary.Directory = dir
	return summary, nil
}
