// Package symevo is the programmatic entry point: it loads data, runs the
// evolutionary search and keeps run records and artifacts.
package symevo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"symevo/internal/config"
	"symevo/internal/dataset"
	"symevo/internal/evo"
	"symevo/internal/model"
	"symevo/internal/stats"
	"symevo/internal/storage"
	"symevo/internal/telemetry"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "symevo.db"

	// StateFailed marks a run record whose driver returned an error.
	StateFailed = "failed"
)

var (
	ErrNoRuns      = errors.New("no runs available")
	ErrRunNotFound = errors.New("run not found")
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// Registerer receives the driver metrics. Nil keeps them unregistered.
	Registerer prometheus.Registerer
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *telemetry.Metrics

	artifactsDir string
	exportsDir   string
}

type RunRequest struct {
	Config config.Config
	// Dataset overrides Config.Problem.Dataset.
	Dataset *dataset.Dataset
	// RunID defaults to a random UUID.
	RunID     string
	Observers []evo.GenerationObserver
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	State            string
	Generations      int
	Evaluations      int
	BestFitness      float64
	BestTree         string
	BestByGeneration []float64
	Elapsed          time.Duration
}

type RunsRequest struct {
	Limit int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewMetrics(opts.Registerer)
	if err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logger,
		metrics:      metrics,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run executes one evolutionary run. The run record is saved before the first
// generation and updated with the outcome; generation snapshots are stored as
// they complete. Cancelling ctx stops the run at the next generation boundary.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}
	data := req.Dataset
	if data == nil {
		if cfg.Problem.Dataset == "" {
			return RunSummary{}, fmt.Errorf("%w: problem.dataset is required", config.ErrInvalid)
		}
		loaded, err := dataset.LoadCSVFile(cfg.Problem.Dataset, cfg.Problem.Target)
		if err != nil {
			return RunSummary{}, fmt.Errorf("load dataset: %w", err)
		}
		data = loaded
	}
	if err := c.store.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	algCfg, err := BuildAlgorithmConfig(cfg, data)
	if err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := c.logger.With("run_id", runID)
	algCfg.Logger = logger
	algCfg.Metrics = c.metrics
	algCfg.Observers = append([]evo.GenerationObserver{&storage.Recorder{Store: c.store, RunID: runID}}, req.Observers...)

	rawConfig, err := json.Marshal(cfg)
	if err != nil {
		return RunSummary{}, err
	}
	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		StartedAt:       time.Now().UTC(),
		Seed:            cfg.Seed,
		Problem:         cfg.Problem.Type,
		Dataset:         cfg.Problem.Dataset,
		State:           evo.StateRunning.String(),
		Config:          rawConfig,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}

	result, runErr := evo.NewAlgorithm(algCfg).Run(ctx)

	// The outcome is recorded even when ctx was cancelled.
	saveCtx := context.WithoutCancel(ctx)
	record.FinishedAt = time.Now().UTC()
	record.Generations = result.Generations
	record.Evaluations = result.Evaluations
	if runErr != nil {
		record.State = StateFailed
		if err := c.store.SaveRun(saveCtx, record); err != nil {
			logger.Warn("saving failed run record", "error", err)
		}
		return RunSummary{}, runErr
	}
	record.State = result.State.String()
	record.BestFitness = result.Best.Fitness
	record.BestTree = result.Best.Tree.String()
	record.BestLength = result.Best.Tree.Length()
	record.BestDepth = result.Best.Tree.Depth()
	record.BestFingerprint = evo.ComputeTreeSignature(result.Best.Tree).Fingerprint
	if err := c.store.SaveRun(saveCtx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}

	artifacts := stats.NewRunArtifacts(runID, cfg, result)
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, artifacts)
	if err != nil {
		return RunSummary{}, fmt.Errorf("write artifacts: %w", err)
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		Problem:          cfg.Problem.Type,
		PopulationSize:   cfg.PopulationSize,
		Generations:      result.Generations,
		Seed:             cfg.Seed,
		State:            record.State,
		FinalBestFitness: result.Best.Fitness,
		CreatedAtUTC:     record.StartedAt.Format(stats.TimestampLayout),
	}); err != nil {
		return RunSummary{}, fmt.Errorf("update run index: %w", err)
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     runDir,
		State:            record.State,
		Generations:      result.Generations,
		Evaluations:      result.Evaluations,
		BestFitness:      result.Best.Fitness,
		BestTree:         record.BestTree,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		Elapsed:          result.Elapsed,
	}, nil
}

// Runs lists indexed runs, newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]stats.RunIndexEntry, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

// Show returns the stored record of a run. Runs the store no longer holds are
// rebuilt from their artifacts.
func (c *Client) Show(ctx context.Context, runID string, latest bool) (model.RunRecord, error) {
	runID, err := c.resolveRunID(runID, latest)
	if err != nil {
		return model.RunRecord{}, err
	}
	if err := c.store.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if ok {
		return record, nil
	}

	summary, ok, err := stats.ReadRunSummary(c.artifactsDir, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	record = model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		State:           summary.State,
		Generations:     summary.Generations,
		Evaluations:     summary.Evaluations,
		BestFitness:     summary.FinalBestFitness,
		BestTree:        summary.BestTree,
		BestLength:      summary.BestLength,
		BestDepth:       summary.BestDepth,
	}
	var cfg config.Config
	if ok, err := stats.ReadConfig(c.artifactsDir, runID, &cfg); err != nil {
		return model.RunRecord{}, err
	} else if ok {
		record.Seed = cfg.Seed
		record.Problem = cfg.Problem.Type
		record.Dataset = cfg.Problem.Dataset
	}
	return record, nil
}

// Generations returns the stored per-generation snapshots of a run.
func (c *Client) Generations(ctx context.Context, runID string, latest bool) ([]model.GenerationSnapshot, error) {
	runID, err := c.resolveRunID(runID, latest)
	if err != nil {
		return nil, err
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListGenerations(ctx, runID)
}

// DeleteRun removes a run and its snapshots from the store. Artifacts on disk
// are kept.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	return c.store.DeleteRun(ctx, runID)
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, outDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if !latest {
		if runID == "" {
			return "", errors.New("run id is required")
		}
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoRuns
	}
	return entries[0].RunID, nil
}
