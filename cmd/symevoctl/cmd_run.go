package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"symevo/internal/config"
	"symevo/pkg/symevo"
)

// runFlags override fields of the loaded configuration when set.
type runFlags struct {
	configPath  string
	dataset     string
	target      string
	problem     string
	seed        uint32
	population  int
	generations int
	goal        float64
	mutators    []string
	metricsAddr string
	progress    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML experiment configuration (defaults apply when empty)")
	flags.StringVar(&f.dataset, "dataset", "", "CSV dataset path, overrides problem.dataset")
	flags.StringVar(&f.target, "target", "", "target column, overrides problem.target")
	flags.StringVar(&f.problem, "problem", "", "problem type: regression|classification")
	flags.Uint32Var(&f.seed, "seed", 0, "random seed, overrides seed")
	flags.IntVar(&f.population, "population", 0, "population size, overrides population_size")
	flags.IntVar(&f.generations, "generations", 0, "generation limit, overrides max_generations")
	flags.Float64Var(&f.goal, "fitness-goal", 0, "stop once the best fitness reaches this value")
	flags.StringArrayVar(&f.mutators, "mutator", nil, "mutator weight as name=weight, repeatable; replaces the configured list")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVar(&f.progress, "progress", "auto", "per-generation progress line: auto|always|never")
}

// load reads the configuration file and applies the flags the user set.
func (f *runFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Problem.Dataset = f.dataset
	}
	if flags.Changed("target") {
		cfg.Problem.Target = f.target
	}
	if flags.Changed("problem") {
		cfg.Problem.Type = f.problem
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("population") {
		cfg.PopulationSize = f.population
	}
	if flags.Changed("generations") {
		cfg.MaxGenerations = f.generations
	}
	if flags.Changed("fitness-goal") {
		goal := f.goal
		cfg.FitnessGoal = &goal
	}
	if len(f.mutators) > 0 {
		weights, err := parseMutatorWeights(f.mutators)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Mutators = weights
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// clientOptions lets the configuration pick the store and artifacts
// directory unless the matching global flag was given.
func clientOptions(cmd *cobra.Command, cfg config.Config) symevo.Options {
	var opts symevo.Options
	flags := cmd.Flags()
	if cfg.Store.Kind != "" && !flags.Changed("store") {
		opts.StoreKind = cfg.Store.Kind
		if cfg.Store.Path != "" && !flags.Changed("db-path") {
			opts.DBPath = cfg.Store.Path
		}
	}
	if cfg.ArtifactsDir != "" && !flags.Changed("artifacts-dir") {
		opts.ArtifactsDir = cfg.ArtifactsDir
	}
	return opts
}

func newRunCmd(global *globalOptions) *cobra.Command {
	f := &runFlags{}
	var runID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one evolutionary search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			opts := clientOptions(cmd, cfg)

			stopMetrics, err := f.serveMetrics(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			defer stopMetrics()

			client, err := openClient(cmd, global, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			req := symevo.RunRequest{Config: cfg, RunID: runID}
			progress := newProgressPrinter(cmd.OutOrStdout(), f.progress)
			if progress != nil {
				req.Observers = append(req.Observers, progress)
			}
			summary, err := client.Run(cmd.Context(), req)
			if progress != nil {
				progress.finish()
			}
			if err != nil {
				return err
			}
			printRunSummary(cmd, cfg, summary)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "run id (random when empty)")
	return cmd
}

// serveMetrics starts a /metrics endpoint backed by a fresh registry and
// points opts at it. The returned func shuts the server down.
func (f *runFlags) serveMetrics(ctx context.Context, opts *symevo.Options) (func(), error) {
	if f.metricsAddr == "" {
		return func() {}, nil
	}
	reg := prometheus.NewRegistry()
	opts.Registerer = reg

	listener, err := net.Listen("tcp", f.metricsAddr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", listener.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}

func printRunSummary(cmd *cobra.Command, cfg config.Config, summary symevo.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run completed run_id=%s problem=%s pop=%d seed=%d state=%s\n",
		summary.RunID, cfg.Problem.Type, cfg.PopulationSize, cfg.Seed, summary.State)
	for i, best := range summary.BestByGeneration {
		fmt.Fprintf(out, "generation=%d best_fitness=%.6f\n", i, best)
	}
	fmt.Fprintf(out, "final_best_fitness=%.6f\n", summary.BestFitness)
	fmt.Fprintf(out, "best_tree=%s\n", summary.BestTree)
	fmt.Fprintf(out, "evaluated %s trees over %d generations in %s\n",
		humanize.Comma(int64(summary.Evaluations)), summary.Generations, summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
}

func newBenchmarkCmd(global *globalOptions) *cobra.Command {
	f := &runFlags{}
	var (
		seeds        []uint
		repeat       int
		experimentID string
		notes        string
	)
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Repeat one configuration over several seeds and report success rate and evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			runSeeds, err := benchmarkSeeds(seeds, repeat, cfg.Seed)
			if err != nil {
				return err
			}
			opts := clientOptions(cmd, cfg)
			stopMetrics, err := f.serveMetrics(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			defer stopMetrics()

			client, err := openClient(cmd, global, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Benchmark(cmd.Context(), symevo.BenchmarkRequest{
				Config:       cfg,
				Seeds:        runSeeds,
				ExperimentID: experimentID,
				Notes:        notes,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, run := range summary.Runs {
				fmt.Fprintf(out, "run_id=%s state=%s generations=%d evaluations=%d final_best_fitness=%.6f\n",
					run.RunID, run.State, run.Generations, run.Evaluations, run.BestFitness)
			}
			ev := summary.Report.Evaluations
			fmt.Fprintf(out, "benchmark experiment_id=%s runs=%d success_runs=%d success_rate=%.3f avg_evaluations=%.1f std_evaluations=%.1f\n",
				summary.ExperimentID, ev.TotalRuns, ev.SuccessRuns, ev.SuccessRate, ev.AvgEvaluations, ev.StdEvaluations)
			fmt.Fprintf(out, "report_dir=%s\n", filepath.Clean(summary.Directory))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().UintSliceVar(&seeds, "seeds", nil, "explicit seeds, one run each")
	cmd.Flags().IntVar(&repeat, "repeat", 5, "number of runs with consecutive seeds from --seed when --seeds is empty")
	cmd.Flags().StringVar(&experimentID, "experiment-id", "", "experiment id (random when empty)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes stored with the experiment")
	return cmd
}

func benchmarkSeeds(explicit []uint, repeat int, base uint32) ([]uint32, error) {
	if len(explicit) > 0 {
		out := make([]uint32, 0, len(explicit))
		for _, s := range explicit {
			if uint64(s) > uint64(^uint32(0)) {
				return nil, fmt.Errorf("seed %d does not fit in 32 bits", s)
			}
			out = append(out, uint32(s))
		}
		return out, nil
	}
	if repeat <= 0 {
		return nil, errors.New("--repeat must be > 0")
	}
	out := make([]uint32, repeat)
	for i := range out {
		out[i] = base + uint32(i)
	}
	return out, nil
}
