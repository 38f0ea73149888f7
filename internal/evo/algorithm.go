package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"symevo/internal/creator"
	"symevo/internal/eval"
	"symevo/internal/random"
	"symevo/internal/symbol"
	"symevo/internal/telemetry"
	"symevo/internal/tree"
)

type State int32

const (
	StateUnconfigured State = iota
	StateInitialized
	StateRunning
	StateConverged
	StateStopped
	StateMaxGenerationsReached
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateStopped:
		return "stopped"
	case StateMaxGenerationsReached:
		return "max_generations_reached"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether a run in state s has finished.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateStopped || s == StateMaxGenerationsReached
}

var (
	ErrConfiguration  = errors.New("algorithm configuration error")
	ErrAlreadyRunning = errors.New("algorithm is already running")
)

// ConfigurationError names the component or setting that made Run refuse to
// start.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s is required", ErrConfiguration, e.Component)
	}
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Component, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	BestSoFar   float64 `json:"best_so_far"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	MeanLength  float64 `json:"mean_length"`
	Diversity   int     `json:"diversity"`
	Evaluations int     `json:"evaluations"`
}

// Progress is delivered after the initial population (generation 0) and after
// every completed generation.
type Progress struct {
	Generation  int
	BestFitness float64
	BestTree    *tree.Tree
	Diagnostics GenerationDiagnostics
}

// GenerationObserver is called synchronously at each generation boundary. An
// error aborts the run.
type GenerationObserver interface {
	OnGeneration(ctx context.Context, p Progress) error
}

type GenerationFunc func(ctx context.Context, p Progress) error

func (f GenerationFunc) OnGeneration(ctx context.Context, p Progress) error {
	return f(ctx, p)
}

type Config struct {
	Grammar       *symbol.Grammar
	Creator       creator.Creator
	Crossover     Crossover
	Mutator       Mutator
	Selector      Selector
	Random        random.Source
	Evaluator     eval.FitnessEvaluator
	Postprocessor FitnessPostprocessor

	PopulationSize       int
	MaxGenerations       int
	MaxLength            int
	MaxDepth             int
	CrossoverProbability float64
	MutationProbability  float64
	// FitnessGoal ends the run as converged once the best fitness reaches it.
	FitnessGoal *float64
	// Workers evaluates individuals concurrently when greater than one.
	Workers int

	Observers []GenerationObserver
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Tracer    trace.Tracer
}

func (cfg Config) validate() error {
	required := []struct {
		name string
		set  bool
	}{
		{"grammar", cfg.Grammar != nil},
		{"creator", cfg.Creator != nil},
		{"crossover", cfg.Crossover != nil},
		{"mutator", cfg.Mutator != nil},
		{"selector", cfg.Selector != nil},
		{"random source", cfg.Random != nil},
		{"fitness evaluator", cfg.Evaluator != nil},
	}
	for _, r := range required {
		if !r.set {
			return &ConfigurationError{Component: r.name}
		}
	}
	switch {
	case cfg.PopulationSize <= 0:
		return &ConfigurationError{Component: "population size", Reason: "must be > 0"}
	case cfg.MaxGenerations < 0:
		return &ConfigurationError{Component: "max generations", Reason: "must be >= 0"}
	case cfg.MaxLength <= 0:
		return &ConfigurationError{Component: "max tree length", Reason: "must be > 0"}
	case cfg.MaxDepth <= 0:
		return &ConfigurationError{Component: "max tree depth", Reason: "must be > 0"}
	case cfg.CrossoverProbability < 0 || cfg.CrossoverProbability > 1:
		return &ConfigurationError{Component: "crossover probability", Reason: "must be in [0, 1]"}
	case cfg.MutationProbability < 0 || cfg.MutationProbability > 1:
		return &ConfigurationError{Component: "mutation probability", Reason: "must be in [0, 1]"}
	}
	for i, o := range cfg.Observers {
		if o == nil {
			return &ConfigurationError{Component: fmt.Sprintf("observer %d", i)}
		}
	}
	return nil
}

type Result struct {
	State            State
	Generations      int
	Evaluations      int
	Best             Individual
	BestByGeneration []float64
	Diagnostics      []GenerationDiagnostics
	FinalPopulation  []Individual
	Elapsed          time.Duration
}

// Algorithm is the generational loop. Run is not reentrant; Stop and State
// may be called from any goroutine.
type Algorithm struct {
	cfg   Config
	state atomic.Int32
	stop  atomic.Bool
}

func NewAlgorithm(cfg Config) *Algorithm {
	a := &Algorithm{cfg: cfg}
	a.state.Store(int32(StateInitialized))
	return a
}

func (a *Algorithm) State() State {
	return State(a.state.Load())
}

// Stop asks the run to halt at the next generation boundary. The generation in
// flight completes first. A Stop issued before Run is kept, so that run ends
// right after evaluating its initial population. The request is cleared when
// a run returns.
func (a *Algorithm) Stop() {
	a.stop.Store(true)
}

func (a *Algorithm) logger() *slog.Logger {
	if a.cfg.Logger != nil {
		return a.cfg.Logger
	}
	return slog.Default()
}

func (a *Algorithm) tracer() trace.Tracer {
	if a.cfg.Tracer != nil {
		return a.cfg.Tracer
	}
	return telemetry.Tracer()
}

func (a *Algorithm) Run(ctx context.Context) (Result, error) {
	if a.State() == StateUnconfigured {
		return Result{}, &ConfigurationError{Component: "configuration"}
	}
	if err := a.cfg.validate(); err != nil {
		return Result{}, err
	}
	current := a.State()
	if current == StateRunning || !a.state.CompareAndSwap(int32(current), int32(StateRunning)) {
		return Result{}, ErrAlreadyRunning
	}
	defer a.stop.Store(false)
	if a.cfg.Postprocessor == nil {
		a.cfg.Postprocessor = NoopFitnessPostprocessor{}
	}

	ctx, span := a.tracer().Start(ctx, "evo.Algorithm.Run", trace.WithAttributes(
		attribute.Int("population_size", a.cfg.PopulationSize),
		attribute.Int("max_generations", a.cfg.MaxGenerations),
		attribute.String("evaluator", a.cfg.Evaluator.Name()),
	))
	defer span.End()

	result, err := a.run(ctx)
	if err != nil {
		a.state.Store(int32(StateInitialized))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger().Error("run aborted", "generation", result.Generations, "error", err)
		return result, err
	}
	a.state.Store(int32(result.State))
	a.cfg.Metrics.RunFinished(result.State.String())
	span.SetAttributes(
		attribute.String("state", result.State.String()),
		attribute.Int("generations", result.Generations),
		attribute.Float64("best_fitness", result.Best.Fitness),
	)
	a.logger().Info("run finished",
		"state", result.State.String(),
		"generations", result.Generations,
		"evaluations", result.Evaluations,
		"best_fitness", result.Best.Fitness,
		"best", result.Best.Tree.String(),
	)
	return result, nil
}

func (a *Algorithm) run(ctx context.Context) (Result, error) {
	started := time.Now()
	// Evaluation batches run to completion even when ctx is cancelled;
	// cancellation is only observed between generations.
	evalCtx := context.WithoutCancel(ctx)

	a.logger().Info("run started",
		"population_size", a.cfg.PopulationSize,
		"max_generations", a.cfg.MaxGenerations,
		"creator", a.cfg.Creator.Name(),
		"evaluator", a.cfg.Evaluator.Name(),
	)

	trees := make([]*tree.Tree, a.cfg.PopulationSize)
	for i := range trees {
		t, err := a.cfg.Creator.Create(a.cfg.Random, a.cfg.Grammar, a.cfg.MaxLength, a.cfg.MaxDepth)
		if err != nil {
			return Result{}, fmt.Errorf("create individual %d: %w", i, err)
		}
		trees[i] = t
	}
	population, err := a.evaluatePopulation(evalCtx, trees)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Evaluations:      len(population),
		BestByGeneration: make([]float64, 0, a.cfg.MaxGenerations+1),
		Diagnostics:      make([]GenerationDiagnostics, 0, a.cfg.MaxGenerations+1),
	}
	result.Best = population[0]
	if err := a.completeGeneration(ctx, &result, population, 0); err != nil {
		return result, err
	}

	for {
		if goal := a.cfg.FitnessGoal; goal != nil && result.Best.Fitness >= *goal {
			result.State = StateConverged
			break
		}
		if result.Generations >= a.cfg.MaxGenerations {
			result.State = StateMaxGenerationsReached
			break
		}
		if a.stop.Load() || ctx.Err() != nil {
			result.State = StateStopped
			break
		}

		genCtx, span := a.tracer().Start(ctx, "evo.Algorithm.generation",
			trace.WithAttributes(attribute.Int("generation", result.Generations+1)))
		offspring, err := a.breed(population)
		if err == nil {
			population, err = a.evaluatePopulation(context.WithoutCancel(genCtx), offspring)
		}
		if err != nil {
			span.RecordError(err)
			span.End()
			return result, fmt.Errorf("generation %d: %w", result.Generations+1, err)
		}
		span.End()

		result.Evaluations += len(population)
		if err := a.completeGeneration(ctx, &result, population, result.Generations+1); err != nil {
			return result, err
		}
	}

	result.FinalPopulation = population
	result.Elapsed = time.Since(started)
	return result, nil
}

// completeGeneration updates best tracking and history, then notifies
// observers.
func (a *Algorithm) completeGeneration(ctx context.Context, result *Result, population []Individual, generation int) error {
	genBest := population[0]
	for _, ind := range population[1:] {
		if Better(ind.Fitness, genBest.Fitness) {
			genBest = ind
		}
	}
	if generation == 0 || Better(genBest.Fitness, result.Best.Fitness) {
		result.Best = genBest
	}
	result.Generations = generation

	diag := summarizeGeneration(population, generation, result.Best.Fitness, result.Evaluations)
	result.BestByGeneration = append(result.BestByGeneration, result.Best.Fitness)
	result.Diagnostics = append(result.Diagnostics, diag)

	a.cfg.Metrics.ObserveGeneration(result.Best.Fitness, diag.MeanFitness, diag.MeanLength)
	a.logger().Debug("generation completed",
		"generation", generation,
		"best_fitness", diag.BestSoFar,
		"mean_fitness", diag.MeanFitness,
		"mean_length", diag.MeanLength,
		"evaluations", diag.Evaluations,
	)

	progress := Progress{
		Generation:  generation,
		BestFitness: result.Best.Fitness,
		BestTree:    result.Best.Tree,
		Diagnostics: diag,
	}
	for _, o := range a.cfg.Observers {
		if err := o.OnGeneration(ctx, progress); err != nil {
			return fmt.Errorf("generation %d observer: %w", generation, err)
		}
	}
	return nil
}

// breed fills every offspring slot. All random draws happen here, in slot
// order, so evaluation order never affects the sequence.
func (a *Algorithm) breed(population []Individual) ([]*tree.Tree, error) {
	rng := a.cfg.Random
	offspring := make([]*tree.Tree, len(population))
	for i := range offspring {
		first, err := a.cfg.Selector.Select(rng, population)
		if err != nil {
			return nil, err
		}

		var child *tree.Tree
		if rng.NextDouble() < a.cfg.CrossoverProbability {
			second, err := a.cfg.Selector.Select(rng, population)
			if err != nil {
				return nil, err
			}
			child, err = a.cfg.Crossover.Cross(rng, first.Tree, second.Tree)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.cfg.Crossover.Name(), err)
			}
		} else {
			child = first.Tree.Clone()
		}

		if rng.NextDouble() < a.cfg.MutationProbability {
			child, err = a.cfg.Mutator.Mutate(rng, child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.cfg.Mutator.Name(), err)
			}
		}
		offspring[i] = child
	}
	return offspring, nil
}

func (a *Algorithm) evaluatePopulation(ctx context.Context, trees []*tree.Tree) ([]Individual, error) {
	workerCount := a.cfg.Workers
	if workerCount > len(trees) {
		workerCount = len(trees)
	}
	if workerCount <= 1 {
		population := make([]Individual, len(trees))
		for i, t := range trees {
			fitness, err := a.evaluate(ctx, t)
			if err != nil {
				return nil, err
			}
			population[i] = Individual{Tree: t, Fitness: fitness}
		}
		return a.cfg.Postprocessor.Process(population), nil
	}

	type job struct {
		idx  int
		tree *tree.Tree
	}
	type result struct {
		idx     int
		fitness float64
		err     error
	}

	jobs := make(chan job)
	results := make(chan result, len(trees))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				fitness, err := a.evaluate(ctx, j.tree)
				results <- result{idx: j.idx, fitness: fitness, err: err}
			}
		}()
	}

	for i, t := range trees {
		jobs <- job{idx: i, tree: t}
	}
	close(jobs)

	wg.Wait()
	close(results)

	population := make([]Individual, len(trees))
	var firstErr error
	firstIdx := len(trees)
	for res := range results {
		if res.err != nil {
			if res.idx < firstIdx {
				firstErr, firstIdx = res.err, res.idx
			}
			continue
		}
		population[res.idx] = Individual{Tree: trees[res.idx], Fitness: res.fitness}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return a.cfg.Postprocessor.Process(population), nil
}

func (a *Algorithm) evaluate(ctx context.Context, t *tree.Tree) (float64, error) {
	start := time.Now()
	fitness, err := a.cfg.Evaluator.Fitness(ctx, t)
	a.cfg.Metrics.ObserveEvaluation(time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("evaluate %s: %w", t, err)
	}
	return eval.Sanitize(fitness), nil
}

func summarizeGeneration(population []Individual, generation int, bestSoFar float64, evaluations int) GenerationDiagnostics {
	if len(population) == 0 {
		return GenerationDiagnostics{Generation: generation}
	}

	mean := 0.0
	totalLength := 0
	best := population[0].Fitness
	minFitness := population[0].Fitness
	fingerprints := make(map[string]struct{}, len(population))
	for i, ind := range population {
		// Running mean; a plain sum overflows once two individuals carry the
		// worst fitness.
		mean += (ind.Fitness - mean) / float64(i+1)
		totalLength += ind.Tree.Length()
		if Better(ind.Fitness, best) {
			best = ind.Fitness
		}
		if ind.Fitness < minFitness {
			minFitness = ind.Fitness
		}
		fingerprints[ComputeTreeSignature(ind.Tree).Fingerprint] = struct{}{}
	}

	return GenerationDiagnostics{
		Generation:  generation,
		BestFitness: best,
		BestSoFar:   bestSoFar,
		MeanFitness: eval.Sanitize(mean),
		MinFitness:  minFitness,
		MeanLength:  float64(totalLength) / float64(len(population)),
		Diversity:   len(fingerprints),
		Evaluations: evaluations,
	}
}
