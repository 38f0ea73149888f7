package symevo

import (
	"fmt"

	"symevo/internal/config"
	"symevo/internal/dataset"
	"symevo/internal/eval"
	"symevo/internal/evo"
	"symevo/internal/random"
	"symevo/internal/symbol"
)

// BuildAlgorithmConfig resolves every named component of cfg against the
// operator registry and binds the evaluator to data. Observers, logging and
// telemetry are left for the caller.
func BuildAlgorithmConfig(cfg config.Config, data *dataset.Dataset) (evo.Config, error) {
	if data == nil {
		return evo.Config{}, fmt.Errorf("%w: dataset is required", config.ErrInvalid)
	}

	grammar, err := symbol.NewDefaultGrammar(symbol.Options{
		Basic:          cfg.Symbols.Basic,
		Advanced:       cfg.Symbols.Advanced,
		Statistics:     cfg.Symbols.Statistics,
		AllowConstants: cfg.Symbols.AllowConstants,
		ConstantMin:    cfg.Symbols.ConstantMin,
		ConstantMax:    cfg.Symbols.ConstantMax,
		VariableNames:  data.VariableNames(),
		Disabled:       cfg.Symbols.Disabled,
	})
	if err != nil {
		return evo.Config{}, fmt.Errorf("build grammar: %w", err)
	}

	create, err := evo.ResolveCreator(cfg.Creator)
	if err != nil {
		return evo.Config{}, fmt.Errorf("creator %q: %w", cfg.Creator, err)
	}

	weights := make([]evo.MutationWeight, 0, len(cfg.Mutators))
	for _, m := range cfg.Mutators {
		weights = append(weights, evo.MutationWeight{Name: m.Name, Weight: m.Weight})
	}
	mutator, err := evo.BuildMutationPolicy(weights, evo.OperatorParams{
		Grammar:       grammar,
		Creator:       create,
		MaxLength:     cfg.MaxTreeLength,
		MaxDepth:      cfg.MaxTreeDepth,
		ConstantShift: cfg.ConstantShift,
	})
	if err != nil {
		return evo.Config{}, fmt.Errorf("mutation policy: %w", err)
	}

	evaluator, err := buildEvaluator(cfg, data)
	if err != nil {
		return evo.Config{}, err
	}

	postprocessor, err := evo.ResolvePostprocessor(cfg.FitnessPostprocessor)
	if err != nil {
		return evo.Config{}, fmt.Errorf("fitness postprocessor %q: %w", cfg.FitnessPostprocessor, err)
	}

	var goal *float64
	if cfg.FitnessGoal != nil {
		g := *cfg.FitnessGoal
		goal = &g
	}

	return evo.Config{
		Grammar:              grammar,
		Creator:              create,
		Crossover:            evo.SubtreeCrossover{MaxLength: cfg.MaxTreeLength, MaxDepth: cfg.MaxTreeDepth},
		Mutator:              mutator,
		Selector:             evo.TournamentSelector{GroupSize: cfg.TournamentSize},
		Random:               random.NewMersenneTwister(cfg.Seed),
		Evaluator:            evaluator,
		Postprocessor:        postprocessor,
		PopulationSize:       cfg.PopulationSize,
		MaxGenerations:       cfg.MaxGenerations,
		MaxLength:            cfg.MaxTreeLength,
		MaxDepth:             cfg.MaxTreeDepth,
		CrossoverProbability: cfg.CrossoverProbability,
		MutationProbability:  cfg.MutationProbability,
		FitnessGoal:          goal,
		Workers:              cfg.PopulationWorkers,
	}, nil
}

func buildEvaluator(cfg config.Config, data *dataset.Dataset) (eval.FitnessEvaluator, error) {
	opts := []eval.Option{
		eval.WithParallelThreshold(cfg.Evaluator.ParallelThreshold),
		eval.WithWorkers(cfg.Evaluator.Workers),
	}
	switch cfg.Evaluator.Strategy {
	case config.StrategyInterpreter:
		opts = append(opts, eval.WithStrategy(eval.Interpreter{}))
	case "", config.StrategyCompiled:
		opts = append(opts, eval.WithStrategy(eval.Compiler{Variables: data.VariableNames()}))
	default:
		return nil, fmt.Errorf("%w: unknown evaluation strategy %q", config.ErrInvalid, cfg.Evaluator.Strategy)
	}
	if cfg.Evaluator.Lenient {
		opts = append(opts, eval.WithLenient())
	}

	var (
		evaluator eval.FitnessEvaluator
		err       error
	)
	switch cfg.Problem.Type {
	case "", config.ProblemRegression:
		evaluator, err = eval.NewRegression(data, opts...)
	case config.ProblemClassification:
		evaluator, err = eval.NewClassification(data, cfg.Problem.Threshold, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown problem type %q", config.ErrInvalid, cfg.Problem.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s evaluator: %w", cfg.Problem.Type, err)
	}

	if cfg.ParsimonyCoefficient > 0 {
		evaluator = eval.Parsimony{Inner: evaluator, Coefficient: cfg.ParsimonyCoefficient}
	}
	return evaluator, nil
}
