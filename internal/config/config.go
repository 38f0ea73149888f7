// Package config loads experiment configuration from YAML. Fields missing from
// the file keep the values from Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ProblemRegression     = "regression"
	ProblemClassification = "classification"

	StrategyInterpreter = "interpreter"
	StrategyCompiled    = "compiled"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Seed                 uint32          `yaml:"seed" json:"seed"`
	PopulationSize       int             `yaml:"population_size" json:"population_size" validate:"gte=1"`
	MaxGenerations       int             `yaml:"max_generations" json:"max_generations" validate:"gte=0"`
	MaxTreeLength        int             `yaml:"max_tree_length" json:"max_tree_length" validate:"gte=1"`
	MaxTreeDepth         int             `yaml:"max_tree_depth" json:"max_tree_depth" validate:"gte=1"`
	CrossoverProbability float64         `yaml:"crossover_probability" json:"crossover_probability" validate:"gte=0,lte=1"`
	MutationProbability  float64         `yaml:"mutation_probability" json:"mutation_probability" validate:"gte=0,lte=1"`
	TournamentSize       int             `yaml:"tournament_size" json:"tournament_size" validate:"gte=1"`
	Creator              string          `yaml:"creator" json:"creator" validate:"required"`
	Mutators             []MutatorWeight `yaml:"mutators" json:"mutators" validate:"min=1,dive"`
	ConstantShift        float64         `yaml:"constant_shift" json:"constant_shift" validate:"gt=0"`
	Symbols              SymbolConfig    `yaml:"symbols" json:"symbols"`
	Problem              ProblemConfig   `yaml:"problem" json:"problem"`
	Evaluator            EvaluatorConfig `yaml:"evaluator" json:"evaluator"`
	ParsimonyCoefficient float64         `yaml:"parsimony_coefficient" json:"parsimony_coefficient" validate:"gte=0"`
	FitnessPostprocessor string          `yaml:"fitness_postprocessor" json:"fitness_postprocessor,omitempty" validate:"omitempty,oneof=none size_proportional"`
	// FitnessGoal ends the run once the best fitness reaches it.
	FitnessGoal       *float64    `yaml:"fitness_goal,omitempty" json:"fitness_goal,omitempty"`
	PopulationWorkers int         `yaml:"population_workers" json:"population_workers" validate:"gte=0"`
	Store             StoreConfig `yaml:"store" json:"store"`
	ArtifactsDir      string      `yaml:"artifacts_dir" json:"artifacts_dir,omitempty"`
}

type MutatorWeight struct {
	Name   string  `yaml:"name" json:"name" validate:"required"`
	Weight float64 `yaml:"weight" json:"weight" validate:"gt=0"`
}

type SymbolConfig struct {
	Basic          bool     `yaml:"basic" json:"basic"`
	Advanced       bool     `yaml:"advanced" json:"advanced"`
	Statistics     bool     `yaml:"statistics" json:"statistics"`
	AllowConstants bool     `yaml:"allow_constants" json:"allow_constants"`
	ConstantMin    float64  `yaml:"constant_min" json:"constant_min"`
	ConstantMax    float64  `yaml:"constant_max" json:"constant_max" validate:"gtefield=ConstantMin"`
	Disabled       []string `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

type ProblemConfig struct {
	Type string `yaml:"type" json:"type" validate:"oneof=regression classification"`
	// Dataset is a CSV file with a header row.
	Dataset string `yaml:"dataset" json:"dataset,omitempty"`
	// Target names the label column. Empty selects the last column.
	Target    string  `yaml:"target" json:"target,omitempty"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

type EvaluatorConfig struct {
	Strategy          string `yaml:"strategy" json:"strategy" validate:"oneof=interpreter compiled"`
	ParallelThreshold int    `yaml:"parallel_threshold" json:"parallel_threshold" validate:"gte=0"`
	Workers           int    `yaml:"workers" json:"workers" validate:"gte=0"`
	Lenient           bool   `yaml:"lenient" json:"lenient"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" json:"kind" validate:"omitempty,oneof=memory sqlite"`
	Path string `yaml:"path" json:"path,omitempty" validate:"required_if=Kind sqlite"`
}

func Default() Config {
	return Config{
		Seed:                 1337,
		PopulationSize:       200,
		MaxGenerations:       50,
		MaxTreeLength:        50,
		MaxTreeDepth:         8,
		CrossoverProbability: 0.9,
		MutationProbability:  0.1,
		TournamentSize:       2,
		Creator:              "grow",
		Mutators: []MutatorWeight{
			{Name: "subtree", Weight: 1},
			{Name: "change_node_type", Weight: 1},
			{Name: "change_terminal", Weight: 1},
		},
		ConstantShift: 1,
		Symbols: SymbolConfig{
			Basic:          true,
			AllowConstants: true,
			ConstantMin:    -10,
			ConstantMax:    10,
		},
		Problem: ProblemConfig{
			Type:      ProblemRegression,
			Threshold: 0.5,
		},
		Evaluator: EvaluatorConfig{
			Strategy:          StrategyCompiled,
			ParallelThreshold: 1000,
		},
		Store: StoreConfig{Kind: "memory"},
	}
}

var validate = validator.New()

// Load reads a YAML config file on top of Default and validates the result.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves the defaults untouched.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Creator = strings.ToLower(strings.TrimSpace(cfg.Creator))
	if cfg.Creator == "" {
		cfg.Creator = "grow"
	}
	if cfg.Problem.Type == "" {
		cfg.Problem.Type = ProblemRegression
	}
	if cfg.Evaluator.Strategy == "" {
		cfg.Evaluator.Strategy = StrategyCompiled
	}
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = "memory"
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
