package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"symevo/internal/dataset"
	"symevo/internal/symbol"
	"symevo/internal/tree"
)

const (
	DefaultParallelThreshold = 1000
	DefaultThreshold         = 0.5
)

// WorstFitness replaces non-finite fitness values so comparisons stay total.
const WorstFitness = -math.MaxFloat64

// FitnessEvaluator scores a tree; higher is better.
type FitnessEvaluator interface {
	Name() string
	Fitness(ctx context.Context, t *tree.Tree) (float64, error)
}

type settings struct {
	strategy          Strategy
	parallelThreshold int
	workers           int
	lenient           bool
}

type Option func(*settings)

// WithStrategy selects the interpreter or the compiler. Default is the compiler.
func WithStrategy(s Strategy) Option {
	return func(cfg *settings) { cfg.strategy = s }
}

// WithParallelThreshold sets the row count from which rows are evaluated in
// parallel. Zero or negative keeps the default.
func WithParallelThreshold(rows int) Option {
	return func(cfg *settings) {
		if rows > 0 {
			cfg.parallelThreshold = rows
		}
	}
}

func WithWorkers(workers int) Option {
	return func(cfg *settings) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithLenient switches to the diagnostic mode: a row that fails to evaluate
// predicts zero and is counted instead of aborting the whole computation.
func WithLenient() Option {
	return func(cfg *settings) { cfg.lenient = true }
}

// predictor runs a prepared tree over every dataset row.
type predictor struct {
	data *dataset.Dataset
	// targets is read once; the dataset is immutable.
	targets  []float64
	cfg      settings
	pool     *VarsPool
	failures atomic.Int64
}

func newPredictor(data *dataset.Dataset, opts []Option) (*predictor, error) {
	if data == nil {
		return nil, errors.New("dataset is required")
	}
	if data.Rows() == 0 {
		return nil, fmt.Errorf("%w: dataset has no rows", dataset.ErrShape)
	}
	cfg := settings{
		parallelThreshold: DefaultParallelThreshold,
		workers:           runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.strategy == nil {
		cfg.strategy = Compiler{Variables: data.VariableNames()}
	}
	return &predictor{
		data:    data,
		targets: data.Targets(),
		cfg:     cfg,
		pool:    NewVarsPool(len(data.VariableNames()), cfg.workers*2),
	}, nil
}

func (p *predictor) predict(ctx context.Context, t *tree.Tree) ([]float64, error) {
	fn, err := p.cfg.strategy.Prepare(t)
	if err != nil {
		return nil, err
	}
	evaluate := p.evaluateRows
	if p.cfg.lenient {
		evaluate = p.evaluateRowsLenient
	}

	rows := p.data.Rows()
	out := make([]float64, rows)
	if rows < p.cfg.parallelThreshold || p.cfg.workers <= 1 {
		if err := evaluate(fn, out, 0, rows); err != nil {
			return nil, err
		}
		return out, nil
	}

	chunk := (rows + p.cfg.workers - 1) / p.cfg.workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < rows; start += chunk {
		end := min(start+chunk, rows)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return evaluate(fn, out, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *predictor) evaluateRows(fn RowFunc, out []float64, start, end int) error {
	return p.pool.With(func(vars symbol.Vars) error {
		for i := start; i < end; i++ {
			p.data.Bind(i, vars)
			v, err := fn(vars)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = v
		}
		return nil
	})
}

func (p *predictor) evaluateRowsLenient(fn RowFunc, out []float64, start, end int) error {
	return p.pool.With(func(vars symbol.Vars) error {
		for i := start; i < end; i++ {
			p.data.Bind(i, vars)
			v, err := fn(vars)
			if err != nil {
				p.failures.Add(1)
				v = 0
			}
			out[i] = v
		}
		return nil
	})
}

// Regression scores a tree by negative mean squared error.
type Regression struct {
	*predictor
}

func NewRegression(data *dataset.Dataset, opts ...Option) (*Regression, error) {
	p, err := newPredictor(data, opts)
	if err != nil {
		return nil, err
	}
	return &Regression{predictor: p}, nil
}

func (r *Regression) Name() string {
	return "regression"
}

func (r *Regression) Fitness(ctx context.Context, t *tree.Tree) (float64, error) {
	predictions, err := r.predict(ctx, t)
	if err != nil {
		return 0, err
	}
	mse := MeanSquaredError(predictions, r.targets)
	return Sanitize(-mse), nil
}

// Predict returns the raw prediction for every row.
func (r *Regression) Predict(ctx context.Context, t *tree.Tree) ([]float64, error) {
	return r.predict(ctx, t)
}

// Classification scores a tree by accuracy after thresholding its output.
type Classification struct {
	*predictor
	threshold float64
}

func NewClassification(data *dataset.Dataset, threshold float64, opts ...Option) (*Classification, error) {
	p, err := newPredictor(data, opts)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return &Classification{predictor: p, threshold: threshold}, nil
}

func (c *Classification) Name() string {
	return "classification"
}

func (c *Classification) Fitness(ctx context.Context, t *tree.Tree) (float64, error) {
	predictions, err := c.predict(ctx, t)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, pred := range predictions {
		if c.Label(pred) == c.data.Target(i) {
			correct++
		}
	}
	return float64(correct) / float64(len(predictions)), nil
}

// Label maps a continuous prediction to class 1 or 0.
func (c *Classification) Label(prediction float64) float64 {
	if prediction >= c.threshold {
		return 1
	}
	return 0
}

// LenientFailures counts rows degraded to the sentinel in lenient mode.
func (p *predictor) LenientFailures() int64 {
	return p.failures.Load()
}

// Parsimony subtracts Coefficient per node from the inner fitness.
type Parsimony struct {
	Inner       FitnessEvaluator
	Coefficient float64
}

func (p Parsimony) Name() string {
	return p.Inner.Name() + "+parsimony"
}

func (p Parsimony) Fitness(ctx context.Context, t *tree.Tree) (float64, error) {
	fitness, err := p.Inner.Fitness(ctx, t)
	if err != nil {
		return 0, err
	}
	return Sanitize(fitness - p.Coefficient*float64(t.Length())), nil
}

func MeanSquaredError(predictions, targets []float64) float64 {
	if len(predictions) == 0 {
		return 0
	}
	sum := 0.0
	for i, pred := range predictions {
		d := pred - targets[i]
		sum += d * d
	}
	return sum / float64(len(predictions))
}

// Sanitize maps NaN and infinities to WorstFitness.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return WorstFitness
	}
	return v
}
