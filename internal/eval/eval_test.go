package eval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/creator"
	"symevo/internal/dataset"
	"symevo/internal/random"
	"symevo/internal/symbol"
	"symevo/internal/tree"
)

func mustSymbol(t *testing.T, name string) *symbol.Symbol {
	t.Helper()
	s, err := symbol.Build(name)
	require.NoError(t, err)
	return s
}

func binaryTree(t *testing.T, op string, left, right *tree.Node) *tree.Tree {
	t.Helper()
	root := tree.NewNode(mustSymbol(t, op))
	require.NoError(t, root.AddSubtree(left))
	require.NoError(t, root.AddSubtree(right))
	return tree.New(root)
}

func variable(t *testing.T, name string) *tree.Node {
	t.Helper()
	s, err := symbol.NewVariable(symbol.VariableName, []string{name})
	require.NoError(t, err)
	return tree.NewVariable(s, name)
}

func constant(t *testing.T, value float64) *tree.Node {
	t.Helper()
	s, err := symbol.NewConstant(symbol.ConstantName, -10, 10)
	require.NoError(t, err)
	return tree.NewConstant(s, value)
}

func sumDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		[]string{"x0", "x1"},
		[][]float64{{1, 2}, {2, 3}, {3, 4}, {4, 5}},
		[]float64{3, 5, 7, 9},
	)
	require.NoError(t, err)
	return d
}

func TestInterpreterEvaluatesArithmetic(t *testing.T) {
	// (x0 * 2) - x1
	product := tree.NewNode(mustSymbol(t, symbol.Multiplication))
	require.NoError(t, product.AddSubtree(variable(t, "x0")))
	require.NoError(t, product.AddSubtree(constant(t, 2)))
	tr := binaryTree(t, symbol.Subtraction, product, variable(t, "x1"))

	got, err := Interpreter{}.Evaluate(tr, symbol.Vars{"x0": 3, "x1": 1})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestInterpreterUnknownVariable(t *testing.T) {
	tr := tree.New(variable(t, "missing"))
	_, err := Interpreter{}.Evaluate(tr, symbol.Vars{"x0": 1})
	require.True(t, errors.Is(err, ErrEvaluation))

	_, err = Interpreter{}.Evaluate(tree.New(nil), symbol.Vars{})
	require.True(t, errors.Is(err, tree.ErrNoRoot))
}

func TestCompilerRejectsUnknownVariable(t *testing.T) {
	tr := tree.New(variable(t, "z"))
	_, err := Compiler{Variables: []string{"x0"}}.Compile(tr)
	require.True(t, errors.Is(err, ErrEvaluation))

	fn, err := Compiler{}.Compile(tr)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fn(symbol.Vars{}))
}

func TestCompilerWithoutVariablesFailsLikeInterpreter(t *testing.T) {
	tr := binaryTree(t, symbol.Addition, variable(t, "x0"), variable(t, "x9"))
	row := symbol.Vars{"x0": 2}

	_, interpErr := Interpreter{}.Evaluate(tr, row)
	require.ErrorIs(t, interpErr, ErrEvaluation)

	fn, err := Compiler{}.Prepare(tr)
	require.NoError(t, err)
	_, err = fn(row)
	require.ErrorIs(t, err, ErrEvaluation)
	assert.Contains(t, err.Error(), `unknown variable "x9"`)

	got, err := fn(symbol.Vars{"x0": 2, "x9": 3})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestCompiledMatchesInterpreter(t *testing.T) {
	opts := symbol.DefaultOptions([]string{"x0", "x1"})
	opts.Advanced = true
	opts.Statistics = true
	g, err := symbol.NewDefaultGrammar(opts)
	require.NoError(t, err)

	rng := random.NewMersenneTwister(7)
	rows := []symbol.Vars{
		{"x0": 0.5, "x1": -1.25},
		{"x0": 3, "x1": 0},
		{"x0": -2, "x1": 8.5},
	}
	for i := 0; i < 200; i++ {
		tr, err := creator.Grow{}.Create(rng, g, 25, 6)
		require.NoError(t, err)
		fn, err := Compiler{}.Compile(tr)
		require.NoError(t, err)
		for _, vars := range rows {
			want, err := Interpreter{}.Evaluate(tr, vars)
			require.NoError(t, err)
			got := fn(vars)
			if want == got {
				continue
			}
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(got), "tree %s", tr)
				continue
			}
			assert.InDelta(t, want, got, 1e-6, "tree %s", tr)
		}
	}
}

func TestCompilerFallsBackForSymbolsWithoutEmitter(t *testing.T) {
	avg := tree.NewNode(mustSymbol(t, symbol.Average))
	require.NoError(t, avg.AddSubtree(constant(t, 1)))
	require.NoError(t, avg.AddSubtree(constant(t, 2)))
	require.NoError(t, avg.AddSubtree(variable(t, "x0")))
	tr := tree.New(avg)

	fn, err := Compiler{}.Compile(tr)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, fn(symbol.Vars{"x0": 3}), 1e-12)
}

func TestRegressionPerfectFit(t *testing.T) {
	tr := binaryTree(t, symbol.Addition, variable(t, "x0"), variable(t, "x1"))
	for _, strategy := range []Strategy{Interpreter{}, Compiler{}} {
		t.Run(strategy.Name(), func(t *testing.T) {
			fe, err := NewRegression(sumDataset(t), WithStrategy(strategy))
			require.NoError(t, err)
			fitness, err := fe.Fitness(context.Background(), tr)
			require.NoError(t, err)
			assert.Equal(t, 0.0, fitness)
		})
	}
}

func TestRegressionNegativeMSE(t *testing.T) {
	tr := tree.New(variable(t, "x0"))
	fe, err := NewRegression(sumDataset(t))
	require.NoError(t, err)
	fitness, err := fe.Fitness(context.Background(), tr)
	require.NoError(t, err)
	// residuals 2,3,4,5
	assert.InDelta(t, -(4.0+9+16+25)/4, fitness, 1e-12)
}

func TestRegressionReadsTargetsOnce(t *testing.T) {
	d := sumDataset(t)
	fe, err := NewRegression(d, WithWorkers(1))
	require.NoError(t, err)
	tr := tree.New(variable(t, "x0"))

	want, err := fe.Fitness(context.Background(), tr)
	require.NoError(t, err)
	withCopy := testing.AllocsPerRun(20, func() { _ = d.Targets() })
	require.Positive(t, withCopy)

	var got float64
	allocs := testing.AllocsPerRun(20, func() {
		got, err = fe.Fitness(context.Background(), tr)
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	baseline := testing.AllocsPerRun(20, func() {
		_, _ = fe.Predict(context.Background(), tr)
	})
	assert.LessOrEqual(t, allocs, baseline)
}

func TestRegressionNonFiniteIsWorst(t *testing.T) {
	d, err := dataset.New([]string{"x0"}, [][]float64{{1e300}}, []float64{0})
	require.NoError(t, err)
	tr := binaryTree(t, symbol.Multiplication, variable(t, "x0"), variable(t, "x0"))

	fe, err := NewRegression(d)
	require.NoError(t, err)
	fitness, err := fe.Fitness(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, WorstFitness, fitness)
}

func TestClassificationAccuracy(t *testing.T) {
	d, err := dataset.New(
		[]string{"x0"},
		[][]float64{{0.1}, {0.9}, {0.7}, {0.2}},
		[]float64{0, 1, 1, 0},
	)
	require.NoError(t, err)

	fe, err := NewClassification(d, DefaultThreshold)
	require.NoError(t, err)
	fitness, err := fe.Fitness(context.Background(), tree.New(variable(t, "x0")))
	require.NoError(t, err)
	assert.Equal(t, 1.0, fitness)

	fitness, err = fe.Fitness(context.Background(), tree.New(constant(t, 1)))
	require.NoError(t, err)
	assert.Equal(t, 0.5, fitness)
}

func TestParallelRowsMatchSequential(t *testing.T) {
	const rows = 97
	inputs := make([][]float64, rows)
	targets := make([]float64, rows)
	for i := range inputs {
		inputs[i] = []float64{float64(i) * 0.1, float64(rows - i)}
		targets[i] = float64(i)
	}
	d, err := dataset.New([]string{"x0", "x1"}, inputs, targets)
	require.NoError(t, err)
	tr := binaryTree(t, symbol.Division, variable(t, "x1"), variable(t, "x0"))

	sequential, err := NewRegression(d, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := NewRegression(d, WithWorkers(4), WithParallelThreshold(10))
	require.NoError(t, err)

	want, err := sequential.Predict(context.Background(), tr)
	require.NoError(t, err)
	got, err := parallel.Predict(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 0, parallel.pool.Balance())
}

func TestFailedEvaluationReturnsScratchSpace(t *testing.T) {
	tr := tree.New(variable(t, "z"))
	for _, workers := range []int{1, 3} {
		fe, err := NewRegression(sumDataset(t),
			WithStrategy(Interpreter{}),
			WithWorkers(workers),
			WithParallelThreshold(2),
		)
		require.NoError(t, err)
		_, err = fe.Fitness(context.Background(), tr)
		require.True(t, errors.Is(err, ErrEvaluation))
		assert.Equal(t, 0, fe.pool.Balance())
	}
}

func TestLenientModeCountsFailures(t *testing.T) {
	fe, err := NewRegression(sumDataset(t), WithStrategy(Interpreter{}), WithLenient())
	require.NoError(t, err)
	fitness, err := fe.Fitness(context.Background(), tree.New(variable(t, "z")))
	require.NoError(t, err)
	assert.Equal(t, int64(4), fe.LenientFailures())
	assert.InDelta(t, -(9.0+25+49+81)/4, fitness, 1e-12)
}

func TestParsimonyPenalizesLength(t *testing.T) {
	inner, err := NewRegression(sumDataset(t))
	require.NoError(t, err)
	fe := Parsimony{Inner: inner, Coefficient: 0.01}
	tr := binaryTree(t, symbol.Addition, variable(t, "x0"), variable(t, "x1"))

	fitness, err := fe.Fitness(context.Background(), tr)
	require.NoError(t, err)
	assert.InDelta(t, -0.03, fitness, 1e-12)
	assert.Equal(t, "regression+parsimony", fe.Name())
}

func TestEvaluatorRejectsEmptyDataset(t *testing.T) {
	d, err := dataset.New([]string{"x0"}, nil, nil)
	require.NoError(t, err)
	_, err = NewRegression(d)
	require.True(t, errors.Is(err, dataset.ErrShape))
}

func TestVarsPoolBalance(t *testing.T) {
	pool := NewVarsPool(2, 1)
	boom := errors.New("boom")
	err := pool.With(func(vars symbol.Vars) error {
		vars["a"] = 1
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, pool.Balance())

	require.NoError(t, pool.With(func(vars symbol.Vars) error {
		assert.Empty(t, vars)
		return nil
	}))
}
