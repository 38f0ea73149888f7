package evo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/symbol"
	"symevo/internal/tree"
)

func TestSizeProportionalPostprocessorUsesEfficiencyExponent(t *testing.T) {
	g := newTestGrammar(t)
	small := sumTree(t, g)
	root := tree.NewNode(lookup(t, g, symbol.Multiplication))
	require.NoError(t, root.AddSubtree(sumTree(t, g).Root()))
	require.NoError(t, root.AddSubtree(sumTree(t, g).Root()))
	large := tree.New(root)
	population := []Individual{
		{Tree: small, Fitness: 1.0},
		{Tree: large, Fitness: -1.0},
	}
	out := SizeProportionalPostprocessor{}.Process(population)

	wantSmall := 1.0 / math.Pow(float64(small.Length()), sizeProportionalEfficiency)
	wantLarge := -1.0 * math.Pow(float64(large.Length()), sizeProportionalEfficiency)
	assert.InDelta(t, wantSmall, out[0].Fitness, 1e-9)
	assert.InDelta(t, wantLarge, out[1].Fitness, 1e-9)
}

func TestSizeProportionalPostprocessorKeepsCloneIsolation(t *testing.T) {
	g := newTestGrammar(t)
	population := []Individual{{Tree: sumTree(t, g), Fitness: 1.0}}
	out := SizeProportionalPostprocessor{}.Process(population)
	out[0].Fitness = 999
	assert.NotEqual(t, 999.0, population[0].Fitness, "expected postprocessor output to be cloned from input")
}

func TestNoopPostprocessorKeepsFitness(t *testing.T) {
	g := newTestGrammar(t)
	population := []Individual{{Tree: sumTree(t, g), Fitness: 0.25}}
	out := NoopFitnessPostprocessor{}.Process(population)
	assert.Equal(t, 0.25, out[0].Fitness)
	assert.Same(t, population[0].Tree, out[0].Tree)
}

func TestResolvePostprocessor(t *testing.T) {
	for _, name := range []string{"", "none", "size_proportional"} {
		_, err := ResolvePostprocessor(name)
		require.NoError(t, err, name)
	}
	_, err := ResolvePostprocessor("novelty")
	require.ErrorIs(t, err, ErrOperatorNotFound)
}
