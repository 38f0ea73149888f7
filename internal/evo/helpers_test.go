package evo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"symevo/internal/creator"
	"symevo/internal/random"
	"symevo/internal/symbol"
	"symevo/internal/tree"
)

func newTestGrammar(t *testing.T) *symbol.Grammar {
	t.Helper()
	opts := symbol.DefaultOptions([]string{"x0", "x1"})
	opts.ConstantMin = -1
	opts.ConstantMax = 1
	g, err := symbol.NewDefaultGrammar(opts)
	require.NoError(t, err)
	return g
}

func lookup(t *testing.T, g *symbol.Grammar, name string) *symbol.Symbol {
	t.Helper()
	s, ok := g.Symbol(name)
	require.True(t, ok, "symbol %q not in grammar", name)
	return s
}

func growTree(t *testing.T, rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) *tree.Tree {
	t.Helper()
	tr, err := creator.Grow{}.Create(rng, g, maxLength, maxDepth)
	require.NoError(t, err)
	return tr
}

// sumTree builds (x0 + x1) from g.
func sumTree(t *testing.T, g *symbol.Grammar) *tree.Tree {
	t.Helper()
	v := lookup(t, g, symbol.VariableName)
	root := tree.NewNode(lookup(t, g, symbol.Addition))
	require.NoError(t, root.AddSubtree(tree.NewVariable(v, "x0")))
	require.NoError(t, root.AddSubtree(tree.NewVariable(v, "x1")))
	return tree.New(root)
}

func collectNodes(tr *tree.Tree) map[*tree.Node]struct{} {
	out := make(map[*tree.Node]struct{})
	for n := range tr.IterateNodesPrefix() {
		out[n] = struct{}{}
	}
	return out
}

func assertDisjoint(t *testing.T, a, b *tree.Tree) {
	t.Helper()
	nodes := collectNodes(a)
	for n := range b.IterateNodesPrefix() {
		_, shared := nodes[n]
		require.False(t, shared, "trees share node %s", n)
	}
}

func assertValid(t *testing.T, tr *tree.Tree, maxLength, maxDepth int) {
	t.Helper()
	require.NoError(t, tr.Validate(), "arity invariant broken in %s", tr)
	require.LessOrEqual(t, tr.Length(), maxLength, "length exceeds limit: %s", tr)
	require.LessOrEqual(t, tr.Depth(), maxDepth, "depth exceeds limit: %s", tr)
}
