package evo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSignatureFollowsFormattedTree(t *testing.T) {
	g := newTestGrammar(t)
	a := ComputeTreeSignature(sumTree(t, g))
	b := ComputeTreeSignature(sumTree(t, g))
	require.Equal(t, a.Fingerprint, b.Fingerprint, "equal trees must share a fingerprint")
	assert.Equal(t, 3, a.Summary.Length)
	assert.Equal(t, 2, a.Summary.Depth)
	assert.Equal(t, "+=1 variable=2", FormatDistribution(a.Summary.SymbolDistribution))

	mutated := sumTree(t, g)
	mutated.Root().Subtree(1).Variable = "x0"
	assert.NotEqual(t, a.Fingerprint, ComputeTreeSignature(mutated).Fingerprint, "different trees should not collide")
}
