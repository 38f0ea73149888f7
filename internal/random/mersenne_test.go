package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMersenneTwisterReferenceOutput(t *testing.T) {
	mt := NewMersenneTwister(DefaultSeed)
	// First outputs of the MT19937 reference implementation for seed 5489.
	require.Equal(t, uint32(3499211612), mt.Uint32())
	require.Equal(t, uint32(581869302), mt.Uint32())
	require.Equal(t, uint32(3890346734), mt.Uint32())
}

func TestMersenneTwisterSameSeedSameSequence(t *testing.T) {
	a := NewMersenneTwister(42)
	b := NewMersenneTwister(42)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next(), "draw %d", i)
	}
}

func TestMersenneTwisterResetMatchesFreshInstance(t *testing.T) {
	mt := NewMersenneTwister(42)
	for i := 0; i < 17; i++ {
		mt.Next()
	}
	mt.Reset(100)
	fresh := NewMersenneTwister(100)
	for i := 0; i < 100; i++ {
		require.Equal(t, fresh.NextDouble(), mt.NextDouble())
	}
	assert.Equal(t, uint32(100), mt.Seed())
}

func TestMersenneTwisterRanges(t *testing.T) {
	mt := NewMersenneTwister(7)
	for i := 0; i < 5000; i++ {
		d := mt.NextDouble()
		require.GreaterOrEqual(t, d, 0.0)
		require.Less(t, d, 1.0)

		n := mt.NextN(5)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 5)

		require.GreaterOrEqual(t, mt.Next(), 0)
	}
}

func TestRange(t *testing.T) {
	mt := NewMersenneTwister(3)
	for i := 0; i < 1000; i++ {
		v := Range(mt, -2, 3)
		require.GreaterOrEqual(t, v, -2.0)
		require.Less(t, v, 3.0)
	}
}
