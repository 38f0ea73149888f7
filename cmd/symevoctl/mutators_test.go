package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/config"
)

func TestNormalizeMutatorName(t *testing.T) {
	cases := map[string]string{
		"subtree":          "subtree",
		"Subtree-Mutation": "subtree",
		"point":            "change_node_type",
		"change-node-type": "change_node_type",
		"terminal":         "change_terminal",
		" change_leaf ":    "change_terminal",
		"hoist":            "hoist",
	}
	for name, want := range cases {
		assert.Equal(t, want, normalizeMutatorName(name), name)
	}
}

func TestParseMutatorWeights(t *testing.T) {
	got, err := parseMutatorWeights([]string{"subtree=2, point", "subtree=0.5", "change_terminal=3"})
	require.NoError(t, err)
	assert.Equal(t, []config.MutatorWeight{
		{Name: "subtree", Weight: 2.5},
		{Name: "change_node_type", Weight: 1},
		{Name: "change_terminal", Weight: 3},
	}, got)

	for _, bad := range [][]string{{"subtree=x"}, {"subtree=0"}, {"=1"}, {" , "}} {
		_, err := parseMutatorWeights(bad)
		require.Error(t, err, "%q", bad)
	}
}
