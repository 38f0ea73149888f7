package evo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symevo/internal/creator"
	"symevo/internal/random"
	"symevo/internal/tree"
)

type noopMutator struct{}

func (noopMutator) Name() string { return "noop" }

func (noopMutator) Mutate(_ random.Source, t *tree.Tree) (*tree.Tree, error) {
	return t.Clone(), nil
}

func TestBuiltInOperatorsRegistered(t *testing.T) {
	resetOperatorRegistryForTests()

	assert.Equal(t, []string{"full", "grow"}, ListCreators())
	assert.Equal(t, []string{"change_node_type", "change_terminal", "subtree"}, ListMutators())
	c, err := ResolveCreator("full")
	require.NoError(t, err)
	assert.Equal(t, "full", c.Name())
}

func TestRegisterAndResolveMutator(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	err := RegisterMutator("noop", func(OperatorParams) (Mutator, error) { return noopMutator{}, nil })
	require.NoError(t, err)
	m, err := ResolveMutator("noop", OperatorParams{})
	require.NoError(t, err)
	assert.Equal(t, "noop", m.Name())
}

func TestRegisterMutatorDuplicate(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	err := RegisterMutator("subtree", func(OperatorParams) (Mutator, error) { return noopMutator{}, nil })
	require.ErrorIs(t, err, ErrOperatorExists)
	require.ErrorIs(t, RegisterCreator(creator.Grow{}), ErrOperatorExists)
}

func TestRegisterMutatorValidation(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	require.Error(t, RegisterMutator("", func(OperatorParams) (Mutator, error) { return noopMutator{}, nil }), "empty name")
	require.Error(t, RegisterMutator("nil", nil), "nil factory")
	require.Error(t, RegisterCreator(nil), "nil creator")
}

func TestResolveUnknownOperator(t *testing.T) {
	_, err := ResolveMutator("missing", OperatorParams{})
	require.ErrorIs(t, err, ErrOperatorNotFound)
	_, err = ResolveCreator("ramped")
	require.ErrorIs(t, err, ErrOperatorNotFound)
}

func TestSubtreeFactoryRequiresCreator(t *testing.T) {
	_, err := ResolveMutator("subtree", OperatorParams{})
	require.Error(t, err)
}

func TestBuildMutationPolicy(t *testing.T) {
	g := newTestGrammar(t)
	params := OperatorParams{Grammar: g, Creator: creator.Grow{}, MaxLength: 15, MaxDepth: 5, ConstantShift: 0.25}
	policy, err := BuildMutationPolicy([]MutationWeight{
		{Name: "subtree", Weight: 2},
		{Name: "change_terminal", Weight: 1},
	}, params)
	require.NoError(t, err)
	require.Len(t, policy.Policy, 2)
	terminal, ok := policy.Policy[1].Mutator.(ChangeTerminalMutator)
	require.True(t, ok)
	assert.Equal(t, 0.25, terminal.ConstantShift, "constant shift not forwarded")

	_, err = BuildMutationPolicy([]MutationWeight{{Name: "bogus", Weight: 1}}, params)
	require.ErrorIs(t, err, ErrOperatorNotFound)
}
