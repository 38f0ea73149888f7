package evo

import (
	"errors"
	"fmt"

	"symevo/internal/creator"
	"symevo/internal/random"
	"symevo/internal/symbol"
	"symevo/internal/tree"
)

// DefaultConstantShift bounds the delta applied by ChangeTerminalMutator.
const DefaultConstantShift = 1.0

var ErrEmptyTree = errors.New("tree has no nodes to mutate")

// SubtreeMutator replaces a random subtree with a freshly created one sized to
// the budget left at that point. A single-node tree always gets a new root.
type SubtreeMutator struct {
	Creator   creator.Creator
	Grammar   *symbol.Grammar
	MaxLength int
	MaxDepth  int
}

func (SubtreeMutator) Name() string {
	return "subtree"
}

func (m SubtreeMutator) Mutate(rng random.Source, t *tree.Tree) (*tree.Tree, error) {
	if m.Creator == nil || m.Grammar == nil {
		return nil, fmt.Errorf("subtree mutation requires a creator and a grammar")
	}
	child, points, err := clonePoints(t)
	if err != nil {
		return nil, err
	}
	p := points[rng.NextN(len(points))]
	lengthLeft := m.MaxLength - (child.Length() - p.Node.Length())
	depthLeft := m.MaxDepth - p.Level + 1

	replacement, err := m.Creator.CreateNode(rng, m.Grammar, max(lengthLeft, 1), max(depthLeft, 1))
	if err != nil {
		return nil, err
	}
	if err := child.Replace(p, replacement); err != nil {
		return nil, err
	}
	return child, nil
}

// ChangeNodeTypeMutator swaps the symbol of a random internal node for another
// enabled function that accepts the node's current child count.
type ChangeNodeTypeMutator struct {
	Grammar *symbol.Grammar
}

func (ChangeNodeTypeMutator) Name() string {
	return "change_node_type"
}

func (m ChangeNodeTypeMutator) Mutate(rng random.Source, t *tree.Tree) (*tree.Tree, error) {
	if m.Grammar == nil {
		return nil, fmt.Errorf("change node type mutation requires a grammar")
	}
	child, points, err := clonePoints(t)
	if err != nil {
		return nil, err
	}
	internal := make([]*tree.Node, 0, len(points))
	for _, p := range points {
		if p.Node.SubtreeCount() > 0 {
			internal = append(internal, p.Node)
		}
	}
	if len(internal) == 0 {
		return child, nil
	}
	target := internal[rng.NextN(len(internal))]

	current := target.Symbol()
	var candidates []*symbol.Symbol
	for _, s := range m.Grammar.EnabledFunctions() {
		if s.Name() != current.Name() && s.AcceptsArity(target.SubtreeCount()) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return child, nil
	}
	if err := target.SetSymbol(candidates[rng.NextN(len(candidates))]); err != nil {
		return nil, err
	}
	return child, nil
}

// ChangeTerminalMutator perturbs a random leaf: constants move by a uniform
// delta in [-ConstantShift, ConstantShift), variables switch to another name
// the grammar knows.
type ChangeTerminalMutator struct {
	Grammar       *symbol.Grammar
	ConstantShift float64
}

func (ChangeTerminalMutator) Name() string {
	return "change_terminal"
}

func (m ChangeTerminalMutator) Mutate(rng random.Source, t *tree.Tree) (*tree.Tree, error) {
	child, points, err := clonePoints(t)
	if err != nil {
		return nil, err
	}
	leaves := make([]*tree.Node, 0, len(points))
	for _, p := range points {
		if p.Node.Symbol().IsTerminal() {
			leaves = append(leaves, p.Node)
		}
	}
	if len(leaves) == 0 {
		return child, nil
	}
	leaf := leaves[rng.NextN(len(leaves))]

	switch leaf.Symbol().Leaf() {
	case symbol.LeafConstant:
		shift := m.ConstantShift
		if shift <= 0 {
			shift = DefaultConstantShift
		}
		leaf.Value += random.Range(rng, -shift, shift)
	case symbol.LeafVariable:
		names := leaf.Symbol().VariableNames()
		if m.Grammar != nil {
			names = m.Grammar.VariableNames()
		}
		others := make([]string, 0, len(names))
		for _, name := range names {
			if name != leaf.Variable {
				others = append(others, name)
			}
		}
		if len(others) > 0 {
			leaf.Variable = others[rng.NextN(len(others))]
		}
	}
	return child, nil
}

// WeightedMutation is one entry of a mutation policy.
type WeightedMutation struct {
	Mutator Mutator
	Weight  float64
}

// WeightedMutator draws one mutator per call with probability proportional to
// its weight.
type WeightedMutator struct {
	Policy []WeightedMutation
}

func NewWeightedMutator(policy []WeightedMutation) (*WeightedMutator, error) {
	if len(policy) == 0 {
		return nil, fmt.Errorf("mutation policy is empty")
	}
	positive := false
	for i, item := range policy {
		if item.Mutator == nil {
			return nil, fmt.Errorf("mutation policy mutator is required at index %d", i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("mutation policy weight must be >= 0 at index %d", i)
		}
		if item.Weight > 0 {
			positive = true
		}
	}
	if !positive {
		return nil, fmt.Errorf("mutation policy requires at least one positive weight")
	}
	return &WeightedMutator{Policy: append([]WeightedMutation(nil), policy...)}, nil
}

func (*WeightedMutator) Name() string {
	return "weighted"
}

func (m *WeightedMutator) Mutate(rng random.Source, t *tree.Tree) (*tree.Tree, error) {
	return m.Choose(rng).Mutate(rng, t)
}

func (m *WeightedMutator) Choose(rng random.Source) Mutator {
	total := 0.0
	for _, item := range m.Policy {
		total += item.Weight
	}
	pick := rng.NextDouble() * total
	acc := 0.0
	for _, item := range m.Policy {
		acc += item.Weight
		if item.Weight > 0 && pick < acc {
			return item.Mutator
		}
	}
	for i := len(m.Policy) - 1; i >= 0; i-- {
		if m.Policy[i].Weight > 0 {
			return m.Policy[i].Mutator
		}
	}
	return m.Policy[len(m.Policy)-1].Mutator
}

func clonePoints(t *tree.Tree) (*tree.Tree, []tree.Point, error) {
	if t == nil || t.Root() == nil {
		return nil, nil, ErrEmptyTree
	}
	child := t.Clone()
	return child, child.Points(), nil
}
