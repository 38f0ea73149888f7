// Package creator builds random grammar-valid trees within length and depth
// budgets.
package creator

import (
	"errors"
	"fmt"

	"symevo/internal/random"
	"symevo/internal/symbol"
	"symevo/internal/tree"
)

var (
	ErrNoTerminals   = errors.New("grammar has no enabled terminal symbols")
	ErrInvalidBudget = errors.New("invalid tree budget")
)

// Creator produces trees and subtrees. CreateNode is used by subtree mutation
// to grow a replacement that fits the budget left at the mutation point.
type Creator interface {
	Name() string
	Create(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) (*tree.Tree, error)
	CreateNode(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) (*tree.Node, error)
}

// Grow picks uniformly among every symbol that fits the remaining budget.
type Grow struct{}

func (Grow) Name() string {
	return "grow"
}

func (c Grow) Create(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) (*tree.Tree, error) {
	root, err := c.CreateNode(rng, g, maxLength, maxDepth)
	if err != nil {
		return nil, err
	}
	return tree.New(root), nil
}

func (Grow) CreateNode(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) (*tree.Node, error) {
	b, err := newBuilder(rng, g, maxLength, maxDepth, false)
	if err != nil {
		return nil, err
	}
	return b.build(maxDepth, maxLength)
}

// Full only places functional symbols until the depth budget is exhausted and
// gives every function node its widest arity that still fits the length budget.
type Full struct{}

func (Full) Name() string {
	return "full"
}

func (c Full) Create(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) (*tree.Tree, error) {
	root, err := c.CreateNode(rng, g, maxLength, maxDepth)
	if err != nil {
		return nil, err
	}
	return tree.New(root), nil
}

func (Full) CreateNode(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int) (*tree.Node, error) {
	b, err := newBuilder(rng, g, maxLength, maxDepth, true)
	if err != nil {
		return nil, err
	}
	return b.build(maxDepth, maxLength)
}

type builder struct {
	rng       random.Source
	terminals []*symbol.Symbol
	functions []*symbol.Symbol
	full      bool
	remaining int
}

func newBuilder(rng random.Source, g *symbol.Grammar, maxLength, maxDepth int, full bool) (*builder, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if g == nil {
		return nil, errors.New("grammar is required")
	}
	if maxLength < 1 || maxDepth < 1 {
		return nil, fmt.Errorf("%w: length=%d depth=%d", ErrInvalidBudget, maxLength, maxDepth)
	}
	terminals := g.EnabledTerminals()
	if len(terminals) == 0 {
		return nil, ErrNoTerminals
	}
	return &builder{
		rng:       rng,
		terminals: terminals,
		functions: g.EnabledFunctions(),
		full:      full,
		remaining: maxLength,
	}, nil
}

// build creates one node with at most depth levels and at most budget nodes.
// b.remaining tracks the global length budget; budget is the share this
// subtree may consume after reserving one node for each later sibling.
func (b *builder) build(depth, budget int) (*tree.Node, error) {
	s := b.pick(depth, budget)
	node := tree.NewNode(s)
	b.remaining--
	budget--

	if s.IsTerminal() {
		node.ResetLocalParameters(b.rng)
		return node, nil
	}

	arity := b.arity(s, budget)
	for i := 0; i < arity; i++ {
		share := budget - (arity - 1 - i)
		before := b.remaining
		child, err := b.build(depth-1, share)
		if err != nil {
			return nil, err
		}
		if err := node.AddSubtree(child); err != nil {
			return nil, err
		}
		budget -= before - b.remaining
	}
	return node, nil
}

func (b *builder) pick(depth, budget int) *symbol.Symbol {
	var fitting []*symbol.Symbol
	if depth > 1 {
		for _, s := range b.functions {
			if s.MinArity() <= budget-1 {
				fitting = append(fitting, s)
			}
		}
	}

	candidates := fitting
	if !b.full || len(fitting) == 0 {
		if b.full {
			candidates = b.terminals
		} else {
			candidates = append(append([]*symbol.Symbol(nil), fitting...), b.terminals...)
		}
	}
	return candidates[b.rng.NextN(len(candidates))]
}

func (b *builder) arity(s *symbol.Symbol, budget int) int {
	hi := s.MaxArity()
	if hi > budget {
		hi = budget
	}
	lo := s.MinArity()
	if b.full || hi == lo {
		return hi
	}
	return lo + b.rng.NextN(hi-lo+1)
}
