package evo

import (
	"errors"

	"symevo/internal/cloner"
	"symevo/internal/random"
	"symevo/internal/tree"
)

// DefaultCrossoverAttempts bounds the donor draws before crossover gives up
// and returns the recipient clone unchanged.
const DefaultCrossoverAttempts = 16

var ErrNilParent = errors.New("crossover parent is nil")

// SubtreeCrossover swaps a random recipient subtree for a random donor
// subtree that keeps the child within MaxLength and MaxDepth.
type SubtreeCrossover struct {
	MaxLength   int
	MaxDepth    int
	MaxAttempts int
}

func (SubtreeCrossover) Name() string {
	return "subtree_crossover"
}

func (c SubtreeCrossover) Cross(rng random.Source, recipient, donor *tree.Tree) (*tree.Tree, error) {
	if recipient == nil || recipient.Root() == nil || donor == nil || donor.Root() == nil {
		return nil, ErrNilParent
	}
	child := recipient.Clone()

	points := child.Points()
	cut := points[rng.NextN(len(points))]
	lengthLeft := c.MaxLength - (child.Length() - cut.Node.Length())
	depthLeft := c.MaxDepth - cut.Level + 1

	donorPoints := donor.Points()
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultCrossoverAttempts
	}
	for i := 0; i < attempts; i++ {
		candidate := donorPoints[rng.NextN(len(donorPoints))].Node
		if candidate.Length() > lengthLeft || candidate.Depth() > depthLeft {
			continue
		}
		// recipient and donor may be the same tree, so the graft gets its own
		// cloner rather than reusing any mapping built for the child.
		graft := cloner.Deep(cloner.New(), candidate)
		if err := child.Replace(cut, graft); err != nil {
			return nil, err
		}
		return child, nil
	}
	return child, nil
}
