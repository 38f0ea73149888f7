package evo

import (
	"symevo/internal/random"
	"symevo/internal/tree"
)

// Individual pairs a tree with its fitness. Higher fitness is better.
type Individual struct {
	Tree    *tree.Tree
	Fitness float64
}

// Better reports whether fitness a strictly beats b. Every comparison in
// selection and best tracking goes through it.
func Better(a, b float64) bool {
	return a > b
}

// Crossover recombines two parents into a fresh child. Neither parent is
// modified and the child shares no nodes with them.
type Crossover interface {
	Name() string
	Cross(rng random.Source, recipient, donor *tree.Tree) (*tree.Tree, error)
}

// Mutator perturbs a clone of its input and returns the clone.
type Mutator interface {
	Name() string
	Mutate(rng random.Source, t *tree.Tree) (*tree.Tree, error)
}
