package eval

import (
	"errors"
	"fmt"

	"symevo/internal/symbol"
	"symevo/internal/tree"
)

var ErrEvaluation = errors.New("evaluation error")

// RowFunc evaluates a prepared tree against one row of variables.
type RowFunc func(vars symbol.Vars) (float64, error)

// Strategy turns a tree into a RowFunc. Preparation happens once per tree.
type Strategy interface {
	Name() string
	Prepare(t *tree.Tree) (RowFunc, error)
}

// Interpreter walks the tree on every call.
type Interpreter struct{}

func (Interpreter) Name() string {
	return "interpreter"
}

func (i Interpreter) Evaluate(t *tree.Tree, vars symbol.Vars) (float64, error) {
	if t == nil || t.Root() == nil {
		return 0, fmt.Errorf("%w: %w", ErrEvaluation, tree.ErrNoRoot)
	}
	return i.evaluateNode(t.Root(), vars)
}

func (i Interpreter) Prepare(t *tree.Tree) (RowFunc, error) {
	if t == nil || t.Root() == nil {
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, tree.ErrNoRoot)
	}
	root := t.Root()
	return func(vars symbol.Vars) (float64, error) {
		return i.evaluateNode(root, vars)
	}, nil
}

func (i Interpreter) evaluateNode(n *tree.Node, vars symbol.Vars) (float64, error) {
	s := n.Symbol()
	switch {
	case s.Leaf() == symbol.LeafConstant:
		return n.Value, nil
	case s.Leaf() == symbol.LeafVariable:
		value, ok := vars[n.Variable]
		if !ok {
			return 0, fmt.Errorf("%w: unknown variable %q", ErrEvaluation, n.Variable)
		}
		return value, nil
	case s.IsFunctional():
		args := make([]float64, n.SubtreeCount())
		for idx := range args {
			v, err := i.evaluateNode(n.Subtree(idx), vars)
			if err != nil {
				return 0, err
			}
			args[idx] = v
		}
		return s.Apply(args), nil
	default:
		return 0, fmt.Errorf("%w: unsupported symbol %s", ErrEvaluation, s.Name())
	}
}
