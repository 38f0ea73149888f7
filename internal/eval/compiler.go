package eval

import (
	"fmt"
	"slices"

	"symevo/internal/symbol"
	"symevo/internal/tree"
)

// Compiled is a tree translated into nested closures. It only reads its
// inputs, so one instance may be called from many goroutines.
type Compiled func(vars symbol.Vars) float64

// Compiler translates a tree once so per-row evaluation skips the symbol
// dispatch. With Variables set, unknown variables fail at compile time.
// Without it, Prepare checks each row for the variables the tree reads and
// fails like the interpreter; a bare Compiled reads missing ones as zero.
type Compiler struct {
	Variables []string
}

func (Compiler) Name() string {
	return "compiled"
}

func (c Compiler) Compile(t *tree.Tree) (Compiled, error) {
	fn, _, err := c.compile(t)
	return fn, err
}

func (c Compiler) Prepare(t *tree.Tree) (RowFunc, error) {
	fn, used, err := c.compile(t)
	if err != nil {
		return nil, err
	}
	if len(c.Variables) > 0 || len(used) == 0 {
		return func(vars symbol.Vars) (float64, error) {
			return fn(vars), nil
		}, nil
	}
	return func(vars symbol.Vars) (float64, error) {
		for _, name := range used {
			if _, ok := vars[name]; !ok {
				return 0, fmt.Errorf("%w: unknown variable %q", ErrEvaluation, name)
			}
		}
		return fn(vars), nil
	}, nil
}

// compile also returns the distinct variable names the tree reads, in
// first-visit order.
func (c Compiler) compile(t *tree.Tree) (Compiled, []string, error) {
	if t == nil || t.Root() == nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEvaluation, tree.ErrNoRoot)
	}
	var known map[string]struct{}
	if len(c.Variables) > 0 {
		known = make(map[string]struct{}, len(c.Variables))
		for _, name := range c.Variables {
			known[name] = struct{}{}
		}
	}
	var used []string
	expr, err := compileNode(t.Root(), known, &used)
	if err != nil {
		return nil, nil, err
	}
	return Compiled(expr), used, nil
}

func compileNode(n *tree.Node, known map[string]struct{}, used *[]string) (symbol.Expr, error) {
	s := n.Symbol()
	switch {
	case s.Leaf() == symbol.LeafConstant:
		value := n.Value
		return func(symbol.Vars) float64 { return value }, nil
	case s.Leaf() == symbol.LeafVariable:
		name := n.Variable
		if known != nil {
			if _, ok := known[name]; !ok {
				return nil, fmt.Errorf("%w: unknown variable %q", ErrEvaluation, name)
			}
		}
		if !slices.Contains(*used, name) {
			*used = append(*used, name)
		}
		return func(vars symbol.Vars) float64 { return vars[name] }, nil
	case !s.IsFunctional():
		return nil, fmt.Errorf("%w: unsupported symbol %s", ErrEvaluation, s.Name())
	}

	children := make([]symbol.Expr, n.SubtreeCount())
	for i := range children {
		child, err := compileNode(n.Subtree(i), known, used)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	if s.IsCompilable() {
		return s.Emit(children), nil
	}

	// Fallback for symbols without an emitter: apply the operation like the
	// interpreter does. Each call allocates its own argument slice.
	return func(vars symbol.Vars) float64 {
		args := make([]float64, len(children))
		for i, child := range children {
			args[i] = child(vars)
		}
		return s.Apply(args)
	}, nil
}
