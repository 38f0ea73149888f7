package tree

import (
	"errors"
	"fmt"
	"iter"

	"symevo/internal/cloner"
	"symevo/internal/random"
	"symevo/internal/symbol"
)

// Node binds one symbol to an ordered list of subtrees. Constant leaves carry
// Value and variable leaves carry Variable.
type Node struct {
	symbol   *symbol.Symbol
	children []*Node

	Value    float64
	Variable string
}

func NewNode(s *symbol.Symbol) *Node {
	return &Node{symbol: s}
}

// NewConstant builds a constant leaf with a fixed value.
func NewConstant(s *symbol.Symbol, value float64) *Node {
	return &Node{symbol: s, Value: value}
}

// NewVariable builds a variable leaf bound to name.
func NewVariable(s *symbol.Symbol, name string) *Node {
	return &Node{symbol: s, Variable: name}
}

func (n *Node) Symbol() *symbol.Symbol {
	return n.symbol
}

// SetSymbol rebinds the node. The new symbol must accept the current child count.
func (n *Node) SetSymbol(s *symbol.Symbol) error {
	if s == nil {
		return errors.New("symbol is required")
	}
	if !s.AcceptsArity(len(n.children)) {
		return n.arityError(s, ArityInvalidCount, len(n.children))
	}
	n.symbol = s
	return nil
}

func (n *Node) SubtreeCount() int {
	return len(n.children)
}

func (n *Node) Subtree(i int) *Node {
	return n.children[i]
}

// Subtrees returns a copy of the child list.
func (n *Node) Subtrees() []*Node {
	return append([]*Node(nil), n.children...)
}

func (n *Node) IndexOfSubtree(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) AddSubtree(child *Node) error {
	return n.InsertSubtree(len(n.children), child)
}

func (n *Node) InsertSubtree(index int, child *Node) error {
	if child == nil {
		return errors.New("subtree is required")
	}
	if index < 0 || index > len(n.children) {
		return fmt.Errorf("subtree index out of range: %d", index)
	}
	if len(n.children)+1 > n.symbol.MaxArity() {
		return n.arityError(n.symbol, ArityMaximumExceeded, len(n.children)+1)
	}
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	return nil
}

func (n *Node) RemoveSubtree(index int) error {
	if index < 0 || index >= len(n.children) {
		return fmt.Errorf("subtree index out of range: %d", index)
	}
	if len(n.children)-1 < n.symbol.MinArity() {
		return n.arityError(n.symbol, ArityMinimumViolated, len(n.children)-1)
	}
	n.children = append(n.children[:index], n.children[index+1:]...)
	return nil
}

// ReplaceSubtree swaps the child at index; the child count is unchanged.
func (n *Node) ReplaceSubtree(index int, child *Node) error {
	if child == nil {
		return errors.New("subtree is required")
	}
	if index < 0 || index >= len(n.children) {
		return fmt.Errorf("subtree index out of range: %d", index)
	}
	n.children[index] = child
	return nil
}

// Length is the number of nodes in the subtree rooted at n.
func (n *Node) Length() int {
	length := 1
	for _, c := range n.children {
		length += c.Length()
	}
	return length
}

// Depth is the number of nodes on the longest root-to-leaf path; a leaf has depth 1.
func (n *Node) Depth() int {
	deepest := 0
	for _, c := range n.children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// IterateNodesPostfix yields children before their parent. The sequence is
// lazy and can be ranged over any number of times.
func (n *Node) IterateNodesPostfix() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.postfix(yield)
	}
}

func (n *Node) postfix(yield func(*Node) bool) bool {
	for _, c := range n.children {
		if !c.postfix(yield) {
			return false
		}
	}
	return yield(n)
}

// IterateNodesPrefix yields a parent before its children.
func (n *Node) IterateNodesPrefix() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.prefix(yield)
	}
}

func (n *Node) prefix(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.children {
		if !c.prefix(yield) {
			return false
		}
	}
	return true
}

// Validate returns the first arity violation found in the subtree.
func (n *Node) Validate() error {
	for node := range n.IterateNodesPrefix() {
		if !node.symbol.AcceptsArity(len(node.children)) {
			return node.arityError(node.symbol, ArityInvalidCount, len(node.children))
		}
	}
	return nil
}

// ResetLocalParameters draws a fresh payload for terminal leaves.
func (n *Node) ResetLocalParameters(rng random.Source) {
	switch n.symbol.Leaf() {
	case symbol.LeafConstant:
		n.Value = random.Range(rng, n.symbol.MinValue(), n.symbol.MaxValue())
	case symbol.LeafVariable:
		names := n.symbol.VariableNames()
		n.Variable = names[rng.NextN(len(names))]
	}
}

// CloneWith shares the symbol, which belongs to the grammar, and deep-copies
// the subtrees.
func (n *Node) CloneWith(c *cloner.Cloner) any {
	shell := &Node{symbol: n.symbol, Value: n.Value, Variable: n.Variable}
	c.Register(n, shell)
	if len(n.children) > 0 {
		shell.children = make([]*Node, len(n.children))
		for i, child := range n.children {
			shell.children[i] = cloner.Deep(c, child)
		}
	}
	return shell
}

func (n *Node) arityError(s *symbol.Symbol, kind ArityKind, count int) error {
	return &ArityError{
		Kind:   kind,
		Symbol: s.Name(),
		Count:  count,
		Min:    s.MinArity(),
		Max:    s.MaxArity(),
	}
}
