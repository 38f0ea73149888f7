package tree

import (
	"errors"
	"iter"
	"strconv"
	"strings"

	"symevo/internal/cloner"
	"symevo/internal/symbol"
)

var ErrNoRoot = errors.New("tree has no root")

// Tree owns a single root node. Length and Depth are computed on demand.
type Tree struct {
	root *Node
}

func New(root *Node) *Tree {
	return &Tree{root: root}
}

func (t *Tree) Root() *Node {
	return t.root
}

func (t *Tree) SetRoot(root *Node) {
	t.root = root
}

func (t *Tree) Length() int {
	if t.root == nil {
		return 0
	}
	return t.root.Length()
}

func (t *Tree) Depth() int {
	if t.root == nil {
		return 0
	}
	return t.root.Depth()
}

func (t *Tree) IterateNodesPostfix() iter.Seq[*Node] {
	if t.root == nil {
		return func(func(*Node) bool) {}
	}
	return t.root.IterateNodesPostfix()
}

func (t *Tree) IterateNodesPrefix() iter.Seq[*Node] {
	if t.root == nil {
		return func(func(*Node) bool) {}
	}
	return t.root.IterateNodesPrefix()
}

func (t *Tree) Validate() error {
	if t.root == nil {
		return ErrNoRoot
	}
	return t.root.Validate()
}

func (t *Tree) CloneWith(c *cloner.Cloner) any {
	shell := &Tree{}
	c.Register(t, shell)
	shell.root = cloner.Deep(c, t.root)
	return shell
}

// Clone copies the tree with a fresh Cloner.
func (t *Tree) Clone() *Tree {
	return cloner.Deep(cloner.New(), t)
}

// Point locates a node inside a tree. Parent is nil for the root. Level is
// 1-based, so a node at Level l leaves MaxDepth-l+1 levels for its subtree.
type Point struct {
	Node   *Node
	Parent *Node
	Index  int
	Level  int
}

// Points lists every node in prefix order with its location.
func (t *Tree) Points() []Point {
	if t.root == nil {
		return nil
	}
	out := make([]Point, 0, 16)
	var walk func(n, parent *Node, index, level int)
	walk = func(n, parent *Node, index, level int) {
		out = append(out, Point{Node: n, Parent: parent, Index: index, Level: level})
		for i, c := range n.children {
			walk(c, n, i, level+1)
		}
	}
	walk(t.root, nil, -1, 1)
	return out
}

// Replace puts replacement at p inside t, swapping the root when p has no parent.
func (t *Tree) Replace(p Point, replacement *Node) error {
	if p.Parent == nil {
		t.root = replacement
		return nil
	}
	return p.Parent.ReplaceSubtree(p.Index, replacement)
}

// String renders binary operators infix and everything else as name(args).
func (t *Tree) String() string {
	if t.root == nil {
		return "<empty>"
	}
	return t.root.String()
}

func (n *Node) String() string {
	var b strings.Builder
	n.format(&b)
	return b.String()
}

func (n *Node) format(b *strings.Builder) {
	switch n.symbol.Leaf() {
	case symbol.LeafConstant:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		return
	case symbol.LeafVariable:
		b.WriteString(n.Variable)
		return
	}
	if len(n.children) == 2 && isInfix(n.symbol.Name()) {
		b.WriteByte('(')
		n.children[0].format(b)
		b.WriteByte(' ')
		b.WriteString(n.symbol.Name())
		b.WriteByte(' ')
		n.children[1].format(b)
		b.WriteByte(')')
		return
	}
	b.WriteString(n.symbol.Name())
	b.WriteByte('(')
	for i, c := range n.children {
		if i > 0 {
			b.WriteString(", ")
		}
		c.format(b)
	}
	b.WriteByte(')')
}

func isInfix(name string) bool {
	switch name {
	case symbol.Addition, symbol.Subtraction, symbol.Multiplication, symbol.Division:
		return true
	}
	return false
}
