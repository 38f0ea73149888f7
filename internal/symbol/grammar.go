package symbol

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDuplicateSymbol = errors.New("duplicate symbol name")

// Grammar is a named set of symbols with unique names. Insertion order is
// preserved so candidate lists are stable for a fixed random sequence.
type Grammar struct {
	name    string
	symbols []*Symbol
	byName  map[string]*Symbol
}

func NewGrammar(name string, symbols ...*Symbol) (*Grammar, error) {
	g := &Grammar{
		name:   name,
		byName: make(map[string]*Symbol, len(symbols)),
	}
	for _, s := range symbols {
		if err := g.Add(s); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Grammar) Name() string {
	return g.name
}

func (g *Grammar) Add(s *Symbol) error {
	if s == nil {
		return errors.New("symbol is required")
	}
	if _, exists := g.byName[s.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSymbol, s.Name())
	}
	g.symbols = append(g.symbols, s)
	g.byName[s.Name()] = s
	return nil
}

func (g *Grammar) Remove(name string) bool {
	if _, ok := g.byName[name]; !ok {
		return false
	}
	delete(g.byName, name)
	for i, s := range g.symbols {
		if s.Name() == name {
			g.symbols = append(g.symbols[:i], g.symbols[i+1:]...)
			break
		}
	}
	return true
}

// Symbol looks a symbol up by name, enabled or not.
func (g *Grammar) Symbol(name string) (*Symbol, bool) {
	s, ok := g.byName[name]
	return s, ok
}

// SetEnabled toggles a symbol. Trees already holding the symbol stay valid.
func (g *Grammar) SetEnabled(name string, enabled bool) error {
	s, ok := g.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	s.SetEnabled(enabled)
	return nil
}

func (g *Grammar) Symbols() []*Symbol {
	return append([]*Symbol(nil), g.symbols...)
}

func (g *Grammar) EnabledSymbols() []*Symbol {
	return g.filter(func(*Symbol) bool { return true })
}

func (g *Grammar) EnabledTerminals() []*Symbol {
	return g.filter((*Symbol).IsTerminal)
}

func (g *Grammar) EnabledFunctions() []*Symbol {
	return g.filter((*Symbol).IsFunctional)
}

// VariableNames is the sorted union of names bound by enabled variable symbols.
func (g *Grammar) VariableNames() []string {
	seen := map[string]struct{}{}
	for _, s := range g.filter(func(s *Symbol) bool { return s.Leaf() == LeafVariable }) {
		for _, name := range s.variableNames {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Grammar) filter(keep func(*Symbol) bool) []*Symbol {
	out := make([]*Symbol, 0, len(g.symbols))
	for _, s := range g.symbols {
		if s.Enabled() && keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Options toggles symbol families for NewDefaultGrammar.
type Options struct {
	Basic          bool
	Advanced       bool
	Statistics     bool
	AllowConstants bool
	ConstantMin    float64
	ConstantMax    float64
	VariableNames  []string
	Disabled       []string
}

func DefaultOptions(variableNames []string) Options {
	return Options{
		Basic:          true,
		AllowConstants: true,
		ConstantMin:    -10,
		ConstantMax:    10,
		VariableNames:  variableNames,
	}
}

// NewDefaultGrammar builds a grammar from catalogue families. Names listed in
// Disabled are added but switched off.
func NewDefaultGrammar(opts Options) (*Grammar, error) {
	g, _ := NewGrammar("default")

	families := []struct {
		on   bool
		name string
	}{
		{opts.Basic, FamilyBasic},
		{opts.Advanced, FamilyAdvanced},
		{opts.Statistics, FamilyStatistics},
	}
	for _, family := range families {
		if !family.on {
			continue
		}
		for _, name := range List(family.name) {
			s, err := Build(name)
			if err != nil {
				return nil, err
			}
			if err := g.Add(s); err != nil {
				return nil, err
			}
		}
	}

	if len(opts.VariableNames) > 0 {
		v, err := NewVariable(VariableName, opts.VariableNames)
		if err != nil {
			return nil, err
		}
		if err := g.Add(v); err != nil {
			return nil, err
		}
	}
	if opts.AllowConstants {
		c, err := NewConstant(ConstantName, opts.ConstantMin, opts.ConstantMax)
		if err != nil {
			return nil, err
		}
		if err := g.Add(c); err != nil {
			return nil, err
		}
	}

	for _, name := range opts.Disabled {
		if err := g.SetEnabled(name, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}
