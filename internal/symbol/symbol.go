package symbol

import (
	"fmt"
	"math"
)

// Capability tags what a symbol can do. Dispatch on symbols is a capability
// check, never a type switch over concrete symbol kinds.
type Capability uint8

const (
	// Terminal symbols only appear as leaves and carry a payload.
	Terminal Capability = 1 << iota
	// Functional symbols have a pure numeric operation over child values.
	Functional
	// Compilable symbols emit their own closure fragment for the compiler.
	Compilable
)

// LeafKind distinguishes the payload carried by terminal nodes.
type LeafKind uint8

const (
	LeafNone LeafKind = iota
	LeafConstant
	LeafVariable
)

// Vars maps variable names to the values of one dataset row.
type Vars map[string]float64

// Operation evaluates a functional symbol over already evaluated children.
type Operation func(args []float64) float64

// Expr is a compiled expression fragment.
type Expr func(vars Vars) float64

// Emitter builds the closure for a compilable symbol from compiled children.
type Emitter func(children []Expr) Expr

// Symbol is immutable after construction except for its enabled flag.
type Symbol struct {
	name     string
	minArity int
	maxArity int
	caps     Capability
	leaf     LeafKind
	op       Operation
	emit     Emitter
	enabled  bool

	minValue      float64
	maxValue      float64
	variableNames []string
}

// Spec describes a functional symbol.
type Spec struct {
	Name      string
	MinArity  int
	MaxArity  int
	Operation Operation
	Emitter   Emitter
}

func NewFunction(spec Spec) (*Symbol, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("symbol name is required")
	}
	if spec.Operation == nil {
		return nil, fmt.Errorf("symbol %s: operation is required", spec.Name)
	}
	if spec.MinArity < 1 || spec.MaxArity < spec.MinArity {
		return nil, fmt.Errorf("symbol %s: invalid arity [%d,%d]", spec.Name, spec.MinArity, spec.MaxArity)
	}
	caps := Functional
	if spec.Emitter != nil {
		caps |= Compilable
	}
	return &Symbol{
		name:     spec.Name,
		minArity: spec.MinArity,
		maxArity: spec.MaxArity,
		caps:     caps,
		op:       spec.Operation,
		emit:     spec.Emitter,
		enabled:  true,
	}, nil
}

// NewConstant creates the constant terminal. New constant leaves draw their
// value uniformly from [minValue, maxValue).
func NewConstant(name string, minValue, maxValue float64) (*Symbol, error) {
	if name == "" {
		return nil, fmt.Errorf("symbol name is required")
	}
	if math.IsNaN(minValue) || math.IsNaN(maxValue) || maxValue < minValue {
		return nil, fmt.Errorf("symbol %s: invalid constant range [%g,%g]", name, minValue, maxValue)
	}
	return &Symbol{
		name:     name,
		caps:     Terminal | Compilable,
		leaf:     LeafConstant,
		enabled:  true,
		minValue: minValue,
		maxValue: maxValue,
	}, nil
}

// NewVariable creates a variable terminal bound to one of variableNames.
func NewVariable(name string, variableNames []string) (*Symbol, error) {
	if name == "" {
		return nil, fmt.Errorf("symbol name is required")
	}
	if len(variableNames) == 0 {
		return nil, fmt.Errorf("symbol %s: at least one variable name is required", name)
	}
	return &Symbol{
		name:          name,
		caps:          Terminal | Compilable,
		leaf:          LeafVariable,
		enabled:       true,
		variableNames: append([]string(nil), variableNames...),
	}, nil
}

func (s *Symbol) Name() string      { return s.name }
func (s *Symbol) MinArity() int     { return s.minArity }
func (s *Symbol) MaxArity() int     { return s.maxArity }
func (s *Symbol) Enabled() bool     { return s.enabled }
func (s *Symbol) Leaf() LeafKind    { return s.leaf }
func (s *Symbol) MinValue() float64 { return s.minValue }
func (s *Symbol) MaxValue() float64 { return s.maxValue }

func (s *Symbol) SetEnabled(enabled bool) {
	s.enabled = enabled
}

func (s *Symbol) Has(c Capability) bool {
	return s.caps&c == c
}

func (s *Symbol) IsTerminal() bool   { return s.Has(Terminal) }
func (s *Symbol) IsFunctional() bool { return s.Has(Functional) }
func (s *Symbol) IsCompilable() bool { return s.Has(Compilable) }

// AcceptsArity reports whether count children satisfy the arity bounds.
func (s *Symbol) AcceptsArity(count int) bool {
	return count >= s.minArity && count <= s.maxArity
}

// VariableNames returns a copy of the names a variable symbol can bind.
func (s *Symbol) VariableNames() []string {
	return append([]string(nil), s.variableNames...)
}

// Apply runs the functional operation. Callers must check IsFunctional.
func (s *Symbol) Apply(args []float64) float64 {
	return s.op(args)
}

// Emit builds the compiled fragment. Callers must check IsCompilable and that
// the symbol is functional; terminals are compiled from their node payload.
func (s *Symbol) Emit(children []Expr) Expr {
	return s.emit(children)
}

func (s *Symbol) String() string {
	return s.name
}
