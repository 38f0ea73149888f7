package symbol

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

const (
	Addition       = "+"
	Subtraction    = "-"
	Multiplication = "*"
	Division       = "/"
	Sine           = "sin"
	Cosine         = "cos"
	Exponential    = "exp"
	Logarithm      = "log"
	SquareRoot     = "sqrt"
	Tanh           = "tanh"
	Average        = "avg"
	Minimum        = "min"
	Maximum        = "max"

	ConstantName = "constant"
	VariableName = "variable"

	// ProtectedEpsilon is the magnitude under which a denominator or log
	// argument is treated as zero.
	ProtectedEpsilon = 1e-12
	maxExpArgument   = 700.0
	maxStatArity     = 4
)

// Families group catalogue entries for grammar toggles.
const (
	FamilyBasic      = "basic"
	FamilyAdvanced   = "advanced"
	FamilyStatistics = "statistics"
)

var (
	ErrSymbolExists   = errors.New("symbol already registered")
	ErrSymbolNotFound = errors.New("symbol not found")
)

// Factory builds a fresh symbol instance, so grammars never share enable state.
type Factory func() (*Symbol, error)

type registeredSymbol struct {
	family  string
	factory Factory
}

var catalogue = struct {
	mu sync.RWMutex
	m  map[string]registeredSymbol
}{
	m: make(map[string]registeredSymbol),
}

func init() {
	registerBuiltIns()
}

func registerBuiltIns() {
	MustRegister(FamilyBasic, Addition, binary(Addition, func(a, b float64) float64 { return a + b }))
	MustRegister(FamilyBasic, Subtraction, binary(Subtraction, func(a, b float64) float64 { return a - b }))
	MustRegister(FamilyBasic, Multiplication, binary(Multiplication, func(a, b float64) float64 { return a * b }))
	MustRegister(FamilyBasic, Division, binary(Division, ProtectedDivide))

	MustRegister(FamilyAdvanced, Sine, unary(Sine, math.Sin))
	MustRegister(FamilyAdvanced, Cosine, unary(Cosine, math.Cos))
	MustRegister(FamilyAdvanced, Exponential, unary(Exponential, ProtectedExp))
	MustRegister(FamilyAdvanced, Logarithm, unary(Logarithm, ProtectedLog))
	MustRegister(FamilyAdvanced, SquareRoot, unary(SquareRoot, ProtectedSqrt))
	MustRegister(FamilyAdvanced, Tanh, unary(Tanh, math.Tanh))

	MustRegister(FamilyStatistics, Average, variadic(Average, func(args []float64) float64 {
		sum := 0.0
		for _, v := range args {
			sum += v
		}
		return sum / float64(len(args))
	}))
	MustRegister(FamilyStatistics, Minimum, variadic(Minimum, func(args []float64) float64 {
		out := args[0]
		for _, v := range args[1:] {
			out = math.Min(out, v)
		}
		return out
	}))
	MustRegister(FamilyStatistics, Maximum, variadic(Maximum, func(args []float64) float64 {
		out := args[0]
		for _, v := range args[1:] {
			out = math.Max(out, v)
		}
		return out
	}))
}

// binary symbols are compilable: the emitted closure calls fn directly on the
// two child closures instead of going through an argument slice.
func binary(name string, fn func(a, b float64) float64) Factory {
	return func() (*Symbol, error) {
		return NewFunction(Spec{
			Name:      name,
			MinArity:  2,
			MaxArity:  2,
			Operation: func(args []float64) float64 { return fn(args[0], args[1]) },
			Emitter: func(children []Expr) Expr {
				left, right := children[0], children[1]
				return func(vars Vars) float64 { return fn(left(vars), right(vars)) }
			},
		})
	}
}

func unary(name string, fn func(float64) float64) Factory {
	return func() (*Symbol, error) {
		return NewFunction(Spec{
			Name:      name,
			MinArity:  1,
			MaxArity:  1,
			Operation: func(args []float64) float64 { return fn(args[0]) },
			Emitter: func(children []Expr) Expr {
				arg := children[0]
				return func(vars Vars) float64 { return fn(arg(vars)) }
			},
		})
	}
}

// variadic symbols have no emitter; the compiler falls back to Apply.
func variadic(name string, fn Operation) Factory {
	return func() (*Symbol, error) {
		return NewFunction(Spec{
			Name:      name,
			MinArity:  1,
			MaxArity:  maxStatArity,
			Operation: fn,
		})
	}
}

func ProtectedDivide(a, b float64) float64 {
	if math.Abs(b) < ProtectedEpsilon {
		return 0
	}
	return a / b
}

func ProtectedLog(x float64) float64 {
	if math.Abs(x) < ProtectedEpsilon {
		return 0
	}
	return math.Log(math.Abs(x))
}

func ProtectedSqrt(x float64) float64 {
	return math.Sqrt(math.Abs(x))
}

func ProtectedExp(x float64) float64 {
	if x > maxExpArgument {
		x = maxExpArgument
	}
	return math.Exp(x)
}

func Register(family, name string, factory Factory) error {
	if name == "" {
		return errors.New("symbol name is required")
	}
	if factory == nil {
		return errors.New("symbol factory is required")
	}

	catalogue.mu.Lock()
	defer catalogue.mu.Unlock()

	if _, exists := catalogue.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrSymbolExists, name)
	}
	catalogue.m[name] = registeredSymbol{family: family, factory: factory}
	return nil
}

func MustRegister(family, name string, factory Factory) {
	if err := Register(family, name, factory); err != nil {
		panic(err)
	}
}

// Build creates a fresh instance of a catalogue symbol.
func Build(name string) (*Symbol, error) {
	catalogue.mu.RLock()
	entry, ok := catalogue.m[name]
	catalogue.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	return entry.factory()
}

// List returns catalogue names of a family, or all names when family is empty.
func List(family string) []string {
	catalogue.mu.RLock()
	defer catalogue.mu.RUnlock()

	names := make([]string, 0, len(catalogue.m))
	for name, entry := range catalogue.m {
		if family != "" && entry.family != family {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
