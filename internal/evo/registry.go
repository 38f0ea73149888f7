package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"symevo/internal/creator"
	"symevo/internal/symbol"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
)

// OperatorParams carries what a mutator factory may need to build an instance
// bound to one run.
type OperatorParams struct {
	Grammar       *symbol.Grammar
	Creator       creator.Creator
	MaxLength     int
	MaxDepth      int
	ConstantShift float64
}

type MutatorFactory func(p OperatorParams) (Mutator, error)

var operatorRegistry = struct {
	mu       sync.RWMutex
	mutators map[string]MutatorFactory
	creators map[string]creator.Creator
}{}

func init() {
	registerBuiltInOperators()
}

func registerBuiltInOperators() {
	operatorRegistry.mu.Lock()
	operatorRegistry.mutators = make(map[string]MutatorFactory)
	operatorRegistry.creators = make(map[string]creator.Creator)
	operatorRegistry.mu.Unlock()

	mustRegisterCreator(creator.Grow{})
	mustRegisterCreator(creator.Full{})

	mustRegisterMutator(SubtreeMutator{}.Name(), func(p OperatorParams) (Mutator, error) {
		if p.Creator == nil {
			return nil, fmt.Errorf("subtree mutation requires a creator")
		}
		return SubtreeMutator{Creator: p.Creator, Grammar: p.Grammar, MaxLength: p.MaxLength, MaxDepth: p.MaxDepth}, nil
	})
	mustRegisterMutator(ChangeNodeTypeMutator{}.Name(), func(p OperatorParams) (Mutator, error) {
		return ChangeNodeTypeMutator{Grammar: p.Grammar}, nil
	})
	mustRegisterMutator(ChangeTerminalMutator{}.Name(), func(p OperatorParams) (Mutator, error) {
		return ChangeTerminalMutator{Grammar: p.Grammar, ConstantShift: p.ConstantShift}, nil
	})
}

func RegisterMutator(name string, factory MutatorFactory) error {
	if name == "" {
		return errors.New("mutator name is required")
	}
	if factory == nil {
		return errors.New("mutator factory is required")
	}
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.mutators[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.mutators[name] = factory
	return nil
}

func mustRegisterMutator(name string, factory MutatorFactory) {
	if err := RegisterMutator(name, factory); err != nil {
		panic(err)
	}
}

// ResolveMutator builds the named mutator for params.
func ResolveMutator(name string, params OperatorParams) (Mutator, error) {
	operatorRegistry.mu.RLock()
	factory, ok := operatorRegistry.mutators[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: mutator %s", ErrOperatorNotFound, name)
	}
	return factory(params)
}

func RegisterCreator(c creator.Creator) error {
	if c == nil {
		return errors.New("creator is required")
	}
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.creators[c.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, c.Name())
	}
	operatorRegistry.creators[c.Name()] = c
	return nil
}

func mustRegisterCreator(c creator.Creator) {
	if err := RegisterCreator(c); err != nil {
		panic(err)
	}
}

func ResolveCreator(name string) (creator.Creator, error) {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	c, ok := operatorRegistry.creators[name]
	if !ok {
		return nil, fmt.Errorf("%w: creator %s", ErrOperatorNotFound, name)
	}
	return c, nil
}

func ListMutators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()
	return sortedKeys(operatorRegistry.mutators)
}

func ListCreators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()
	return sortedKeys(operatorRegistry.creators)
}

// MutationWeight names a registered mutator and its share of a policy.
type MutationWeight struct {
	Name   string
	Weight float64
}

// BuildMutationPolicy resolves every named mutator and wraps them in a
// WeightedMutator.
func BuildMutationPolicy(weights []MutationWeight, params OperatorParams) (*WeightedMutator, error) {
	policy := make([]WeightedMutation, 0, len(weights))
	for _, w := range weights {
		m, err := ResolveMutator(w.Name, params)
		if err != nil {
			return nil, err
		}
		policy = append(policy, WeightedMutation{Mutator: m, Weight: w.Weight})
	}
	return NewWeightedMutator(policy)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	registerBuiltInOperators()
}
