package evo

import (
	"math"

	"symevo/internal/eval"
)

const sizeProportionalEfficiency = 0.05

// FitnessPostprocessor adjusts fitness values after evaluation and before
// selection and best tracking.
type FitnessPostprocessor interface {
	Name() string
	Process(population []Individual) []Individual
}

type NoopFitnessPostprocessor struct{}

func (NoopFitnessPostprocessor) Name() string {
	return "none"
}

func (NoopFitnessPostprocessor) Process(population []Individual) []Individual {
	return clonePopulation(population)
}

// SizeProportionalPostprocessor scales fitness by length^-Efficiency. Negative
// fitness is pushed further down so longer trees always lose ground.
type SizeProportionalPostprocessor struct {
	Efficiency float64
}

func (SizeProportionalPostprocessor) Name() string {
	return "size_proportional"
}

func (p SizeProportionalPostprocessor) Process(population []Individual) []Individual {
	efficiency := p.Efficiency
	if efficiency <= 0 {
		efficiency = sizeProportionalEfficiency
	}
	out := clonePopulation(population)
	for i := range out {
		length := float64(max(out[i].Tree.Length(), 1))
		factor := math.Pow(length, efficiency)
		if out[i].Fitness >= 0 {
			out[i].Fitness /= factor
		} else {
			out[i].Fitness = eval.Sanitize(out[i].Fitness * factor)
		}
	}
	return out
}

// ResolvePostprocessor maps a configuration name to a postprocessor.
func ResolvePostprocessor(name string) (FitnessPostprocessor, error) {
	switch name {
	case "", NoopFitnessPostprocessor{}.Name():
		return NoopFitnessPostprocessor{}, nil
	case SizeProportionalPostprocessor{}.Name():
		return SizeProportionalPostprocessor{}, nil
	default:
		return nil, ErrOperatorNotFound
	}
}

func clonePopulation(population []Individual) []Individual {
	out := make([]Individual, len(population))
	copy(out, population)
	return out
}
