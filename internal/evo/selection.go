package evo

import (
	"errors"
	"fmt"

	"symevo/internal/random"
)

const DefaultTournamentSize = 2

var ErrEmptyPopulation = errors.New("population is empty")

// Selector chooses one parent from the current population.
type Selector interface {
	Name() string
	Select(rng random.Source, population []Individual) (Individual, error)
}

// TournamentSelector samples GroupSize individuals with replacement and keeps
// the fittest. Ties go to the earliest draw.
type TournamentSelector struct {
	GroupSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Select(rng random.Source, population []Individual) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return Individual{}, ErrEmptyPopulation
	}
	size := s.GroupSize
	if size <= 0 {
		size = DefaultTournamentSize
	}

	best := population[rng.NextN(len(population))]
	for i := 1; i < size; i++ {
		candidate := population[rng.NextN(len(population))]
		if Better(candidate.Fitness, best.Fitness) {
			best = candidate
		}
	}
	return best, nil
}
