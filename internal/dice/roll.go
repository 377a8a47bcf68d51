// Package dice provides deterministic dice rolling for the session engine:
// raw spec rolls, tabletop notation, and initiative ranking.
package dice

import (
	"errors"
	"math/rand"
)

var (
	// ErrMissingDice indicates a request without any dice specs.
	ErrMissingDice = errors.New("at least one dice spec is required")
	// ErrInvalidDiceSpec indicates a spec with non-positive sides or count.
	ErrInvalidDiceSpec = errors.New("dice spec requires positive sides and count")
)

// Spec describes a group of identical dice.
type Spec struct {
	Sides int
	Count int
}

// Request describes a seeded roll of one or more dice groups.
type Request struct {
	Dice []Spec
	Seed int64
}

// Roll holds the results for one spec.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Result holds the results for a full request.
type Result struct {
	Rolls []Roll
	Total int
}

// RollDice rolls dice based on the provided request.
//
// RollDice is deterministic with respect to Request.Seed: the same seed and
// the same Dice slice always produce the same Result. Specs are processed in
// slice order and Result.Rolls preserves that order. Result.Total is the sum
// of every die rolled across the request.
func RollDice(request Request) (Result, error) {
	rng := rand.New(rand.NewSource(request.Seed))
	return RollWithRNG(rng, request.Dice)
}

// RollWithRNG rolls dice using a provided random source. This is useful when
// several rolls must share a single deterministic stream.
func RollWithRNG(rng *rand.Rand, specs []Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}

	rolls := make([]Roll, 0, len(specs))
	total := 0

	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}

		results := make([]int, spec.Count)
		rollTotal := 0
		for i := 0; i < spec.Count; i++ {
			value := rng.Intn(spec.Sides) + 1
			results[i] = value
			rollTotal += value
		}

		rolls = append(rolls, Roll{
			Sides:   spec.Sides,
			Results: results,
			Total:   rollTotal,
		})
		total += rollTotal
	}

	return Result{
		Rolls: rolls,
		Total: total,
	}, nil
}
