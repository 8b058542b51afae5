package emissions

import (
	"errors"
	"fmt"
	"sort"
)

// OptimizationStrategy is a named emissions reduction strategy.
type OptimizationStrategy struct {
	Name string `json:"name" yaml:"name"`
	// ReductionFactor in [0,1] is the avoidable share of baseline emissions.
	ReductionFactor float64 `json:"reduction_factor" yaml:"reduction_factor"`
}

// Saving is the estimated saving of one strategy.
type Saving struct {
	// Absolute savings in kg CO2e.
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
}

// StrategyMap indexes strategies by name. A repeated name is an error even
// when both entries carry the same factor.
func StrategyMap(strategies []OptimizationStrategy) (map[string]float64, error) {
	m := make(map[string]float64, len(strategies))
	for _, s := range strategies {
		if _, dup := m[s.Name]; dup {
			return nil, invalidInput("strategies", s.Name, "duplicate strategy name")
		}
		m[s.Name] = s.ReductionFactor
	}
	return m, nil
}

// ComputeOptimizationSavings evaluates each strategy independently against
// baseEmissions. Factors are never combined; curated combinations are just
// more entries in the map.
//
// Every entry with a factor outside [0,1] contributes an InvalidInputError to
// the joined error and is left out of the result. The valid entries are
// still returned alongside that error.
func ComputeOptimizationSavings(baseEmissions float64, strategies map[string]float64) (map[string]Saving, error) {
	if !(baseEmissions >= 0) {
		return nil, invalidInput("baseEmissions", baseEmissions, "must not be negative")
	}

	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	out := make(map[string]Saving, len(strategies))
	for _, name := range names {
		factor := strategies[name]
		if !inRange(factor, 0, 1) {
			errs = append(errs, invalidInput(fmt.Sprintf("reductionFactor[%s]", name), factor, "must be between 0 and 1"))
			continue
		}
		out[name] = Saving{
			Absolute:   Round(baseEmissions*factor, 2),
			Percentage: Round(factor*100, 1),
		}
	}
	return out, errors.Join(errs...)
}
