package ranking

import (
	"strings"

	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// Priority selects the metric routes are ranked by.
type Priority int

// PriorityDuration is the zero value: duration ranking applies unless fuel
// or emissions is chosen explicitly.
const (
	PriorityDuration Priority = iota
	PriorityFuel
	PriorityEmissions
)

func (p Priority) String() string {
	switch p {
	case PriorityDuration:
		return "duration"
	case PriorityFuel:
		return "fuel"
	case PriorityEmissions:
		return "emissions"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority resolves a priority name. The empty string means duration.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "duration", "time":
		return PriorityDuration, nil
	case "fuel":
		return PriorityFuel, nil
	case "emissions", "co2":
		return PriorityEmissions, nil
	}
	return PriorityDuration, emissions.NewInvalidInputError("priority", s, "must be one of fuel, emissions, duration")
}

// PriorityFromFlags maps the dashboard's two checkboxes to a priority.
// The choices are mutually exclusive.
func PriorityFromFlags(prioritizeFuel, prioritizeEmissions bool) (Priority, error) {
	switch {
	case prioritizeFuel && prioritizeEmissions:
		return PriorityDuration, emissions.NewInvalidInputError("priority", "fuel+emissions", "fuel and emissions priorities are mutually exclusive")
	case prioritizeFuel:
		return PriorityFuel, nil
	case prioritizeEmissions:
		return PriorityEmissions, nil
	}
	return PriorityDuration, nil
}

func (p Priority) metric(r AdjustedRoute) float64 {
	switch p {
	case PriorityFuel:
		return r.Fuel
	case PriorityEmissions:
		return r.Emissions
	}
	return r.Duration
}
