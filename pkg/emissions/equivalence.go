package emissions

import "math"

// CO2e (kg) represented by one unit of each equivalent.
const (
	KgPerTreeDay    = 0.022
	KgPerTreeYear   = 8.0
	KgPerCarKm      = 0.192
	KgPerFlightKm   = 0.115
	KgPerSmartphone = 80.0
	KgPerLaptop     = 300.0
	KgPerBeefKg     = 60.0
)

// Equivalents expresses a CO2e mass in relatable quantities.
type Equivalents struct {
	// TreeDays is the number of days one tree needs to absorb the mass.
	TreeDays    int64   `json:"tree_days"`
	TreeYears   float64 `json:"tree_years"`
	CarKm       int64   `json:"car_km"`
	FlightKm    int64   `json:"flight_km"`
	Smartphones float64 `json:"smartphones"`
	Laptops     float64 `json:"laptops"`
	BeefKg      float64 `json:"beef_kg"`
}

// ComputeEquivalents maps a total emissions value (kg CO2e) to equivalents.
func ComputeEquivalents(total float64) (Equivalents, error) {
	if !(total >= 0) || math.IsInf(total, 1) {
		return Equivalents{}, invalidInput("total", total, "must be a finite, non-negative value")
	}

	return Equivalents{
		TreeDays:    int64(Round(total/KgPerTreeDay, 0)),
		TreeYears:   Round(total/KgPerTreeYear, 2),
		CarKm:       int64(Round(total/KgPerCarKm, 0)),
		FlightKm:    int64(Round(total/KgPerFlightKm, 0)),
		Smartphones: Round(total/KgPerSmartphone, 2),
		Laptops:     Round(total/KgPerLaptop, 2),
		BeefKg:      Round(total/KgPerBeefKg, 1),
	}, nil
}
