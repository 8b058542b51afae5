package emissions

import "math"

const (
	// MaxTrafficImpact is the traffic factor increase at trafficLevel 100.
	MaxTrafficImpact = 0.5
	// MaxWeatherImpact is the weather factor increase at weatherConditions 100.
	MaxWeatherImpact = 0.3

	// MinSensitivity and MaxSensitivity bound a route's traffic/weather sensitivity.
	MinSensitivity = 1.0
	MaxSensitivity = 10.0

	minLevel = 0.0
	maxLevel = 100.0
)

// Factors holds multiplicative traffic and weather impact factors, both >= 1.
type Factors struct {
	Traffic float64 `json:"traffic_factor"`
	Weather float64 `json:"weather_factor"`
}

// GlobalFactors converts 0-100 traffic and weather levels into impact factors.
// The traffic factor spans [1.0, 1.5] and the weather factor [1.0, 1.3].
func GlobalFactors(trafficLevel, weatherConditions float64) (Factors, error) {
	if !inRange(trafficLevel, minLevel, maxLevel) {
		return Factors{}, invalidInput("trafficLevel", trafficLevel, "must be between 0 and 100")
	}
	if !inRange(weatherConditions, minLevel, maxLevel) {
		return Factors{}, invalidInput("weatherConditions", weatherConditions, "must be between 0 and 100")
	}

	return Factors{
		Traffic: 1 + trafficLevel/maxLevel*MaxTrafficImpact,
		Weather: 1 + weatherConditions/maxLevel*MaxWeatherImpact,
	}, nil
}

// RouteFactor attenuates a global factor by a route's sensitivity.
// Sensitivity 10 passes the global factor through unchanged.
func RouteFactor(globalFactor, sensitivity float64) (float64, error) {
	if !(globalFactor >= 1) || math.IsInf(globalFactor, 1) {
		return 0, invalidInput("globalFactor", globalFactor, "must be a finite value of at least 1")
	}
	if !inRange(sensitivity, MinSensitivity, MaxSensitivity) {
		return 0, invalidInput("sensitivity", sensitivity, "must be between 1 and 10")
	}
	return 1 + (globalFactor-1)*(sensitivity/MaxSensitivity), nil
}

// RouteFactors applies RouteFactor to both global factors.
func RouteFactors(global Factors, trafficSensitivity, weatherSensitivity float64) (Factors, error) {
	if !inRange(trafficSensitivity, MinSensitivity, MaxSensitivity) {
		return Factors{}, invalidInput("trafficSensitivity", trafficSensitivity, "must be between 1 and 10")
	}
	if !inRange(weatherSensitivity, MinSensitivity, MaxSensitivity) {
		return Factors{}, invalidInput("weatherSensitivity", weatherSensitivity, "must be between 1 and 10")
	}

	traffic, err := RouteFactor(global.Traffic, trafficSensitivity)
	if err != nil {
		return Factors{}, err
	}
	weather, err := RouteFactor(global.Weather, weatherSensitivity)
	if err != nil {
		return Factors{}, err
	}
	return Factors{Traffic: traffic, Weather: weather}, nil
}
