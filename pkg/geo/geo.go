// Package geo holds the coordinate type used for route paths.
package geo

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"lat"`
	Longitude float64 `json:"longitude" yaml:"lon"`
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}
