package geo

import "math"

// EncodePolyline encodes a path with Google's Polyline Algorithm Format
// at 1e-5 precision.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
func EncodePolyline(path []Location) string {
	if len(path) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(path)*12)
	prevLat, prevLon := 0, 0

	for _, p := range path {
		lat := int(math.Round(p.Latitude * 1e5))
		lon := int(math.Round(p.Longitude * 1e5))

		buf = appendSigned(buf, lat-prevLat)
		buf = appendSigned(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// appendSigned zigzag-encodes value in 5-bit chunks.
func appendSigned(buf []byte, value int) []byte {
	s := value << 1
	if value < 0 {
		s = ^s
	}

	for s >= 0x20 {
		buf = append(buf, byte((0x20|(s&0x1f))+63))
		s >>= 5
	}
	return append(buf, byte(s+63))
}
