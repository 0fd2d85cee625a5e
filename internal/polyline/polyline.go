// Package polyline implements the ASCII polyline encoding used in share
// links. Coordinates are rounded to 1e-4 degrees (about 11 m), delta-encoded
// against the previous point, zigzag-mapped to unsigned, and written as
// 5-bit groups offset by 63 with a continuation bit. The format mirrors the
// classic Google polyline scheme at reduced precision to keep URLs short.
package polyline

import (
	"errors"
	"math"
	"strings"
)

const factor = 1e4

// ErrInvalid is returned when a polyline string is malformed: a character
// outside the encodable range, a truncated group, or a dangling latitude
// without its longitude.
var ErrInvalid = errors.New("invalid polyline encoding")

// Coord is a single WGS84 coordinate pair.
type Coord struct {
	Lat float64
	Lng float64
}

// Encode converts coordinates to their polyline representation. An empty
// slice yields an empty string.
func Encode(coords []Coord) string {
	var sb strings.Builder
	var prevLat, prevLng int64
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * factor))
		lng := int64(math.Round(c.Lng * factor))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

// Decode parses a polyline string back into coordinates. Deltas accumulate
// in scaled integer space, so repeated round trips do not drift.
func Decode(s string) ([]Coord, error) {
	var coords []Coord
	var lat, lng int64
	i := 0
	for i < len(s) {
		dLat, n, err := decodeValue(s[i:])
		if err != nil {
			return nil, err
		}
		i += n
		if i >= len(s) {
			return nil, ErrInvalid
		}
		dLng, n, err := decodeValue(s[i:])
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lng += dLng
		coords = append(coords, Coord{
			Lat: float64(lat) / factor,
			Lng: float64(lng) / factor,
		})
	}
	return coords, nil
}

func encodeValue(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

func decodeValue(s string) (value int64, read int, err error) {
	var result int64
	var shift uint
	for read < len(s) {
		c := int64(s[read]) - 63
		if c < 0 || c > 63 {
			return 0, 0, ErrInvalid
		}
		read++
		result |= (c & 0x1f) << shift
		shift += 5
		if c < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), read, nil
			}
			return result >> 1, read, nil
		}
	}
	// Ran out of input with the continuation bit still set.
	return 0, 0, ErrInvalid
}
