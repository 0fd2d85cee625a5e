package types

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrRingTooSmall is returned when a boundary has fewer than three distinct
// vertices.
var ErrRingTooSmall = errors.New("boundary ring needs at least 3 vertices")

// CloseRing returns a closed copy of r, appending the first point if the last
// point does not already match it.
func CloseRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	if len(out) > 0 && !out[0].Equal(out[len(out)-1]) {
		out = append(out, out[0])
	}
	return out
}

// ValidRing checks that r is a closed ring with at least 3 distinct vertices
// (4 points including the closing point).
func ValidRing(r orb.Ring) error {
	if len(r) < 4 {
		return fmt.Errorf("ring has %d points: %w", len(r), ErrRingTooSmall)
	}
	if !r.Closed() {
		return errors.New("ring is not closed")
	}
	return nil
}

// RingsEqual reports whether two rings are equal point for point. Rings from
// different fetches are compared this way to decide whether cached layer data
// still matches the boundary it was computed for.
func RingsEqual(a, b orb.Ring) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
