package types

import (
	"fmt"

	"github.com/paulmach/orb"
)

// BoundingBox represents a geographic bounding box in WGS84 (EPSG:4326)
type BoundingBox struct {
	MinLon float64 // Western edge (degrees)
	MinLat float64 // Southern edge (degrees)
	MaxLon float64 // Eastern edge (degrees)
	MaxLat float64 // Northern edge (degrees)
}

// RingBound computes the axis-aligned bounding box of a boundary ring,
// expanded by buffer degrees on every side. Features straddling the boundary
// keep their full geometry inside the fetch window this way.
func RingBound(ring orb.Ring, buffer float64) BoundingBox {
	b := ring.Bound()
	return BoundingBox{
		MinLon: b.Min[0] - buffer,
		MinLat: b.Min[1] - buffer,
		MaxLon: b.Max[0] + buffer,
		MaxLat: b.Max[1] + buffer,
	}
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Width returns the width of the bounding box in degrees
func (b BoundingBox) Width() float64 {
	return b.MaxLon - b.MinLon
}

// Height returns the height of the bounding box in degrees
func (b BoundingBox) Height() float64 {
	return b.MaxLat - b.MinLat
}

// ExpandByDegrees grows the box by d degrees on every side.
func (b BoundingBox) ExpandByDegrees(d float64) BoundingBox {
	return BoundingBox{
		MinLon: b.MinLon - d,
		MinLat: b.MinLat - d,
		MaxLon: b.MaxLon + d,
		MaxLat: b.MaxLat + d,
	}
}

// ExpandByFraction grows the box by the given fraction of its width and
// height on each side. A fraction of 0 returns the box unchanged.
func (b BoundingBox) ExpandByFraction(f float64) BoundingBox {
	dLon := b.Width() * f
	dLat := b.Height() * f
	return BoundingBox{
		MinLon: b.MinLon - dLon,
		MinLat: b.MinLat - dLat,
		MaxLon: b.MaxLon + dLon,
		MaxLat: b.MaxLat + dLat,
	}
}

// Bound converts the box to an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}
