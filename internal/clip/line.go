package clip

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ClipLine cuts a line geometry at every boundary crossing and keeps the
// pieces whose midpoints fall inside the ring. One surviving piece yields an
// orb.LineString, several yield an orb.MultiLineString. ok is false when the
// whole line lies outside.
func ClipLine(g orb.Geometry, ring orb.Ring) (orb.Geometry, bool) {
	var parts []orb.LineString
	switch v := g.(type) {
	case orb.LineString:
		parts = []orb.LineString{v}
	case orb.MultiLineString:
		parts = v
	default:
		return nil, false
	}

	var kept []orb.LineString
	for _, ls := range parts {
		kept = append(kept, clipLineString(ls, ring)...)
	}

	switch len(kept) {
	case 0:
		return nil, false
	case 1:
		return kept[0], true
	default:
		return orb.MultiLineString(kept), true
	}
}

func clipLineString(ls orb.LineString, ring orb.Ring) []orb.LineString {
	if len(ls) < 2 {
		return nil
	}

	cut := insertCrossings(ls, ring)

	var runs []orb.LineString
	var current orb.LineString
	for i := 0; i < len(cut)-1; i++ {
		a, b := cut[i], cut[i+1]
		if a.Equal(b) {
			continue
		}
		mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
		if planar.RingContains(ring, mid) {
			if len(current) == 0 {
				current = orb.LineString{a}
			}
			current = append(current, b)
		} else if len(current) > 1 {
			runs = append(runs, current)
			current = nil
		} else {
			current = nil
		}
	}
	if len(current) > 1 {
		runs = append(runs, current)
	}
	return runs
}

// insertCrossings returns the line with every intersection against the ring
// edges spliced in as an extra vertex, so each output segment lies entirely
// inside or outside the ring.
func insertCrossings(ls orb.LineString, ring orb.Ring) orb.LineString {
	out := make(orb.LineString, 0, len(ls))
	for i := 0; i < len(ls)-1; i++ {
		a, b := ls[i], ls[i+1]
		out = append(out, a)

		var ts []float64
		for j := 0; j < len(ring)-1; j++ {
			if t, ok := segmentIntersection(a, b, ring[j], ring[j+1]); ok {
				ts = append(ts, t)
			}
		}
		sort.Float64s(ts)

		prev := 0.0
		for _, t := range ts {
			if t <= prev+1e-12 || t >= 1-1e-12 {
				prev = math.Max(prev, t)
				continue
			}
			out = append(out, orb.Point{
				a[0] + (b[0]-a[0])*t,
				a[1] + (b[1]-a[1])*t,
			})
			prev = t
		}
	}
	out = append(out, ls[len(ls)-1])
	return out
}

// segmentIntersection finds where segment a1-a2 crosses segment b1-b2,
// returning the parameter along a1-a2. Parallel and collinear pairs report
// no crossing; overlapping stretches are classified by the midpoint test
// instead.
func segmentIntersection(a1, a2, b1, b2 orb.Point) (float64, bool) {
	d1x, d1y := a2[0]-a1[0], a2[1]-a1[1]
	d2x, d2y := b2[0]-b1[0], b2[1]-b1[1]

	denom := d1x*d2y - d1y*d2x
	if math.Abs(denom) < 1e-18 {
		return 0, false
	}

	ex, ey := b1[0]-a1[0], b1[1]-a1[1]
	t := (ex*d2y - ey*d2x) / denom
	u := (ex*d1y - ey*d1x) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
