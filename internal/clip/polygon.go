package clip

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ClipPolygon intersects a polygonal geometry with the boundary ring. The
// result is an orb.Polygon for a single surviving piece or an
// orb.MultiPolygon when the boundary cuts the feature apart. ok is false
// when nothing remains inside the boundary.
func ClipPolygon(g orb.Geometry, ring orb.Ring) (orb.Geometry, bool) {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	default:
		return nil, false
	}

	subject := multiPolygonToGeom(mp)
	bnd := geom.Polygon{ringToContour(ring)}
	if len(subject) == 0 || len(bnd[0]) < 3 {
		return nil, false
	}

	result := subject.Intersection(bnd).(geom.Polygon)
	if len(result) == 0 || result.Area() == 0 {
		return nil, false
	}

	out := assembleContours(result)
	switch len(out) {
	case 0:
		return nil, false
	case 1:
		return out[0], true
	default:
		return out, true
	}
}

// ringToContour converts an orb ring to a contour, dropping the duplicate
// closing point.
func ringToContour(r orb.Ring) []geom.Point {
	n := len(r)
	if n > 1 && r[0].Equal(r[n-1]) {
		n--
	}
	pts := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = geom.Point{X: r[i][0], Y: r[i][1]}
	}
	return pts
}

func contourToRing(c []geom.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(c)+1)
	for _, p := range c {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

func multiPolygonToGeom(mp orb.MultiPolygon) geom.Polygon {
	var out geom.Polygon
	for _, poly := range mp {
		for _, ring := range poly {
			c := ringToContour(ring)
			if len(c) >= 3 {
				out = append(out, c)
			}
		}
	}
	return out
}

// assembleContours rebuilds orb polygons from the flat contour list a
// boolean operation returns. A contour contained in an even number of other
// contours is an outer shell; odd means hole. Holes attach to the smallest
// shell containing them. Winding is normalized to CCW shells and CW holes.
func assembleContours(p geom.Polygon) orb.MultiPolygon {
	rings := make([]orb.Ring, 0, len(p))
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		ring := contourToRing(c)
		if signedArea(ring) == 0 {
			continue
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 {
		return nil
	}

	depth := make([]int, len(rings))
	for i := range rings {
		for j := range rings {
			if i != j && ringInsideRing(rings[i], rings[j]) {
				depth[i]++
			}
		}
	}

	type shell struct {
		outer orb.Ring
		holes []orb.Ring
		area  float64
	}
	var shells []shell
	shellIdx := make(map[int]int)
	for i, r := range rings {
		if depth[i]%2 == 0 {
			shellIdx[i] = len(shells)
			shells = append(shells, shell{
				outer: orient(r, orb.CCW),
				area:  math.Abs(signedArea(r)),
			})
		}
	}

	for i, r := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		best := -1
		for j := range rings {
			si, isShell := shellIdx[j]
			if !isShell || !ringInsideRing(r, rings[j]) {
				continue
			}
			if best == -1 || shells[si].area < shells[best].area {
				best = si
			}
		}
		if best >= 0 {
			shells[best].holes = append(shells[best].holes, orient(r, orb.CW))
		}
	}

	out := make(orb.MultiPolygon, 0, len(shells))
	for _, s := range shells {
		poly := make(orb.Polygon, 0, 1+len(s.holes))
		poly = append(poly, s.outer)
		poly = append(poly, s.holes...)
		out = append(out, poly)
	}
	return out
}

// ringInsideRing decides containment by majority vote over a's vertices.
// Vertices shared with b's boundary count as inside, which keeps holes that
// touch their shell attached to it.
func ringInsideRing(a, b orb.Ring) bool {
	n := len(a)
	if n > 1 && a[0].Equal(a[n-1]) {
		n--
	}
	if n == 0 {
		return false
	}
	inside := 0
	for i := 0; i < n; i++ {
		if planar.RingContains(b, a[i]) {
			inside++
		}
	}
	return inside*2 > n
}

// signedArea computes the shoelace area of a closed ring. Positive means
// counter-clockwise.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

// orient returns r wound in the requested direction, copying only when a
// reversal is needed.
func orient(r orb.Ring, o orb.Orientation) orb.Ring {
	if r.Orientation() == o {
		return r
	}
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}
