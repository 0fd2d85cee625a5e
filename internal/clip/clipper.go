// Package clip cuts fetched OSM features down to a drawn boundary ring.
// Polygons are intersected, lines are split at boundary crossings, and
// points are kept only when they fall inside. Features that end up empty are
// dropped; a failure on one feature never aborts the layer.
package clip

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// Clipper applies boundary clipping to whole feature sets.
type Clipper struct {
	logger *slog.Logger
}

// New creates a Clipper. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Clipper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clipper{logger: logger}
}

// Clip returns the subset of fs that intersects the boundary ring, with each
// geometry cut to the ring per the layer's geometry kind. The input set is
// not modified.
func (c *Clipper) Clip(fs *types.FeatureSet, ring orb.Ring, kind types.GeometryKind) *types.FeatureSet {
	out := types.NewFeatureSet()
	if fs == nil {
		return out
	}
	for _, f := range fs.Features {
		g, ok := c.clipFeature(f, ring, kind)
		if !ok {
			continue
		}
		clipped := f
		clipped.Geometry = g
		out.Append(clipped)
	}
	c.logger.Debug("clipped layer features",
		"kind", kind,
		"input", fs.Count(),
		"kept", out.Count())
	return out
}

func (c *Clipper) clipFeature(f types.Feature, ring orb.Ring, kind types.GeometryKind) (g orb.Geometry, ok bool) {
	// Degenerate geometry can panic deep inside the polygon clipping; skip
	// the feature and keep the layer.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("clipping failed, skipping feature", "feature", f.ID, "cause", r)
			g, ok = nil, false
		}
	}()

	switch kind {
	case types.KindPolygon:
		return ClipPolygon(f.Geometry, ring)
	case types.KindLine:
		return ClipLine(f.Geometry, ring)
	case types.KindPoint:
		return ClipPoint(f.Geometry, ring)
	default:
		return nil, false
	}
}

// ClipPoint keeps point geometries inside the ring. Points exactly on the
// boundary count as inside, so a station on the drawn edge is not lost from
// both of two adjacent areas.
func ClipPoint(g orb.Geometry, ring orb.Ring) (orb.Geometry, bool) {
	switch v := g.(type) {
	case orb.Point:
		if planar.RingContains(ring, v) {
			return v, true
		}
		return nil, false
	case orb.MultiPoint:
		var kept orb.MultiPoint
		for _, p := range v {
			if planar.RingContains(ring, p) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return nil, false
		}
		return kept, true
	default:
		return nil, false
	}
}
