// Package stats derives per-layer summary statistics from clipped features.
// Lengths and areas are geodesic (meters and square meters on the WGS84
// sphere), densities are per km² of the drawn boundary.
package stats

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// RingAreaKm2 returns the geodesic area of a boundary ring in km².
func RingAreaKm2(ring orb.Ring) float64 {
	if len(ring) < 4 {
		return 0
	}
	return math.Abs(geo.Area(orb.Polygon{ring})) / 1e6
}

// Calculate computes the statistics the layer requests over its clipped
// features. Count is always filled. Density needs a positive boundary area;
// length applies to line layers and area/share to polygon layers. Features
// whose measurements come out non-finite are skipped while the rest still
// aggregate.
func Calculate(clipped *types.FeatureSet, layer types.LayerSpec, areaKm2 float64) types.LayerStats {
	st := types.LayerStats{Count: clipped.Count()}

	if layer.WantsStat(types.StatDensity) && areaKm2 > 0 {
		st.Density = ptr(float64(st.Count) / areaKm2)
	}

	if layer.WantsStat(types.StatTotalLength) && layer.Kind == types.KindLine {
		st.TotalLength = ptr(totalLength(clipped))
	}

	wantArea := layer.WantsStat(types.StatTotalArea)
	wantShare := layer.WantsStat(types.StatAreaShare)
	if (wantArea || wantShare) && layer.Kind == types.KindPolygon {
		total := totalArea(clipped)
		if wantArea {
			st.TotalArea = ptr(total)
		}
		if wantShare && areaKm2 > 0 {
			st.AreaShare = ptr(total / (areaKm2 * 1e6) * 100)
		}
	}

	return st
}

func totalLength(fs *types.FeatureSet) float64 {
	var sum float64
	if fs == nil {
		return 0
	}
	for _, f := range fs.Features {
		switch f.Geometry.(type) {
		case orb.LineString, orb.MultiLineString:
			l := geo.Length(f.Geometry)
			if finite(l) {
				sum += l
			}
		}
	}
	return sum
}

func totalArea(fs *types.FeatureSet) float64 {
	var sum float64
	if fs == nil {
		return 0
	}
	for _, f := range fs.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			a := math.Abs(geo.Area(f.Geometry))
			if finite(a) {
				sum += a
			}
		}
	}
	return sum
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ptr(v float64) *float64 {
	return &v
}
