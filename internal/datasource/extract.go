package datasource

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// UnmarshalResult decodes an Overpass API JSON response.
func UnmarshalResult(data []byte) (*overpass.Result, error) {
	var result overpass.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overpass json: %w", err)
	}
	return &result, nil
}

// ExtractFeatures converts an Overpass result into the feature set for a
// layer of the given geometry kind. Elements are visited in ID order so the
// output is deterministic across runs.
//
// Point layers take nodes. Line layers take ways as linestrings, closed or
// not (a circular road is still a line). Polygon layers take closed ways and
// assembled multipolygon relations; ways that only exist as relation members
// are skipped so a lake with islands becomes one feature, not several.
func ExtractFeatures(result *overpass.Result, kind types.GeometryKind) *types.FeatureSet {
	fs := types.NewFeatureSet()
	if result == nil {
		return fs
	}

	switch kind {
	case types.KindPoint:
		extractNodes(result, fs)
	case types.KindLine:
		extractLines(result, fs)
	case types.KindPolygon:
		extractPolygons(result, fs)
	}
	return fs
}

func extractNodes(result *overpass.Result, fs *types.FeatureSet) {
	for _, id := range sortedKeys(result.Nodes) {
		node := result.Nodes[id]
		if node == nil {
			continue
		}
		fs.Append(types.Feature{
			ID:         fmt.Sprintf("node/%d", node.ID),
			Geometry:   orb.Point{node.Lon, node.Lat},
			Properties: convertTags(node.Tags),
			Name:       node.Tags["name"],
		})
	}
}

func extractLines(result *overpass.Result, fs *types.FeatureSet) {
	for _, id := range sortedKeys(result.Ways) {
		way := result.Ways[id]
		if way == nil || len(way.Geometry) < 2 {
			continue
		}
		fs.Append(types.Feature{
			ID:         fmt.Sprintf("way/%d", way.ID),
			Geometry:   wayLineString(way),
			Properties: convertTags(way.Tags),
			Name:       way.Tags["name"],
		})
	}
}

func extractPolygons(result *overpass.Result, fs *types.FeatureSet) {
	// Ways that are members of multipolygon relations must not also appear
	// as standalone features.
	memberWayIDs := make(map[int64]bool)
	for _, rel := range result.Relations {
		if rel.Tags["type"] != "multipolygon" {
			continue
		}
		for _, member := range rel.Members {
			if member.Type == "way" && member.Way != nil {
				memberWayIDs[member.Way.ID] = true
			}
		}
	}

	for _, id := range sortedKeys(result.Ways) {
		way := result.Ways[id]
		if way == nil || memberWayIDs[way.ID] {
			continue
		}
		ring, ok := wayRing(way)
		if !ok {
			continue
		}
		fs.Append(types.Feature{
			ID:         fmt.Sprintf("way/%d", way.ID),
			Geometry:   orb.Polygon{ensureWinding(ring, orb.CCW)},
			Properties: convertTags(way.Tags),
			Name:       way.Tags["name"],
		})
	}

	for _, id := range sortedKeys(result.Relations) {
		rel := result.Relations[id]
		if rel == nil || rel.Tags["type"] != "multipolygon" {
			continue
		}
		geometry := assembleMultipolygon(rel)
		if geometry == nil {
			continue
		}
		fs.Append(types.Feature{
			ID:         fmt.Sprintf("relation/%d", rel.ID),
			Geometry:   geometry,
			Properties: convertTags(rel.Tags),
			Name:       rel.Tags["name"],
		})
	}
}

// assembleMultipolygon builds a polygon or multipolygon from a relation's
// member ways. Members carry their geometry inline ("out geom" responses
// embed it); members without geometry are skipped. Inner rings attach to the
// first outer ring containing them.
func assembleMultipolygon(rel *overpass.Relation) orb.Geometry {
	var outers []orb.Ring
	var inners []orb.Ring

	for _, member := range rel.Members {
		if member.Type != "way" || member.Way == nil || len(member.Way.Geometry) == 0 {
			continue
		}
		ring, ok := wayRing(member.Way)
		if !ok {
			continue
		}
		if member.Role == "inner" {
			inners = append(inners, ensureWinding(ring, orb.CW))
		} else {
			// Role can be empty or "outer"; treat both as outer.
			outers = append(outers, ensureWinding(ring, orb.CCW))
		}
	}

	if len(outers) == 0 {
		return nil
	}

	polygons := make(orb.MultiPolygon, len(outers))
	for i, outer := range outers {
		polygons[i] = orb.Polygon{outer}
	}
	for _, inner := range inners {
		for i, outer := range outers {
			if len(inner) > 0 && planar.RingContains(outer, inner[0]) {
				polygons[i] = append(polygons[i], inner)
				break
			}
		}
	}

	if len(polygons) == 1 {
		return polygons[0]
	}
	return polygons
}

// wayRing converts a way's geometry to a closed ring. Open ways with enough
// points are closed by repeating the first point; degenerate ways report
// false.
func wayRing(way *overpass.Way) (orb.Ring, bool) {
	if len(way.Geometry) < 3 {
		return nil, false
	}
	ring := make(orb.Ring, len(way.Geometry))
	for i, point := range way.Geometry {
		ring[i] = orb.Point{point.Lon, point.Lat}
	}
	ring = types.CloseRing(ring)
	if len(ring) < 4 {
		return nil, false
	}
	return ring, true
}

func wayLineString(way *overpass.Way) orb.LineString {
	points := make(orb.LineString, len(way.Geometry))
	for i, point := range way.Geometry {
		points[i] = orb.Point{point.Lon, point.Lat}
	}
	return points
}

// ensureWinding returns the ring wound in the given orientation, reversing
// a copy when needed.
func ensureWinding(r orb.Ring, o orb.Orientation) orb.Ring {
	if r.Orientation() == o {
		return r
	}
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// convertTags converts OSM tags to generic properties map
func convertTags(tags map[string]string) map[string]interface{} {
	props := make(map[string]interface{}, len(tags))
	for k, v := range tags {
		props[k] = v
	}
	return props
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
