// Package geojson converts layer feature sets to GeoJSON for the HTTP API
// and file export, and reads boundary polygons from GeoJSON input files.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// ToFeatureCollection converts a layer's feature set to a GeoJSON
// FeatureCollection. OSM tags become feature properties, with the element id,
// name and owning layer added under reserved keys.
func ToFeatureCollection(fs *types.FeatureSet, layerID string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if fs == nil {
		return fc
	}

	for _, f := range fs.Features {
		if f.Geometry == nil {
			continue
		}

		geoFeature := geojson.NewFeature(f.Geometry)
		if geoFeature.Properties == nil {
			geoFeature.Properties = make(map[string]interface{})
		}

		for key, value := range f.Properties {
			geoFeature.Properties[key] = value
		}

		geoFeature.Properties["osm_id"] = f.ID
		if f.Name != "" {
			geoFeature.Properties["name"] = f.Name
		}
		if layerID != "" {
			geoFeature.Properties["layer"] = layerID
		}

		fc.Append(geoFeature)
	}

	return fc
}

// Marshal renders a layer's feature set as indented GeoJSON bytes, suitable
// for writing to an export file.
func Marshal(fs *types.FeatureSet, layerID string) ([]byte, error) {
	data, err := json.MarshalIndent(ToFeatureCollection(fs, layerID), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return data, nil
}

// RingFeature wraps a boundary ring as a GeoJSON Polygon feature.
func RingFeature(ring orb.Ring, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{ring})
	for key, value := range props {
		f.Properties[key] = value
	}
	return f
}

// Boundary is one named polygon read from a GeoJSON input file.
type Boundary struct {
	Name string
	Ring orb.Ring
}

// ParseBoundaries reads boundary polygons from GeoJSON. Polygon features
// contribute their outer ring, MultiPolygon features one boundary per
// polygon; other geometry types are skipped. The feature's "name" property
// becomes the boundary name.
func ParseBoundaries(data []byte) ([]Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var out []Boundary
	for _, f := range fc.Features {
		name, _ := f.Properties["name"].(string)

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) == 0 {
				continue
			}
			if b, ok := boundaryFromRing(name, g[0]); ok {
				out = append(out, b)
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				if len(poly) == 0 {
					continue
				}
				if b, ok := boundaryFromRing(name, poly[0]); ok {
					out = append(out, b)
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no polygon boundaries found in GeoJSON input")
	}
	return out, nil
}

func boundaryFromRing(name string, ring orb.Ring) (Boundary, bool) {
	closed := make(orb.Ring, len(ring))
	copy(closed, ring)
	closed = types.CloseRing(closed)
	if err := types.ValidRing(closed); err != nil {
		return Boundary{}, false
	}
	return Boundary{Name: name, Ring: closed}, true
}
