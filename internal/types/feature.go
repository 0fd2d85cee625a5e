package types

import (
	"github.com/paulmach/orb"
)

// GeometryKind classifies the geometry a layer carries.
type GeometryKind string

const (
	KindPolygon GeometryKind = "polygon"
	KindLine    GeometryKind = "line"
	KindPoint   GeometryKind = "point"
)

// Feature represents a geographic feature extracted from OSM
type Feature struct {
	ID         string                 // OSM element ID (e.g., "way/12345")
	Geometry   orb.Geometry           // Geometry (Point, LineString, Polygon, MultiPolygon)
	Properties map[string]interface{} // OSM tags and additional properties
	Name       string                 // Feature name (if available)
}

// FeatureSet is an ordered collection of features belonging to one layer.
type FeatureSet struct {
	Features []Feature
}

// NewFeatureSet returns an empty feature set.
func NewFeatureSet() *FeatureSet {
	return &FeatureSet{Features: []Feature{}}
}

// Count returns the total number of features
func (fs *FeatureSet) Count() int {
	if fs == nil {
		return 0
	}
	return len(fs.Features)
}

// Append adds a feature to the set.
func (fs *FeatureSet) Append(f Feature) {
	fs.Features = append(fs.Features, f)
}

// Clone returns a deep copy of the feature set. Geometries are cloned so the
// copy can be mutated without affecting the original.
func (fs *FeatureSet) Clone() *FeatureSet {
	if fs == nil {
		return nil
	}
	out := &FeatureSet{Features: make([]Feature, len(fs.Features))}
	for i, f := range fs.Features {
		props := make(map[string]interface{}, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		out.Features[i] = Feature{
			ID:         f.ID,
			Geometry:   orb.Clone(f.Geometry),
			Properties: props,
			Name:       f.Name,
		}
	}
	return out
}
