package types

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestFeatureSetClone(t *testing.T) {
	fs := NewFeatureSet()
	fs.Append(Feature{
		ID:         "way/1",
		Geometry:   orb.LineString{{0, 0}, {1, 1}},
		Properties: map[string]interface{}{"highway": "residential"},
		Name:       "Main St",
	})

	clone := fs.Clone()
	if clone.Count() != 1 {
		t.Fatalf("expected 1 feature in clone, got %d", clone.Count())
	}

	// Mutating the clone must not leak into the original.
	clone.Features[0].Properties["highway"] = "primary"
	if fs.Features[0].Properties["highway"] != "residential" {
		t.Fatal("clone shares properties map with original")
	}

	ls := clone.Features[0].Geometry.(orb.LineString)
	ls[0] = orb.Point{5, 5}
	orig := fs.Features[0].Geometry.(orb.LineString)
	if orig[0].Equal(orb.Point{5, 5}) {
		t.Fatal("clone shares geometry with original")
	}
}

func TestFeatureSetNilSafety(t *testing.T) {
	var fs *FeatureSet
	if fs.Count() != 0 {
		t.Fatal("nil feature set should count 0")
	}
	if fs.Clone() != nil {
		t.Fatal("clone of nil should be nil")
	}
}

func TestLayerSpecWantsStat(t *testing.T) {
	l := LayerSpec{ID: "roads", Kind: KindLine, Stats: []StatKind{StatDensity, StatTotalLength}}
	if !l.WantsStat(StatTotalLength) {
		t.Fatal("expected total_length to be requested")
	}
	if l.WantsStat(StatTotalArea) {
		t.Fatal("total_area should not be requested")
	}
}
