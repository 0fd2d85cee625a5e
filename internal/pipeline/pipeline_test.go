package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/area"
	"github.com/raynbowy23/Axon-City-sub002/internal/fetch"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// scriptedProvider returns a fixed feature set per layer ID.
type scriptedProvider struct {
	mu    sync.Mutex
	sets  map[string]*types.FeatureSet
	calls []string
}

func (s *scriptedProvider) FetchLayer(ctx context.Context, layer types.LayerSpec, bbox types.BoundingBox) (*types.FeatureSet, error) {
	s.mu.Lock()
	s.calls = append(s.calls, layer.ID)
	s.mu.Unlock()
	if fs, ok := s.sets[layer.ID]; ok {
		return fs.Clone(), nil
	}
	return types.NewFeatureSet(), nil
}

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func triangleRing() orb.Ring {
	return orb.Ring{{0, 0}, {1, 0}, {0, 1}, {0, 0}}
}

func pointSet(n int) *types.FeatureSet {
	fs := types.NewFeatureSet()
	for i := 0; i < n; i++ {
		// All strictly inside the triangle: x+y stays well below 1
		fs.Append(types.Feature{
			ID:       fmt.Sprintf("node/%d", i),
			Geometry: orb.Point{0.05 + float64(i)*0.05, 0.05},
		})
	}
	return fs
}

func lineSet() *types.FeatureSet {
	fs := types.NewFeatureSet()
	inside := []orb.LineString{
		{{0.1, 0.1}, {0.2, 0.1}},
		{{0.1, 0.2}, {0.2, 0.2}},
		{{0.05, 0.05}, {0.1, 0.05}},
	}
	outside := []orb.LineString{
		{{2, 2}, {3, 3}},
		{{5, 5}, {6, 5}},
	}
	for i, ls := range append(inside, outside...) {
		fs.Append(types.Feature{ID: fmt.Sprintf("way/%d", i), Geometry: ls})
	}
	return fs
}

func testLayers() []types.LayerSpec {
	return []types.LayerSpec{
		{ID: "poi", Kind: types.KindPoint, Stats: []types.StatKind{types.StatDensity}},
		{ID: "paths", Kind: types.KindLine, Stats: []types.StatKind{types.StatTotalLength}},
	}
}

func newTestPipeline(p fetch.Provider, store *area.Store) *Pipeline {
	return New(Config{
		Fetcher: fetch.New(fetch.Config{
			Provider:        p,
			LayerDelay:      time.Millisecond,
			ThrottleBackoff: time.Millisecond,
			TimeoutBackoff:  time.Millisecond,
		}),
		Store: store,
	})
}

func TestRunClipsAndStoresPerLayer(t *testing.T) {
	provider := &scriptedProvider{sets: map[string]*types.FeatureSet{
		"poi":   pointSet(10),
		"paths": lineSet(),
	}}
	store := area.NewStore(nil)
	a, err := store.AddArea("Triangle", triangleRing())
	if err != nil {
		t.Fatalf("AddArea failed: %v", err)
	}

	p := newTestPipeline(provider, store)
	if err := p.Run(context.Background(), a.ID, a.Ring, testLayers(), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, ok := store.Area(a.ID)
	if !ok {
		t.Fatal("Area disappeared")
	}

	poi := got.Layers["poi"]
	if poi == nil {
		t.Fatal("poi layer entry missing")
	}
	if poi.Stats.Count != 10 {
		t.Errorf("Expected 10 points inside the triangle, got %d", poi.Stats.Count)
	}
	if poi.Stats.Density == nil || *poi.Stats.Density <= 0 {
		t.Error("Expected positive density for the poi layer")
	}
	if poi.Raw.Count() != 10 || poi.Clipped.Count() != 10 {
		t.Errorf("Expected raw 10 / clipped 10, got %d / %d", poi.Raw.Count(), poi.Clipped.Count())
	}

	paths := got.Layers["paths"]
	if paths == nil {
		t.Fatal("paths layer entry missing")
	}
	if paths.Raw.Count() != 5 {
		t.Errorf("Expected 5 raw lines, got %d", paths.Raw.Count())
	}
	if paths.Clipped.Count() != 3 {
		t.Errorf("Expected 3 lines to survive clipping, got %d", paths.Clipped.Count())
	}
	if paths.Stats.TotalLength == nil || *paths.Stats.TotalLength <= 0 {
		t.Error("Expected positive total length for the paths layer")
	}

	if !got.LayerValid("poi") || !got.LayerValid("paths") {
		t.Error("Fresh entries should be valid against the current polygon")
	}
}

// Cancelling after the first layer keeps its cache entry and skips the rest.
func TestRunCancelKeepsCompletedLayers(t *testing.T) {
	provider := &scriptedProvider{sets: map[string]*types.FeatureSet{
		"poi":   pointSet(4),
		"paths": lineSet(),
	}}
	store := area.NewStore(nil)
	a, _ := store.AddArea("", triangleRing())

	p := New(Config{
		Fetcher: fetch.New(fetch.Config{
			Provider:   provider,
			LayerDelay: 30 * time.Millisecond,
		}),
		Store: store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := p.Run(ctx, a.ID, a.Ring, testLayers(), func(layerID string, completed, total int) {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("Expected 1 provider call, got %d", provider.callCount())
	}

	got, _ := store.Area(a.ID)
	if got.Layers["poi"] == nil {
		t.Error("Completed layer entry should be retained after cancel")
	}
	if got.Layers["paths"] != nil {
		t.Error("Unfetched layer must not have an entry")
	}
}

// An area removed mid-run absorbs the write failure without aborting.
func TestRunAreaRemovedMidRun(t *testing.T) {
	provider := &scriptedProvider{sets: map[string]*types.FeatureSet{
		"poi":   pointSet(2),
		"paths": lineSet(),
	}}
	store := area.NewStore(nil)
	a, _ := store.AddArea("", triangleRing())

	p := newTestPipeline(provider, store)
	err := p.Run(context.Background(), a.ID, a.Ring, testLayers(), func(layerID string, completed, total int) {
		if completed == 1 {
			if rerr := store.RemoveArea(a.ID); rerr != nil {
				t.Errorf("RemoveArea failed: %v", rerr)
			}
		}
	})
	if err != nil {
		t.Fatalf("Run should absorb writes to a removed area, got %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("Expected both layers fetched, got %d calls", provider.callCount())
	}
	if store.Count() != 0 {
		t.Errorf("Expected no areas left, got %d", store.Count())
	}
}

func TestComputeWithoutStore(t *testing.T) {
	provider := &scriptedProvider{sets: map[string]*types.FeatureSet{
		"poi":   pointSet(10),
		"paths": lineSet(),
	}}
	p := newTestPipeline(provider, nil)

	results, err := p.Compute(context.Background(), triangleRing(), testLayers(), nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 layer results, got %d", len(results))
	}
	if results[0].Layer.ID != "poi" || results[1].Layer.ID != "paths" {
		t.Errorf("Results out of order: %s, %s", results[0].Layer.ID, results[1].Layer.ID)
	}
	if results[0].Stats.Count != 10 {
		t.Errorf("Expected 10 poi features, got %d", results[0].Stats.Count)
	}
	if results[1].Clipped.Count() != 3 {
		t.Errorf("Expected 3 clipped paths, got %d", results[1].Clipped.Count())
	}
}

func TestRunWithoutStoreFails(t *testing.T) {
	p := newTestPipeline(&scriptedProvider{}, nil)
	if err := p.Run(context.Background(), "x", triangleRing(), testLayers(), nil); err == nil {
		t.Fatal("Run without a store should fail")
	}
}
