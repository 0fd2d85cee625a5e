package area

import (
	"errors"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

func squareRing(minX, minY, size float64) orb.Ring {
	return orb.Ring{
		{minX, minY},
		{minX + size, minY},
		{minX + size, minY + size},
		{minX, minY + size},
		{minX, minY},
	}
}

type fakeSession struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{done: make(chan struct{})}
}

func (f *fakeSession) Cancel() {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
}

func (f *fakeSession) Done() <-chan struct{} { return f.done }

func (f *fakeSession) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func TestAddArea(t *testing.T) {
	s := NewStore(nil)

	first, err := s.AddArea("Downtown", squareRing(0, 0, 1))
	if err != nil {
		t.Fatalf("AddArea failed: %v", err)
	}
	if first.ID == "" {
		t.Error("Expected generated area ID")
	}
	if first.Name != "Downtown" {
		t.Errorf("Expected name Downtown, got %s", first.Name)
	}
	if first.Color == "" {
		t.Error("Expected assigned color")
	}

	second, err := s.AddArea("", squareRing(2, 0, 1))
	if err != nil {
		t.Fatalf("AddArea failed: %v", err)
	}
	if second.Name != "Area 2" {
		t.Errorf("Expected default name 'Area 2', got %s", second.Name)
	}
	if second.Color == first.Color {
		t.Errorf("Expected distinct colors, both got %s", first.Color)
	}

	areas := s.Areas()
	if len(areas) != 2 {
		t.Fatalf("Expected 2 areas, got %d", len(areas))
	}
	if areas[0].ID != first.ID || areas[1].ID != second.ID {
		t.Error("Areas not listed in creation order")
	}
}

func TestAddAreaCapacity(t *testing.T) {
	s := NewStore(nil)
	for i := 0; i < MaxAreas; i++ {
		if _, err := s.AddArea("", squareRing(float64(i*2), 0, 1)); err != nil {
			t.Fatalf("AddArea %d failed: %v", i, err)
		}
	}

	before := s.Areas()
	_, err := s.AddArea("", squareRing(20, 0, 1))
	if !errors.Is(err, ErrAreaLimit) {
		t.Fatalf("Expected ErrAreaLimit, got %v", err)
	}

	after := s.Areas()
	if len(after) != MaxAreas {
		t.Fatalf("Expected %d areas after rejected add, got %d", MaxAreas, len(after))
	}
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Error("Rejected add must leave the area list unmodified")
		}
	}
}

func TestAddAreaClosesOpenRing(t *testing.T) {
	s := NewStore(nil)
	open := orb.Ring{{0, 0}, {1, 0}, {0, 1}}

	a, err := s.AddArea("", open)
	if err != nil {
		t.Fatalf("AddArea failed: %v", err)
	}
	ring := a.Ring
	if len(ring) != 4 {
		t.Fatalf("Expected closed 4-point ring, got %d points", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("Stored ring is not closed")
	}
}

func TestAddAreaRejectsDegenerateRing(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.AddArea("", orb.Ring{{0, 0}, {1, 1}}); !errors.Is(err, types.ErrRingTooSmall) {
		t.Fatalf("Expected ErrRingTooSmall, got %v", err)
	}
	if s.Count() != 0 {
		t.Error("Failed add must not create an area")
	}
}

func TestColorFreedOnRemove(t *testing.T) {
	s := NewStore(nil)
	first, _ := s.AddArea("", squareRing(0, 0, 1))
	s.AddArea("", squareRing(2, 0, 1))

	if err := s.RemoveArea(first.ID); err != nil {
		t.Fatalf("RemoveArea failed: %v", err)
	}

	third, err := s.AddArea("", squareRing(4, 0, 1))
	if err != nil {
		t.Fatalf("AddArea failed: %v", err)
	}
	if third.Color != first.Color {
		t.Errorf("Expected freed color %s to be reused, got %s", first.Color, third.Color)
	}
}

func TestLayerDataValidity(t *testing.T) {
	s := NewStore(nil)
	ring := squareRing(0, 0, 1)
	a, _ := s.AddArea("", ring)

	stats := &types.LayerStats{Count: 3}
	err := s.UpdateAreaLayerData(a.ID, "roads", &LayerData{
		Ring:    squareRing(0, 0, 1),
		Raw:     types.NewFeatureSet(),
		Clipped: types.NewFeatureSet(),
		Stats:   stats,
	})
	if err != nil {
		t.Fatalf("UpdateAreaLayerData failed: %v", err)
	}

	if !s.LayerValid(a.ID, "roads") {
		t.Error("Entry fetched against the current polygon should be valid")
	}
	if s.LayerValid(a.ID, "parks") {
		t.Error("Missing entry should not be valid")
	}

	// Replacing the polygon leaves the entry in place but stale
	if err := s.UpdateAreaPolygon(a.ID, squareRing(0, 0, 2)); err != nil {
		t.Fatalf("UpdateAreaPolygon failed: %v", err)
	}
	if s.LayerValid(a.ID, "roads") {
		t.Error("Entry should turn stale when the polygon changes")
	}
	got, _ := s.Area(a.ID)
	if got.Layers["roads"] == nil || got.Layers["roads"].Stats.Count != 3 {
		t.Error("Stale entry should remain stored")
	}
}

func TestUpdateAreaLayerDataMergeWrite(t *testing.T) {
	s := NewStore(nil)
	a, _ := s.AddArea("", squareRing(0, 0, 1))

	s.UpdateAreaLayerData(a.ID, "roads", &LayerData{Stats: &types.LayerStats{Count: 1}})
	s.UpdateAreaLayerData(a.ID, "parks", &LayerData{Stats: &types.LayerStats{Count: 2}})

	got, _ := s.Area(a.ID)
	if len(got.Layers) != 2 {
		t.Fatalf("Expected 2 layer entries, got %d", len(got.Layers))
	}

	s.UpdateAreaLayerData(a.ID, "roads", &LayerData{Stats: &types.LayerStats{Count: 9}})
	got, _ = s.Area(a.ID)
	if got.Layers["roads"].Stats.Count != 9 {
		t.Error("Overwrite did not take effect")
	}
	if got.Layers["parks"].Stats.Count != 2 {
		t.Error("Merge write must not disturb other layers")
	}

	err := s.UpdateAreaLayerData("nope", "roads", &LayerData{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestActiveAreaLifecycle(t *testing.T) {
	s := NewStore(nil)
	a, _ := s.AddArea("", squareRing(0, 0, 1))
	b, _ := s.AddArea("", squareRing(2, 0, 1))

	if s.ActiveAreaID() != "" {
		t.Error("No area should be active initially")
	}
	if err := s.SetActiveArea(b.ID); err != nil {
		t.Fatalf("SetActiveArea failed: %v", err)
	}
	if got := s.ActiveArea(); got == nil || got.ID != b.ID {
		t.Fatal("ActiveArea mismatch")
	}

	if err := s.SetActiveArea("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if s.ActiveAreaID() != b.ID {
		t.Error("Failed activation must not change the selection")
	}

	// Removing the active area falls back to the oldest remaining one
	if err := s.RemoveArea(b.ID); err != nil {
		t.Fatalf("RemoveArea failed: %v", err)
	}
	if s.ActiveAreaID() != a.ID {
		t.Errorf("Expected fallback to %s, got %s", a.ID, s.ActiveAreaID())
	}

	s.RemoveArea(a.ID)
	if s.ActiveAreaID() != "" {
		t.Error("Expected empty selection after removing the last area")
	}

	if err := s.SetActiveArea(""); err != nil {
		t.Errorf("Clearing the selection should succeed, got %v", err)
	}
}

func TestClearAreas(t *testing.T) {
	s := NewStore(nil)
	a, _ := s.AddArea("", squareRing(0, 0, 1))
	s.SetActiveArea(a.ID)
	s.SetSession(a.ID, newFakeSession())

	s.ClearAreas()
	if s.Count() != 0 {
		t.Errorf("Expected 0 areas, got %d", s.Count())
	}
	if s.ActiveAreaID() != "" {
		t.Error("Expected empty selection")
	}
	if s.SessionFor(a.ID) != nil {
		t.Error("Expected session handles dropped")
	}
}

func TestSessionHandles(t *testing.T) {
	s := NewStore(nil)
	a, _ := s.AddArea("", squareRing(0, 0, 1))

	if s.SessionFor(a.ID) != nil {
		t.Fatal("Expected no session initially")
	}

	sess := newFakeSession()
	s.SetSession(a.ID, sess)
	if s.SessionFor(a.ID) != Session(sess) {
		t.Fatal("SessionFor should return the installed handle")
	}

	s.CancelSession(a.ID)
	if !sess.wasCancelled() {
		t.Error("CancelSession did not cancel the handle")
	}
	if s.SessionFor(a.ID) == nil {
		t.Error("Cancel must not evict the handle")
	}

	// A stale handle cannot clear its successor
	replacement := newFakeSession()
	s.SetSession(a.ID, replacement)
	s.ClearSession(a.ID, sess)
	if s.SessionFor(a.ID) != Session(replacement) {
		t.Error("Stale ClearSession evicted the successor handle")
	}

	s.ClearSession(a.ID, replacement)
	if s.SessionFor(a.ID) != nil {
		t.Error("ClearSession with the current handle should evict it")
	}

	// Cancelling a missing session is a no-op
	s.CancelSession("ghost")

	other, _ := s.AddArea("", squareRing(2, 0, 1))
	s1, s2 := newFakeSession(), newFakeSession()
	s.SetSession(a.ID, s1)
	s.SetSession(other.ID, s2)
	s.CancelAllSessions()
	if !s1.wasCancelled() || !s2.wasCancelled() {
		t.Error("CancelAllSessions missed a handle")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore(nil)
	a, _ := s.AddArea("", squareRing(0, 0, 1))

	snap, _ := s.Area(a.ID)
	snap.Layers["roads"] = &LayerData{Stats: &types.LayerStats{Count: 99}}
	snap.Name = "tampered"

	fresh, _ := s.Area(a.ID)
	if len(fresh.Layers) != 0 {
		t.Error("Mutating a snapshot's layer map leaked into the store")
	}
	if fresh.Name == "tampered" {
		t.Error("Mutating a snapshot's fields leaked into the store")
	}

	// Store writes after a snapshot was taken do not appear in it
	s.UpdateAreaLayerData(a.ID, "parks", &LayerData{Stats: &types.LayerStats{Count: 1}})
	if _, ok := snap.Layers["parks"]; ok {
		t.Error("Store write leaked into an earlier snapshot")
	}
	fresh, _ = s.Area(a.ID)
	if fresh.Layers["parks"].Stats.Count != 1 {
		t.Error("Store write missing from a fresh snapshot")
	}
}
