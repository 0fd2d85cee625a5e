// Package area owns the set of selection areas under comparison, their
// per-layer feature caches, and the per-area fetch session handles.
package area

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// MaxAreas caps how many selection areas can exist at once.
const MaxAreas = 4

// One distinct color per area slot.
var areaPalette = [MaxAreas]string{"#e63946", "#277da1", "#43aa8b", "#f8961e"}

var (
	ErrAreaLimit = errors.New("area limit reached")
	ErrNotFound  = errors.New("area not found")
)

// Session is the cancel handle of an in-flight fetch run. Stored here so
// cancellation is an ordinary store operation instead of a side-channel
// flag.
type Session interface {
	Cancel()
	Done() <-chan struct{}
}

// LayerData is one layer's cache entry for one area. Entries are written
// whole and never mutated afterwards, so snapshots may share them.
type LayerData struct {
	// Ring is the boundary polygon the fetch ran against. The entry is
	// only valid while it equals the area's current polygon.
	Ring      orb.Ring          `json:"-"`
	Raw       *types.FeatureSet `json:"-"`
	Clipped   *types.FeatureSet `json:"-"`
	Stats     *types.LayerStats `json:"stats,omitempty"`
	FetchedAt time.Time         `json:"fetched_at,omitempty"`
}

// Area is one user-drawn selection region.
type Area struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Color     string                `json:"color"`
	Ring      orb.Ring              `json:"polygon"`
	Layers    map[string]*LayerData `json:"layers"`
	CreatedAt time.Time             `json:"created_at"`
}

// LayerValid reports whether the cached entry for layerID was fetched
// against the area's current polygon.
func (a *Area) LayerValid(layerID string) bool {
	ld := a.Layers[layerID]
	return ld != nil && types.RingsEqual(ld.Ring, a.Ring)
}

// Store is the single mutable owner of all areas. Reads take snapshots;
// writes for one area are serialized by the coordinator, but the store
// itself is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	areas    map[string]*Area
	order    []string
	active   string
	sessions map[string]Session
	logger   *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		areas:    make(map[string]*Area),
		sessions: make(map[string]Session),
		logger:   logger,
	}
}

// AddArea creates a new area from a closed boundary ring. It fails with
// ErrAreaLimit at capacity, leaving the store untouched.
func (s *Store) AddArea(name string, ring orb.Ring) (*Area, error) {
	ring = types.CloseRing(cloneRing(ring))
	if err := types.ValidRing(ring); err != nil {
		return nil, fmt.Errorf("invalid boundary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.areas) >= MaxAreas {
		return nil, ErrAreaLimit
	}

	a := &Area{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     s.nextColorLocked(),
		Ring:      ring,
		Layers:    make(map[string]*LayerData),
		CreatedAt: time.Now(),
	}
	if a.Name == "" {
		a.Name = fmt.Sprintf("Area %d", len(s.areas)+1)
	}

	s.areas[a.ID] = a
	s.order = append(s.order, a.ID)
	metrics.ActiveAreas.Set(float64(len(s.areas)))
	s.logger.Info("area added", "area", a.ID, "name", a.Name, "vertices", len(ring)-1)

	return snapshotArea(a), nil
}

// UpdateAreaPolygon replaces an area's boundary. Cached layer entries are
// left in place; they simply stop being valid because their fetch ring no
// longer matches.
func (s *Store) UpdateAreaPolygon(id string, ring orb.Ring) error {
	ring = types.CloseRing(cloneRing(ring))
	if err := types.ValidRing(ring); err != nil {
		return fmt.Errorf("invalid boundary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.areas[id]
	if !ok {
		return fmt.Errorf("updating polygon of %s: %w", id, ErrNotFound)
	}
	a.Ring = ring
	s.logger.Info("area polygon replaced", "area", id, "vertices", len(ring)-1)
	return nil
}

// RenameArea changes an area's display name.
func (s *Store) RenameArea(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.areas[id]
	if !ok {
		return fmt.Errorf("renaming %s: %w", id, ErrNotFound)
	}
	a.Name = name
	return nil
}

// UpdateAreaLayerData merge-writes one layer's cache entry.
func (s *Store) UpdateAreaLayerData(id, layerID string, data *LayerData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.areas[id]
	if !ok {
		return fmt.Errorf("writing layer %s of %s: %w", layerID, id, ErrNotFound)
	}
	a.Layers[layerID] = data
	return nil
}

// RemoveArea deletes an area and drops its session handle. Cancelling the
// session first is the coordinator's job.
func (s *Store) RemoveArea(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.areas[id]; !ok {
		return fmt.Errorf("removing %s: %w", id, ErrNotFound)
	}
	delete(s.areas, id)
	delete(s.sessions, id)
	for i, aid := range s.order {
		if aid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == id {
		s.active = ""
		if len(s.order) > 0 {
			s.active = s.order[0]
		}
	}
	metrics.ActiveAreas.Set(float64(len(s.areas)))
	s.logger.Info("area removed", "area", id)
	return nil
}

// ClearAreas drops every area and session handle.
func (s *Store) ClearAreas() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.areas = make(map[string]*Area)
	s.sessions = make(map[string]Session)
	s.order = nil
	s.active = ""
	metrics.ActiveAreas.Set(0)
	s.logger.Info("all areas cleared")
}

// SetActiveArea changes which area is considered selected. It is a pure
// pointer change and never triggers work. An empty id clears the selection.
func (s *Store) SetActiveArea(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.areas[id]; !ok {
			return fmt.Errorf("activating %s: %w", id, ErrNotFound)
		}
	}
	s.active = id
	return nil
}

func (s *Store) ActiveAreaID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ActiveArea returns a snapshot of the selected area, or nil.
func (s *Store) ActiveArea() *Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.areas[s.active]; ok {
		return snapshotArea(a)
	}
	return nil
}

// Area returns a snapshot of one area.
func (s *Store) Area(id string) (*Area, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.areas[id]
	if !ok {
		return nil, false
	}
	return snapshotArea(a), true
}

// Areas returns snapshots of all areas in creation order.
func (s *Store) Areas() []*Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Area, 0, len(s.order))
	for _, id := range s.order {
		if a, ok := s.areas[id]; ok {
			out = append(out, snapshotArea(a))
		}
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.areas)
}

// LayerValid reports whether an area's cached layer entry matches its
// current polygon.
func (s *Store) LayerValid(areaID, layerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.areas[areaID]
	return ok && a.LayerValid(layerID)
}

// SetSession installs the in-flight session handle for an area. Any
// previous handle must already be cancelled by the caller.
func (s *Store) SetSession(areaID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[areaID] = sess
}

// SessionFor returns the live session handle for an area, or nil.
func (s *Store) SessionFor(areaID string) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[areaID]
}

// ClearSession removes the handle only if it is still the installed one,
// so a finished run never evicts its successor.
func (s *Store) ClearSession(areaID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[areaID] == sess {
		delete(s.sessions, areaID)
	}
}

// CancelSession cancels an area's in-flight run, if any. The handle stays
// installed until the run winds down and clears it.
func (s *Store) CancelSession(areaID string) {
	s.mu.RLock()
	sess := s.sessions[areaID]
	s.mu.RUnlock()
	if sess != nil {
		sess.Cancel()
	}
}

// CancelAllSessions cancels every in-flight run.
func (s *Store) CancelAllSessions() {
	s.mu.RLock()
	sessions := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()
	for _, sess := range sessions {
		sess.Cancel()
	}
}

// nextColorLocked picks the first palette color not already in use.
func (s *Store) nextColorLocked() string {
	used := make(map[string]bool, len(s.areas))
	for _, a := range s.areas {
		used[a.Color] = true
	}
	for _, c := range areaPalette {
		if !used[c] {
			return c
		}
	}
	return areaPalette[0]
}

// snapshotArea copies the struct and its layer map. LayerData entries are
// shared; they are immutable once written.
func snapshotArea(a *Area) *Area {
	cp := *a
	cp.Layers = make(map[string]*LayerData, len(a.Layers))
	for k, v := range a.Layers {
		cp.Layers[k] = v
	}
	return &cp
}

func cloneRing(r orb.Ring) orb.Ring {
	if r == nil {
		return nil
	}
	out := make(orb.Ring, len(r))
	copy(out, r)
	return out
}
