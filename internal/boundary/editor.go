// Package boundary tracks the lifecycle of a polygon being drawn or edited.
// An Editor moves between idle, drawing and editing; completing a boundary
// hands the closed ring to the caller and resets the editor.
package boundary

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/raynbowy23/Axon-City-sub002/internal/types"
)

// State is the editor's current mode.
type State string

const (
	StateIdle    State = "idle"
	StateDrawing State = "drawing"
	StateEditing State = "editing"
)

var (
	// ErrNotDrawing is returned when a drawing operation arrives outside
	// drawing mode.
	ErrNotDrawing = errors.New("editor is not in drawing mode")
	// ErrNotEditing is returned when a vertex operation arrives outside
	// editing mode.
	ErrNotEditing = errors.New("editor is not in editing mode")
	// ErrNoBoundary is returned when complete is called with no boundary in
	// progress.
	ErrNoBoundary = errors.New("no boundary in progress")
	// ErrTooFewPoints is returned when a boundary cannot form a polygon yet.
	ErrTooFewPoints = errors.New("boundary needs at least 3 points")
	// ErrMinVertices is returned when removing a vertex would leave fewer
	// than 3.
	ErrMinVertices = errors.New("boundary cannot drop below 3 vertices")
)

// Boundary is a completed polygon ready to become, or replace, a selection
// area. TargetAreaID is empty for freshly drawn boundaries and carries the
// area being reshaped when the editor was opened with BeginEdit.
type Boundary struct {
	Ring         orb.Ring
	TargetAreaID string
}

// Editor is the drawing state machine. It is safe for concurrent use.
type Editor struct {
	mu           sync.Mutex
	state        State
	vertices     []orb.Point
	targetAreaID string
}

// NewEditor returns an idle editor.
func NewEditor() *Editor {
	return &Editor{state: StateIdle}
}

// State returns the current mode.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Vertices returns a copy of the working vertices for rendering the
// in-progress outline.
func (e *Editor) Vertices() []orb.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]orb.Point, len(e.vertices))
	copy(out, e.vertices)
	return out
}

// Start clears any working state and enters drawing mode. Calling Start
// while a boundary is in progress discards it and starts over.
func (e *Editor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateDrawing
	e.vertices = e.vertices[:0]
	e.targetAreaID = ""
}

// AddPoint appends a vertex to the boundary being drawn.
func (e *Editor) AddPoint(p orb.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrawing {
		return ErrNotDrawing
	}
	e.vertices = append(e.vertices, p)
	return nil
}

// UndoLast removes the most recently added vertex. It is a no-op when no
// vertices remain or the editor is not drawing.
func (e *Editor) UndoLast() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrawing || len(e.vertices) == 0 {
		return
	}
	e.vertices = e.vertices[:len(e.vertices)-1]
}

// Preview returns a transient closed ring over the working vertices, or
// false when fewer than 3 exist. The preview is never stored.
func (e *Editor) Preview() (orb.Ring, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.vertices) < 3 {
		return nil, false
	}
	ring := make(orb.Ring, len(e.vertices))
	for i, p := range e.vertices {
		ring[i] = p
	}
	return types.CloseRing(ring), true
}

// Complete closes the ring and resets the editor to idle. It fails without
// changing state when fewer than 3 vertices exist.
func (e *Editor) Complete() (Boundary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle {
		return Boundary{}, ErrNoBoundary
	}
	if len(e.vertices) < 3 {
		return Boundary{}, ErrTooFewPoints
	}

	ring := make(orb.Ring, len(e.vertices))
	for i, p := range e.vertices {
		ring[i] = p
	}
	b := Boundary{Ring: types.CloseRing(ring), TargetAreaID: e.targetAreaID}

	e.state = StateIdle
	e.vertices = e.vertices[:0]
	e.targetAreaID = ""
	return b, nil
}

// Cancel discards the working boundary and returns to idle.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.vertices = e.vertices[:0]
	e.targetAreaID = ""
}

// BeginEdit loads an existing area's ring for vertex editing. The closing
// point is dropped while editing and restored by Complete.
func (e *Editor) BeginEdit(areaID string, ring orb.Ring) error {
	if err := types.ValidRing(ring); err != nil {
		return fmt.Errorf("cannot edit boundary: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateEditing
	e.targetAreaID = areaID
	e.vertices = e.vertices[:0]
	for _, p := range ring[:len(ring)-1] {
		e.vertices = append(e.vertices, p)
	}
	return nil
}

// MoveVertex relocates the vertex at index i.
func (e *Editor) MoveVertex(i int, p orb.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return ErrNotEditing
	}
	if i < 0 || i >= len(e.vertices) {
		return fmt.Errorf("vertex index %d out of range [0,%d)", i, len(e.vertices))
	}
	e.vertices[i] = p
	return nil
}

// InsertVertex inserts a vertex at index i, shifting later vertices up.
// i may equal the vertex count to append.
func (e *Editor) InsertVertex(i int, p orb.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return ErrNotEditing
	}
	if i < 0 || i > len(e.vertices) {
		return fmt.Errorf("vertex index %d out of range [0,%d]", i, len(e.vertices))
	}
	e.vertices = append(e.vertices, orb.Point{})
	copy(e.vertices[i+1:], e.vertices[i:])
	e.vertices[i] = p
	return nil
}

// RemoveVertex deletes the vertex at index i. The boundary keeps at least 3
// vertices; removal below that is refused.
func (e *Editor) RemoveVertex(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditing {
		return ErrNotEditing
	}
	if i < 0 || i >= len(e.vertices) {
		return fmt.Errorf("vertex index %d out of range [0,%d)", i, len(e.vertices))
	}
	if len(e.vertices) <= 3 {
		return ErrMinVertices
	}
	e.vertices = append(e.vertices[:i], e.vertices[i+1:]...)
	return nil
}
