package boundary

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawCompleteFlow(t *testing.T) {
	e := NewEditor()
	assert.Equal(t, StateIdle, e.State())

	e.Start()
	assert.Equal(t, StateDrawing, e.State())

	require.NoError(t, e.AddPoint(orb.Point{0, 0}))
	require.NoError(t, e.AddPoint(orb.Point{1, 0}))
	require.NoError(t, e.AddPoint(orb.Point{1, 1}))

	b, err := e.Complete()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, b.TargetAreaID)

	require.Len(t, b.Ring, 4)
	assert.True(t, b.Ring.Closed())
	assert.Equal(t, b.Ring[0], b.Ring[3])
}

func TestCompleteTooFewPoints(t *testing.T) {
	e := NewEditor()
	e.Start()
	require.NoError(t, e.AddPoint(orb.Point{0, 0}))
	require.NoError(t, e.AddPoint(orb.Point{1, 0}))

	_, err := e.Complete()
	assert.ErrorIs(t, err, ErrTooFewPoints)
	// Failure leaves the editor where it was.
	assert.Equal(t, StateDrawing, e.State())
	assert.Len(t, e.Vertices(), 2)
}

func TestCompleteIdle(t *testing.T) {
	e := NewEditor()
	_, err := e.Complete()
	assert.ErrorIs(t, err, ErrNoBoundary)
}

func TestAddPointOutsideDrawing(t *testing.T) {
	e := NewEditor()
	assert.ErrorIs(t, e.AddPoint(orb.Point{0, 0}), ErrNotDrawing)
}

func TestUndoLast(t *testing.T) {
	e := NewEditor()
	e.UndoLast() // no-op while idle

	e.Start()
	e.UndoLast() // no-op while empty
	assert.Empty(t, e.Vertices())

	require.NoError(t, e.AddPoint(orb.Point{0, 0}))
	require.NoError(t, e.AddPoint(orb.Point{1, 0}))
	e.UndoLast()

	v := e.Vertices()
	require.Len(t, v, 1)
	assert.Equal(t, orb.Point{0, 0}, v[0])
}

func TestPreview(t *testing.T) {
	e := NewEditor()
	e.Start()
	require.NoError(t, e.AddPoint(orb.Point{0, 0}))
	require.NoError(t, e.AddPoint(orb.Point{1, 0}))

	_, ok := e.Preview()
	assert.False(t, ok, "preview needs 3 points")

	require.NoError(t, e.AddPoint(orb.Point{1, 1}))
	ring, ok := e.Preview()
	require.True(t, ok)
	assert.True(t, ring.Closed())
	assert.Len(t, ring, 4)

	// Preview must not consume the working state.
	assert.Equal(t, StateDrawing, e.State())
	assert.Len(t, e.Vertices(), 3)
}

func TestCancelDiscards(t *testing.T) {
	e := NewEditor()
	e.Start()
	require.NoError(t, e.AddPoint(orb.Point{0, 0}))
	e.Cancel()

	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, e.Vertices())
}

func TestStartRestarts(t *testing.T) {
	e := NewEditor()
	e.Start()
	require.NoError(t, e.AddPoint(orb.Point{0, 0}))
	require.NoError(t, e.AddPoint(orb.Point{1, 0}))

	e.Start()
	assert.Equal(t, StateDrawing, e.State())
	assert.Empty(t, e.Vertices())
}

func TestEditFlow(t *testing.T) {
	e := NewEditor()
	ring := orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}
	require.NoError(t, e.BeginEdit("area-1", ring))
	assert.Equal(t, StateEditing, e.State())
	assert.Len(t, e.Vertices(), 4, "closing point dropped for editing")

	require.NoError(t, e.MoveVertex(1, orb.Point{3, 0}))
	require.NoError(t, e.InsertVertex(2, orb.Point{3, 1}))
	require.NoError(t, e.RemoveVertex(4))

	b, err := e.Complete()
	require.NoError(t, err)
	assert.Equal(t, "area-1", b.TargetAreaID)
	assert.True(t, b.Ring.Closed())
	assert.Len(t, b.Ring, 5)
	assert.Equal(t, orb.Point{3, 0}, b.Ring[1])
	assert.Equal(t, orb.Point{3, 1}, b.Ring[2])
	assert.Equal(t, StateIdle, e.State())
}

func TestBeginEditRejectsInvalidRing(t *testing.T) {
	e := NewEditor()
	err := e.BeginEdit("area-1", orb.Ring{{0, 0}, {1, 0}, {0, 0}})
	assert.Error(t, err)
	assert.Equal(t, StateIdle, e.State())
}

func TestVertexOpsOutsideEditing(t *testing.T) {
	e := NewEditor()
	assert.ErrorIs(t, e.MoveVertex(0, orb.Point{}), ErrNotEditing)
	assert.ErrorIs(t, e.InsertVertex(0, orb.Point{}), ErrNotEditing)
	assert.ErrorIs(t, e.RemoveVertex(0), ErrNotEditing)
}

func TestRemoveVertexFloor(t *testing.T) {
	e := NewEditor()
	ring := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	require.NoError(t, e.BeginEdit("area-1", ring))
	require.Len(t, e.Vertices(), 3)

	assert.ErrorIs(t, e.RemoveVertex(0), ErrMinVertices)
	assert.Len(t, e.Vertices(), 3)
}

func TestVertexIndexBounds(t *testing.T) {
	e := NewEditor()
	ring := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	require.NoError(t, e.BeginEdit("area-1", ring))

	assert.Error(t, e.MoveVertex(-1, orb.Point{}))
	assert.Error(t, e.MoveVertex(3, orb.Point{}))
	assert.Error(t, e.InsertVertex(4, orb.Point{}))
	assert.NoError(t, e.InsertVertex(3, orb.Point{0.5, 0.5}), "append position is valid")
	assert.Error(t, e.RemoveVertex(4))
}
