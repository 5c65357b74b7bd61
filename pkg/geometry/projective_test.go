package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectiveApplyIdentity(t *testing.T) {
	p := Point2D{X: 3.5, Y: -2}
	got := IdentityProjective().Apply(p)
	assert.Equal(t, p, got)
}

func TestProjectiveFlattenRoundTrip(t *testing.T) {
	v := [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, v, FromFlat(v).Flatten())
}

func TestProjectiveInverse(t *testing.T) {
	h := FromFlat([9]float64{2, 0.1, 30, -0.2, 1.5, 12, 0.001, 0.002, 1})
	inv, ok := h.Inverse()
	require.True(t, ok)

	p := Point2D{X: 7, Y: 11}
	back := inv.Apply(h.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestProjectiveInverseSingular(t *testing.T) {
	// Rank-deficient: second row is a multiple of the first.
	h := FromFlat([9]float64{1, 2, 3, 2, 4, 6, 0, 0, 1})
	_, ok := h.Inverse()
	assert.False(t, ok)
}

func TestProjectiveCompose(t *testing.T) {
	scale := ScaleTransform(2, 3)
	shift := FromFlat([9]float64{1, 0, 10, 0, 1, 20, 0, 0, 1})

	// shift after scale
	combined := shift.Compose(scale)
	got := combined.Apply(Point2D{X: 1, Y: 1})
	assert.InDelta(t, 12.0, got.X, 1e-12)
	assert.InDelta(t, 23.0, got.Y, 1e-12)
}

func TestPolygonArea(t *testing.T) {
	square := []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	assert.InDelta(t, 16.0, PolygonArea(square), 1e-12)

	// Winding direction must not matter.
	reversed := []Point2D{{0, 4}, {4, 4}, {4, 0}, {0, 0}}
	assert.InDelta(t, 16.0, PolygonArea(reversed), 1e-12)

	degenerate := []Point2D{{0, 0}, {4, 0}}
	assert.Zero(t, PolygonArea(degenerate))
}

func TestPointInPolygon(t *testing.T) {
	tri := []Point2D{{0, 0}, {10, 0}, {5, 10}}
	assert.True(t, PointInPolygon(Point2D{X: 5, Y: 3}, tri))
	assert.False(t, PointInPolygon(Point2D{X: 0, Y: 9}, tri))
	assert.False(t, PointInPolygon(Point2D{X: 5, Y: 3}, tri[:2]))
}

func TestPointArithmetic(t *testing.T) {
	p := Point2D{X: 3, Y: 4}
	assert.Equal(t, Point2D{X: 1, Y: 1}, p.Sub(Point2D{X: 2, Y: 3}))
	assert.Equal(t, Point2D{X: 6, Y: 8}, p.Scale(2))
	assert.InDelta(t, 5.0, p.Distance(Point2D{}), 1e-12)
}

func TestRectPredicates(t *testing.T) {
	frame := Rect{Width: 100, Height: 80}

	assert.True(t, frame.Contains(Point2D{X: 50, Y: 40}))
	assert.True(t, frame.Contains(Point2D{X: 100, Y: 80}), "boundary points are inside")
	assert.False(t, frame.Contains(Point2D{X: 101, Y: 40}))
	assert.False(t, frame.Contains(Point2D{X: 50, Y: -1}))

	assert.Equal(t, Point2D{X: 50, Y: 40}, frame.Center())

	assert.True(t, frame.Intersects(Rect{X: 90, Y: 70, Width: 20, Height: 20}))
	assert.False(t, frame.Intersects(Rect{X: 100, Y: 0, Width: 20, Height: 20}),
		"touching edges do not overlap")
	assert.False(t, frame.Intersects(Rect{X: -30, Y: -30, Width: 10, Height: 10}))
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{{2, 3}, {-1, 7}, {5, 1}}
	box := BoundingBox(pts)
	assert.Equal(t, Rect{X: -1, Y: 1, Width: 6, Height: 6}, box)
}

func TestCentroid(t *testing.T) {
	pts := []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	assert.Equal(t, Point2D{X: 2, Y: 2}, Centroid(pts))
	assert.Equal(t, Point2D{}, Centroid(nil))
}
