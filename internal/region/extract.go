// Package region isolates slot sub-regions from rectified frames.
package region

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"shadowboard/pkg/geometry"
)

// ErrInvalidRegion indicates a slot polygon that cannot produce a usable
// crop: fewer than 3 vertices, zero area, or fully outside the frame.
var ErrInvalidRegion = errors.New("invalid slot region")

// Extract crops the polygon's bounding box out of the frame and blacks out
// every pixel outside the polygon. The returned Mat is owned by the caller.
func Extract(frame gocv.Mat, polygon []geometry.Point2D) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.Mat{}, fmt.Errorf("%w: empty frame", ErrInvalidRegion)
	}
	if len(polygon) < 3 {
		return gocv.Mat{}, fmt.Errorf("%w: polygon has %d vertices", ErrInvalidRegion, len(polygon))
	}
	if geometry.PolygonArea(polygon) <= 0 {
		return gocv.Mat{}, fmt.Errorf("%w: polygon has zero area", ErrInvalidRegion)
	}

	box := geometry.BoundingBox(polygon)
	frameRect := geometry.Rect{Width: float64(frame.Cols()), Height: float64(frame.Rows())}
	if !frameRect.Intersects(box) {
		return gocv.Mat{}, fmt.Errorf("%w: polygon outside frame bounds", ErrInvalidRegion)
	}

	x0 := int(math.Floor(box.X))
	y0 := int(math.Floor(box.Y))
	x1 := int(math.Ceil(box.X + box.Width))
	y1 := int(math.Ceil(box.Y + box.Height))

	// Clamp to frame bounds.
	x0 = max(0, x0)
	y0 = max(0, y0)
	x1 = min(frame.Cols(), x1)
	y1 = min(frame.Rows(), y1)

	if x1-x0 <= 0 || y1-y0 <= 0 {
		return gocv.Mat{}, fmt.Errorf("%w: polygon outside frame bounds", ErrInvalidRegion)
	}

	crop := frame.Region(image.Rect(x0, y0, x1, y1))
	defer crop.Close()

	// Mask in crop-local coordinates.
	origin := geometry.Point2D{X: float64(x0), Y: float64(y0)}
	pts := make([]image.Point, len(polygon))
	for i, p := range polygon {
		local := p.Sub(origin)
		pts[i] = image.Pt(int(math.Round(local.X)), int(math.Round(local.Y)))
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()

	mask := gocv.Zeros(crop.Rows(), crop.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.FillPoly(&mask, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	out := gocv.NewMat()
	gocv.BitwiseAndWithMask(crop, crop, &out, mask)
	return out, nil
}
