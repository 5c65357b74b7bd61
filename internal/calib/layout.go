// Package calib fits and scores the board-to-camera homography from
// detected reference markers.
package calib

import (
	"fmt"

	"shadowboard/pkg/geometry"
)

// Corner indices into BoardLayout.CornerIDs and the point sets built from it.
const (
	CornerTopLeft = iota
	CornerTopRight
	CornerBottomRight
	CornerBottomLeft
)

// BoardLayout describes the printed reference sheet: its physical size and
// where the corner markers sit on it. All dimensions are centimeters.
type BoardLayout struct {
	WidthCm      float64
	HeightCm     float64
	MarkerSizeCm float64
	// CornerIDs holds the marker identities pinned to the four corners,
	// ordered top-left, top-right, bottom-right, bottom-left.
	CornerIDs [4]int
}

// DefaultLayout returns the standard A4 landscape sheet with 5cm markers
// at IDs 17 (TL), 18 (TR), 19 (BR), 20 (BL).
func DefaultLayout() BoardLayout {
	return BoardLayout{
		WidthCm:      29.7,
		HeightCm:     21.0,
		MarkerSizeCm: 5.0,
		CornerIDs:    [4]int{17, 18, 19, 20},
	}
}

// Validate checks the layout for usable dimensions.
func (l BoardLayout) Validate() error {
	if l.WidthCm <= 0 || l.HeightCm <= 0 {
		return fmt.Errorf("board size must be positive, got %.2fx%.2f cm", l.WidthCm, l.HeightCm)
	}
	if l.MarkerSizeCm <= 0 || l.MarkerSizeCm >= l.WidthCm || l.MarkerSizeCm >= l.HeightCm {
		return fmt.Errorf("marker size %.2f cm does not fit board %.2fx%.2f cm",
			l.MarkerSizeCm, l.WidthCm, l.HeightCm)
	}
	seen := map[int]bool{}
	for _, id := range l.CornerIDs {
		if seen[id] {
			return fmt.Errorf("duplicate corner marker id %d", id)
		}
		seen[id] = true
	}
	return nil
}

// CornerCenters returns the world-space centers of the four corner markers
// in centimeters, ordered TL, TR, BR, BL. Markers sit flush with the board
// edges, so each center is offset by half the marker size.
func (l BoardLayout) CornerCenters() [4]geometry.Point2D {
	off := l.MarkerSizeCm / 2
	return [4]geometry.Point2D{
		{X: off, Y: off},
		{X: l.WidthCm - off, Y: off},
		{X: l.WidthCm - off, Y: l.HeightCm - off},
		{X: off, Y: l.HeightCm - off},
	}
}
