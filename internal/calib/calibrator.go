package calib

import (
	"errors"
	"fmt"
	"sort"

	"shadowboard/pkg/geometry"
)

// Calibration-fatal failures. Both terminate the attempt; the caller may
// retry with a fresh frame.
var (
	// ErrInsufficientMarkers indicates the required corner marker set was
	// not fully detected.
	ErrInsufficientMarkers = errors.New("insufficient corner markers")
	// ErrDegenerateGeometry indicates the solver could not produce a usable
	// homography from the detected positions (e.g. collinear centers).
	ErrDegenerateGeometry = errors.New("degenerate marker geometry")
)

// Calibration is a validated board-to-camera mapping. Homography maps board
// centimeters to frame pixels. It is produced once per calibration run and
// replaced wholesale on re-calibration, never mutated.
type Calibration struct {
	Homography        geometry.ProjectiveTransform
	Intrinsics        *Intrinsics
	DistCoeffs        [5]float64
	ReprojectionError float64
	MaxError          float64
	MarkersDetected   int
}

// Calibrate fits a homography from detected marker centers against the board
// layout. Every corner identity in the layout must be present; a partial set
// yields ErrInsufficientMarkers, never a degraded Calibration. Frame
// dimensions seed the pinhole intrinsics estimate.
func Calibrate(markers map[int]geometry.Point2D, layout BoardLayout, frameWidth, frameHeight int) (*Calibration, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board layout: %w", err)
	}

	var missing []int
	for _, id := range layout.CornerIDs {
		if _, ok := markers[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, fmt.Errorf("%w: found %d/4, missing ids %v",
			ErrInsufficientMarkers, 4-len(missing), missing)
	}

	world := layout.CornerCenters()
	src := make([]geometry.Point2D, 4)
	dst := make([]geometry.Point2D, 4)
	for i, id := range layout.CornerIDs {
		src[i] = world[i]
		dst[i] = markers[id]
	}

	h, err := FitHomography(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}
	// Reject near-singular fits here so rectification never sees one.
	if _, ok := h.Inverse(); !ok {
		return nil, fmt.Errorf("%w: fitted homography is not invertible", ErrDegenerateGeometry)
	}

	// With four correspondences the fit is exact and the error is expected
	// to be numerically near zero.
	mean, max := ReprojectionError(h, src, dst)

	return &Calibration{
		Homography:        h,
		Intrinsics:        EstimateIntrinsics(frameWidth, frameHeight),
		DistCoeffs:        [5]float64{},
		ReprojectionError: mean,
		MaxError:          max,
		MarkersDetected:   len(markers),
	}, nil
}
