package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowboard/pkg/geometry"
)

func fullMarkerSet() map[int]geometry.Point2D {
	return map[int]geometry.Point2D{
		17: {X: 100, Y: 100},
		18: {X: 1800, Y: 100},
		19: {X: 1800, Y: 1000},
		20: {X: 100, Y: 1000},
	}
}

func TestCalibrateFullSet(t *testing.T) {
	cal, err := Calibrate(fullMarkerSet(), DefaultLayout(), 1920, 1080)
	require.NoError(t, err)

	assert.Less(t, cal.ReprojectionError, 1e-3)
	assert.Less(t, cal.MaxError, 1e-3)
	assert.Equal(t, 4, cal.MarkersDetected)

	// Corner centers must land on the observed pixels.
	world := DefaultLayout().CornerCenters()
	got := cal.Homography.Apply(world[CornerTopLeft])
	assert.InDelta(t, 100.0, got.X, 1e-3)
	assert.InDelta(t, 100.0, got.Y, 1e-3)
	got = cal.Homography.Apply(world[CornerBottomRight])
	assert.InDelta(t, 1800.0, got.X, 1e-3)
	assert.InDelta(t, 1000.0, got.Y, 1e-3)

	require.NotNil(t, cal.Intrinsics)
	assert.InDelta(t, 1536.0, cal.Intrinsics.Fx, 1e-9)
	assert.InDelta(t, 960.0, cal.Intrinsics.Cx, 1e-9)
	assert.InDelta(t, 540.0, cal.Intrinsics.Cy, 1e-9)
	assert.Equal(t, [5]float64{}, cal.DistCoeffs)
}

func TestCalibrateMissingMarkers(t *testing.T) {
	markers := fullMarkerSet()
	delete(markers, 19)

	cal, err := Calibrate(markers, DefaultLayout(), 1920, 1080)
	assert.Nil(t, cal)
	assert.ErrorIs(t, err, ErrInsufficientMarkers)
}

func TestCalibrateEmptySet(t *testing.T) {
	cal, err := Calibrate(map[int]geometry.Point2D{}, DefaultLayout(), 1920, 1080)
	assert.Nil(t, cal)
	assert.ErrorIs(t, err, ErrInsufficientMarkers)
}

func TestCalibrateWrongIdentities(t *testing.T) {
	// Four markers detected, but not the configured corner set.
	markers := map[int]geometry.Point2D{
		1: {X: 100, Y: 100},
		2: {X: 1800, Y: 100},
		3: {X: 1800, Y: 1000},
		4: {X: 100, Y: 1000},
	}
	_, err := Calibrate(markers, DefaultLayout(), 1920, 1080)
	assert.ErrorIs(t, err, ErrInsufficientMarkers)
}

func TestCalibrateDegenerateGeometry(t *testing.T) {
	markers := map[int]geometry.Point2D{
		17: {X: 100, Y: 500},
		18: {X: 600, Y: 500},
		19: {X: 1100, Y: 500},
		20: {X: 1600, Y: 500},
	}
	_, err := Calibrate(markers, DefaultLayout(), 1920, 1080)
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
}

func TestCalibrateIgnoresExtraMarkers(t *testing.T) {
	markers := fullMarkerSet()
	markers[42] = geometry.Point2D{X: 960, Y: 540}

	cal, err := Calibrate(markers, DefaultLayout(), 1920, 1080)
	require.NoError(t, err)
	assert.Equal(t, 5, cal.MarkersDetected)
	assert.Less(t, cal.ReprojectionError, 1e-3)
}

func TestBoardLayoutValidate(t *testing.T) {
	assert.NoError(t, DefaultLayout().Validate())

	bad := DefaultLayout()
	bad.MarkerSizeCm = 50
	assert.Error(t, bad.Validate())

	dup := DefaultLayout()
	dup.CornerIDs = [4]int{17, 17, 19, 20}
	assert.Error(t, dup.Validate())
}

func TestBoardLayoutCornerCenters(t *testing.T) {
	centers := DefaultLayout().CornerCenters()
	assert.Equal(t, geometry.Point2D{X: 2.5, Y: 2.5}, centers[CornerTopLeft])
	assert.Equal(t, geometry.Point2D{X: 27.2, Y: 2.5}, centers[CornerTopRight])
	assert.Equal(t, geometry.Point2D{X: 27.2, Y: 18.5}, centers[CornerBottomRight])
	assert.Equal(t, geometry.Point2D{X: 2.5, Y: 18.5}, centers[CornerBottomLeft])
}
