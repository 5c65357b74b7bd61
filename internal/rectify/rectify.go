// Package rectify warps raw camera frames into the canonical top-down board view.
package rectify

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"shadowboard/internal/calib"
	"shadowboard/pkg/geometry"
)

// Rectify resamples a raw frame into canonical board coordinates at the
// requested output size. The calibration homography maps board centimeters
// to frame pixels; rectification applies its inverse, scaled so the full
// board fills the output. When intrinsics and a non-zero distortion model
// are present the frame is undistorted first.
//
// This is a pure function of its inputs. The only failure mode is a
// non-invertible homography, which Calibrate already rejects.
func Rectify(frame gocv.Mat, cal *calib.Calibration, layout calib.BoardLayout, outWidth, outHeight int) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.Mat{}, fmt.Errorf("empty input frame")
	}
	if outWidth <= 0 || outHeight <= 0 {
		return gocv.Mat{}, fmt.Errorf("invalid output size %dx%d", outWidth, outHeight)
	}

	inv, ok := cal.Homography.Inverse()
	if !ok {
		return gocv.Mat{}, fmt.Errorf("homography is not invertible")
	}

	src := frame
	undistorted := gocv.NewMat()
	defer undistorted.Close()
	if cal.Intrinsics != nil && hasDistortion(cal.DistCoeffs) {
		cameraMatrix := intrinsicsToMat(cal.Intrinsics)
		defer cameraMatrix.Close()
		distCoeffs := distCoeffsToMat(cal.DistCoeffs)
		defer distCoeffs.Close()

		gocv.Undistort(frame, &undistorted, cameraMatrix, distCoeffs, cameraMatrix)
		src = undistorted
	}

	// Output pixel -> board cm -> frame pixel, so the warp matrix is
	// inverse(H) composed with the cm-to-output scale.
	scale := geometry.ScaleTransform(
		float64(outWidth)/layout.WidthCm,
		float64(outHeight)/layout.HeightCm,
	)
	warp := scale.Compose(inv)

	warpMat := transformToMat(warp)
	defer warpMat.Close()

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, warpMat, image.Pt(outWidth, outHeight))
	return dst, nil
}

func hasDistortion(d [5]float64) bool {
	for _, v := range d {
		if v != 0 {
			return true
		}
	}
	return false
}

func transformToMat(t geometry.ProjectiveTransform) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, t.M[i][j])
		}
	}
	return m
}

func intrinsicsToMat(in *calib.Intrinsics) gocv.Mat {
	m := gocv.Zeros(3, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, in.Fx)
	m.SetDoubleAt(0, 2, in.Cx)
	m.SetDoubleAt(1, 1, in.Fy)
	m.SetDoubleAt(1, 2, in.Cy)
	m.SetDoubleAt(2, 2, 1)
	return m
}

func distCoeffsToMat(d [5]float64) gocv.Mat {
	m := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	for i, v := range d {
		m.SetDoubleAt(0, i, v)
	}
	return m
}
