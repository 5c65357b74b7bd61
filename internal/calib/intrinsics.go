package calib

// Intrinsics is a pinhole camera matrix estimate used for optional
// undistortion downstream.
type Intrinsics struct {
	Fx float64
	Fy float64
	Cx float64
	Cy float64
}

// EstimateIntrinsics approximates the intrinsic matrix from frame dimensions
// alone, assuming a typical webcam field of view (focal length ~0.8 * width)
// and the principal point at the frame center.
func EstimateIntrinsics(width, height int) *Intrinsics {
	f := float64(width) * 0.8
	return &Intrinsics{
		Fx: f,
		Fy: f,
		Cx: float64(width) / 2,
		Cy: float64(height) / 2,
	}
}

// Flatten returns the row-major 3x3 camera matrix values.
func (in *Intrinsics) Flatten() [9]float64 {
	return [9]float64{
		in.Fx, 0, in.Cx,
		0, in.Fy, in.Cy,
		0, 0, 1,
	}
}
