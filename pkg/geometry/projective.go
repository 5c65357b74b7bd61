package geometry

import "math"

// ProjectiveTransform represents a 3x3 projective transformation (homography)
// in row-major order:
//
//	[m00 m01 m02]
//	[m10 m11 m12]
//	[m20 m21 m22]
type ProjectiveTransform struct {
	M [3][3]float64
}

// IdentityProjective returns the identity projective transform.
func IdentityProjective() ProjectiveTransform {
	return ProjectiveTransform{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// FromFlat builds a ProjectiveTransform from 9 row-major values.
func FromFlat(v [9]float64) ProjectiveTransform {
	return ProjectiveTransform{M: [3][3]float64{
		{v[0], v[1], v[2]},
		{v[3], v[4], v[5]},
		{v[6], v[7], v[8]},
	}}
}

// Flatten returns the 9 row-major matrix values.
func (t ProjectiveTransform) Flatten() [9]float64 {
	return [9]float64{
		t.M[0][0], t.M[0][1], t.M[0][2],
		t.M[1][0], t.M[1][1], t.M[1][2],
		t.M[2][0], t.M[2][1], t.M[2][2],
	}
}

// Apply maps a point through the transform, performing the perspective divide.
// Points at infinity (w ~ 0) map to (+Inf, +Inf).
func (t ProjectiveTransform) Apply(p Point2D) Point2D {
	x := t.M[0][0]*p.X + t.M[0][1]*p.Y + t.M[0][2]
	y := t.M[1][0]*p.X + t.M[1][1]*p.Y + t.M[1][2]
	w := t.M[2][0]*p.X + t.M[2][1]*p.Y + t.M[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{X: x / w, Y: y / w}
}

// Compose returns this transform composed with another (this * other).
func (t ProjectiveTransform) Compose(other ProjectiveTransform) ProjectiveTransform {
	var out ProjectiveTransform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += t.M[i][k] * other.M[k][j]
			}
			out.M[i][j] = sum
		}
	}
	return out
}

// Det returns the determinant of the matrix.
func (t ProjectiveTransform) Det() float64 {
	m := t.M
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse transform, if it exists.
func (t ProjectiveTransform) Inverse() (ProjectiveTransform, bool) {
	det := t.Det()
	if math.Abs(det) < 1e-12 {
		return ProjectiveTransform{}, false
	}

	m := t.M
	invDet := 1.0 / det
	adj := [3][3]float64{
		{
			m[1][1]*m[2][2] - m[1][2]*m[2][1],
			m[0][2]*m[2][1] - m[0][1]*m[2][2],
			m[0][1]*m[1][2] - m[0][2]*m[1][1],
		},
		{
			m[1][2]*m[2][0] - m[1][0]*m[2][2],
			m[0][0]*m[2][2] - m[0][2]*m[2][0],
			m[0][2]*m[1][0] - m[0][0]*m[1][2],
		},
		{
			m[1][0]*m[2][1] - m[1][1]*m[2][0],
			m[0][1]*m[2][0] - m[0][0]*m[2][1],
			m[0][0]*m[1][1] - m[0][1]*m[1][0],
		},
	}

	var out ProjectiveTransform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.M[i][j] = adj[i][j] * invDet
		}
	}
	return out, true
}

// ScaleTransform returns a transform that scales x by sx and y by sy.
func ScaleTransform(sx, sy float64) ProjectiveTransform {
	return ProjectiveTransform{M: [3][3]float64{{sx, 0, 0}, {0, sy, 0}, {0, 0, 1}}}
}
