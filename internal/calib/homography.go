package calib

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"shadowboard/pkg/geometry"
)

// FitHomography fits a planar homography mapping src points onto dst points.
// With exactly 4 correspondences the solve is exact; with more a RANSAC
// fit with least-squares refinement over the inliers is used.
func FitHomography(src, dst []geometry.Point2D) (geometry.ProjectiveTransform, error) {
	if len(src) != len(dst) {
		return geometry.ProjectiveTransform{}, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < 4 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("need at least 4 points, got %d", len(src))
	}
	if len(src) == 4 {
		return solveExact4(src, dst)
	}
	return FitHomographyRANSAC(src, dst, 2000, 5.0)
}

// FitHomographyRANSAC fits a homography robustly: repeated minimal 4-point
// solves, inlier counting against the pixel threshold, then a least-squares
// refit over the best inlier set.
func FitHomographyRANSAC(src, dst []geometry.Point2D, iterations int, threshold float64) (geometry.ProjectiveTransform, error) {
	if len(src) != len(dst) || len(src) < 4 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("invalid point sets")
	}

	n := len(src)
	bestInliers := []int{}
	var bestTransform geometry.ProjectiveTransform

	for iter := 0; iter < iterations; iter++ {
		indices := rand.Perm(n)[:4]

		sample := make([]geometry.Point2D, 4)
		target := make([]geometry.Point2D, 4)
		for i, idx := range indices {
			sample[i] = src[idx]
			target[i] = dst[idx]
		}

		transform, err := solveExact4(sample, target)
		if err != nil {
			continue
		}

		var inliers []int
		for i := range src {
			if transform.Apply(src[i]).Distance(dst[i]) < threshold {
				inliers = append(inliers, i)
			}
		}

		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestTransform = transform
		}
	}

	if len(bestInliers) < 4 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("RANSAC failed to find enough inliers")
	}

	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}

	refined, err := solveDLT(inlierSrc, inlierDst)
	if err != nil {
		return bestTransform, nil
	}
	return refined, nil
}

// ReprojectionError maps every src point through the transform and measures
// its pixel distance to the corresponding dst point. Returns the mean and
// maximum distance.
func ReprojectionError(t geometry.ProjectiveTransform, src, dst []geometry.Point2D) (mean, max float64) {
	if len(src) == 0 || len(src) != len(dst) {
		return math.Inf(1), math.Inf(1)
	}
	var total float64
	for i := range src {
		d := t.Apply(src[i]).Distance(dst[i])
		total += d
		if d > max {
			max = d
		}
	}
	return total / float64(len(src)), max
}

// solveExact4 solves the 8x8 linear system for a homography from exactly
// four correspondences, fixing h22 = 1.
func solveExact4(src, dst []geometry.Point2D) (geometry.ProjectiveTransform, error) {
	if len(src) != 4 || len(dst) != 4 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("need exactly 4 points")
	}

	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		// u = h00*x + h01*y + h02 - u*h20*x - u*h21*y
		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -u*x)
		A.Set(i*2, 7, -u*y)
		B.SetVec(i*2, u)

		// v = h10*x + h11*y + h12 - v*h20*x - v*h21*y
		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -v*x)
		A.Set(i*2+1, 7, -v*y)
		B.SetVec(i*2+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, B); err != nil {
		return geometry.ProjectiveTransform{}, fmt.Errorf("singular correspondence system: %w", err)
	}

	return geometry.FromFlat([9]float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}), nil
}

// solveDLT computes a least-squares homography from n >= 4 correspondences
// via the normalized direct linear transform. The solution is the right
// singular vector of the smallest singular value.
func solveDLT(src, dst []geometry.Point2D) (geometry.ProjectiveTransform, error) {
	n := len(src)
	if n < 4 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("need at least 4 points")
	}

	srcNorm, tSrc := normalizePoints(src)
	dstNorm, tDst := normalizePoints(dst)

	A := mat.NewDense(n*2, 9, nil)
	for i := 0; i < n; i++ {
		x, y := srcNorm[i].X, srcNorm[i].Y
		u, v := dstNorm[i].X, dstNorm[i].Y

		A.Set(i*2, 0, -x)
		A.Set(i*2, 1, -y)
		A.Set(i*2, 2, -1)
		A.Set(i*2, 6, u*x)
		A.Set(i*2, 7, u*y)
		A.Set(i*2, 8, u)

		A.Set(i*2+1, 3, -x)
		A.Set(i*2+1, 4, -y)
		A.Set(i*2+1, 5, -1)
		A.Set(i*2+1, 6, v*x)
		A.Set(i*2+1, 7, v*y)
		A.Set(i*2+1, 8, v)
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return geometry.ProjectiveTransform{}, fmt.Errorf("SVD factorization failed")
	}

	var v mat.Dense
	svd.VTo(&v)

	// Nullspace approximation: last column of V.
	var flat [9]float64
	for i := 0; i < 9; i++ {
		flat[i] = v.At(i, 8)
	}
	if math.Abs(flat[8]) < 1e-12 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("degenerate DLT solution")
	}

	hNorm := geometry.FromFlat(flat)

	// Denormalize: H = Tdst^-1 * Hn * Tsrc
	tDstInv, ok := tDst.Inverse()
	if !ok {
		return geometry.ProjectiveTransform{}, fmt.Errorf("normalization transform not invertible")
	}
	h := tDstInv.Compose(hNorm).Compose(tSrc)

	// Scale so h22 == 1 for a canonical representation.
	scale := h.M[2][2]
	if math.Abs(scale) < 1e-12 {
		return geometry.ProjectiveTransform{}, fmt.Errorf("degenerate DLT solution")
	}
	out := h.Flatten()
	for i := range out {
		out[i] /= scale
	}
	return geometry.FromFlat(out), nil
}

// normalizePoints applies Hartley normalization: translate the centroid to
// the origin and scale so the mean distance from it is sqrt(2).
func normalizePoints(points []geometry.Point2D) ([]geometry.Point2D, geometry.ProjectiveTransform) {
	c := geometry.Centroid(points)

	var meanDist float64
	for _, p := range points {
		meanDist += p.Distance(c)
	}
	meanDist /= float64(len(points))

	scale := 1.0
	if meanDist > 1e-12 {
		scale = math.Sqrt2 / meanDist
	}

	t := geometry.FromFlat([9]float64{
		scale, 0, -scale * c.X,
		0, scale, -scale * c.Y,
		0, 0, 1,
	})

	out := make([]geometry.Point2D, len(points))
	for i, p := range points {
		out[i] = t.Apply(p)
	}
	return out, t
}
