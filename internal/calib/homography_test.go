package calib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowboard/pkg/geometry"
)

func quad(pts ...float64) []geometry.Point2D {
	out := make([]geometry.Point2D, 0, len(pts)/2)
	for i := 0; i < len(pts); i += 2 {
		out = append(out, geometry.Point2D{X: pts[i], Y: pts[i+1]})
	}
	return out
}

func TestFitHomographyExactFourPoints(t *testing.T) {
	cases := []struct {
		name     string
		src, dst []geometry.Point2D
	}{
		{
			name: "axis aligned scale and shift",
			src:  quad(0, 0, 10, 0, 10, 10, 0, 10),
			dst:  quad(100, 50, 300, 50, 300, 250, 100, 250),
		},
		{
			name: "perspective skew",
			src:  quad(0, 0, 10, 0, 10, 10, 0, 10),
			dst:  quad(120, 90, 480, 130, 440, 400, 90, 360),
		},
		{
			name: "board corners to frame",
			src:  quad(2.5, 2.5, 27.2, 2.5, 27.2, 18.5, 2.5, 18.5),
			dst:  quad(100, 100, 1800, 100, 1800, 1000, 100, 1000),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := FitHomography(tc.src, tc.dst)
			require.NoError(t, err)

			for i := range tc.src {
				got := h.Apply(tc.src[i])
				assert.InDelta(t, tc.dst[i].X, got.X, 1e-3)
				assert.InDelta(t, tc.dst[i].Y, got.Y, 1e-3)
			}

			mean, max := ReprojectionError(h, tc.src, tc.dst)
			assert.Less(t, mean, 1e-3)
			assert.Less(t, max, 1e-3)
		})
	}
}

func TestFitHomographyRejectsDegenerateTargets(t *testing.T) {
	src := quad(0, 0, 10, 0, 10, 10, 0, 10)

	t.Run("collinear destinations", func(t *testing.T) {
		dst := quad(100, 100, 200, 100, 300, 100, 400, 100)
		_, err := FitHomography(src, dst)
		assert.Error(t, err)
	})

	t.Run("coincident destinations", func(t *testing.T) {
		dst := quad(100, 100, 100, 100, 300, 300, 100, 300)
		_, err := FitHomography(src, dst)
		assert.Error(t, err)
	})
}

func TestFitHomographyTooFewPoints(t *testing.T) {
	src := quad(0, 0, 10, 0, 10, 10)
	dst := quad(0, 0, 20, 0, 20, 20)
	_, err := FitHomography(src, dst)
	assert.Error(t, err)
}

func TestFitHomographyRANSACWithOutlier(t *testing.T) {
	// Ground truth: scale x3 plus translation.
	truth := geometry.FromFlat([9]float64{3, 0, 40, 0, 3, 25, 0, 0, 1})

	src := quad(0, 0, 10, 0, 10, 10, 0, 10, 5, 5, 2, 8, 8, 3, 4, 1)
	dst := make([]geometry.Point2D, len(src))
	for i, p := range src {
		dst[i] = truth.Apply(p)
	}
	// One gross outlier.
	dst[4] = geometry.Point2D{X: 900, Y: -500}

	h, err := FitHomographyRANSAC(src, dst, 2000, 5.0)
	require.NoError(t, err)

	for i, p := range src {
		if i == 4 {
			continue
		}
		got := h.Apply(p)
		assert.InDelta(t, dst[i].X, got.X, 0.5)
		assert.InDelta(t, dst[i].Y, got.Y, 0.5)
	}
}

func TestReprojectionErrorEmpty(t *testing.T) {
	mean, max := ReprojectionError(geometry.IdentityProjective(), nil, nil)
	assert.True(t, math.IsInf(mean, 1))
	assert.True(t, math.IsInf(max, 1))
}
