package similarity

import (
	"image"
	"math"
)

// QualityCeiling is the upper bound of the diagnostic quality score.
const QualityCeiling = 200.0

// Quality scores image sharpness for operator diagnostics. It combines the
// variance of a laplacian high-pass response (focus) with the mean sobel
// gradient magnitude (edge strength), clipped to QualityCeiling. The score
// never influences slot status decisions.
func Quality(img image.Image) float64 {
	gray := toGray(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}

	var lapSum, lapSqSum, gradSum float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			// 4-neighbor laplacian.
			lap := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			lapSum += lap
			lapSqSum += lap * lap

			// 3x3 sobel.
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			gradSum += math.Sqrt(gx*gx + gy*gy)

			count++
		}
	}

	n := float64(count)
	lapMean := lapSum / n
	lapVariance := lapSqSum/n - lapMean*lapMean
	gradMean := gradSum / n

	return math.Min(QualityCeiling, lapVariance*0.7+gradMean*0.3)
}
