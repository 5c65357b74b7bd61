package similarity

import "image"

// SSIM constants for 8-bit images (K1=0.01, K2=0.03, L=255).
const (
	ssimWindow = 7
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// ssim computes the mean structural similarity between two equally sized
// grayscale images using uniform 7x7 windows, normalized to [0, 1].
// Mismatched or too-small inputs score 0.
func ssim(a, b *image.Gray) float64 {
	wa, ha := a.Bounds().Dx(), a.Bounds().Dy()
	wb, hb := b.Bounds().Dx(), b.Bounds().Dy()
	if wa != wb || ha != hb || wa < ssimWindow || ha < ssimWindow {
		return 0
	}

	n := float64(ssimWindow * ssimWindow)
	var total float64
	var windows int

	for y := 0; y+ssimWindow <= ha; y++ {
		for x := 0; x+ssimWindow <= wa; x++ {
			var sumA, sumB, sumAA, sumBB, sumAB float64
			for dy := 0; dy < ssimWindow; dy++ {
				rowA := a.Pix[(y+dy)*a.Stride+x:]
				rowB := b.Pix[(y+dy)*b.Stride+x:]
				for dx := 0; dx < ssimWindow; dx++ {
					va := float64(rowA[dx])
					vb := float64(rowB[dx])
					sumA += va
					sumB += vb
					sumAA += va * va
					sumBB += vb * vb
					sumAB += va * vb
				}
			}

			muA := sumA / n
			muB := sumB / n
			varA := sumAA/n - muA*muA
			varB := sumBB/n - muB*muB
			cov := sumAB/n - muA*muB

			num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
			den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
			total += num / den
			windows++
		}
	}

	if windows == 0 {
		return 0
	}
	score := total / float64(windows)
	// SSIM ranges over [-1, 1]; anticorrelated structure reports as fully
	// dissimilar.
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
