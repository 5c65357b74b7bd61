// Package similarity scores perceptual similarity between slot regions and
// stored baseline images. It is the fallback signal used when no coded
// marker decodes.
package similarity

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Score is an optional similarity result. Valid is false when no baseline
// was available, which callers must treat differently from a genuine low
// similarity value.
type Score struct {
	Value float64
	Valid bool
}

// DefaultPatchSize is the side length both images are resized to before
// comparison.
const DefaultPatchSize = 200

// Comparator computes structural similarity after normalizing both images
// to a common patch size.
type Comparator struct {
	patchSize int
}

// NewComparator creates a Comparator. A non-positive patch size selects
// DefaultPatchSize.
func NewComparator(patchSize int) *Comparator {
	if patchSize <= 0 {
		patchSize = DefaultPatchSize
	}
	return &Comparator{patchSize: patchSize}
}

// Compare scores the current region against a baseline. A nil baseline (or
// nil current image) yields an invalid Score, signaling "no information".
func (c *Comparator) Compare(current, baseline image.Image) Score {
	if current == nil || baseline == nil {
		return Score{}
	}
	a := c.preprocess(current)
	b := c.preprocess(baseline)
	return Score{Value: ssim(a, b), Valid: true}
}

// preprocess converts to grayscale, resizes to the comparison patch size,
// applies light gaussian denoising and stretches the intensity range.
func (c *Comparator) preprocess(img image.Image) *image.Gray {
	gray := toGray(img)
	resized := image.NewGray(image.Rect(0, 0, c.patchSize, c.patchSize))
	xdraw.BiLinear.Scale(resized, resized.Bounds(), gray, gray.Bounds(), xdraw.Src, nil)
	blurred := gaussian3x3(resized)
	normalizeMinMax(blurred)
	return blurred
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// gaussian3x3 applies a [1 2 1; 2 4 2; 1 2 1]/16 kernel with clamped edges.
func gaussian3x3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	at := func(x, y int) int {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1) +
				2*at(x-1, y) + 4*at(x, y) + 2*at(x+1, y) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			dst.SetGray(x, y, color.Gray{Y: uint8((sum + 8) / 16)})
		}
	}
	return dst
}

// normalizeMinMax stretches pixel intensities to the full 0..255 range in
// place. Constant images are left untouched.
func normalizeMinMax(img *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range img.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return
	}
	span := float64(hi - lo)
	for i, v := range img.Pix {
		img.Pix[i] = uint8(float64(v-lo)*255/span + 0.5)
	}
}
