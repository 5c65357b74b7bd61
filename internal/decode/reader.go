// Package decode reads coded-marker payloads out of slot regions.
package decode

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"shadowboard/internal/payload"
)

// ErrDecodeUnavailable indicates the region could not be examined at all
// (empty or unusable input), as opposed to "examined, nothing found".
var ErrDecodeUnavailable = errors.New("region unavailable for decoding")

// Reader decodes and authenticates QR payloads inside a region. Decode
// success is sensitive to lighting and skew, so every region is tried under
// a ladder of preprocessing variants before concluding nothing is present.
type Reader struct {
	verifier *payload.Verifier
	qr       gocv.QRCodeDetector
}

// NewReader creates a Reader that validates payloads with the given verifier.
func NewReader(v *payload.Verifier) *Reader {
	return &Reader{verifier: v, qr: gocv.NewQRCodeDetector()}
}

// Close releases the underlying detector.
func (r *Reader) Close() error {
	return r.qr.Close()
}

// Decode returns every distinct, validated payload found in the region.
// An empty result with a nil error means the region was examined and no
// decodable marker is present. Invalid or forged payloads are treated as
// absent. Duplicates decoded via different variants collapse to one.
func (r *Reader) Decode(region gocv.Mat) ([]payload.Payload, error) {
	if region.Empty() {
		return nil, ErrDecodeUnavailable
	}

	variants := preprocess(region)
	defer func() {
		for _, v := range variants {
			v.Close()
		}
	}()

	var found []payload.Payload
	for _, v := range variants {
		points := gocv.NewMat()
		straight := gocv.NewMat()
		text := r.qr.DetectAndDecode(v, &points, &straight)
		points.Close()
		straight.Close()

		if text == "" {
			continue
		}
		p, err := r.verifier.Parse([]byte(text))
		if err != nil {
			continue
		}
		found = append(found, *p)
	}

	return Collapse(found), nil
}

// Collapse removes payloads with duplicate identities, keeping the first
// occurrence of each.
func Collapse(payloads []payload.Payload) []payload.Payload {
	if len(payloads) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(payloads))
	out := payloads[:0:0]
	for _, p := range payloads {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// preprocess produces the decode attempt ladder: the raw region, grayscale,
// contrast-enhanced, thresholded, denoised, and two rescales. Order matters:
// cheap variants first.
func preprocess(region gocv.Mat) []gocv.Mat {
	variants := []gocv.Mat{region.Clone()}

	var gray gocv.Mat
	if region.Channels() == 3 {
		gray = gocv.NewMat()
		gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)
	} else {
		gray = region.Clone()
	}
	variants = append(variants, gray)

	equalized := gocv.NewMat()
	gocv.EqualizeHist(gray, &equalized)
	variants = append(variants, equalized)

	thresholded := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &thresholded, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)
	variants = append(variants, thresholded)

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
	variants = append(variants, blurred)

	for _, scale := range []float64{0.75, 1.5} {
		w := int(float64(gray.Cols()) * scale)
		h := int(float64(gray.Rows()) * scale)
		if w < 1 || h < 1 {
			continue
		}
		scaled := gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Pt(w, h), 0, 0, gocv.InterpolationCubic)
		variants = append(variants, scaled)
	}

	return variants
}
