package similarity

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// LoadBaseline reads a stored baseline image from disk. A missing or
// undecodable file is reported to the caller, which should treat the
// baseline as absent rather than failing the slot.
func LoadBaseline(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open baseline: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode baseline %s: %w", path, err)
	}
	return img, nil
}
