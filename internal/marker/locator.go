// Package marker finds printed reference markers in camera frames.
package marker

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"shadowboard/pkg/geometry"
)

// Locator detects ArUco reference markers and reports their pixel centers.
type Locator struct {
	detector gocv.ArucoDetector
}

// NewLocator creates a locator for the given predefined ArUco dictionary.
func NewLocator(dict gocv.ArucoDictionaryCode) *Locator {
	params := gocv.NewArucoDetectorParameters()
	return &Locator{
		detector: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(dict), params),
	}
}

// Close releases the underlying detector.
func (l *Locator) Close() error {
	return l.detector.Close()
}

// Locate detects all markers in the frame and returns a map from marker
// identity to pixel center, plus the number of markers found. The center is
// the centroid of the marker's four corner points. Zero or partial detections
// return an empty or partial map rather than an error; retries are a caller
// concern.
func (l *Locator) Locate(frame gocv.Mat) (map[int]geometry.Point2D, int) {
	centers := map[int]geometry.Point2D{}
	if frame.Empty() {
		return centers, 0
	}

	var gray gocv.Mat
	if frame.Channels() == 3 {
		gray = gocv.NewMat()
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	} else {
		gray = frame.Clone()
	}
	defer gray.Close()

	corners, ids, _ := l.detector.DetectMarkers(gray)
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) == 0 {
			continue
		}
		pts := make([]geometry.Point2D, 0, len(corners[i]))
		for _, c := range corners[i] {
			pts = append(pts, geometry.Point2D{X: float64(c.X), Y: float64(c.Y)})
		}
		centers[id] = geometry.Centroid(pts)
	}

	return centers, len(centers)
}

// DictionaryFromName maps a configuration name like "4x4_100" to the gocv
// dictionary code.
func DictionaryFromName(name string) (gocv.ArucoDictionaryCode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "4x4_100":
		return gocv.ArucoDict4x4_100, nil
	case "4x4_50":
		return gocv.ArucoDict4x4_50, nil
	case "4x4_250":
		return gocv.ArucoDict4x4_250, nil
	case "4x4_1000":
		return gocv.ArucoDict4x4_1000, nil
	case "5x5_100":
		return gocv.ArucoDict5x5_100, nil
	case "6x6_100":
		return gocv.ArucoDict6x6_100, nil
	default:
		return 0, fmt.Errorf("unknown aruco dictionary %q", name)
	}
}
