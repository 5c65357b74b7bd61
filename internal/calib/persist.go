package calib

import (
	"encoding/json"
	"fmt"
	"os"

	"shadowboard/pkg/geometry"
)

// Document is the persisted calibration record. Successful runs carry the
// full matrices; failed runs carry ok=false and the error text so schedulers
// can inspect what went wrong.
type Document struct {
	OK                bool        `json:"ok"`
	Homography        *[9]float64 `json:"homography"`
	CameraMatrix      *[9]float64 `json:"cameraMatrix"`
	DistCoeffs        *[5]float64 `json:"distCoeffs"`
	ReprojectionError float64     `json:"reprojectionError"`
	MaxError          float64     `json:"maxError,omitempty"`
	MarkersDetected   int         `json:"markersDetected"`
	// MarkerPositions records the detected pixel centers per marker id,
	// kept for operator diagnostics even on failed attempts.
	MarkerPositions map[int][2]float64 `json:"markerPositions,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// MarkerPositionsFrom converts detected centers into the persisted form.
func MarkerPositionsFrom(centers map[int]geometry.Point2D) map[int][2]float64 {
	if len(centers) == 0 {
		return nil
	}
	out := make(map[int][2]float64, len(centers))
	for id, p := range centers {
		out[id] = [2]float64{p.X, p.Y}
	}
	return out
}

// NewDocument records a successful calibration.
func NewDocument(cal *Calibration) Document {
	h := cal.Homography.Flatten()
	m := cal.Intrinsics.Flatten()
	d := cal.DistCoeffs
	return Document{
		OK:                true,
		Homography:        &h,
		CameraMatrix:      &m,
		DistCoeffs:        &d,
		ReprojectionError: cal.ReprojectionError,
		MaxError:          cal.MaxError,
		MarkersDetected:   cal.MarkersDetected,
	}
}

// FailedDocument records a calibration attempt that produced no homography.
func FailedDocument(err error, markersDetected int) Document {
	return Document{
		OK:              false,
		MarkersDetected: markersDetected,
		Error:           err.Error(),
	}
}

// Calibration reconstructs the in-memory form. Only ok documents convert.
func (d Document) Calibration() (*Calibration, error) {
	if !d.OK || d.Homography == nil {
		return nil, fmt.Errorf("calibration document is not usable: %s", d.Error)
	}
	cal := &Calibration{
		Homography:        geometry.FromFlat(*d.Homography),
		ReprojectionError: d.ReprojectionError,
		MaxError:          d.MaxError,
		MarkersDetected:   d.MarkersDetected,
	}
	if d.CameraMatrix != nil {
		m := *d.CameraMatrix
		cal.Intrinsics = &Intrinsics{Fx: m[0], Fy: m[4], Cx: m[2], Cy: m[5]}
	}
	if d.DistCoeffs != nil {
		cal.DistCoeffs = *d.DistCoeffs
	}
	return cal, nil
}

// SaveDocument writes the record as indented JSON.
func SaveDocument(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	return nil
}

// LoadDocument reads a record written by SaveDocument.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read calibration: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse calibration %s: %w", path, err)
	}
	return doc, nil
}
