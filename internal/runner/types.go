// Package runner orchestrates per-camera capture and slot classification
// cycles and aggregates their results.
package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shadowboard/internal/calib"
	"shadowboard/internal/classify"
	"shadowboard/pkg/geometry"
)

// CameraStatus is the per-camera outcome of one cycle.
type CameraStatus string

const (
	// CameraSuccess: every slot produced a real classification.
	CameraSuccess CameraStatus = "success"
	// CameraDegraded: the frame was processed but at least one slot hit a
	// processing error.
	CameraDegraded CameraStatus = "degraded"
	// CameraFailed: capture or rectification failed; no slots processed.
	CameraFailed CameraStatus = "failed"
)

// RunStatus is the whole-batch outcome, mirrored into the exit code.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial_failure"
	RunFailure RunStatus = "failure"
)

// SlotDefinition describes one monitored slot on the rectified board.
// Polygon vertices are rectified-frame pixels.
type SlotDefinition struct {
	ID                  string       `json:"id"`
	Polygon             [][2]float64 `json:"polygon"`
	ExpectedIdentity    string       `json:"expectedIdentity,omitempty"`
	BaselineEmptyRef    string       `json:"baselineEmptyRef,omitempty"`
	BaselineOccupiedRef string       `json:"baselineOccupiedRef,omitempty"`
}

// PolygonPoints converts the wire polygon to geometry points.
func (d SlotDefinition) PolygonPoints() []geometry.Point2D {
	pts := make([]geometry.Point2D, len(d.Polygon))
	for i, v := range d.Polygon {
		pts[i] = geometry.Point2D{X: v[0], Y: v[1]}
	}
	return pts
}

// SlotObservation is the immutable per-slot result of one cycle.
type SlotObservation struct {
	SlotID             string          `json:"slotId"`
	Status             classify.Status `json:"status"`
	DecodedIdentity    string          `json:"decodedIdentity,omitempty"`
	WorkerName         string          `json:"workerName,omitempty"`
	SimilarityEmpty    *float64        `json:"similarityEmpty,omitempty"`
	SimilarityOccupied *float64        `json:"similarityOccupied,omitempty"`
	CorrectItem        *bool           `json:"correctItem,omitempty"`
	QualityScore       float64         `json:"qualityScore"`
	AlertTriggered     bool            `json:"alertTriggered"`
	Error              string          `json:"error,omitempty"`
}

// CameraRunResult aggregates one camera's cycle.
type CameraRunResult struct {
	CameraID string            `json:"cameraId"`
	Status   CameraStatus      `json:"status"`
	Slots    []SlotObservation `json:"slots"`
	Errors   []string          `json:"errors"`
}

// RunResult is the whole-batch aggregate.
type RunResult struct {
	Status           RunStatus         `json:"status"`
	CamerasProcessed int               `json:"camerasProcessed"`
	SlotsProcessed   int               `json:"slotsProcessed"`
	Results          []CameraRunResult `json:"results"`
}

// Aggregate rolls camera results up into the batch outcome. All cameras
// succeeding is success; all cameras failing outright (or an empty batch)
// is failure; anything in between, including degraded cameras, is a
// partial failure.
func Aggregate(results []CameraRunResult) RunResult {
	run := RunResult{
		CamerasProcessed: len(results),
		Results:          results,
	}

	succeeded, failed := 0, 0
	for _, r := range results {
		run.SlotsProcessed += len(r.Slots)
		switch r.Status {
		case CameraSuccess:
			succeeded++
		case CameraFailed:
			failed++
		}
	}

	switch {
	case len(results) == 0 || failed == len(results):
		run.Status = RunFailure
	case succeeded == len(results):
		run.Status = RunSuccess
	default:
		run.Status = RunPartial
	}
	return run
}

// ExitCode maps the run status onto the process exit convention external
// schedulers branch on: 0 full success, 2 partial, 1 total failure.
func (r RunResult) ExitCode() int {
	switch r.Status {
	case RunSuccess:
		return 0
	case RunPartial:
		return 2
	default:
		return 1
	}
}

// RunRequest is the batch input document, typically read from stdin.
type RunRequest struct {
	Cameras []CameraRequest `json:"cameras"`
}

// CameraRequest binds one camera to its calibration and slot set.
type CameraRequest struct {
	CameraID        string           `json:"cameraId"`
	Device          string           `json:"device"`
	CalibrationFile string           `json:"calibrationFile"`
	Slots           []SlotDefinition `json:"slots"`
}

// ParseRequest decodes and structurally validates a batch request.
func ParseRequest(r io.Reader) (*RunRequest, error) {
	var req RunRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("parse run request: %w", err)
	}
	if len(req.Cameras) == 0 {
		return nil, fmt.Errorf("run request names no cameras")
	}
	for i, cam := range req.Cameras {
		if cam.CameraID == "" {
			return nil, fmt.Errorf("camera %d: missing cameraId", i)
		}
		if cam.Device == "" {
			return nil, fmt.Errorf("camera %s: missing device", cam.CameraID)
		}
		if cam.CalibrationFile == "" {
			return nil, fmt.Errorf("camera %s: missing calibrationFile", cam.CameraID)
		}
		for _, slot := range cam.Slots {
			if slot.ID == "" {
				return nil, fmt.Errorf("camera %s: slot with empty id", cam.CameraID)
			}
			if len(slot.Polygon) < 3 {
				return nil, fmt.Errorf("camera %s: slot %s polygon has %d vertices, need at least 3",
					cam.CameraID, slot.ID, len(slot.Polygon))
			}
		}
	}
	return &req, nil
}

// ParseRequestFile reads a batch request from a file. The file is closed
// before returning, so callers that terminate via os.Exit hold no open
// handle on it.
func ParseRequestFile(path string) (*RunRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRequest(f)
}

// ResolvePaths anchors relative calibration and baseline references at the
// configured data directories. Absolute references pass through untouched.
func (req *RunRequest) ResolvePaths(calibrationDir, baselineDir string) {
	for i := range req.Cameras {
		cam := &req.Cameras[i]
		cam.CalibrationFile = resolvePath(calibrationDir, cam.CalibrationFile)
		for j := range cam.Slots {
			s := &cam.Slots[j]
			s.BaselineEmptyRef = resolvePath(baselineDir, s.BaselineEmptyRef)
			s.BaselineOccupiedRef = resolvePath(baselineDir, s.BaselineOccupiedRef)
		}
	}
}

func resolvePath(dir, path string) string {
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// CameraTask is a fully resolved unit of per-camera work.
type CameraTask struct {
	CameraID    string
	Device      string
	Calibration *calib.Calibration
	Slots       []SlotDefinition
}

// Tasks resolves calibration files into executable camera tasks.
func (req *RunRequest) Tasks() ([]CameraTask, error) {
	tasks := make([]CameraTask, 0, len(req.Cameras))
	for _, cam := range req.Cameras {
		doc, err := calib.LoadDocument(cam.CalibrationFile)
		if err != nil {
			return nil, fmt.Errorf("camera %s: %w", cam.CameraID, err)
		}
		cal, err := doc.Calibration()
		if err != nil {
			return nil, fmt.Errorf("camera %s: %w", cam.CameraID, err)
		}
		tasks = append(tasks, CameraTask{
			CameraID:    cam.CameraID,
			Device:      cam.Device,
			Calibration: cal,
			Slots:       cam.Slots,
		})
	}
	return tasks, nil
}
