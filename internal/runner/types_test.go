package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowboard/internal/calib"
	"shadowboard/internal/classify"
	"shadowboard/pkg/geometry"
)

func cameraResult(id string, status CameraStatus, slots int) CameraRunResult {
	res := CameraRunResult{CameraID: id, Status: status, Slots: []SlotObservation{}, Errors: []string{}}
	for i := 0; i < slots; i++ {
		res.Slots = append(res.Slots, SlotObservation{SlotID: "s", Status: classify.StatusItemPresent})
	}
	return res
}

func TestAggregateAllSuccess(t *testing.T) {
	run := Aggregate([]CameraRunResult{
		cameraResult("cam0", CameraSuccess, 3),
		cameraResult("cam1", CameraSuccess, 2),
	})

	assert.Equal(t, RunSuccess, run.Status)
	assert.Equal(t, 2, run.CamerasProcessed)
	assert.Equal(t, 5, run.SlotsProcessed)
	assert.Equal(t, 0, run.ExitCode())
}

func TestAggregatePartialFailure(t *testing.T) {
	run := Aggregate([]CameraRunResult{
		cameraResult("cam0", CameraSuccess, 3),
		cameraResult("cam1", CameraFailed, 0),
	})

	assert.Equal(t, RunPartial, run.Status)
	assert.Equal(t, 2, run.ExitCode())
}

func TestAggregateDegradedCameraIsPartial(t *testing.T) {
	run := Aggregate([]CameraRunResult{
		cameraResult("cam0", CameraDegraded, 3),
	})

	assert.Equal(t, RunPartial, run.Status)
	assert.Equal(t, 2, run.ExitCode())
}

func TestAggregateTotalFailure(t *testing.T) {
	run := Aggregate([]CameraRunResult{
		cameraResult("cam0", CameraFailed, 0),
		cameraResult("cam1", CameraFailed, 0),
	})

	assert.Equal(t, RunFailure, run.Status)
	assert.Equal(t, 1, run.ExitCode())
}

func TestAggregateEmptyBatchFails(t *testing.T) {
	run := Aggregate(nil)
	assert.Equal(t, RunFailure, run.Status)
	assert.Equal(t, 1, run.ExitCode())
}

const validRequest = `{
  "cameras": [
    {
      "cameraId": "cam0",
      "device": "0",
      "calibrationFile": "cam0.json",
      "slots": [
        {
          "id": "T17",
          "polygon": [[10, 10], [110, 10], [110, 90], [10, 90]],
          "expectedIdentity": "T17"
        }
      ]
    }
  ]
}`

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest(strings.NewReader(validRequest))
	require.NoError(t, err)
	require.Len(t, req.Cameras, 1)

	cam := req.Cameras[0]
	assert.Equal(t, "cam0", cam.CameraID)
	require.Len(t, cam.Slots, 1)
	assert.Equal(t, "T17", cam.Slots[0].ExpectedIdentity)

	pts := cam.Slots[0].PolygonPoints()
	require.Len(t, pts, 4)
	assert.Equal(t, geometry.Point2D{X: 110, Y: 90}, pts[2])
}

func TestParseRequestRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty cameras":       `{"cameras": []}`,
		"missing cameraId":    `{"cameras": [{"device": "0", "calibrationFile": "c.json"}]}`,
		"missing device":      `{"cameras": [{"cameraId": "cam0", "calibrationFile": "c.json"}]}`,
		"missing calibration": `{"cameras": [{"cameraId": "cam0", "device": "0"}]}`,
		"unknown field":       `{"cameras": [], "extra": true}`,
		"degenerate polygon": `{"cameras": [{"cameraId": "cam0", "device": "0",
			"calibrationFile": "c.json",
			"slots": [{"id": "s1", "polygon": [[0,0],[1,1]]}]}]}`,
		"not json": `cameras: []`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestTasksResolveCalibration(t *testing.T) {
	markers := map[int]geometry.Point2D{
		17: {X: 100, Y: 100},
		18: {X: 1800, Y: 100},
		19: {X: 1800, Y: 1000},
		20: {X: 100, Y: 1000},
	}
	cal, err := calib.Calibrate(markers, calib.DefaultLayout(), 1920, 1080)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cam0.json")
	require.NoError(t, calib.SaveDocument(path, calib.NewDocument(cal)))

	req := &RunRequest{Cameras: []CameraRequest{{
		CameraID:        "cam0",
		Device:          "0",
		CalibrationFile: path,
		Slots:           []SlotDefinition{{ID: "s1", Polygon: [][2]float64{{0, 0}, {10, 0}, {10, 10}}}},
	}}}

	tasks, err := req.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "cam0", tasks[0].CameraID)
	require.NotNil(t, tasks[0].Calibration)
	assert.Equal(t, 4, tasks[0].Calibration.MarkersDetected)
}

func TestParseRequestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(validRequest), 0o644))

	req, err := ParseRequestFile(path)
	require.NoError(t, err)
	require.Len(t, req.Cameras, 1)
	assert.Equal(t, "cam0", req.Cameras[0].CameraID)

	_, err = ParseRequestFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestResolvePaths(t *testing.T) {
	req := &RunRequest{Cameras: []CameraRequest{{
		CameraID:        "cam0",
		Device:          "0",
		CalibrationFile: "cam0.json",
		Slots: []SlotDefinition{{
			ID:                  "s1",
			BaselineEmptyRef:    "s1_empty.png",
			BaselineOccupiedRef: "/abs/s1_occupied.png",
		}},
	}}}

	req.ResolvePaths("/data/calibrations", "/data/baselines")

	cam := req.Cameras[0]
	assert.Equal(t, "/data/calibrations/cam0.json", cam.CalibrationFile)
	assert.Equal(t, "/data/baselines/s1_empty.png", cam.Slots[0].BaselineEmptyRef)
	// Absolute references are left alone.
	assert.Equal(t, "/abs/s1_occupied.png", cam.Slots[0].BaselineOccupiedRef)
}

func TestTasksMissingCalibrationFile(t *testing.T) {
	req := &RunRequest{Cameras: []CameraRequest{{
		CameraID:        "cam0",
		Device:          "0",
		CalibrationFile: filepath.Join(t.TempDir(), "absent.json"),
	}}}

	_, err := req.Tasks()
	assert.Error(t, err)
}
