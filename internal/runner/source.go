package runner

import (
	"fmt"

	"gocv.io/x/gocv"

	"shadowboard/internal/camera"
	"shadowboard/internal/config"
)

// FrameSource acquires one frame per camera task. The caller owns the
// returned Mat.
type FrameSource interface {
	Capture(device string) (gocv.Mat, error)
}

// DeviceSource captures from live video devices, opening and releasing the
// device per cycle so no handle is shared across concurrent tasks.
type DeviceSource struct {
	Config config.CaptureConfig
}

func (s DeviceSource) Capture(device string) (gocv.Mat, error) {
	cam, err := camera.Open(camera.Config{
		Device:       device,
		Width:        s.Config.Width,
		Height:       s.Config.Height,
		WarmupFrames: s.Config.WarmupFrames,
		Retries:      s.Config.Retries,
	})
	if err != nil {
		return gocv.NewMat(), err
	}
	defer cam.Close()
	return cam.Capture()
}

// FileSource reads still images instead of live devices, treating the
// device field as a file path. Used for offline runs and dry tests.
type FileSource struct{}

func (FileSource) Capture(path string) (gocv.Mat, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	if m.Empty() {
		m.Close()
		return gocv.NewMat(), fmt.Errorf("%w: cannot read image %s", camera.ErrCaptureFailure, path)
	}
	return m, nil
}
