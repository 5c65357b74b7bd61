// Package camera wraps video device access for single-frame board captures.
package camera

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrCaptureFailure is returned when a device cannot be opened or refuses
// to deliver a frame. It marks the whole camera as failed for the cycle;
// other cameras are unaffected.
var ErrCaptureFailure = errors.New("camera capture failure")

// Config selects and shapes a capture device.
type Config struct {
	// Device is an index ("0") or a device path ("/dev/video2").
	Device string
	// Width and Height request a capture resolution; zero leaves the
	// device default.
	Width  int
	Height int
	// WarmupFrames are grabbed and discarded before the real capture so
	// auto-exposure can settle. Defaults to 3 when zero.
	WarmupFrames int
	// Retries is the number of extra read attempts on an empty frame.
	Retries int
}

// Camera is an open capture device.
type Camera struct {
	cap    *gocv.VideoCapture
	device string
	cfg    Config
}

// mjpgFourCC is the FOURCC code for motion JPEG, which most UVC webcams
// need to sustain full resolution at a usable rate.
const mjpgFourCC = float64(uint32('M') | uint32('J')<<8 | uint32('P')<<16 | uint32('G')<<24)

// Open connects to the device and applies the requested format.
func Open(cfg Config) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrCaptureFailure, cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFOURCC, mjpgFourCC)
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	if cfg.WarmupFrames == 0 {
		cfg.WarmupFrames = 3
	}
	return &Camera{cap: vc, device: cfg.Device, cfg: cfg}, nil
}

// Device returns the identifier the camera was opened with.
func (c *Camera) Device() string { return c.device }

// Capture grabs one frame, discarding warmup frames first. The caller owns
// the returned Mat.
func (c *Camera) Capture() (gocv.Mat, error) {
	frame := gocv.NewMat()

	for i := 0; i < c.cfg.WarmupFrames; i++ {
		c.cap.Read(&frame)
	}

	attempts := 1 + c.cfg.Retries
	for i := 0; i < attempts; i++ {
		if c.cap.Read(&frame) && !frame.Empty() {
			return frame, nil
		}
	}

	frame.Close()
	return gocv.NewMat(), fmt.Errorf("%w: no frame from %s", ErrCaptureFailure, c.device)
}

// Close releases the device.
func (c *Camera) Close() error {
	return c.cap.Close()
}
