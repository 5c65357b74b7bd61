package main

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shadowboard/internal/calib"
	"shadowboard/internal/config"
	"shadowboard/internal/logging"
	"shadowboard/internal/preview"
	"shadowboard/internal/rectify"
	"shadowboard/internal/runner"
)

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var (
		device          string
		imagePath       string
		calibrationFile string
		slotsFile       string
		cameraID        string
		gridCm          float64
		interval        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the live rectified board with a cm grid and slot outlines",
		Long: `Opens a window displaying the rectified board view, overlaid with a
physical-unit grid and the configured slot polygons. Useful when aiming a
camera or drawing slot regions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(root.verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			doc, err := calib.LoadDocument(calibrationFile)
			if err != nil {
				return err
			}
			cal, err := doc.Calibration()
			if err != nil {
				return err
			}

			slots, err := loadSlotOutlines(slotsFile, cameraID)
			if err != nil {
				return err
			}

			layout := cfg.Layout()
			grab := func() (image.Image, error) {
				frame, err := captureFrame(cfg, device, imagePath)
				if err != nil {
					return nil, err
				}
				defer frame.Close()
				rectified, err := rectify.Rectify(frame, cal, layout,
					cfg.Rectified.Width, cfg.Rectified.Height)
				if err != nil {
					return nil, err
				}
				defer rectified.Close()
				return rectified.ToImage()
			}

			var viewer *preview.Viewer
			viewer = preview.NewViewer(preview.Options{
				Title:         "shadowboard preview",
				BoardWidthCm:  layout.WidthCm,
				BoardHeightCm: layout.HeightCm,
				GridSpacingCm: gridCm,
				Slots:         slots,
				OnRefresh: func() {
					go func() {
						img, err := grab()
						if err != nil {
							log.Warn("preview refresh failed", zap.Error(err))
							return
						}
						viewer.SetFrame(img)
					}()
				},
			})

			first, err := grab()
			if err != nil {
				return err
			}
			viewer.SetFrame(first)

			// Still images get a single frame; live devices refresh on a
			// fixed interval until the window closes.
			if imagePath == "" && interval > 0 {
				go func() {
					ticker := time.NewTicker(interval)
					defer ticker.Stop()
					for range ticker.C {
						img, err := grab()
						if err != nil {
							log.Warn("preview refresh failed", zap.Error(err))
							continue
						}
						viewer.SetFrame(img)
					}
				}()
			}

			viewer.ShowAndRun()
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "camera device index or path")
	cmd.Flags().StringVar(&imagePath, "image", "", "preview a still image instead of a device")
	cmd.Flags().StringVar(&calibrationFile, "calibration", "", "calibration record for this camera")
	cmd.Flags().StringVar(&slotsFile, "slots", "", "batch request file providing slot outlines")
	cmd.Flags().StringVar(&cameraID, "camera", "", "camera id to pick from the slots file (default: first)")
	cmd.Flags().Float64Var(&gridCm, "grid", 5.0, "grid spacing in cm (0 disables)")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "live refresh interval")
	cmd.MarkFlagRequired("calibration")
	return cmd
}

// loadSlotOutlines pulls one camera's slot polygons out of a batch request.
func loadSlotOutlines(path, cameraID string) ([]preview.Slot, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	req, err := runner.ParseRequest(f)
	if err != nil {
		return nil, err
	}

	cam := req.Cameras[0]
	if cameraID != "" {
		found := false
		for _, c := range req.Cameras {
			if c.CameraID == cameraID {
				cam = c
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("camera %q not in slots file", cameraID)
		}
	}

	slots := make([]preview.Slot, 0, len(cam.Slots))
	for _, s := range cam.Slots {
		slots = append(slots, preview.Slot{Name: s.ID, Polygon: s.PolygonPoints()})
	}
	return slots, nil
}
