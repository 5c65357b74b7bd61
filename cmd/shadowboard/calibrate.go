package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"shadowboard/internal/calib"
	"shadowboard/internal/config"
	"shadowboard/internal/logging"
	"shadowboard/internal/marker"
	"shadowboard/internal/rectify"
)

func newCalibrateCmd(root *rootOptions) *cobra.Command {
	var (
		device     string
		imagePath  string
		outPath    string
		previewOut string
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit the board-to-camera homography from the corner markers",
		Long: `Captures a frame, locates the four corner markers, and fits a
validated homography. The calibration record is printed as JSON and
optionally persisted for later runs.`,
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

			frame, err := captureFrame(cfg, device, imagePath)
			if err != nil {
				return err
			}
			defer frame.Close()

			dict, err := marker.DictionaryFromName(cfg.Board.Dictionary)
			if err != nil {
				return err
			}
			loc := marker.NewLocator(dict)
			defer loc.Close()

			centers, found := loc.Locate(frame)
			log.Info("corner markers located", zap.Int("found", found))

			layout := cfg.Layout()
			cal, calErr := calib.Calibrate(centers, layout, frame.Cols(), frame.Rows())

			var doc calib.Document
			if calErr != nil {
				doc = calib.FailedDocument(calErr, found)
			} else {
				doc = calib.NewDocument(cal)
			}
			doc.MarkerPositions = calib.MarkerPositionsFrom(centers)
			if err := writeJSON(cmd.OutOrStdout(), doc); err != nil {
				return err
			}
			if outPath != "" {
				if err := calib.SaveDocument(outPath, doc); err != nil {
					return err
				}
				log.Info("calibration saved", zap.String("path", outPath))
			}
			if calErr != nil {
				return fmt.Errorf("calibration failed: %w", calErr)
			}

			log.Info("calibration fitted",
				zap.Float64("reprojectionError", cal.ReprojectionError),
				zap.Float64("maxError", cal.MaxError))

			if previewOut != "" {
				rectified, err := rectify.Rectify(frame, cal, layout,
					cfg.Rectified.Width, cfg.Rectified.Height)
				if err != nil {
					return err
				}
				defer rectified.Close()
				if ok := gocv.IMWrite(previewOut, rectified); !ok {
					return fmt.Errorf("cannot write preview image %s", previewOut)
				}
				log.Info("rectified preview written", zap.String("path", previewOut))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "camera device index or path")
	cmd.Flags().StringVar(&imagePath, "image", "", "calibrate from a still image instead of a device")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the calibration record to this file")
	cmd.Flags().StringVar(&previewOut, "preview-out", "", "write the rectified board view to this image file")
	return cmd
}
