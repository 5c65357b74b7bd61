package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"shadowboard/internal/config"
	"shadowboard/internal/decode"
	"shadowboard/internal/logging"
	"shadowboard/internal/payload"
	"shadowboard/internal/rectify"
	"shadowboard/internal/region"
	"shadowboard/internal/runner"
	"shadowboard/pkg/geometry"
)

// Validation phases. On an empty board every slot marker must decode to
// its own identity; on a stocked board no slot marker may be visible at
// all, since every tool should cover its own marker.
const (
	phaseEmpty   = "empty"
	phaseStocked = "stocked"
)

// validateSlotReport records the checks for one slot marker: whether an
// authentic payload decoded, whether the identity matches the slot, and
// whether the slot passes for the requested phase.
type validateSlotReport struct {
	SlotID          string `json:"slotId"`
	Decoded         bool   `json:"decoded"`
	IdentityMatch   bool   `json:"identityMatch"`
	Pass            bool   `json:"pass"`
	DecodedIdentity string `json:"decodedIdentity,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

type validateCameraReport struct {
	CameraID string               `json:"cameraId"`
	OK       bool                 `json:"ok"`
	Slots    []validateSlotReport `json:"slots"`
	Error    string               `json:"error,omitempty"`
}

type validateReport struct {
	OK      bool                   `json:"ok"`
	Cameras []validateCameraReport `json:"cameras"`
}

// newValidateCmd audits a freshly labeled board. Run the empty phase after
// printing and placing markers (every slot marker must decode to its own
// identity), then the stocked phase with all tools in place (no slot marker
// may remain visible), before the board goes into service.
func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		inputPath  string
		fromImages bool
		phase      string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Verify slot markers against the board's expected state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if phase != phaseEmpty && phase != phaseStocked {
				return fmt.Errorf("unknown phase %q, want %q or %q", phase, phaseEmpty, phaseStocked)
			}
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(root.verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			var req *runner.RunRequest
			if inputPath != "" {
				req, err = runner.ParseRequestFile(inputPath)
			} else {
				req, err = runner.ParseRequest(os.Stdin)
			}
			if err != nil {
				return err
			}
			req.ResolvePaths(cfg.CalibrationDir, cfg.BaselineDir)
			tasks, err := req.Tasks()
			if err != nil {
				return err
			}

			var frames runner.FrameSource = runner.DeviceSource{Config: cfg.Capture}
			if fromImages {
				frames = runner.FileSource{}
			}
			reader := decode.NewReader(payload.NewVerifier(cfg.Secret))
			defer reader.Close()
			layout := cfg.Layout()

			report := validateReport{OK: true}
			for _, task := range tasks {
				camReport := validateCameraReport{CameraID: task.CameraID, OK: true}

				frame, err := frames.Capture(task.Device)
				if err != nil {
					camReport.OK = false
					camReport.Error = err.Error()
					report.OK = false
					report.Cameras = append(report.Cameras, camReport)
					continue
				}

				rectified, err := rectify.Rectify(frame, task.Calibration, layout,
					cfg.Rectified.Width, cfg.Rectified.Height)
				frame.Close()
				if err != nil {
					camReport.OK = false
					camReport.Error = err.Error()
					report.OK = false
					report.Cameras = append(report.Cameras, camReport)
					continue
				}

				for _, slot := range task.Slots {
					sr := validateSlot(reader, rectified, slot, phase)
					if !sr.Pass {
						camReport.OK = false
						report.OK = false
					}
					camReport.Slots = append(camReport.Slots, sr)
				}
				rectified.Close()

				log.Info("camera validated",
					zap.String("camera", task.CameraID),
					zap.Bool("ok", camReport.OK))
				report.Cameras = append(report.Cameras, camReport)
			}

			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "batch request file (defaults to stdin)")
	cmd.Flags().BoolVar(&fromImages, "images", false, "treat camera devices as still image paths")
	cmd.Flags().StringVar(&phase, "phase", phaseEmpty, `board state to validate against ("empty" or "stocked")`)
	return cmd
}

// validateSlot checks one slot region for the requested phase.
func validateSlot(reader *decode.Reader, rectified gocv.Mat, slot runner.SlotDefinition, phase string) validateSlotReport {
	sr := validateSlotReport{SlotID: slot.ID}

	// Audit the outline itself before looking at pixels: every vertex must
	// land on the rectified board, and the polygon must contain its own
	// bounding-box center (a sliver or self-intersection usually means the
	// region was mis-drawn).
	pts := slot.PolygonPoints()
	frameRect := geometry.Rect{Width: float64(rectified.Cols()), Height: float64(rectified.Rows())}
	for _, v := range pts {
		if !frameRect.Contains(v) {
			sr.Detail = fmt.Sprintf("vertex (%.0f, %.0f) lies outside the rectified frame; check the slot outline", v.X, v.Y)
			return sr
		}
	}
	if !geometry.PointInPolygon(geometry.BoundingBox(pts).Center(), pts) {
		sr.Detail = "polygon does not contain its own center; check the slot outline"
		return sr
	}

	regionMat, err := region.Extract(rectified, pts)
	if err != nil {
		sr.Detail = err.Error()
		return sr
	}
	defer regionMat.Close()

	payloads, err := reader.Decode(regionMat)
	if err != nil {
		sr.Detail = err.Error()
		return sr
	}
	sr.Decoded = len(payloads) > 0

	for _, p := range payloads {
		if p.Kind == payload.KindSlot && p.ID == slot.ExpectedIdentity {
			sr.IdentityMatch = true
			sr.DecodedIdentity = p.ID
			break
		}
	}
	if sr.Decoded && sr.DecodedIdentity == "" {
		sr.DecodedIdentity = payloads[0].ID
	}

	switch phase {
	case phaseStocked:
		// A stocked slot must cover its own marker completely.
		sr.Pass = !sr.IdentityMatch
		if !sr.Pass {
			sr.Detail = "slot marker still visible; item missing or misplaced"
		}
	default:
		sr.Pass = sr.IdentityMatch
		if !sr.Pass && sr.Detail == "" {
			if !sr.Decoded {
				sr.Detail = "no authentic payload decoded"
			} else {
				sr.Detail = fmt.Sprintf("decoded %q, expected slot identity %q",
					sr.DecodedIdentity, slot.ExpectedIdentity)
			}
		}
	}
	return sr
}
