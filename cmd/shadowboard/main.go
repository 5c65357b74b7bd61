// Command shadowboard monitors a tool board through calibrated cameras.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"shadowboard/internal/config"
	"shadowboard/internal/runner"
	"shadowboard/internal/version"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "shadowboard",
		Short: "Tool board monitoring through calibrated cameras",
		Long: `Shadowboard calibrates stationary cameras against a printed marker
sheet, rectifies each frame into board coordinates, and classifies the
occupancy of every configured slot.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCalibrateCmd(opts),
		newRunCmd(opts),
		newValidateCmd(opts),
		newPreviewCmd(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// captureFrame grabs one frame from a still image when given, otherwise
// from the live device.
func captureFrame(cfg *config.Config, device, imagePath string) (gocv.Mat, error) {
	if imagePath != "" {
		return runner.FileSource{}.Capture(imagePath)
	}
	if device == "" {
		return gocv.NewMat(), fmt.Errorf("either --device or --image is required")
	}
	return runner.DeviceSource{Config: cfg.Capture}.Capture(device)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
