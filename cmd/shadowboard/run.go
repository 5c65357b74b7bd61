package main

import (
	"os"

	"github.com/spf13/cobra"

	"shadowboard/internal/config"
	"shadowboard/internal/logging"
	"shadowboard/internal/runner"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		inputPath  string
		fromImages bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a batch of cameras and classify every slot",
		Long: `Reads a batch request (cameras, calibrations, slot definitions) from
stdin or --input, processes all cameras concurrently, and prints the
aggregate result as JSON. The exit code follows the batch status:
0 full success, 2 partial, 1 total failure.`,
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

			rn := runner.New(cfg, frames, log)
			result := rn.Run(tasks)
			rn.Close()
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}

			// Exit directly so the scheduler sees the 0/2/1 convention.
			// Everything that needs releasing is released above; no defers
			// other than log.Sync remain pending here.
			log.Sync()
			os.Exit(result.ExitCode())
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "batch request file (defaults to stdin)")
	cmd.Flags().BoolVar(&fromImages, "images", false, "treat camera devices as still image paths")
	return cmd
}
