package main

import (
	"time"

	"github.com/spf13/cobra"

	"classcal/internal/capture"
)

func newSnapshotCmd() *cobra.Command {
	var (
		out     string
		url     string
		width   int
		height  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a PNG of the calendar page rendered by a running server",
		Long: `Open the /calendar page of a running "classcal serve" in headless
Chromium and save a PNG once the grid has rendered. The default output is
preview_path from the config, which the server exposes at /preview.png.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp()
			if err != nil {
				return err
			}
			if out == "" {
				out = rt.cfg.PreviewPath
			}
			if url == "" {
				url = "http://" + rt.cfg.Listen + "/calendar"
			}
			return capture.CalendarPNG(cmd.Context(), capture.Options{
				URL:        url,
				OutputPath: out,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output PNG path (default preview_path)")
	cmd.Flags().StringVar(&url, "url", "", "Page to capture (default http://<listen>/calendar)")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "Viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", capture.DefaultHeight, "Viewport height in pixels")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "Capture timeout")
	return cmd
}
