package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"classcal/internal/calendar"
)

func newGridCmd() *cobra.Command {
	var (
		mode string
		date string
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the calendar grid to the terminal",
		Example: `  classcal grid
  classcal grid --mode week --date 2025-06-10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := calendar.ParseViewMode(mode)
			if err != nil {
				return err
			}

			rt, err := loadApp()
			if err != nil {
				return err
			}

			page := rt.newPage()
			defer page.Close()

			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, rt.loc)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				page.SetDate(d)
			}
			page.SetMode(m)

			if err := page.Refresh(cmd.Context()); err != nil {
				return err
			}

			snap := page.Snapshot()
			return calendar.RenderText(cmd.OutOrStdout(), snap.Title, snap.Days, rt.gen.WeekStart)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "month", "View mode: month or week")
	cmd.Flags().StringVar(&date, "date", "", "Reference date (YYYY-MM-DD), default today")
	return cmd
}
