package calendar

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// RenderText writes the grid as a 7-column table followed by an agenda of
// the events in each cell. Cells show the day number and event count.
func RenderText(w io.Writer, title string, days []*Day, weekStart time.Weekday) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", title); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 4, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(WeekdayNames(weekStart), "\t"))

	row := make([]string, 0, 7)
	for i, d := range days {
		row = append(row, cellText(d))
		if len(row) == 7 || i == len(days)-1 {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
			row = row[:0]
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, d := range days {
		if d == nil || len(d.Events) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", d.Date.Format("Mon Jan 2"))
		for _, ev := range d.Events {
			line := fmt.Sprintf("  %s  %s", ev.Start.In(d.Date.Location()).Format("15:04"), ev.Title)
			if ev.MeetLink != "" {
				line += "  " + ev.MeetLink
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func cellText(d *Day) string {
	if d == nil {
		return "."
	}
	if n := len(d.Events); n > 0 {
		return fmt.Sprintf("%d*%d", d.Date.Day(), n)
	}
	return fmt.Sprintf("%d", d.Date.Day())
}
