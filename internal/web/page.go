package web

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"classcal/internal/calendar"
	appLog "classcal/internal/log"
	"classcal/internal/schedule"
)

//go:embed templates/calendar.html
var calendarHTML string

var calendarTmpl = template.Must(template.New("calendar").Parse(calendarHTML))

type pageData struct {
	Snap schedule.Snapshot
	Rows [][]*calendar.Day
}

// rows splits the day cells into weeks, padding the last one.
func rows(days []*calendar.Day) [][]*calendar.Day {
	var out [][]*calendar.Day
	for i := 0; i < len(days); i += 7 {
		end := min(i+7, len(days))
		row := make([]*calendar.Day, 7)
		copy(row, days[i:end])
		out = append(out, row)
	}
	return out
}

// handleCalendarPage renders the grid as server-side HTML. The root element
// carries data-ready="true" once rendered, which the snapshot command
// waits for.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	snap := s.page.Snapshot()

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, pageData{Snap: snap, Rows: rows(snap.Days)}); err != nil {
		appLog.Error("calendar template failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
