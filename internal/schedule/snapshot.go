package schedule

import (
	"time"

	"classcal/internal/calendar"
	"classcal/internal/ics"
	appLog "classcal/internal/log"
)

// Snapshot is everything a renderer needs for one paint of the screen.
type Snapshot struct {
	Title    string
	Mode     calendar.ViewMode
	Selected time.Time
	Today    time.Time

	Days         []*calendar.Day
	Weekdays     []string
	LeadingBlank int
	Truncated    []string

	Loading     bool
	MeetLoading bool
	Alert       string
	Notice      string
	Detail      Detail
	LoadedAt    time.Time
}

// Snapshot expands recurring events over the painted range and builds the
// grid for the current view. A notice older than the TTL is cleared here.
func (p *Page) Snapshot() Snapshot {
	now := p.now()
	gen := p.opts.Generator

	p.mu.Lock()
	if p.notice != "" && now.Sub(p.noticeAt) >= p.opts.NoticeTTL {
		p.notice = ""
	}
	s := Snapshot{
		Title:    p.view.Title(),
		Mode:     p.view.Mode,
		Selected: p.view.Selected,
		Today:    now.In(p.view.Selected.Location()),
		Alert:    p.alert,
		Notice:   p.notice,
		Detail:   p.detail,
		LoadedAt: p.loadedAt,
	}
	events := p.events
	p.mu.Unlock()

	rangeStart, rangeEnd := gen.Range(s.Selected, s.Mode)
	expanded, err := ics.Expand(events, rangeStart, rangeEnd, p.opts.MaxOccurrences)
	if err != nil {
		appLog.Error("recurrence expansion failed", err)
		expanded.Events = events
	}

	s.Days = gen.Generate(expanded.Events, s.Selected, s.Mode)
	s.Truncated = expanded.Truncated
	s.Weekdays = calendar.WeekdayNames(gen.WeekStart)
	if s.Mode == calendar.ModeMonth {
		s.LeadingBlank = gen.LeadingBlanks(s.Selected)
	}
	s.Loading = p.flight.busy(ActionRefresh)
	s.MeetLoading = p.flight.busy(ActionMeetLink)

	p.opts.Metrics.ObserveGrid(string(s.Mode))
	return s
}

// IsToday reports whether d is the current calendar day in the display
// timezone.
func (s Snapshot) IsToday(d *calendar.Day) bool {
	return d != nil && d.Date.Format("2006-01-02") == s.Today.Format("2006-01-02")
}
