package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"classcal/internal/model"
)

// ViewMode controls grid granularity.
type ViewMode string

const (
	ModeMonth ViewMode = "month"
	ModeWeek  ViewMode = "week"
)

// ParseViewMode accepts "month" or "week" (case-insensitive). An empty
// string yields ModeMonth.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMonth:
		return ModeMonth, nil
	case ModeWeek:
		return ModeWeek, nil
	default:
		return "", fmt.Errorf("calendar: unknown view mode %q", s)
	}
}

// Scope decides which events populate the month grid.
type Scope int

const (
	// ScopeRollingWeek keeps only events in [selected date, +7 days) for
	// both views.
	ScopeRollingWeek Scope = iota
	// ScopeFullMonth lets the month grid show every event of the month.
	ScopeFullMonth
)

// ParseScope maps the config value to a Scope.
func ParseScope(s string) Scope {
	if s == "full_month" {
		return ScopeFullMonth
	}
	return ScopeRollingWeek
}

// Day is one cell of the grid. Events are ordered by start time.
type Day struct {
	Date   time.Time
	Events []model.Event
}

// Key returns the calendar date of the cell as YYYY-MM-DD.
func (d *Day) Key() string {
	return d.Date.Format(dateLayout)
}

const dateLayout = "2006-01-02"

// Generator partitions events into day cells. The zero value uses
// time.Local, Sunday week start and the rolling-week scope.
type Generator struct {
	Location   *time.Location
	WeekStart  time.Weekday
	MonthScope Scope
}

func (g Generator) loc() *time.Location {
	if g.Location == nil {
		return time.Local
	}
	return g.Location
}

// DateKey returns the calendar date of t in the generator's timezone.
// Events match a cell by this key, never by exact timestamp.
func (g Generator) DateKey(t time.Time) string {
	return t.In(g.loc()).Format(dateLayout)
}

// Midnight returns 00:00 of t's calendar day in the generator's timezone.
func (g Generator) Midnight(t time.Time) time.Time {
	t = t.In(g.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, g.loc())
}

// Window returns the half-open range of event start times considered for
// one render pass.
func (g Generator) Window(ref time.Time, mode ViewMode) (time.Time, time.Time) {
	start := g.Midnight(ref)
	if mode == ModeMonth && g.MonthScope == ScopeFullMonth {
		first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, g.loc())
		return first, first.AddDate(0, 1, 0)
	}
	return start, time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, g.loc())
}

// Range returns the span of dates painted by the grid, which may be wider
// than Window. It is used to bound recurrence expansion.
func (g Generator) Range(ref time.Time, mode ViewMode) (time.Time, time.Time) {
	if mode == ModeWeek {
		ws := g.WeekStartOf(ref)
		return ws, time.Date(ws.Year(), ws.Month(), ws.Day()+7, 0, 0, 0, 0, g.loc())
	}
	m := g.Midnight(ref)
	first := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, g.loc())
	rangeEnd := first.AddDate(0, 1, 0)
	// The rolling window can reach into the next month.
	if _, winEnd := g.Window(ref, mode); winEnd.After(rangeEnd) {
		rangeEnd = winEnd
	}
	return first, rangeEnd
}

// WeekStartOf returns midnight of the first day of ref's week.
func (g Generator) WeekStartOf(ref time.Time) time.Time {
	m := g.Midnight(ref)
	offset := (int(m.Weekday()) - int(g.WeekStart) + 7) % 7
	return time.Date(m.Year(), m.Month(), m.Day()-offset, 0, 0, 0, 0, g.loc())
}

// Filter returns events whose start lies inside Window(ref, mode), keeping
// input order.
func (g Generator) Filter(events []model.Event, ref time.Time, mode ViewMode) []model.Event {
	start, end := g.Window(ref, mode)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.Before(start) || !ev.Start.Before(end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Generate builds the grid for ref. Month grids start with nil
// placeholders so day 1 lands in its weekday column.
func (g Generator) Generate(events []model.Event, ref time.Time, mode ViewMode) []*Day {
	byDate := g.groupByDate(g.Filter(events, ref, mode))

	switch mode {
	case ModeWeek:
		return g.weekView(ref, byDate)
	default:
		return g.monthView(ref, byDate)
	}
}

// LeadingBlanks is the number of placeholders before day 1 of ref's month.
func (g Generator) LeadingBlanks(ref time.Time) int {
	m := g.Midnight(ref)
	first := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, g.loc())
	return (int(first.Weekday()) - int(g.WeekStart) + 7) % 7
}

func (g Generator) monthView(ref time.Time, byDate map[string][]model.Event) []*Day {
	m := g.Midnight(ref)
	year, month := m.Year(), m.Month()
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, g.loc()).Day()
	lead := g.LeadingBlanks(ref)

	days := make([]*Day, 0, lead+daysInMonth)
	for range lead {
		days = append(days, nil)
	}
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, g.loc())
		days = append(days, newDay(date, byDate))
	}
	return days
}

func (g Generator) weekView(ref time.Time, byDate map[string][]model.Event) []*Day {
	ws := g.WeekStartOf(ref)
	days := make([]*Day, 0, 7)
	for i := range 7 {
		date := time.Date(ws.Year(), ws.Month(), ws.Day()+i, 0, 0, 0, 0, g.loc())
		days = append(days, newDay(date, byDate))
	}
	return days
}

func (g Generator) groupByDate(events []model.Event) map[string][]model.Event {
	out := make(map[string][]model.Event)
	for _, ev := range events {
		k := g.DateKey(ev.Start)
		out[k] = append(out[k], ev)
	}
	for k := range out {
		slices.SortStableFunc(out[k], func(a, b model.Event) int {
			return a.Start.Compare(b.Start)
		})
	}
	return out
}

func newDay(date time.Time, byDate map[string][]model.Event) *Day {
	evs := byDate[date.Format(dateLayout)]
	if evs == nil {
		evs = []model.Event{}
	}
	return &Day{Date: date, Events: evs}
}

// WeekdayNames returns short weekday headers starting at start.
func WeekdayNames(start time.Weekday) []string {
	names := make([]string, 7)
	for i := range 7 {
		names[i] = time.Weekday((int(start) + i) % 7).String()[:3]
	}
	return names
}
