package calendar

import "time"

// View is the navigation state of a calendar screen: the reference date and
// the view mode. Switching modes leaves the reference date alone.
type View struct {
	Selected time.Time
	Mode     ViewMode

	loc *time.Location
	now func() time.Time
}

// NewView starts at today in month mode. A nil now uses time.Now.
func NewView(loc *time.Location, now func() time.Time) *View {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &View{
		Selected: now().In(loc),
		Mode:     ModeMonth,
		loc:      loc,
		now:      now,
	}
}

// ChangeDate moves the reference date by one month (month mode) or one
// week (week mode) per unit of direction. Month steps normalize overflow
// the same way time.AddDate does, so Jan 31 +1 month is Mar 3 (or Mar 2)
// and does not round-trip.
func (v *View) ChangeDate(direction int) {
	switch v.Mode {
	case ModeWeek:
		v.Selected = v.Selected.AddDate(0, 0, 7*direction)
	default:
		v.Selected = v.Selected.AddDate(0, direction, 0)
	}
}

// GoToToday resets the reference date to now.
func (v *View) GoToToday() {
	v.Selected = v.now().In(v.loc)
}

// SetMode switches the granularity.
func (v *View) SetMode(m ViewMode) {
	v.Mode = m
}

// SetDate jumps to an arbitrary reference date.
func (v *View) SetDate(t time.Time) {
	v.Selected = t.In(v.loc)
}

// Title is the heading shown above the grid.
func (v *View) Title() string {
	if v.Mode == ModeWeek {
		return v.Selected.Format("Mon Jan 2 2006")
	}
	return v.Selected.Format("January 2006")
}

// IsToday reports whether date falls on the current calendar day.
func (v *View) IsToday(date time.Time) bool {
	return date.In(v.loc).Format(dateLayout) == v.now().In(v.loc).Format(dateLayout)
}
