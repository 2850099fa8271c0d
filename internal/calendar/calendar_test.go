package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcal/internal/model"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestWeekViewSingleEvent(t *testing.T) {
	g := Generator{Location: time.UTC}
	events := []model.Event{{ID: "1", Title: "Algebra", Start: at(2025, 6, 10, 9, 0)}}

	days := g.Generate(events, at(2025, 6, 10, 0, 0), ModeWeek)

	require.Len(t, days, 7)
	assert.Equal(t, "2025-06-08", days[0].Key())
	for _, d := range days {
		require.NotNil(t, d)
		if d.Key() == "2025-06-10" {
			require.Len(t, d.Events, 1)
			assert.Equal(t, "Algebra", d.Events[0].Title)
			continue
		}
		assert.Empty(t, d.Events, "day %s", d.Key())
	}
}

func TestMonthViewLeadingPlaceholders(t *testing.T) {
	g := Generator{Location: time.UTC}
	tests := []struct {
		ref  time.Time
		lead int
		days int
	}{
		{at(2025, 6, 15, 0, 0), 0, 30},  // starts Sunday
		{at(2025, 3, 2, 0, 0), 6, 31},   // starts Saturday
		{at(2026, 10, 19, 0, 0), 4, 31}, // starts Thursday
		{at(2024, 2, 10, 0, 0), 4, 29},  // leap year
	}
	for _, tt := range tests {
		grid := g.Generate(nil, tt.ref, ModeMonth)
		require.Len(t, grid, tt.lead+tt.days, tt.ref.String())
		assert.Equal(t, tt.lead, g.LeadingBlanks(tt.ref))
		for i := 0; i < tt.lead; i++ {
			assert.Nil(t, grid[i])
		}
		first := grid[tt.lead]
		require.NotNil(t, first)
		assert.Equal(t, 1, first.Date.Day())
		assert.Equal(t, tt.lead, int(first.Date.Weekday()))
	}
}

func TestMonthViewMondayStart(t *testing.T) {
	g := Generator{Location: time.UTC, WeekStart: time.Monday}
	// June 2025 starts on a Sunday, the last column of a Monday-first grid.
	assert.Equal(t, 6, g.LeadingBlanks(at(2025, 6, 1, 0, 0)))

	days := g.Generate(nil, at(2025, 6, 10, 0, 0), ModeWeek)
	require.Len(t, days, 7)
	assert.Equal(t, "2025-06-09", days[0].Key())
	assert.Equal(t, "2025-06-15", days[6].Key())
}

func TestPartitionWithinWindow(t *testing.T) {
	g := Generator{Location: time.UTC}
	ref := at(2025, 6, 10, 15, 30)
	events := []model.Event{
		{ID: "before", Start: at(2025, 6, 9, 23, 59)},
		{ID: "a", Start: at(2025, 6, 10, 0, 0)},
		{ID: "b", Start: at(2025, 6, 10, 8, 0)},
		{ID: "c", Start: at(2025, 6, 12, 12, 0)},
		{ID: "d", Start: at(2025, 6, 16, 23, 59)},
		{ID: "after", Start: at(2025, 6, 17, 0, 0)},
	}

	for _, mode := range []ViewMode{ModeMonth, ModeWeek} {
		seen := map[string]int{}
		for _, d := range g.Generate(events, ref, mode) {
			if d == nil {
				continue
			}
			for _, ev := range d.Events {
				seen[ev.ID]++
				assert.Equal(t, g.DateKey(ev.Start), d.Key())
			}
		}

		assert.Zero(t, seen["before"], mode)
		assert.Zero(t, seen["after"], mode)
		assert.Equal(t, 1, seen["a"], mode)
		assert.Equal(t, 1, seen["b"], mode)
		assert.Equal(t, 1, seen["c"], mode)
		if mode == ModeMonth {
			assert.Equal(t, 1, seen["d"])
		} else {
			// June 16 is outside the Sunday-first week of June 10.
			assert.Zero(t, seen["d"])
		}
	}
}

func TestMonthRollingWindowHidesRestOfMonth(t *testing.T) {
	events := []model.Event{
		{ID: "early", Start: at(2025, 6, 2, 10, 0)},
		{ID: "late", Start: at(2025, 6, 25, 10, 0)},
		{ID: "in", Start: at(2025, 6, 11, 10, 0)},
	}
	ref := at(2025, 6, 10, 0, 0)

	count := func(g Generator) map[string]int {
		seen := map[string]int{}
		for _, d := range g.Generate(events, ref, ModeMonth) {
			if d == nil {
				continue
			}
			for _, ev := range d.Events {
				seen[ev.ID]++
			}
		}
		return seen
	}

	rolling := count(Generator{Location: time.UTC})
	assert.Equal(t, map[string]int{"in": 1}, rolling)

	full := count(Generator{Location: time.UTC, MonthScope: ScopeFullMonth})
	assert.Equal(t, map[string]int{"early": 1, "late": 1, "in": 1}, full)
}

func TestDayEventsOrderedByStart(t *testing.T) {
	g := Generator{Location: time.UTC}
	events := []model.Event{
		{ID: "late", Start: at(2025, 6, 10, 16, 0)},
		{ID: "early", Start: at(2025, 6, 10, 8, 0)},
	}
	days := g.Generate(events, at(2025, 6, 10, 0, 0), ModeWeek)
	require.Len(t, days[2].Events, 2)
	assert.Equal(t, "early", days[2].Events[0].ID)
	assert.Equal(t, "late", days[2].Events[1].ID)
}

func TestDateKeyUsesLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	g := Generator{Location: seoul}

	// 20:00 UTC on June 9 is already June 10 in Seoul.
	ev := model.Event{ID: "x", Start: at(2025, 6, 9, 20, 0)}
	assert.Equal(t, "2025-06-10", g.DateKey(ev.Start))

	days := g.Generate([]model.Event{ev}, time.Date(2025, 6, 10, 0, 0, 0, 0, seoul), ModeWeek)
	for _, d := range days {
		if d.Key() == "2025-06-10" {
			assert.Len(t, d.Events, 1)
		} else {
			assert.Empty(t, d.Events)
		}
	}
}

func TestRangeCoversRollingWindow(t *testing.T) {
	g := Generator{Location: time.UTC}
	start, end := g.Range(at(2025, 6, 28, 0, 0), ModeMonth)
	assert.Equal(t, at(2025, 6, 1, 0, 0), start)
	assert.Equal(t, at(2025, 7, 5, 0, 0), end)

	start, end = g.Range(at(2025, 6, 10, 0, 0), ModeWeek)
	assert.Equal(t, at(2025, 6, 8, 0, 0), start)
	assert.Equal(t, at(2025, 6, 15, 0, 0), end)
}

func TestParseViewMode(t *testing.T) {
	m, err := ParseViewMode("WEEK")
	require.NoError(t, err)
	assert.Equal(t, ModeWeek, m)

	m, err = ParseViewMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeMonth, m)

	_, err = ParseViewMode("year")
	assert.Error(t, err)
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopeFullMonth, ParseScope("full_month"))
	assert.Equal(t, ScopeRollingWeek, ParseScope("rolling_week"))
	assert.Equal(t, ScopeRollingWeek, ParseScope(""))
}

func TestWeekdayNames(t *testing.T) {
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, WeekdayNames(time.Sunday))
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, WeekdayNames(time.Monday))
}

func TestRenderText(t *testing.T) {
	g := Generator{Location: time.UTC}
	events := []model.Event{{ID: "1", Title: "Physics", Start: at(2025, 6, 10, 9, 0), MeetLink: "https://meet.example/abc"}}
	days := g.Generate(events, at(2025, 6, 10, 0, 0), ModeWeek)

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, "Tue Jun 10 2025", days, time.Sunday))

	out := buf.String()
	assert.Contains(t, out, "Tue Jun 10 2025")
	assert.Contains(t, out, "10*1")
	assert.Contains(t, out, "09:00  Physics  https://meet.example/abc")
}
