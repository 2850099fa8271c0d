package ics

import (
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

const defaultMaxOccurrences = 500

// ExpandResult holds the concrete occurrences and the IDs of events whose
// expansion hit the cap.
type ExpandResult struct {
	Events    []model.Event
	Truncated []string
}

// Expand replaces recurring events (non-empty RRule) by their occurrences
// starting in [rangeStart, rangeEnd). Non-recurring events pass through
// untouched, whatever their date. Occurrences keep the base event's ID and
// duration and have RRule cleared.
func Expand(events []model.Event, rangeStart, rangeEnd time.Time, maxPerEvent int) (ExpandResult, error) {
	var res ExpandResult
	if rangeEnd.Before(rangeStart) {
		return res, errors.New("expand: range end is before range start")
	}
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrences
	}

	res.Events = make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.RRule == "" {
			res.Events = append(res.Events, ev)
			continue
		}

		occ, capped, err := expandOne(ev, rangeStart, rangeEnd, maxPerEvent)
		if err != nil {
			// Show the base occurrence rather than dropping the class.
			appLog.Error("expand: bad recurrence rule", err, "id", ev.ID, "rrule", ev.RRule)
			ev.RRule = ""
			res.Events = append(res.Events, ev)
			continue
		}
		if capped {
			res.Truncated = append(res.Truncated, ev.ID)
			appLog.Warn("expand: occurrences truncated", "id", ev.ID, "cap", maxPerEvent)
		}
		res.Events = append(res.Events, occ...)
	}
	return res, nil
}

func expandOne(ev model.Event, rangeStart, rangeEnd time.Time, maxPerEvent int) ([]model.Event, bool, error) {
	rule := strings.TrimPrefix(strings.TrimSpace(ev.RRule), "RRULE:")
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, false, err
	}
	r.DTStart(ev.Start)

	dur := ev.End.Sub(ev.Start)
	if dur < 0 {
		dur = 0
	}

	loc := ev.Start.Location()
	times := r.Between(rangeStart.In(loc), rangeEnd.In(loc), true)

	capped := false
	if len(times) > maxPerEvent {
		times = times[:maxPerEvent]
		capped = true
	}

	out := make([]model.Event, 0, len(times))
	for _, t := range times {
		// Between is inclusive; the window is half-open.
		if !t.Before(rangeEnd) {
			continue
		}
		occ := ev
		occ.RRule = ""
		occ.Start = t
		occ.End = t.Add(dur)
		out = append(out, occ)
	}
	return out, capped, nil
}
