package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"classcal/internal/model"
)

const productID = "-//classcal//schedule//EN"

// Encode writes events as an iCalendar document. Recurring events keep
// their RRULE; the meeting link goes into URL and the description.
func Encode(w io.Writer, name string, events []model.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(uidFor(ev))
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Title)
		ve.SetStartAt(ev.Start)
		end := ev.End
		if end.IsZero() || end.Before(ev.Start) {
			end = ev.Start
		}
		ve.SetEndAt(end)

		desc := ev.Description
		if ev.MeetLink != "" {
			ve.SetURL(ev.MeetLink)
			if desc != "" {
				desc += "\n\n"
			}
			desc += "Join: " + ev.MeetLink
		}
		if desc != "" {
			ve.SetDescription(desc)
		}
		if ev.RRule != "" {
			ve.AddRrule(strings.TrimPrefix(ev.RRule, "RRULE:"))
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func uidFor(ev model.Event) string {
	src := ev.Source
	if src == "" {
		src = model.SourceAPI
	}
	return ev.ID + "@" + src + ".classcal"
}
