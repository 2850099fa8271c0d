package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

// eventDTO is the wire shape of an event.
type eventDTO struct {
	ID          flexID `json:"id,omitempty"`
	MongoID     flexID `json:"_id,omitempty"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
	MeetLink    string `json:"meetLink,omitempty"`
	RRule       string `json:"rrule,omitempty"`
}

// ListEvents fetches every event (GET /events/all). Events whose start
// cannot be parsed are logged and skipped.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var raw json.RawMessage
	err := c.do(ctx, call{op: "events.list", method: http.MethodGet, path: "/events/all"}, &raw)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeEventList(raw)
	if err != nil {
		return nil, fmt.Errorf("events.list: %w", err)
	}

	events := make([]model.Event, 0, len(dtos))
	for _, d := range dtos {
		ev, err := d.toModel(c.loc)
		if err != nil {
			appLog.Error("skipping event with bad timestamp", err, "id", pickID(d.ID, d.MongoID), "title", d.Title)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeEventList accepts a bare array or an object wrapping it in
// "data" or "events".
func decodeEventList(raw json.RawMessage) ([]eventDTO, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, ErrEmptyResponse
	}
	if trimmed[0] == '[' {
		var out []eventDTO
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var wrapped struct {
		Data   []eventDTO `json:"data"`
		Events []eventDTO `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Data != nil:
		return wrapped.Data, nil
	case wrapped.Events != nil:
		return wrapped.Events, nil
	}
	return nil, ErrEmptyResponse
}

// UpdateEvent persists ev (PUT /events/{id}).
func (c *Client) UpdateEvent(ctx context.Context, ev model.Event) error {
	if ev.ID == "" {
		return errors.New("events.update: event has no id")
	}
	return c.do(ctx, call{
		op:     "events.update",
		method: http.MethodPut,
		path:   "/events/" + url.PathEscape(ev.ID),
		body:   eventFromModel(ev),
	}, nil)
}

// GenerateMeetLink asks the platform for a new meeting URL
// (POST /meet/generate-meet-link).
func (c *Client) GenerateMeetLink(ctx context.Context, title string) (string, error) {
	var out struct {
		MeetLink string `json:"meetLink"`
	}
	err := c.do(ctx, call{
		op:     "meet.generate",
		method: http.MethodPost,
		path:   "/meet/generate-meet-link",
		body:   map[string]string{"title": title},
	}, &out)
	if err != nil {
		return "", err
	}
	link := strings.TrimSpace(out.MeetLink)
	if link == "" {
		return "", fmt.Errorf("meet.generate: %w", ErrEmptyResponse)
	}
	return link, nil
}

func (d eventDTO) toModel(loc *time.Location) (model.Event, error) {
	start, err := ParseTimestamp(d.Start, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("start: %w", err)
	}
	end := start
	if d.End != "" {
		if end, err = ParseTimestamp(d.End, loc); err != nil {
			return model.Event{}, fmt.Errorf("end: %w", err)
		}
	}
	return model.Event{
		ID:          pickID(d.ID, d.MongoID),
		Title:       d.Title,
		Start:       start,
		End:         end,
		Description: d.Description,
		MeetLink:    d.MeetLink,
		RRule:       d.RRule,
		Source:      model.SourceAPI,
	}, nil
}

func eventFromModel(ev model.Event) eventDTO {
	d := eventDTO{
		ID:          flexID(ev.ID),
		Title:       ev.Title,
		Start:       ev.Start.Format(time.RFC3339),
		Description: ev.Description,
		MeetLink:    ev.MeetLink,
		RRule:       ev.RRule,
	}
	if !ev.End.IsZero() {
		d.End = ev.End.Format(time.RFC3339)
	}
	return d
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses RFC 3339 timestamps, and zone-less date-times or
// dates in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
