package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

// Feed is a read-only ICS subscription.
type Feed struct {
	ID  string
	URL string
}

type cachedFeed struct {
	etag         string
	lastModified string
	body         []byte
}

// Fetcher downloads ICS feeds with conditional requests. The last good body
// of each feed is kept in memory and served when the origin is down.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cachedFeed
}

// NewFetcher returns a Fetcher. A nil client gets a 15s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cache: make(map[string]cachedFeed)}
}

// Fetch returns the body of feed, honoring ETag / Last-Modified.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]byte, error) {
	if feed.URL == "" {
		return nil, errors.New("feed URL is empty")
	}

	f.mu.Lock()
	cached, haveCache := f.cache[feed.URL]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if haveCache {
			appLog.Error("feed fetch failed, using cached body", err, "feed", feed.ID, "url", redactURL(feed.URL))
			return cached.body, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cache[feed.URL] = cachedFeed{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		}
		f.mu.Unlock()
		appLog.Debug("feed fetched", "feed", feed.ID, "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if !haveCache {
			return nil, errors.New("304 Not Modified without a cached body")
		}
		return cached.body, nil

	default:
		if haveCache {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status), "feed", feed.ID, "url", redactURL(feed.URL))
			return cached.body, nil
		}
		return nil, errors.New(resp.Status)
	}
}

// Parse turns an ICS body into events tagged with the feed ID. VEVENTs
// without UID or start are skipped.
func Parse(feed Feed, body []byte) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.ID, err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := fromVEvent(feed, ve)
		if err != nil {
			appLog.Debug("skipping vevent", "feed", feed.ID, "err", err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func fromVEvent(feed Feed, ve *ical.VEvent) (model.Event, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return model.Event{}, errors.New("missing UID")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		if start, err = ve.GetAllDayStartAt(); err != nil {
			return model.Event{}, fmt.Errorf("uid %s: %w", uid, err)
		}
	}
	end, err := ve.GetEndAt()
	if err != nil {
		if end, err = ve.GetAllDayEndAt(); err != nil {
			end = start
		}
	}

	return model.Event{
		ID:          uid,
		Title:       propValue(ve, ical.ComponentPropertySummary),
		Start:       start,
		End:         end,
		Description: propValue(ve, ical.ComponentPropertyDescription),
		MeetLink:    propValue(ve, ical.ComponentPropertyUrl),
		RRule:       propValue(ve, ical.ComponentPropertyRrule),
		Source:      feed.ID,
	}, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

// redactURL keeps only scheme and host; feed URLs often embed secrets.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
