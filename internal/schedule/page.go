// Package schedule holds the state behind the schedule screen: the cached
// event list, navigation, the event-detail modal and the meeting-link flow.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"classcal/internal/calendar"
	"classcal/internal/ics"
	"classcal/internal/instrumentation"
	appLog "classcal/internal/log"
	"classcal/internal/model"
)

// EventSource is the slice of the platform API the schedule needs.
// *api.Client satisfies it.
type EventSource interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, ev model.Event) error
	GenerateMeetLink(ctx context.Context, title string) (string, error)
}

// FeedFetcher downloads an ICS feed body. *ics.Fetcher satisfies it.
type FeedFetcher interface {
	Fetch(ctx context.Context, feed ics.Feed) ([]byte, error)
}

// User-facing messages.
const (
	MsgLoadFailed    = "Failed to load events"
	MsgMeetFailed    = "Failed to generate meeting link"
	MsgUpdateFailed  = "Failed to save meeting link"
	MsgMeetGenerated = "Meeting link generated"
	MsgBusy          = "Another request is still running"
	MsgNoEventOpen   = "No event is open"
	MsgNotFound      = "Event not found"
	MsgReadOnly      = "This event comes from a read-only calendar feed"
)

const defaultNoticeTTL = 3 * time.Second

var (
	ErrClosed        = errors.New("schedule: page closed")
	ErrNoEventOpen   = errors.New("schedule: no event open")
	ErrEventNotFound = errors.New("schedule: event not found")
	ErrReadOnly      = errors.New("schedule: event comes from a read-only feed")
)

// Options configures a Page. Zero values fall back to sane defaults.
type Options struct {
	Generator calendar.Generator

	// Feeds are merged read-only into the event cache on every refresh.
	Feeds   []ics.Feed
	Fetcher FeedFetcher

	Metrics *instrumentation.Metrics

	// NoticeTTL is how long a success notice stays visible.
	NoticeTTL time.Duration

	// MaxOccurrences caps recurrence expansion per event.
	MaxOccurrences int

	Now func() time.Time
}

// Page is one schedule screen. All state is guarded by mu; network calls
// run without holding it. Close cancels every pending call and late
// results are dropped.
type Page struct {
	src  EventSource
	opts Options
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	flight *inflight

	mu       sync.Mutex
	view     *calendar.View
	events   []model.Event
	loadedAt time.Time
	// loadSeq numbers list fetches in start order; applied is the newest
	// one swapped into events.
	loadSeq  uint64
	applied  uint64
	detail   Detail
	alert    string
	notice   string
	noticeAt time.Time
	cron     *cron.Cron
}

// NewPage creates a page positioned on today in month mode. The page is
// empty until the first Refresh.
func NewPage(src EventSource, opts Options) *Page {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = defaultNoticeTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Page{
		src:    src,
		opts:   opts,
		now:    opts.Now,
		ctx:    ctx,
		cancel: cancel,
		flight: newInflight(),
		view:   calendar.NewView(opts.Generator.Location, opts.Now),
	}
}

// Close cancels the page lifetime and stops periodic refresh.
func (p *Page) Close() {
	p.cancel()
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// scope derives a context that ends when either ctx or the page does.
func (p *Page) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

// Refresh reloads the event list. A refresh already in progress makes this
// call return ErrBusy. On failure the previous cache is kept and an alert
// is recorded.
func (p *Page) Refresh(ctx context.Context) error {
	return p.refresh(ctx, "manual")
}

func (p *Page) refresh(ctx context.Context, trigger string) error {
	release, err := p.flight.acquire(ActionRefresh)
	if err != nil {
		return err
	}
	defer release()

	ctx, done := p.scope(ctx)
	defer done()

	err = p.reload(ctx)
	if err != nil && !errors.Is(err, ErrClosed) {
		p.setAlert(MsgLoadFailed)
	}
	p.mu.Lock()
	cached := len(p.events)
	p.mu.Unlock()
	p.opts.Metrics.ObserveRefresh(trigger, err, cached)
	return err
}

// reload fetches and swaps the cache. Callers hold the token of whatever
// action triggered it, so loads may overlap; a result older than the one
// already applied is dropped.
func (p *Page) reload(ctx context.Context) error {
	p.mu.Lock()
	p.loadSeq++
	seq := p.loadSeq
	p.mu.Unlock()

	events, err := p.src.ListEvents(ctx)
	if err != nil {
		if p.ctx.Err() != nil {
			return ErrClosed
		}
		appLog.Error("event list fetch failed", err)
		return fmt.Errorf("load events: %w", err)
	}

	events = append(events, p.feedEvents(ctx)...)

	if p.ctx.Err() != nil {
		return ErrClosed
	}

	p.mu.Lock()
	if seq < p.applied {
		p.mu.Unlock()
		appLog.Debug("dropping superseded event list", "seq", seq, "applied", p.applied)
		return nil
	}
	p.applied = seq
	p.events = events
	p.loadedAt = p.now()
	if p.detail.Open {
		if ev, ok := findEvent(p.events, p.detail.Event.ID, p.detail.Event.Source); ok {
			p.detail.Event = ev
		}
	}
	p.mu.Unlock()

	appLog.Debug("events reloaded", "count", len(events))
	return nil
}

func (p *Page) feedEvents(ctx context.Context) []model.Event {
	if p.opts.Fetcher == nil || len(p.opts.Feeds) == 0 {
		return nil
	}
	var out []model.Event
	for _, feed := range p.opts.Feeds {
		body, err := p.opts.Fetcher.Fetch(ctx, feed)
		if err != nil {
			appLog.Error("feed fetch failed", err, "feed", feed.ID)
			continue
		}
		evs, err := ics.Parse(feed, body)
		if err != nil {
			appLog.Error("feed parse failed", err, "feed", feed.ID)
			continue
		}
		out = append(out, evs...)
	}
	return out
}

// Events returns a copy of the cached, unexpanded event list.
func (p *Page) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.events...)
}

// Navigate moves the reference date by one unit of the current mode.
func (p *Page) Navigate(direction int) {
	p.mu.Lock()
	p.view.ChangeDate(direction)
	p.mu.Unlock()
}

// Today resets the reference date to now.
func (p *Page) Today() {
	p.mu.Lock()
	p.view.GoToToday()
	p.mu.Unlock()
}

// SetMode switches between month and week.
func (p *Page) SetMode(m calendar.ViewMode) {
	p.mu.Lock()
	p.view.SetMode(m)
	p.mu.Unlock()
}

// SetDate jumps to an arbitrary reference date.
func (p *Page) SetDate(t time.Time) {
	p.mu.Lock()
	p.view.SetDate(t)
	p.mu.Unlock()
}

// DismissAlert clears the current alert.
func (p *Page) DismissAlert() {
	p.setAlert("")
}

// ReportError shows an alert for an action rejected before any network
// call. Failures of the calls themselves already set their own alert.
func (p *Page) ReportError(err error) {
	switch {
	case errors.Is(err, ErrBusy):
		p.setAlert(MsgBusy)
	case errors.Is(err, ErrNoEventOpen):
		p.setAlert(MsgNoEventOpen)
	case errors.Is(err, ErrEventNotFound):
		p.setAlert(MsgNotFound)
	case errors.Is(err, ErrReadOnly):
		p.setAlert(MsgReadOnly)
	}
}

func (p *Page) setAlert(msg string) {
	p.mu.Lock()
	p.alert = msg
	p.mu.Unlock()
}

func (p *Page) setNotice(msg string) {
	p.mu.Lock()
	p.notice = msg
	p.noticeAt = p.now()
	p.mu.Unlock()
}

// StartRefresh schedules periodic refreshes with a standard 5-field cron
// expression. A tick that finds a refresh in flight is skipped.
func (p *Page) StartRefresh(expr string) error {
	c := cron.New()
	if _, err := c.AddFunc(expr, func() {
		if err := p.refresh(p.ctx, "cron"); err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrClosed) {
			appLog.Warn("scheduled refresh failed", "err", err.Error())
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", expr, err)
	}

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.cron != nil {
		p.cron.Stop()
	}
	p.cron = c
	p.mu.Unlock()

	c.Start()
	appLog.Info("periodic refresh scheduled", "schedule", expr)
	return nil
}

func findEvent(events []model.Event, id, source string) (model.Event, bool) {
	for _, ev := range events {
		if ev.ID == id && ev.Source == source {
			return ev, true
		}
	}
	return model.Event{}, false
}
