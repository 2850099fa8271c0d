package schedule

import (
	"context"
	"fmt"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

// Detail is the event-detail modal. Closed is the zero value.
type Detail struct {
	Open  bool
	Event model.Event

	// Link is the editable meeting-link field, seeded from the event.
	Link string
}

// OpenEvent moves the modal to Open for the cached event with the given ID.
// API events win over feed events sharing an ID.
func (p *Page) OpenEvent(id string) (Detail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev, ok := findEvent(p.events, id, model.SourceAPI)
	if !ok {
		for _, e := range p.events {
			if e.ID == id {
				ev, ok = e, true
				break
			}
		}
	}
	if !ok {
		return Detail{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}

	p.detail = Detail{Open: true, Event: ev, Link: ev.MeetLink}
	return p.detail, nil
}

// CloseEvent moves the modal to Closed. Closing twice is harmless.
func (p *Page) CloseEvent() {
	p.mu.Lock()
	p.detail = Detail{}
	p.mu.Unlock()
}

// Detail returns the current modal state.
func (p *Page) Detail() Detail {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detail
}

// GenerateMeetLink asks the platform for a meeting link for the open event,
// saves the event with it and reloads the list. Any failure records an
// alert and leaves the modal open with its link field unchanged; the user
// retries by hand. A second call while one is pending returns ErrBusy.
func (p *Page) GenerateMeetLink(ctx context.Context) (string, error) {
	p.mu.Lock()
	d := p.detail
	p.mu.Unlock()

	if !d.Open {
		return "", ErrNoEventOpen
	}
	if !d.Event.Editable() {
		return "", ErrReadOnly
	}

	release, err := p.flight.acquire(ActionMeetLink)
	if err != nil {
		return "", err
	}
	defer release()

	ctx, done := p.scope(ctx)
	defer done()

	link, err := p.src.GenerateMeetLink(ctx, d.Event.Title)
	if err != nil {
		return "", p.meetFailed(MsgMeetFailed, d.Event, err)
	}

	updated := d.Event
	updated.MeetLink = link
	if err := p.src.UpdateEvent(ctx, updated); err != nil {
		return "", p.meetFailed(MsgUpdateFailed, d.Event, err)
	}

	// The link is saved; a failed reload only leaves the list stale.
	if err := p.reload(ctx); err != nil && p.ctx.Err() == nil {
		appLog.Warn("reload after meeting link failed", "id", d.Event.ID, "err", err.Error())
	}
	if p.ctx.Err() != nil {
		return "", ErrClosed
	}

	p.mu.Lock()
	if p.detail.Open && p.detail.Event.ID == d.Event.ID && p.detail.Event.Source == d.Event.Source {
		p.detail.Link = link
		p.detail.Event.MeetLink = link
	}
	p.mu.Unlock()

	p.setNotice(MsgMeetGenerated)
	appLog.Info("meeting link generated", "id", d.Event.ID)
	return link, nil
}

func (p *Page) meetFailed(msg string, ev model.Event, err error) error {
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	appLog.Error("meeting link flow failed", err, "id", ev.ID, "step", msg)
	p.setAlert(msg)
	return fmt.Errorf("meeting link for %s: %w", ev.ID, err)
}
