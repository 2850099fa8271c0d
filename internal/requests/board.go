// Package requests is the tutor's class-request board and notification
// list. Every mutation is followed by a full reload.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

// Source is the slice of the platform API the board needs. *api.Client
// satisfies it.
type Source interface {
	ListRequests(ctx context.Context) ([]model.ClassRequest, error)
	HandleRequest(ctx context.Context, id string, status model.RequestStatus) error
	SetRequestLink(ctx context.Context, id, link string) error
	ListNotifications(ctx context.Context) ([]model.Notification, error)
}

var (
	ErrBlankLink     = errors.New("requests: meeting link is empty")
	ErrInvalidStatus = errors.New("requests: status must be Accepted or Declined")
	ErrNotFound      = errors.New("requests: no such request")
)

// Board caches the request and notification lists.
type Board struct {
	src Source

	mu            sync.RWMutex
	requests      []model.ClassRequest
	notifications []model.Notification
}

// NewBoard returns an empty board.
func NewBoard(src Source) *Board {
	return &Board{src: src}
}

// Refresh reloads the request list. On error the previous list is kept.
func (b *Board) Refresh(ctx context.Context) error {
	list, err := b.src.ListRequests(ctx)
	if err != nil {
		appLog.Error("class request fetch failed", err)
		return fmt.Errorf("load requests: %w", err)
	}
	b.mu.Lock()
	b.requests = list
	b.mu.Unlock()
	return nil
}

// Search returns requests whose student email, student name or topic
// contains q, case-insensitively. An empty q returns everything.
func (b *Board) Search(q string) []model.ClassRequest {
	b.mu.RLock()
	defer b.mu.RUnlock()

	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]model.ClassRequest, 0, len(b.requests))
	for _, r := range b.requests {
		if q == "" ||
			strings.Contains(strings.ToLower(r.StudentEmail), q) ||
			strings.Contains(strings.ToLower(r.StudentName), q) ||
			strings.Contains(strings.ToLower(r.Topic), q) {
			out = append(out, r)
		}
	}
	return out
}

// Pending counts requests still waiting for the tutor.
func (b *Board) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, r := range b.requests {
		if r.IsNew() {
			n++
		}
	}
	return n
}

// Get returns the cached request with the given ID.
func (b *Board) Get(id string) (model.ClassRequest, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return model.ClassRequest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Handle accepts or declines a request, then reloads.
func (b *Board) Handle(ctx context.Context, id string, status model.RequestStatus) error {
	if status != model.RequestAccepted && status != model.RequestDeclined {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := b.src.HandleRequest(ctx, id, status); err != nil {
		appLog.Error("class request update failed", err, "id", id, "status", string(status))
		return fmt.Errorf("handle request %s: %w", id, err)
	}
	appLog.Info("class request handled", "id", id, "status", string(status))
	return b.Refresh(ctx)
}

// AttachLink stores a meeting link on a request, then reloads. Blank links
// are rejected without a network call.
func (b *Board) AttachLink(ctx context.Context, id, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return ErrBlankLink
	}
	if err := b.src.SetRequestLink(ctx, id, link); err != nil {
		appLog.Error("class request link update failed", err, "id", id)
		return fmt.Errorf("attach link to %s: %w", id, err)
	}
	return b.Refresh(ctx)
}

// RefreshNotifications reloads the notification list.
func (b *Board) RefreshNotifications(ctx context.Context) error {
	list, err := b.src.ListNotifications(ctx)
	if err != nil {
		appLog.Error("notification fetch failed", err)
		return fmt.Errorf("load notifications: %w", err)
	}
	b.mu.Lock()
	b.notifications = list
	b.mu.Unlock()
	return nil
}

// SearchNotifications matches q as a substring of message or status,
// case-insensitively.
func (b *Board) SearchNotifications(q string) []model.Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]model.Notification, 0, len(b.notifications))
	for _, n := range b.notifications {
		if q == "" ||
			strings.Contains(strings.ToLower(n.Message), q) ||
			strings.Contains(strings.ToLower(n.Status), q) {
			out = append(out, n)
		}
	}
	return out
}

// Unread counts unread notifications.
func (b *Board) Unread() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, x := range b.notifications {
		if !x.Read() {
			n++
		}
	}
	return n
}
