package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

type requestDTO struct {
	ID      flexID `json:"id"`
	MongoID flexID `json:"_id"`
	Student struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"student"`
	Course struct {
		CourseName string `json:"courseName"`
	} `json:"course"`
	Time      string `json:"time"`
	Status    string `json:"status"`
	ZoomLink  string `json:"zoomLink"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"createdAt"`
}

// ListRequests fetches the tutor's class requests (GET /requests). A
// signed-in session is required.
func (c *Client) ListRequests(ctx context.Context) ([]model.ClassRequest, error) {
	var out struct {
		ClassRequests []requestDTO `json:"classRequests"`
	}
	err := c.do(ctx, call{
		op:          "requests.list",
		method:      http.MethodGet,
		path:        "/requests",
		requireAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.ClassRequests == nil {
		return nil, fmt.Errorf("requests.list: %w", ErrEmptyResponse)
	}

	reqs := make([]model.ClassRequest, 0, len(out.ClassRequests))
	for _, d := range out.ClassRequests {
		r := model.ClassRequest{
			ID:           pickID(d.ID, d.MongoID),
			StudentEmail: d.Student.Email,
			StudentName:  d.Student.Name,
			Topic:        d.Course.CourseName,
			Status:       model.RequestStatus(d.Status),
			MeetLink:     d.ZoomLink,
			Notes:        d.Notes,
		}
		if t, err := ParseTimestamp(d.Time, c.loc); err == nil {
			r.Time = t
		} else {
			appLog.Debug("class request without usable time", "id", r.ID, "err", err.Error())
		}
		if t, err := ParseTimestamp(d.CreatedAt, c.loc); err == nil {
			r.CreatedAt = t
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

// HandleRequest accepts or declines a request
// (POST /requests/handle-request/{id}).
func (c *Client) HandleRequest(ctx context.Context, id string, status model.RequestStatus) error {
	if !status.Valid() {
		return fmt.Errorf("requests.handle: invalid status %q", status)
	}
	return c.do(ctx, call{
		op:          "requests.handle",
		method:      http.MethodPost,
		path:        "/requests/handle-request/" + url.PathEscape(id),
		body:        map[string]string{"status": string(status)},
		requireAuth: true,
	}, nil)
}

// SetRequestLink attaches a meeting link to a request
// (PATCH /requests/zoom-link/{id}).
func (c *Client) SetRequestLink(ctx context.Context, id, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return fmt.Errorf("requests.link: empty link")
	}
	return c.do(ctx, call{
		op:          "requests.link",
		method:      http.MethodPatch,
		path:        "/requests/zoom-link/" + url.PathEscape(id),
		body:        map[string]string{"zoomLink": link},
		requireAuth: true,
	}, nil)
}
