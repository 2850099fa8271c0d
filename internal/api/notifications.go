package api

import (
	"context"
	"net/http"

	"classcal/internal/model"
)

type notificationDTO struct {
	ID        flexID `json:"id"`
	MongoID   flexID `json:"_id"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// ListNotifications fetches the user's notifications
// (GET /notifications/all).
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out struct {
		Data []notificationDTO `json:"data"`
	}
	err := c.do(ctx, call{
		op:          "notifications.list",
		method:      http.MethodGet,
		path:        "/notifications/all",
		requireAuth: true,
	}, &out)
	if err != nil {
		return nil, err
	}

	list := make([]model.Notification, 0, len(out.Data))
	for _, d := range out.Data {
		n := model.Notification{
			ID:      pickID(d.ID, d.MongoID),
			Message: d.Message,
			Status:  d.Status,
		}
		if t, err := ParseTimestamp(d.CreatedAt, c.loc); err == nil {
			n.CreatedAt = t
		}
		list = append(list, n)
	}
	return list, nil
}
