package web

import (
	"net/http"
	"time"

	"classcal/internal/model"
)

type requestDTO struct {
	ID           string     `json:"id"`
	StudentEmail string     `json:"student_email"`
	StudentName  string     `json:"student_name,omitempty"`
	Topic        string     `json:"topic"`
	Time         *time.Time `json:"time,omitempty"`
	Status       string     `json:"status"`
	MeetLink     string     `json:"meet_link,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	New          bool       `json:"new"`
}

type requestsResponse struct {
	Requests []requestDTO `json:"requests"`
	Pending  int          `json:"pending"`
}

type notificationDTO struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type notificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
	Unread        int               `json:"unread"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) writeRequests(w http.ResponseWriter, q string) {
	list := s.board.Search(q)
	resp := requestsResponse{Requests: make([]requestDTO, 0, len(list)), Pending: s.board.Pending()}
	for _, r := range list {
		resp.Requests = append(resp.Requests, requestDTO{
			ID:           r.ID,
			StudentEmail: r.StudentEmail,
			StudentName:  r.StudentName,
			Topic:        r.Topic,
			Time:         optionalTime(r.Time),
			Status:       string(r.Status),
			MeetLink:     r.MeetLink,
			Notes:        r.Notes,
			New:          r.IsNew(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRequests reloads the request list and filters it by ?q=.
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotFound, "request board disabled")
		return
	}
	if err := s.board.Refresh(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeRequests(w, r.URL.Query().Get("q"))
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotFound, "request board disabled")
		return
	}
	in, err := readInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.board.Handle(r.Context(), r.PathValue("id"), model.RequestStatus(in["status"])); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeRequests(w, "")
}

func (s *Server) handleRequestLink(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotFound, "request board disabled")
		return
	}
	in, err := readInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.board.AttachLink(r.Context(), r.PathValue("id"), in["link"]); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeRequests(w, "")
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.board == nil {
		writeError(w, http.StatusNotFound, "request board disabled")
		return
	}
	if err := s.board.RefreshNotifications(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	list := s.board.SearchNotifications(r.URL.Query().Get("q"))
	resp := notificationsResponse{Notifications: make([]notificationDTO, 0, len(list)), Unread: s.board.Unread()}
	for _, n := range list {
		resp.Notifications = append(resp.Notifications, notificationDTO{
			ID:        n.ID,
			Message:   n.Message,
			Read:      n.Read(),
			CreatedAt: optionalTime(n.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
