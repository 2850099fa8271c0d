package model

import "time"

// SourceAPI marks events that came from the platform REST API. Events
// imported from ICS feeds carry the feed ID instead and are read-only.
const SourceAPI = "api"

// Event is a schedulable class or session.
type Event struct {
	ID    string
	Title string

	Start time.Time
	End   time.Time

	Description string
	MeetLink    string

	// RRule is an optional RFC 5545 recurrence rule (without the RRULE:
	// prefix). Occurrences share the ID of their base event.
	RRule string

	// Source is SourceAPI or an ICS feed ID.
	Source string
}

// Editable reports whether the event can be written back to the API.
func (e Event) Editable() bool {
	return e.Source == "" || e.Source == SourceAPI
}

// RequestStatus is the lifecycle state of a class request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestAccepted RequestStatus = "Accepted"
	RequestDeclined RequestStatus = "Declined"
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestDeclined:
		return true
	}
	return false
}

// ClassRequest is a student's request for a session with a tutor.
type ClassRequest struct {
	ID           string
	StudentEmail string
	StudentName  string
	Topic        string
	Time         time.Time
	Status       RequestStatus
	MeetLink     string
	Notes        string
	CreatedAt    time.Time
}

// IsNew reports whether the tutor has not acted on the request yet.
func (r ClassRequest) IsNew() bool {
	return r.Status == RequestPending
}

// Notification is an in-app message for the signed-in user.
type Notification struct {
	ID        string
	Message   string
	Status    string // "read" or "unread"
	CreatedAt time.Time
}

// Read reports whether the notification has been read.
func (n Notification) Read() bool {
	return n.Status == "read"
}
