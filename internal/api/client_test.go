package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcal/internal/model"
)

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveAPICall(op string, err error, _ time.Duration) {
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func newTestClient(t *testing.T, h http.HandlerFunc, session Session, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	return New(srv.URL+"/api/v1/", session, opts...)
}

func TestListEvents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/events/all", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"id": 1, "title": "Algebra", "start": "2025-06-10T09:00", "end": "2025-06-10T10:00"},
			{"_id": "65f0c", "title": "Physics", "start": "2025-06-11T14:00:00Z", "meetLink": "https://meet.example/xyz"},
			{"id": "bad", "title": "Broken", "start": "next tuesday"}
		]`)
	}, Session{})

	events, err := c.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC), events[0].End)
	assert.Equal(t, model.SourceAPI, events[0].Source)

	assert.Equal(t, "65f0c", events[1].ID)
	assert.Equal(t, "https://meet.example/xyz", events[1].MeetLink)
	assert.Equal(t, events[1].Start, events[1].End, "missing end defaults to start")
}

func TestListEventsWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": [{"id": 3, "title": "Chem", "start": "2025-06-12"}]}`)
	}, Session{})

	events, err := c.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), events[0].Start)
}

func TestListEventsEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, Session{})

	_, err := c.ListEvents(context.Background())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message": "database offline"}`)
	}, Session{}, WithObserver(obs))

	_, err := c.ListEvents(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database offline", apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, []string{"events.list"}, obs.ops)
	assert.Error(t, obs.errs[0])
}

func TestUnauthorizedResponseMatchesSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer expired", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}, Session{Token: "expired"})

	_, err := c.ListRequests(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "401 Unauthorized")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, Session{})
	_, err := c.ListEvents(context.Background())
	require.Error(t, err)
	assert.Zero(t, StatusCode(err))
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, Session{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListEvents(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateEvent(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/events/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}, Session{Token: "tok"})

	err := c.UpdateEvent(context.Background(), model.Event{
		ID:       "42",
		Title:    "Algebra",
		Start:    time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC),
		MeetLink: "https://meet.example/new",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/new", got["meetLink"])
	assert.Equal(t, "2025-06-10T09:00:00Z", got["start"])
	assert.Equal(t, "42", got["id"])
}

func TestUpdateEventRequiresID(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }, Session{})
	assert.Error(t, c.UpdateEvent(context.Background(), model.Event{Title: "x"}))
	assert.Zero(t, hits.Load())
}

func TestGenerateMeetLink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/meet/generate-meet-link", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Algebra", body["title"])
		_, _ = io.WriteString(w, `{"meetLink": "https://meet.example/abc-defg-hij"}`)
	}, Session{})

	link, err := c.GenerateMeetLink(context.Background(), "Algebra")
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/abc-defg-hij", link)
}

func TestGenerateMeetLinkEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"meetLink": ""}`)
	}, Session{})

	_, err := c.GenerateMeetLink(context.Background(), "Algebra")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-10T09:00:00Z", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-06-10T09:00:00.000Z", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-06-10T09:00", time.Date(2025, 6, 10, 9, 0, 0, 0, loc)},
		{"2025-06-10T09:00:30", time.Date(2025, 6, 10, 9, 0, 30, 0, loc)},
		{"2025-06-10 09:00", time.Date(2025, 6, 10, 9, 0, 0, 0, loc)},
		{"2025-06-10", time.Date(2025, 6, 10, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in, loc)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v want %v", tt.in, got, tt.want)
	}

	_, err := ParseTimestamp("", loc)
	assert.Error(t, err)
	_, err = ParseTimestamp("10/06/2025", loc)
	assert.Error(t, err)
}

func TestFlexID(t *testing.T) {
	var ids []flexID
	require.NoError(t, json.Unmarshal([]byte(`[1, "abc", null, 12345678901]`), &ids))
	assert.Equal(t, []flexID{"1", "abc", "", "12345678901"}, ids)

	var bad flexID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}

func TestSessionSignedIn(t *testing.T) {
	assert.False(t, Session{}.SignedIn())
	assert.False(t, Session{Token: "  "}.SignedIn())
	assert.True(t, Session{Token: "t"}.SignedIn())
}

func TestAPIErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "op: 404 Not Found", (&APIError{Operation: "op", StatusCode: 404}).Error())
	assert.Equal(t, "nope", serverMessage([]byte(`{"error":"nope"}`)))
	assert.Equal(t, "plain text", serverMessage([]byte("plain text\n")))
	assert.False(t, errors.Is(&APIError{StatusCode: 500}, ErrUnauthorized))
}
