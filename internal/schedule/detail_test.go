package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcal/internal/model"
)

func TestOpenCloseDetail(t *testing.T) {
	ev := algebra()
	ev.MeetLink = "https://meet.example/old"
	p, _ := newTestPage(t, &fakeSource{events: []model.Event{ev}})
	require.NoError(t, p.Refresh(context.Background()))

	assert.False(t, p.Detail().Open)

	d, err := p.OpenEvent("1")
	require.NoError(t, err)
	assert.True(t, d.Open)
	assert.Equal(t, "https://meet.example/old", d.Link)

	p.CloseEvent()
	assert.False(t, p.Detail().Open)
	p.CloseEvent()

	_, err = p.OpenEvent("missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.False(t, p.Detail().Open)
}

func TestGenerateMeetLinkRequiresOpenEvent(t *testing.T) {
	p, _ := newTestPage(t, &fakeSource{})
	_, err := p.GenerateMeetLink(context.Background())
	assert.ErrorIs(t, err, ErrNoEventOpen)
}

func TestGenerateMeetLinkSuccess(t *testing.T) {
	src := &fakeSource{events: []model.Event{algebra()}, link: "https://meet.example/abc-defg-hij"}
	p, clk := newTestPage(t, src)
	require.NoError(t, p.Refresh(context.Background()))
	_, err := p.OpenEvent("1")
	require.NoError(t, err)

	link, err := p.GenerateMeetLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/abc-defg-hij", link)

	require.Len(t, src.puts, 1)
	assert.Equal(t, link, src.puts[0].MeetLink)
	assert.Equal(t, 2, src.listCalls, "list is refetched after the update")

	s := p.Snapshot()
	assert.True(t, s.Detail.Open)
	assert.Equal(t, link, s.Detail.Link)
	assert.Equal(t, link, s.Detail.Event.MeetLink)
	assert.Equal(t, MsgMeetGenerated, s.Notice)
	assert.False(t, s.MeetLoading)

	// The link survives the refetch because the backend now holds it.
	assert.Equal(t, link, p.Events()[0].MeetLink)

	clk.Advance(2 * time.Second)
	assert.Equal(t, MsgMeetGenerated, p.Snapshot().Notice)
	clk.Advance(time.Second)
	assert.Empty(t, p.Snapshot().Notice, "notice auto-dismisses")
}

func TestGenerateMeetLinkFailure(t *testing.T) {
	src := &fakeSource{events: []model.Event{algebra()}, meetErr: errors.New("network down")}
	p, _ := newTestPage(t, src)
	require.NoError(t, p.Refresh(context.Background()))
	_, err := p.OpenEvent("1")
	require.NoError(t, err)

	_, err = p.GenerateMeetLink(context.Background())
	require.Error(t, err)

	s := p.Snapshot()
	assert.Equal(t, MsgMeetFailed, s.Alert)
	assert.False(t, s.MeetLoading)
	assert.True(t, s.Detail.Open)
	assert.Empty(t, s.Detail.Link)
	assert.Empty(t, s.Notice)
	assert.Empty(t, src.puts)
	assert.Equal(t, 1, src.listCalls)
}

func TestGenerateMeetLinkUpdateFailure(t *testing.T) {
	src := &fakeSource{events: []model.Event{algebra()}, link: "https://meet.example/x", putErr: errors.New("500")}
	p, _ := newTestPage(t, src)
	require.NoError(t, p.Refresh(context.Background()))
	_, err := p.OpenEvent("1")
	require.NoError(t, err)

	_, err = p.GenerateMeetLink(context.Background())
	require.Error(t, err)

	s := p.Snapshot()
	assert.Equal(t, MsgUpdateFailed, s.Alert)
	assert.True(t, s.Detail.Open)
	assert.Empty(t, s.Detail.Link)
}

func TestGenerateMeetLinkBusy(t *testing.T) {
	src := &fakeSource{
		events:      []model.Event{algebra()},
		link:        "https://meet.example/x",
		meetGate:    make(chan struct{}),
		meetEntered: make(chan struct{}, 1),
	}
	p, _ := newTestPage(t, src)
	require.NoError(t, p.Refresh(context.Background()))
	_, err := p.OpenEvent("1")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.GenerateMeetLink(context.Background())
		errCh <- err
	}()
	<-src.meetEntered

	assert.True(t, p.Snapshot().MeetLoading)
	_, err = p.GenerateMeetLink(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(src.meetGate)
	require.NoError(t, <-errCh)

	src.mu.Lock()
	assert.Equal(t, 1, src.meetCalls)
	src.mu.Unlock()
	assert.False(t, p.Snapshot().MeetLoading)
}

func TestGenerateMeetLinkCallerCancel(t *testing.T) {
	src := &fakeSource{
		events:      []model.Event{algebra()},
		meetGate:    make(chan struct{}),
		meetEntered: make(chan struct{}, 1),
	}
	p, _ := newTestPage(t, src)
	require.NoError(t, p.Refresh(context.Background()))
	_, err := p.OpenEvent("1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := p.GenerateMeetLink(ctx)
		errCh <- err
	}()
	<-src.meetEntered
	cancel()

	err = <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, p.Detail().Open)
}

func TestGenerateMeetLinkReloadFailureStillSucceeds(t *testing.T) {
	const link = "https://meet.example/x"
	src := &fakeSource{events: []model.Event{algebra()}, link: link}
	p, _ := newTestPage(t, src)
	require.NoError(t, p.Refresh(context.Background()))
	_, err := p.OpenEvent("1")
	require.NoError(t, err)

	src.mu.Lock()
	src.listErr = errors.New("502 Bad Gateway")
	src.mu.Unlock()

	got, err := p.GenerateMeetLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, link, got)

	s := p.Snapshot()
	assert.Empty(t, s.Alert)
	assert.Equal(t, MsgMeetGenerated, s.Notice)
	require.True(t, s.Detail.Open)
	assert.Equal(t, link, s.Detail.Link)
	require.Len(t, src.puts, 1)
}

func TestReportErrorAlerts(t *testing.T) {
	p, _ := newTestPage(t, &fakeSource{})

	for err, want := range map[error]string{
		ErrBusy:          MsgBusy,
		ErrNoEventOpen:   MsgNoEventOpen,
		ErrEventNotFound: MsgNotFound,
		ErrReadOnly:      MsgReadOnly,
	} {
		p.DismissAlert()
		p.ReportError(fmt.Errorf("wrapped: %w", err))
		assert.Equal(t, want, p.Snapshot().Alert)
	}

	p.DismissAlert()
	p.ReportError(errors.New("upstream"))
	assert.Empty(t, p.Snapshot().Alert)
}
