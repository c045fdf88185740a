package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivwng1/lvkit-main/internal/core"
	"github.com/shivwng1/lvkit-main/internal/domain"
)

type harness struct {
	backend   *fakeBackend
	connector *fakeConnector
	output    *fakeOutput
	view      *recordingView
	ctrl      *Controller

	mu          sync.Mutex
	transitions []State
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		backend:   &fakeBackend{cfg: domain.ClientConfig{LiveKitURL: "ws://livekit.test:7880"}},
		connector: newFakeConnector(),
		output:    &fakeOutput{},
		view:      &recordingView{},
	}
	opts.OnStateChange = func(_, to State) {
		h.mu.Lock()
		h.transitions = append(h.transitions, to)
		h.mu.Unlock()
	}
	h.ctrl = New(h.backend, h.connector, h.output, h.view, opts)
	h.ctrl.now = func() time.Time { return time.UnixMilli(1718000000000) }
	return h
}

func (h *harness) Transitions() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.transitions...)
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.Equal(t, StateConnected, h.ctrl.State())
}

func hasLog(entries []core.LogEntry, level core.LogLevel, substr string) bool {
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestStartConnects(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Equal(t, StatusDisconnected, h.view.Status())

	h.start(t)

	assert.Equal(t, []State{StateConnecting, StateConnected}, h.Transitions())
	assert.Equal(t, StatusConnected, h.view.Status())
	assert.Equal(t, core.Controls{End: true, Mute: true}, h.view.Controls())
	assert.Equal(t, "ws://livekit.test:7880", h.connector.url)
	assert.Equal(t, "tok", h.connector.token)
	assert.Equal(t, []domain.RoomName{domain.DefaultRoomName}, h.backend.rooms)
	assert.Equal(t, []domain.Identity{"web-client-1718000000000"}, h.backend.identities)
	assert.Equal(t, domain.Identity("web-client-1718000000000"), h.ctrl.Identity())
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogSuccess, "Connected"))
}

func TestStartUsesConfiguredRoom(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.cfg.RoomName = "collections-7"

	h.start(t)

	assert.Equal(t, []domain.RoomName{"collections-7"}, h.backend.rooms)
}

func TestStartRendersExistingParticipants(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.room.existing = []string{"agent-1"}

	h.start(t)

	assert.Equal(t, []string{"agent-1"}, h.ctrl.Participants())
	assert.Equal(t, 1, h.view.RenderCount())
}

func TestStartRejectedWhileConnecting(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.block = true

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Start(context.Background()) }()
	<-h.connector.entered

	assert.ErrorIs(t, h.ctrl.Start(context.Background()), ErrCallInProgress)
	assert.Equal(t, core.Controls{}, h.view.Controls())

	close(h.connector.release)
	require.NoError(t, <-done)
	assert.ErrorIs(t, h.ctrl.Start(context.Background()), ErrCallInProgress)
	assert.Len(t, h.backend.identities, 1)
}

func TestStartTokenFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.tokenErr = errors.New("token request failed: status 400")

	err := h.ctrl.Start(context.Background())
	require.Error(t, err)

	assert.Equal(t, []State{StateConnecting, StateConnectionFailed, StateIdle}, h.Transitions())
	assert.Equal(t, StatusConnectionFailed, h.view.Status())
	assert.Equal(t, core.Controls{Start: true}, h.view.Controls())
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "400"))

	// The session is retryable.
	h.backend.tokenErr = nil
	h.start(t)
}

func TestStartConfigFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.cfgErr = errors.New("config request failed: status 503")

	require.Error(t, h.ctrl.Start(context.Background()))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Empty(t, h.backend.identities)
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "fetch config"))
}

func TestStartConfigFailureFallback(t *testing.T) {
	h := newHarness(t, Options{FallbackURL: "wss://fallback.test"})
	h.backend.cfgErr = errors.New("boom")

	h.start(t)

	assert.Equal(t, "wss://fallback.test", h.connector.url)
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "fallback"))
}

func TestStartMissingServerURL(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.cfg = domain.ClientConfig{}

	assert.ErrorIs(t, h.ctrl.Start(context.Background()), ErrNoServerURL)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestStartConnectFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.err = errors.New("could not establish signal connection")

	require.Error(t, h.ctrl.Start(context.Background()))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "signal connection"))
}

func TestStartMicrophoneFailureDisconnects(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.room.micErr = errors.New("permission denied")

	require.Error(t, h.ctrl.Start(context.Background()))
	assert.Equal(t, 1, h.connector.room.Disconnects())
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.ToggleMute(), ErrNoMicrophone)
}

func TestStartTimeout(t *testing.T) {
	h := newHarness(t, Options{ConnectTimeout: 20 * time.Millisecond})
	h.connector.block = true

	err := h.ctrl.Start(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, StatusConnectionFailed, h.view.Status())
}

func TestCancelAbortsAttempt(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.block = true

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Start(context.Background()) }()
	<-h.connector.entered

	h.ctrl.Cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, core.Controls{Start: true}, h.view.Controls())
}

func TestEndResetsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.ctrl.OnParticipantJoined("agent-1")
	require.NoError(t, h.ctrl.ToggleMute())

	require.NoError(t, h.ctrl.End())

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, 1, h.connector.room.Disconnects())
	assert.Empty(t, h.ctrl.Participants())
	assert.False(t, h.ctrl.Muted())
	assert.Equal(t, LabelMute, h.view.MuteLabel())
	assert.Equal(t, StatusDisconnected, h.view.Status())
	assert.Equal(t, core.Controls{Start: true}, h.view.Controls())
	assert.ErrorIs(t, h.ctrl.ToggleMute(), ErrNoMicrophone)
}

func TestEndRequiresConnected(t *testing.T) {
	h := newHarness(t, Options{})
	assert.ErrorIs(t, h.ctrl.End(), ErrNotConnected)
}

func TestEndDisconnectFailureStillResets(t *testing.T) {
	h := newHarness(t, Options{})
	h.connector.room.disconnectErr = errors.New("already closed")
	h.start(t)

	require.Error(t, h.ctrl.End())
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "Disconnect failed"))
}

func TestJoinThenLeaveRendersTwice(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	before := h.view.RenderCount()

	h.ctrl.OnParticipantJoined("agent-1")
	h.ctrl.OnParticipantLeft("agent-1")

	assert.Empty(t, h.ctrl.Participants())
	assert.Equal(t, 2, h.view.RenderCount()-before)
}

func TestDuplicateJoinKeepsOneEntry(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.ctrl.OnParticipantJoined("agent-1")
	h.ctrl.OnParticipantJoined("agent-1")

	assert.Equal(t, []string{"agent-1"}, h.ctrl.Participants())
}

func TestEventsIgnoredWhenIdle(t *testing.T) {
	h := newHarness(t, Options{})
	h.ctrl.OnParticipantJoined("agent-1")
	h.ctrl.OnTrackSubscribed(fakeTrack{id: "TR_1"}, "agent-1")

	assert.Empty(t, h.ctrl.Participants())
	assert.Equal(t, 0, h.view.RenderCount())
	assert.Empty(t, h.output.attached)
}

func TestToggleMuteTwiceRestores(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	wasMuted, label := h.ctrl.Muted(), h.view.MuteLabel()

	require.NoError(t, h.ctrl.ToggleMute())
	assert.True(t, h.ctrl.Muted())
	assert.Equal(t, LabelUnmute, h.view.MuteLabel())
	assert.True(t, h.connector.room.mic.Muted())

	require.NoError(t, h.ctrl.ToggleMute())
	assert.Equal(t, wasMuted, h.ctrl.Muted())
	assert.Equal(t, label, h.view.MuteLabel())
}

func TestToggleMuteFailureLeavesState(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.connector.room.mic.err = errors.New("track not published")

	require.Error(t, h.ctrl.ToggleMute())
	assert.False(t, h.ctrl.Muted())
	assert.Equal(t, LabelMute, h.view.MuteLabel())
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "toggle mute"))
}

func TestRemoteAudioLastWins(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.ctrl.OnTrackSubscribed(fakeTrack{id: "TR_1"}, "agent-1")
	assert.True(t, h.view.audioVisible)

	h.ctrl.OnTrackSubscribed(fakeTrack{id: "TR_2"}, "agent-1")
	assert.Equal(t, []string{"TR_1", "TR_2"}, h.output.attached)
	assert.Equal(t, []string{"TR_1"}, h.output.detached)

	// Unsubscribing a replaced track is a no-op.
	h.ctrl.OnTrackUnsubscribed("TR_1", "agent-1")
	assert.True(t, h.view.audioVisible)

	h.ctrl.OnTrackUnsubscribed("TR_2", "agent-1")
	assert.False(t, h.view.audioVisible)
	assert.Equal(t, []string{"TR_1", "TR_2"}, h.output.detached)
}

func TestRemoteAudioAttachFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.output.err = errors.New("unsupported codec")
	h.start(t)

	h.ctrl.OnTrackSubscribed(fakeTrack{id: "TR_1"}, "agent-1")
	assert.False(t, h.view.audioVisible)
	assert.True(t, hasLog(h.ctrl.Logs(), core.LogError, "unsupported codec"))
}

func TestReconnectKeepsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.ctrl.OnParticipantJoined("agent-1")
	id := h.ctrl.Identity()

	h.ctrl.OnConnectionStateChanged(core.ConnectionReconnecting)
	assert.Equal(t, StatusReconnecting, h.view.Status())
	assert.Equal(t, StateConnected, h.ctrl.State())

	h.ctrl.OnConnectionStateChanged(core.ConnectionReconnected)
	assert.Equal(t, StatusConnected, h.view.Status())
	assert.Equal(t, id, h.ctrl.Identity())
	assert.Equal(t, []string{"agent-1"}, h.ctrl.Participants())
}

func TestServerDisconnectTearsDown(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.ctrl.OnTrackSubscribed(fakeTrack{id: "TR_1"}, "agent-1")

	h.ctrl.OnConnectionStateChanged(core.ConnectionDisconnected)

	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, StatusDisconnected, h.view.Status())
	assert.Equal(t, []string{"TR_1"}, h.output.detached)
	assert.Equal(t, 0, h.connector.room.Disconnects())
}

func TestDisposeEndsCall(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	h.ctrl.Dispose()
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, 1, h.connector.room.Disconnects())

	// Disposing an idle session does nothing.
	h.ctrl.Dispose()
	assert.Equal(t, 1, h.connector.room.Disconnects())
}
