// Package session drives a single voice call from idle to connected to
// terminated and relays room events to the view and the call log.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/core"
	"github.com/shivwng1/lvkit-main/internal/domain"
)

var (
	ErrCallInProgress = errors.New("call already in progress")
	ErrNotConnected   = errors.New("call not connected")
	ErrNoMicrophone   = errors.New("no microphone publication")
	ErrNoServerURL    = errors.New("backend config has no livekit_url")
)

const DefaultConnectTimeout = 30 * time.Second

type Options struct {
	// RoomName is joined when the backend config does not name a room.
	RoomName domain.RoomName
	// ConnectTimeout bounds one connection attempt, from config fetch to
	// microphone publish.
	ConnectTimeout time.Duration
	// FallbackURL is used when the config fetch fails. Empty means fail.
	FallbackURL string
	LogCapacity int
	// OnStateChange, when set, observes every state transition.
	OnStateChange func(from, to State)
}

// Controller owns one call session. Construct it once with New and drive it
// through Start, ToggleMute, End and Dispose. It implements core.RoomEvents.
type Controller struct {
	backend   core.Backend
	connector core.RoomConnector
	output    core.AudioOutput
	view      core.View
	opts      Options

	logs         *LogRing
	participants *ParticipantSet
	now          func() time.Time

	mu         sync.Mutex
	state      State
	muted      bool
	identity   domain.Identity
	room       core.MediaRoom
	mic        core.MicPublication
	audioTrack string
	cancel     context.CancelFunc
}

var _ core.RoomEvents = (*Controller)(nil)

func New(backend core.Backend, connector core.RoomConnector, output core.AudioOutput, view core.View, opts Options) *Controller {
	if opts.RoomName == "" {
		opts.RoomName = domain.DefaultRoomName
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	c := &Controller{
		backend:      backend,
		connector:    connector,
		output:       output,
		view:         view,
		opts:         opts,
		logs:         NewLogRing(opts.LogCapacity),
		participants: NewParticipantSet(),
		now:          time.Now,
	}
	c.view.SetStatus(StatusDisconnected)
	c.view.SetControls(core.Controls{Start: true})
	c.view.SetMuteLabel(LabelMute)
	c.view.SetAudioVisible(false)
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Identity is the identity of the current or last connection attempt.
func (c *Controller) Identity() domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Controller) Participants() []string { return c.participants.Snapshot() }

func (c *Controller) Logs() []core.LogEntry { return c.logs.Snapshot() }

// Start connects a new call. It is rejected unless the session is idle and
// blocks until the attempt succeeds, fails, times out or is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrCallInProgress
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	c.cancel = cancel
	c.setStateLocked(StateConnecting)
	c.view.SetStatus(StatusConnecting)
	c.view.SetControls(core.Controls{})
	c.logLocked(core.LogInfo, "Starting call...")
	c.mu.Unlock()
	defer cancel()

	room, mic, identity, err := c.connect(attemptCtx)
	if err != nil {
		c.fail(room, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil
	c.room = room
	c.mic = mic
	c.identity = identity
	c.muted = mic.Muted()
	c.setStateLocked(StateConnected)
	c.view.SetStatus(StatusConnected)
	c.view.SetControls(core.Controls{End: true, Mute: true})
	c.view.SetMuteLabel(muteLabel(c.muted))

	if existing := room.RemoteParticipants(); len(existing) > 0 {
		for _, id := range existing {
			c.participants.Upsert(id)
		}
		c.renderLocked()
	}
	c.logLocked(core.LogSuccess, fmt.Sprintf("Connected as %s", identity))
	return nil
}

// connect runs the network part of Start. A room handle is returned alongside
// an error when the room joined but the microphone could not be enabled.
func (c *Controller) connect(ctx context.Context) (core.MediaRoom, core.MicPublication, domain.Identity, error) {
	cfg, err := c.backend.FetchConfig(ctx)
	switch {
	case err != nil && c.opts.FallbackURL != "":
		c.log(core.LogError, fmt.Sprintf("Config fetch failed, using fallback server: %v", err))
		cfg = domain.ClientConfig{LiveKitURL: c.opts.FallbackURL}
	case err != nil:
		return nil, nil, "", fmt.Errorf("fetch config: %w", err)
	}
	if cfg.LiveKitURL == "" {
		if c.opts.FallbackURL == "" {
			return nil, nil, "", ErrNoServerURL
		}
		cfg.LiveKitURL = c.opts.FallbackURL
	}

	roomName := c.opts.RoomName
	if cfg.RoomName != "" {
		roomName = cfg.RoomName
	}
	identity := domain.ClientIdentity(c.now())

	cred, err := c.backend.FetchToken(ctx, roomName, identity)
	if err != nil {
		return nil, nil, identity, fmt.Errorf("fetch token: %w", err)
	}
	c.log(core.LogInfo, fmt.Sprintf("Token received for room %s", roomName))

	room, err := c.connector.Connect(ctx, cfg.LiveKitURL, cred.Token, c)
	if err != nil {
		return nil, nil, identity, fmt.Errorf("connect to %s: %w", cfg.LiveKitURL, err)
	}
	c.log(core.LogInfo, fmt.Sprintf("Joined room %s", roomName))

	mic, err := room.EnableMicrophone(ctx)
	if err != nil {
		return room, nil, identity, fmt.Errorf("enable microphone: %w", err)
	}
	return room, mic, identity, nil
}

func (c *Controller) fail(room core.MediaRoom, err error) {
	if room != nil {
		if derr := room.Disconnect(); derr != nil {
			log.Warn().Err(derr).Str("module", "app.session").Msg("disconnect after failed attempt")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil
	c.setStateLocked(StateConnectionFailed)
	c.logLocked(core.LogError, fmt.Sprintf("Connection failed: %v", err))
	c.room = nil
	c.mic = nil
	c.muted = false
	c.view.SetMuteLabel(LabelMute)
	c.detachAudioLocked()
	if c.participants.Len() > 0 {
		c.participants.Clear()
		c.renderLocked()
	}
	c.setStateLocked(StateIdle)
	c.view.SetStatus(StatusConnectionFailed)
	c.view.SetControls(core.Controls{Start: true})
}

// End disconnects a connected call. Local state is reset even when the
// platform disconnect fails; that error is returned.
func (c *Controller) End() error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	room := c.room
	c.setStateLocked(StateDisconnecting)
	c.view.SetControls(core.Controls{})
	c.mu.Unlock()

	err := room.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("disconnect: %w", err)
		c.logLocked(core.LogError, fmt.Sprintf("Disconnect failed: %v", err))
	}
	c.teardownLocked()
	c.logLocked(core.LogInfo, "Call ended")
	return err
}

// ToggleMute flips the microphone mute state. On failure nothing changes.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mic == nil {
		return ErrNoMicrophone
	}
	target := !c.muted
	if err := c.mic.SetMuted(target); err != nil {
		c.logLocked(core.LogError, fmt.Sprintf("Failed to toggle mute: %v", err))
		return fmt.Errorf("set muted: %w", err)
	}
	c.muted = target
	c.view.SetMuteLabel(muteLabel(target))
	if target {
		c.logLocked(core.LogInfo, "Microphone muted")
	} else {
		c.logLocked(core.LogInfo, "Microphone unmuted")
	}
	return nil
}

// Cancel aborts an in-flight Start. It is a no-op otherwise.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Dispose releases the session: it cancels a pending attempt and ends a
// connected call, best effort.
func (c *Controller) Dispose() {
	c.Cancel()
	if c.State() == StateConnected {
		if err := c.End(); err != nil {
			log.Warn().Err(err).Str("module", "app.session").Msg("dispose")
		}
	}
}

func (c *Controller) OnParticipantJoined(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return
	}
	c.participants.Upsert(identity)
	c.renderLocked()
	c.logLocked(core.LogInfo, fmt.Sprintf("Participant joined: %s", identity))
}

func (c *Controller) OnParticipantLeft(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return
	}
	c.participants.Remove(identity)
	c.renderLocked()
	c.logLocked(core.LogInfo, fmt.Sprintf("Participant left: %s", identity))
}

func (c *Controller) OnTrackSubscribed(track core.RemoteAudioTrack, identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.activeLocked() {
		return
	}
	if c.audioTrack != "" && c.audioTrack != track.ID() {
		c.logLocked(core.LogInfo, fmt.Sprintf("Replacing audio track %s", c.audioTrack))
		c.detachAudioLocked()
	}
	if err := c.output.Attach(track); err != nil {
		c.logLocked(core.LogError, fmt.Sprintf("Failed to play audio from %s: %v", identity, err))
		return
	}
	c.audioTrack = track.ID()
	c.view.SetAudioVisible(true)
	c.logLocked(core.LogSuccess, fmt.Sprintf("Receiving audio from %s", identity))
}

func (c *Controller) OnTrackUnsubscribed(trackID, identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if trackID != c.audioTrack {
		return
	}
	c.detachAudioLocked()
	c.logLocked(core.LogInfo, fmt.Sprintf("Audio from %s stopped", identity))
}

func (c *Controller) OnConnectionStateChanged(state core.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return
	}
	switch state {
	case core.ConnectionReconnecting:
		c.view.SetStatus(StatusReconnecting)
		c.logLocked(core.LogInfo, "Connection lost, reconnecting...")
	case core.ConnectionReconnected:
		c.view.SetStatus(StatusConnected)
		c.logLocked(core.LogSuccess, "Reconnected")
	case core.ConnectionDisconnected:
		c.teardownLocked()
		c.logLocked(core.LogInfo, "Disconnected from room")
	}
}

func (c *Controller) activeLocked() bool {
	return c.state == StateConnecting || c.state == StateConnected
}

func (c *Controller) teardownLocked() {
	c.room = nil
	c.mic = nil
	c.participants.Clear()
	c.renderLocked()
	c.muted = false
	c.view.SetMuteLabel(LabelMute)
	c.detachAudioLocked()
	c.setStateLocked(StateIdle)
	c.view.SetStatus(StatusDisconnected)
	c.view.SetControls(core.Controls{Start: true})
}

func (c *Controller) detachAudioLocked() {
	if c.audioTrack == "" {
		return
	}
	c.output.Detach(c.audioTrack)
	c.audioTrack = ""
	c.view.SetAudioVisible(false)
}

func (c *Controller) renderLocked() {
	c.view.RenderParticipants(c.participants.Snapshot())
}

func (c *Controller) setStateLocked(to State) {
	from := c.state
	c.state = to
	log.Debug().Str("module", "app.session").Str("from", from.String()).Str("to", to.String()).Msg("state")
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(from, to)
	}
}

func (c *Controller) log(level core.LogLevel, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logLocked(level, msg)
}

func (c *Controller) logLocked(level core.LogLevel, msg string) {
	c.view.AppendLog(c.logs.Add(level, msg))
}

func muteLabel(muted bool) string {
	if muted {
		return LabelUnmute
	}
	return LabelMute
}
