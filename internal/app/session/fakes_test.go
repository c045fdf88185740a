package session

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/shivwng1/lvkit-main/internal/core"
	"github.com/shivwng1/lvkit-main/internal/domain"
)

type fakeBackend struct {
	cfg      domain.ClientConfig
	cfgErr   error
	tokenErr error

	mu        sync.Mutex
	rooms     []domain.RoomName
	identities []domain.Identity
}

func (b *fakeBackend) FetchConfig(context.Context) (domain.ClientConfig, error) {
	return b.cfg, b.cfgErr
}

func (b *fakeBackend) FetchToken(_ context.Context, room domain.RoomName, identity domain.Identity) (domain.JoinCredential, error) {
	b.mu.Lock()
	b.rooms = append(b.rooms, room)
	b.identities = append(b.identities, identity)
	b.mu.Unlock()
	if b.tokenErr != nil {
		return domain.JoinCredential{}, b.tokenErr
	}
	return domain.JoinCredential{Token: "tok", Room: room, Identity: identity}, nil
}

type fakeMic struct {
	mu    sync.Mutex
	muted bool
	err   error
	calls int
}

func (m *fakeMic) SetMuted(muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.muted = muted
	return nil
}

func (m *fakeMic) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

type fakeRoom struct {
	mic           *fakeMic
	micErr        error
	existing      []string
	disconnectErr error

	mu          sync.Mutex
	disconnects int
}

func (r *fakeRoom) EnableMicrophone(context.Context) (core.MicPublication, error) {
	if r.micErr != nil {
		return nil, r.micErr
	}
	return r.mic, nil
}

func (r *fakeRoom) RemoteParticipants() []string { return r.existing }

func (r *fakeRoom) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
	return r.disconnectErr
}

func (r *fakeRoom) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

type fakeConnector struct {
	room *fakeRoom
	err  error
	// block makes Connect wait for ctx or release.
	block   bool
	release chan struct{}
	entered chan struct{}

	mu     sync.Mutex
	url    string
	token  string
	events core.RoomEvents
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		room:    &fakeRoom{mic: &fakeMic{}},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
}

func (f *fakeConnector) Connect(ctx context.Context, url, token string, events core.RoomEvents) (core.MediaRoom, error) {
	f.mu.Lock()
	f.url, f.token, f.events = url, token, events
	f.mu.Unlock()
	if f.block {
		f.entered <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

type fakeTrack struct{ id string }

func (t fakeTrack) ID() string                       { return t.id }
func (t fakeTrack) Codec() webrtc.RTPCodecParameters { return webrtc.RTPCodecParameters{} }
func (t fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return nil, nil, errors.New("eof")
}

type fakeOutput struct {
	mu       sync.Mutex
	attached []string
	detached []string
	err      error
}

func (o *fakeOutput) Attach(track core.RemoteAudioTrack) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.attached = append(o.attached, track.ID())
	return nil
}

func (o *fakeOutput) Detach(trackID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detached = append(o.detached, trackID)
}

type recordingView struct {
	mu           sync.Mutex
	statuses     []string
	controls     core.Controls
	muteLabel    string
	renders      [][]string
	audioVisible bool
	logs         []core.LogEntry
}

func (v *recordingView) SetStatus(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, text)
}

func (v *recordingView) SetControls(c core.Controls) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls = c
}

func (v *recordingView) SetMuteLabel(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.muteLabel = label
}

func (v *recordingView) RenderParticipants(ids []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, ids)
}

func (v *recordingView) SetAudioVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.audioVisible = visible
}

func (v *recordingView) AppendLog(e core.LogEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logs = append(v.logs, e)
}

func (v *recordingView) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.statuses) == 0 {
		return ""
	}
	return v.statuses[len(v.statuses)-1]
}

func (v *recordingView) RenderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders)
}

func (v *recordingView) Controls() core.Controls {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls
}

func (v *recordingView) MuteLabel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.muteLabel
}
