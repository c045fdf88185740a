package livekit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/adapters/audio"
	"github.com/shivwng1/lvkit-main/internal/core"
)

const micTrackName = "microphone"

type Room struct {
	room      *lksdk.Room
	newSource SourceFactory

	mu        sync.Mutex
	stopPump  context.CancelFunc
	src       audio.Source
	closeOnce sync.Once
}

func newRoom(newSource SourceFactory) *Room {
	return &Room{newSource: newSource}
}

// EnableMicrophone publishes an Opus track fed from the room's source.
func (r *Room) EnableMicrophone(ctx context.Context) (core.MicPublication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := r.newSource()
	if err != nil {
		return nil, fmt.Errorf("open microphone source: %w", err)
	}

	track, err := lksdk.NewLocalTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("create microphone track: %w", err)
	}

	pub, err := r.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   micTrackName,
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("publish microphone: %w", err)
	}

	mic := newMic(pub)
	pumpCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.src = src
	r.stopPump = cancel
	r.mu.Unlock()

	go r.pump(pumpCtx, src, track, mic)

	log.Info().Str("module", "adapters.livekit").Str("track_sid", pub.SID()).Msg("microphone published")
	return mic, nil
}

func (r *Room) pump(ctx context.Context, src audio.Source, track *lksdk.LocalTrack, mic *Mic) {
	var warned bool
	err := audio.Pump(ctx, src, func(s media.Sample) error {
		if mic.Muted() {
			return nil
		}
		if err := track.WriteSample(s, nil); err != nil && !warned {
			warned = true
			log.Warn().Err(err).Str("module", "adapters.livekit").Msg("microphone write failed")
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("module", "adapters.livekit").Msg("microphone stopped")
	}
}

func (r *Room) RemoteParticipants() []string {
	rps := r.room.GetRemoteParticipants()
	out := make([]string, 0, len(rps))
	for _, rp := range rps {
		out = append(out, rp.Identity())
	}
	return out
}

// Disconnect stops the microphone and leaves the room. Calling it again is
// a no-op.
func (r *Room) Disconnect() error {
	r.closeOnce.Do(func() {
		r.stopMicrophone()
		r.room.Disconnect()
		log.Info().Str("module", "adapters.livekit").Str("room", r.room.Name()).Msg("room left")
	})
	return nil
}

// stopMicrophone ends the pump and closes its source. Safe to call twice.
func (r *Room) stopMicrophone() {
	r.mu.Lock()
	if r.stopPump != nil {
		r.stopPump()
	}
	src := r.src
	r.src = nil
	r.mu.Unlock()

	if src != nil {
		if err := src.Close(); err != nil {
			log.Warn().Err(err).Str("module", "adapters.livekit").Msg("close microphone source")
		}
	}
}

type muter interface {
	SetMuted(muted bool)
}

// Mic is the published microphone. Muting signals the room and stops
// sending frames.
type Mic struct {
	pub   muter
	muted atomic.Bool
}

func newMic(pub muter) *Mic {
	return &Mic{pub: pub}
}

func (m *Mic) SetMuted(muted bool) error {
	m.pub.SetMuted(muted)
	m.muted.Store(muted)
	return nil
}

func (m *Mic) Muted() bool { return m.muted.Load() }
