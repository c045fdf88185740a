// Package livekit joins LiveKit rooms through the server SDK and adapts
// them to the core media interfaces.
package livekit

import (
	"context"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/adapters/audio"
	"github.com/shivwng1/lvkit-main/internal/core"
)

// SourceFactory opens the audio published as the local microphone.
type SourceFactory func() (audio.Source, error)

func Silence() (audio.Source, error) { return audio.SilenceSource{}, nil }

type Connector struct {
	newSource SourceFactory
}

func NewConnector(newSource SourceFactory) *Connector {
	if newSource == nil {
		newSource = Silence
	}
	return &Connector{newSource: newSource}
}

type connectResult struct {
	room *lksdk.Room
	err  error
}

// Connect joins the room. The SDK call itself cannot be cancelled, so when
// ctx ends first a room that joins late is disconnected in the background.
func (c *Connector) Connect(ctx context.Context, url, token string, events core.RoomEvents) (core.MediaRoom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := newRoom(c.newSource)
	cb := roomCallback(events, r.stopMicrophone)

	done := make(chan connectResult, 1)
	go func() {
		room, err := lksdk.ConnectToRoomWithToken(url, token, cb, lksdk.WithAutoSubscribe(true))
		done <- connectResult{room: room, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		log.Info().Str("module", "adapters.livekit").Str("url", url).Str("room", res.room.Name()).Msg("room joined")
		r.room = res.room
		return r, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.room != nil {
				log.Warn().Str("module", "adapters.livekit").Msg("room joined after attempt ended, leaving")
				res.room.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

// roomCallback forwards SDK callbacks to events. onDisconnected runs first
// when the platform ends the session.
func roomCallback(events core.RoomEvents, onDisconnected func()) *lksdk.RoomCallback {
	return &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if track.Kind() != webrtc.RTPCodecTypeAudio {
					return
				}
				events.OnTrackSubscribed(track, rp.Identity())
			},
			OnTrackUnsubscribed: func(track *webrtc.TrackRemote, _ *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if track.Kind() != webrtc.RTPCodecTypeAudio {
					return
				}
				events.OnTrackUnsubscribed(track.ID(), rp.Identity())
			},
		},
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			events.OnParticipantJoined(rp.Identity())
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			events.OnParticipantLeft(rp.Identity())
		},
		OnReconnecting: func() {
			events.OnConnectionStateChanged(core.ConnectionReconnecting)
		},
		OnReconnected: func() {
			events.OnConnectionStateChanged(core.ConnectionReconnected)
		},
		OnDisconnected: func() {
			if onDisconnected != nil {
				onDisconnected()
			}
			events.OnConnectionStateChanged(core.ConnectionDisconnected)
		},
	}
}
