package core

import (
	"context"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RemoteAudioTrack is the subset of *webrtc.TrackRemote the call client needs.
type RemoteAudioTrack interface {
	ID() string
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// RoomConnector opens a media room on the external platform.
type RoomConnector interface {
	// Connect joins the room at url with token and delivers room events to
	// events until the room is disconnected. It must give up when ctx is done.
	Connect(ctx context.Context, url, token string, events RoomEvents) (MediaRoom, error)
}

// MediaRoom is a connected room handle.
type MediaRoom interface {
	// EnableMicrophone publishes the local microphone track.
	EnableMicrophone(ctx context.Context) (MicPublication, error)
	// RemoteParticipants lists the identities already in the room.
	RemoteParticipants() []string
	// Disconnect leaves the room and releases local tracks.
	Disconnect() error
}

// MicPublication is the published local microphone.
type MicPublication interface {
	SetMuted(muted bool) error
	Muted() bool
}

// AudioOutput is the persistent output remote audio is played through.
// At most one track is attached at a time.
type AudioOutput interface {
	Attach(track RemoteAudioTrack) error
	Detach(trackID string)
}
