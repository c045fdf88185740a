package core

// ConnectionState is the platform-reported connection state of a joined room.
type ConnectionState int

const (
	ConnectionReconnecting ConnectionState = iota
	ConnectionReconnected
	ConnectionDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionReconnecting:
		return "reconnecting"
	case ConnectionReconnected:
		return "reconnected"
	case ConnectionDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// RoomEvents is the capability set a room reports to its subscriber.
// Callbacks may arrive on platform goroutines.
type RoomEvents interface {
	OnParticipantJoined(identity string)
	OnParticipantLeft(identity string)
	OnTrackSubscribed(track RemoteAudioTrack, identity string)
	OnTrackUnsubscribed(trackID, identity string)
	OnConnectionStateChanged(state ConnectionState)
}
