package domain

import "errors"

// DefaultRoomName is used when configuration does not name a room.
const DefaultRoomName RoomName = "debt-collection-room"

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type RoomName string

func NewRoomName(raw string) (RoomName, error) {
	if len(raw) == 0 {
		return "", ErrRoomNameEmpty
	}
	if len(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}

// ClientConfig is what the backend tells a call client about where to connect.
type ClientConfig struct {
	LiveKitURL      string   `json:"livekit_url"`
	RoomName        RoomName `json:"room_name,omitempty"`
	ParticipantName string   `json:"participant_name,omitempty"`
}
