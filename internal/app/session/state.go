package session

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateConnectionFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateConnectionFailed:
		return "connection_failed"
	default:
		return "unknown"
	}
}

// Status texts shown to the operator.
const (
	StatusDisconnected     = "Disconnected"
	StatusConnecting       = "Connecting..."
	StatusConnected        = "Connected"
	StatusReconnecting     = "Reconnecting..."
	StatusConnectionFailed = "Connection failed"
)

const (
	LabelMute   = "Mute"
	LabelUnmute = "Unmute"
)
