package core

import "time"

type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogError   LogLevel = "error"
)

// LogEntry is one line of the operator-visible call log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
}

// Controls tells the view which call controls are usable.
type Controls struct {
	Start bool
	End   bool
	Mute  bool
}

// View is the observable surface of a call. Implementations must not call
// back into the session from these methods.
type View interface {
	SetStatus(text string)
	SetControls(c Controls)
	SetMuteLabel(label string)
	RenderParticipants(identities []string)
	SetAudioVisible(visible bool)
	AppendLog(e LogEntry)
}
