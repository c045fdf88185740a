package main

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/core"
)

// terminalView renders the call as log lines.
type terminalView struct {
	logger zerolog.Logger
}

func newTerminalView() *terminalView {
	return &terminalView{logger: log.With().Str("module", "caller").Logger()}
}

func (v *terminalView) SetStatus(text string) {
	v.logger.Info().Str("status", text).Msg("status")
}

func (v *terminalView) SetControls(c core.Controls) {
	var enabled []string
	if c.Start {
		enabled = append(enabled, "start")
	}
	if c.Mute {
		enabled = append(enabled, "mute")
	}
	if c.End {
		enabled = append(enabled, "end")
	}
	v.logger.Debug().Str("commands", strings.Join(enabled, ",")).Msg("controls")
}

func (v *terminalView) SetMuteLabel(label string) {
	v.logger.Debug().Str("mute_button", label).Msg("mute label")
}

func (v *terminalView) RenderParticipants(identities []string) {
	if len(identities) == 0 {
		v.logger.Info().Msg("no other participants")
		return
	}
	v.logger.Info().Strs("participants", identities).Msg("participants")
}

func (v *terminalView) SetAudioVisible(visible bool) {
	v.logger.Info().Bool("agent_audio", visible).Msg("audio")
}

// AppendLog is a no-op: the session already mirrors entries to the logger.
func (v *terminalView) AppendLog(core.LogEntry) {}
