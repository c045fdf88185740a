// Command caller is a terminal call client for the debt-collection agent.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/shivwng1/lvkit-main/internal/adapters/audio"
	"github.com/shivwng1/lvkit-main/internal/adapters/backend"
	"github.com/shivwng1/lvkit-main/internal/adapters/livekit"
	"github.com/shivwng1/lvkit-main/internal/app/session"
	"github.com/shivwng1/lvkit-main/internal/config"
	"github.com/shivwng1/lvkit-main/internal/domain"
)

const help = "commands: start, mute, end, cancel, status, log, quit"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	fs := pflag.NewFlagSet("caller", pflag.ExitOnError)
	config.CallerFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadCaller(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	room, err := domain.NewRoomName(cfg.RoomName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid room")
	}

	speaker := audio.NewSpeaker(cfg.RecordDir)
	ctrl := session.New(
		backend.New(cfg.BackendURL, backend.WithHTTPClient(newHTTPClient(cfg.RequestTimeout))),
		livekit.NewConnector(micSource(cfg.MicFile)),
		speaker,
		newTerminalView(),
		session.Options{
			RoomName:       room,
			ConnectTimeout: cfg.ConnectTimeout,
			FallbackURL:    cfg.FallbackURL,
			OnStateChange: func(from, to session.State) {
				log.Debug().Str("module", "caller").Str("from", from.String()).Str("to", to.String()).Msg("state")
			},
		},
	)

	log.Info().Str("module", "caller").Str("backend", cfg.BackendURL).Msg(help)
	if cfg.AutoStart {
		go start(ctx, ctrl)
	}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || !run(ctx, ctrl, speaker, line) {
				break loop
			}
		}
	}

	ctrl.Dispose()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer closeCancel()
	if err := speaker.Close(closeCtx); err != nil {
		log.Warn().Err(err).Str("module", "caller").Msg("speaker did not stop in time")
	}
	log.Info().Str("module", "caller").Msg("bye")
}

// run executes one command line and reports whether to keep going.
func run(ctx context.Context, ctrl *session.Controller, speaker *audio.Speaker, line string) bool {
	switch line {
	case "":
	case "start":
		go start(ctx, ctrl)
	case "cancel":
		ctrl.Cancel()
	case "mute":
		if err := ctrl.ToggleMute(); errors.Is(err, session.ErrNoMicrophone) {
			log.Warn().Str("module", "caller").Msg("not in a call")
		}
	case "end":
		if err := ctrl.End(); errors.Is(err, session.ErrNotConnected) {
			log.Warn().Str("module", "caller").Msg("not in a call")
		}
	case "status":
		track, packets := speaker.Playing()
		log.Info().
			Str("module", "caller").
			Str("state", ctrl.State().String()).
			Str("identity", string(ctrl.Identity())).
			Bool("muted", ctrl.Muted()).
			Strs("participants", ctrl.Participants()).
			Str("agent_track", track).
			Uint64("agent_packets", packets).
			Msg("status")
	case "log":
		for _, e := range ctrl.Logs() {
			fmt.Printf("[%s] %-7s %s\n", e.Time.Format(time.TimeOnly), e.Level, e.Message)
		}
	case "quit", "exit":
		return false
	default:
		log.Warn().Str("module", "caller").Str("input", line).Msg(help)
	}
	return true
}

func start(ctx context.Context, ctrl *session.Controller) {
	if err := ctrl.Start(ctx); errors.Is(err, session.ErrCallInProgress) {
		log.Warn().Str("module", "caller").Msg("call already in progress")
	}
}

func micSource(path string) livekit.SourceFactory {
	if path == "" {
		return livekit.Silence
	}
	return func() (audio.Source, error) {
		src, err := audio.OpenOggFile(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = backend.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
