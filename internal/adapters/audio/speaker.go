package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/core"
)

// Speaker is the persistent remote-audio output. It drains the attached
// track and, with a record directory, writes it to <dir>/<track-id>.ogg.
type Speaker struct {
	recordDir string

	mu      sync.Mutex
	current *playback
	wg      sync.WaitGroup
}

type playback struct {
	trackID string
	stop    chan struct{}
	packets atomic.Uint64
}

func NewSpeaker(recordDir string) *Speaker {
	return &Speaker{recordDir: recordDir}
}

// Attach starts playing track, replacing whatever was attached.
func (s *Speaker) Attach(track core.RemoteAudioTrack) error {
	var rec *oggwriter.OggWriter
	if s.recordDir != "" {
		w, err := s.openRecording(track)
		if err != nil {
			return err
		}
		rec = w
	}

	pb := &playback{trackID: track.ID(), stop: make(chan struct{})}

	s.mu.Lock()
	if s.current != nil {
		close(s.current.stop)
	}
	s.current = pb
	s.wg.Add(1)
	s.mu.Unlock()

	logger := log.With().Str("module", "adapters.audio").Str("track_id", pb.trackID).Logger()
	go s.loop(track, pb, rec, &logger)
	return nil
}

// Detach stops trackID if it is the one playing.
func (s *Speaker) Detach(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.trackID != trackID {
		return
	}
	close(s.current.stop)
	s.current = nil
}

// Playing reports the attached track and how many packets it delivered.
func (s *Speaker) Playing() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", 0
	}
	return s.current.trackID, s.current.packets.Load()
}

// Close detaches the current track and waits for read loops to finish,
// giving up when ctx is done.
func (s *Speaker) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.current != nil {
		close(s.current.stop)
		s.current = nil
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Speaker) openRecording(track core.RemoteAudioTrack) (*oggwriter.OggWriter, error) {
	codec := track.Codec()
	if !strings.EqualFold(codec.MimeType, webrtc.MimeTypeOpus) {
		log.Warn().Str("module", "adapters.audio").Str("mime", codec.MimeType).Msg("not recording non-opus track")
		return nil, nil
	}
	if err := os.MkdirAll(s.recordDir, 0o755); err != nil {
		return nil, err
	}

	rate, channels := codec.ClockRate, codec.Channels
	if rate == 0 {
		rate = opusClockRate
	}
	if channels == 0 {
		channels = 2
	}
	return oggwriter.New(filepath.Join(s.recordDir, track.ID()+".ogg"), rate, channels)
}

// loop reads RTP until the track ends or it is detached.
func (s *Speaker) loop(track core.RemoteAudioTrack, pb *playback, rec *oggwriter.OggWriter, logger *zerolog.Logger) {
	defer s.wg.Done()
	defer func() {
		if rec != nil {
			if err := rec.Close(); err != nil {
				logger.Warn().Err(err).Msg("close recording")
			}
		}
	}()

	logger.Info().Msg("speaker attached")
	for {
		select {
		case <-pb.stop:
			logger.Info().Uint64("packets", pb.packets.Load()).Msg("speaker detached")
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Uint64("packets", pb.packets.Load()).Msg("remote track ended")
			return
		}
		pb.packets.Add(1)

		if rec != nil {
			if err := rec.WriteRTP(pkt); err != nil {
				logger.Error().Err(err).Msg("recording write failed, recording stopped")
				_ = rec.Close()
				rec = nil
			}
		}
	}
}
