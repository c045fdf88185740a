// Package audio feeds the published microphone and drains remote audio.
// Audio is already Opus encoded; nothing here decodes or encodes it.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog/log"
)

const (
	FrameDuration = 20 * time.Millisecond
	opusClockRate = 48000
)

// opusSilence is a single 20ms Opus frame of digital silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Source produces Opus samples for the local microphone track.
type Source interface {
	NextSample() (media.Sample, error)
	Close() error
}

// SilenceSource is an endless stream of silent frames.
type SilenceSource struct{}

func (SilenceSource) NextSample() (media.Sample, error) {
	return media.Sample{Data: opusSilence, Duration: FrameDuration}, nil
}

func (SilenceSource) Close() error { return nil }

// OggFileSource plays an Ogg/Opus file, rewinding at the end.
type OggFileSource struct {
	f           *os.File
	ogg         *oggreader.OggReader
	lastGranule uint64
}

func OpenOggFile(path string) (*OggFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &OggFileSource{f: f}
	if err := s.rewind(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *OggFileSource) rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	ogg, _, err := oggreader.NewWith(s.f)
	if err != nil {
		return fmt.Errorf("open ogg %s: %w", s.f.Name(), err)
	}
	s.ogg = ogg
	s.lastGranule = 0
	return nil
}

func (s *OggFileSource) NextSample() (media.Sample, error) {
	for rewound := false; ; {
		page, header, err := s.ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if rewound {
				return media.Sample{}, fmt.Errorf("ogg %s: no audio pages", s.f.Name())
			}
			if err := s.rewind(); err != nil {
				return media.Sample{}, err
			}
			rewound = true
			continue
		}
		if err != nil {
			return media.Sample{}, err
		}

		// Header pages carry no granule advance.
		if header.GranulePosition <= s.lastGranule {
			continue
		}
		samples := header.GranulePosition - s.lastGranule
		s.lastGranule = header.GranulePosition
		return media.Sample{
			Data:     page,
			Duration: time.Duration(samples) * time.Second / opusClockRate,
		}, nil
	}
}

func (s *OggFileSource) Close() error { return s.f.Close() }

// Pump writes samples from src at real-time pace until ctx is done or
// either side fails.
func Pump(ctx context.Context, src Source, write func(media.Sample) error) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		sample, err := src.NextSample()
		if err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
		if err := write(sample); err != nil {
			log.Debug().Err(err).Str("module", "adapters.audio").Msg("write sample")
			return fmt.Errorf("write sample: %w", err)
		}

		d := sample.Duration
		if d <= 0 {
			d = FrameDuration
		}
		timer.Reset(d)
	}
}
