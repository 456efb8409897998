package media

import (
	"context"
	"sync"

	"github.com/dkeye/carecall/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var _ core.LocalStream = (*Stream)(nil)

// Stream is a captured local stream made of gated tracks.
type Stream struct {
	id     string
	tracks []*gatedTrack
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// onStop frees the capture devices.
	onStop   func()
	stopOnce sync.Once
}

func newStream(id string, tracks []*gatedTrack, onStop func()) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{id: id, tracks: tracks, ctx: ctx, cancel: cancel, onStop: onStop}
	for _, t := range tracks {
		logger := log.With().
			Str("module", "media").
			Str("stream", id).
			Str("kind", t.kind.String()).
			Logger()
		s.wg.Add(1)
		go func(t *gatedTrack) {
			defer s.wg.Done()
			t.pump(ctx, logger)
		}(t)
	}
	return s
}

func (s *Stream) ID() string { return s.id }

func (s *Stream) Tracks() []webrtc.TrackLocal {
	out := make([]webrtc.TrackLocal, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t.local)
	}
	return out
}

func (s *Stream) SetAudioEnabled(on bool) { s.setEnabled(webrtc.RTPCodecTypeAudio, on) }
func (s *Stream) SetVideoEnabled(on bool) { s.setEnabled(webrtc.RTPCodecTypeVideo, on) }

func (s *Stream) setEnabled(kind webrtc.RTPCodecType, on bool) {
	for _, t := range s.tracks {
		if t.kind == kind {
			t.setEnabled(on)
		}
	}
}

// Stop ends every pump and frees the devices. Safe to call repeatedly.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		for _, t := range s.tracks {
			if err := t.reader.Close(); err != nil {
				log.Debug().Err(err).Str("module", "media").Str("stream", s.id).Msg("reader close")
			}
		}
		s.wg.Wait()
		if s.onStop != nil {
			s.onStop()
		}
		log.Info().Str("module", "media").Str("stream", s.id).Msg("local stream stopped")
	})
}
