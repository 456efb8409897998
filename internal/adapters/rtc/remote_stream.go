package rtc

import (
	"context"
	"maps"
	"sync"

	"github.com/dkeye/carecall/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ core.RemoteStream = (*RemoteStream)(nil)

// rtpSource is the reading side of *webrtc.TrackRemote.
type rtpSource interface {
	ID() string
	Kind() webrtc.RTPCodecType
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// RemoteStream collects the remote tracks of one call and fans their
// packets out to sinks. Every track gets its own read loop, which also keeps
// pion's receive buffers drained when nobody listens.
type RemoteStream struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	tracks map[string]webrtc.RTPCodecType
	sinks  map[string]*outSink
}

func newRemoteStream(parent context.Context, id string) *RemoteStream {
	ctx, cancel := context.WithCancel(parent)
	return &RemoteStream{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		tracks: make(map[string]webrtc.RTPCodecType),
		sinks:  make(map[string]*outSink),
	}
}

func (s *RemoteStream) ID() string { return s.id }

func (s *RemoteStream) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Kinds returns the kind of every track received so far.
func (s *RemoteStream) Kinds() []webrtc.RTPCodecType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]webrtc.RTPCodecType, 0, len(s.tracks))
	for _, k := range s.tracks {
		out = append(out, k)
	}
	return out
}

// AddSink registers sink under id, replacing an older sink with the same id.
func (s *RemoteStream) AddSink(id string, sink core.RTPSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sinks[id]; ok {
		old.MarkDelete()
	}
	s.sinks[id] = newOutSink(sink)
}

// RemoveSink marks the sink for deletion; the read loop drops it.
func (s *RemoteStream) RemoveSink(id string) {
	s.mu.RLock()
	o, ok := s.sinks[id]
	s.mu.RUnlock()
	if ok {
		o.MarkDelete()
	}
}

// MuteSink pauses or resumes delivery to one sink.
func (s *RemoteStream) MuteSink(id string, muted bool) {
	s.mu.RLock()
	o, ok := s.sinks[id]
	s.mu.RUnlock()
	if !ok || o.State() == SinkStateDelete {
		return
	}
	if muted {
		o.MarkMuted()
	} else {
		o.MarkOk()
	}
}

// addTrack registers a remote track and starts its read loop.
func (s *RemoteStream) addTrack(src rtpSource) {
	s.mu.Lock()
	s.tracks[src.ID()] = src.Kind()
	s.mu.Unlock()

	logger := log.With().
		Str("module", "rtc.remote").
		Str("stream", s.id).
		Str("track_id", src.ID()).
		Str("kind", src.Kind().String()).
		Logger()
	logger.Info().Msg("remote track added")
	go s.loop(src, &logger)
}

// stop ends every read loop and drops all sinks.
func (s *RemoteStream) stop() {
	s.cancel()
	s.markAllDelete()
}

// loop reads RTP packets from one track and forwards them to all sinks.
func (s *RemoteStream) loop(src rtpSource, logger *zerolog.Logger) {
	for {
		select {
		case <-s.ctx.Done():
			logger.Debug().Msg("remote stream ctx done")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			if s.ctx.Err() == nil {
				logger.Info().Err(err).Msg("remote track read ended")
			}
			return
		}
		s.forward(pkt, logger)
	}
}

func (s *RemoteStream) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	s.mu.RLock()
	snapshot := make(map[string]*outSink, len(s.sinks))
	maps.Copy(snapshot, s.sinks)
	s.mu.RUnlock()

	var dirty []string
	for id, o := range snapshot {
		switch o.State() {
		case SinkStateDelete:
			dirty = append(dirty, id)
		case SinkStateMuted:
		case SinkStateOk:
			if err := o.sink.WriteRTP(pkt); err != nil {
				logger.Warn().Err(err).Str("sink", id).Msg("sink write failed, dropping sink")
				o.MarkDelete()
				dirty = append(dirty, id)
			}
		}
	}

	// Cleanup is done outside the read lock.
	if len(dirty) > 0 {
		s.cleanupDeleted(dirty)
	}
}

func (s *RemoteStream) cleanupDeleted(dirty []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range dirty {
		if o, ok := s.sinks[id]; ok && o.State() == SinkStateDelete {
			delete(s.sinks, id)
		}
	}
}

func (s *RemoteStream) markAllDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.sinks {
		o.MarkDelete()
	}
}

func (s *RemoteStream) sinkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}
