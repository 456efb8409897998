package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/rs/zerolog/log"
)

// MediaManager owns the local camera/microphone stream. At most one stream is
// held and at most one device request is in flight.
type MediaManager struct {
	src core.MediaSource

	mu       sync.Mutex
	stream   core.LocalStream
	inFlight bool
	micOn    bool
	camOn    bool
}

func NewMediaManager(src core.MediaSource) *MediaManager {
	return &MediaManager{src: src, micOn: true, camOn: true}
}

// Acquire releases the held stream, then requests camera and microphone.
func (m *MediaManager) Acquire(ctx context.Context) (core.LocalStream, error) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return nil, domain.ErrAcquireInFlight
	}
	m.inFlight = true
	old := m.stream
	m.stream = nil
	m.micOn, m.camOn = true, true
	m.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	stream, err := m.src.GetUserMedia(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
	if err != nil {
		err = mapAcquireError(err)
		log.Warn().Err(err).Str("module", "call.media").Msg("acquire failed")
		return nil, err
	}
	m.stream = stream
	log.Info().Str("module", "call.media").Str("stream", stream.ID()).Msg("local media acquired")
	return stream, nil
}

func mapAcquireError(err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrDeviceUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
}

// Release stops every track of the held stream. No-op when nothing is held.
func (m *MediaManager) Release() {
	m.mu.Lock()
	s := m.stream
	m.stream = nil
	m.micOn, m.camOn = true, true
	m.mu.Unlock()

	if s != nil {
		s.Stop()
		log.Info().Str("module", "call.media").Str("stream", s.ID()).Msg("local media released")
	}
}

func (m *MediaManager) Stream() core.LocalStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream
}

func (m *MediaManager) SetMicEnabled(on bool) {
	m.mu.Lock()
	m.micOn = on
	s := m.stream
	m.mu.Unlock()
	if s != nil {
		s.SetAudioEnabled(on)
	}
}

func (m *MediaManager) SetCameraEnabled(on bool) {
	m.mu.Lock()
	m.camOn = on
	s := m.stream
	m.mu.Unlock()
	if s != nil {
		s.SetVideoEnabled(on)
	}
}

// ToggleMic flips the microphone gate and returns the new value.
func (m *MediaManager) ToggleMic() bool {
	on := !m.MicEnabled()
	m.SetMicEnabled(on)
	return on
}

// ToggleCamera flips the camera gate and returns the new value.
func (m *MediaManager) ToggleCamera() bool {
	on := !m.CameraEnabled()
	m.SetCameraEnabled(on)
	return on
}

func (m *MediaManager) MicEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micOn
}

func (m *MediaManager) CameraEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camOn
}
