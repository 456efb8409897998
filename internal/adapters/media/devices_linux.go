//go:build linux

package media

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var _ core.MediaSource = (*DeviceSource)(nil)

const rtpMTU = 1200

// DeviceSource captures the local camera and microphone (V4L2 and malgo).
type DeviceSource struct {
	cfg      Config
	selector *mediadevices.CodecSelector
}

func NewDeviceSource(cfg Config) (*DeviceSource, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	vpxParams.BitRate = cfg.VideoBitRate

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}

	return &DeviceSource{
		cfg: cfg,
		selector: mediadevices.NewCodecSelector(
			mediadevices.WithVideoEncoders(&vpxParams),
			mediadevices.WithAudioEncoders(&opusParams),
		),
	}, nil
}

type attempt struct {
	video bool
	audio bool
	label string
}

// GetUserMedia opens camera and microphone. When both cannot be opened
// together it falls back to video only, then audio only.
func (s *DeviceSource) GetUserMedia(ctx context.Context) (core.LocalStream, error) {
	devices := mediadevices.EnumerateDevices()
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no media devices found", domain.ErrDeviceUnavailable)
	}
	for _, d := range devices {
		log.Debug().Str("module", "media").Str("kind", fmt.Sprint(d.Kind)).Str("label", d.Label).Msg("media device")
	}

	var lastErr error
	for _, a := range []attempt{
		{true, true, "video+audio"},
		{true, false, "video-only"},
		{false, true, "audio-only"},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stream, err := s.capture(a)
		if err != nil {
			log.Warn().Err(err).Str("module", "media").Str("attempt", a.label).Msg("GetUserMedia failed")
			lastErr = err
			continue
		}
		log.Info().Str("module", "media").Str("attempt", a.label).Int("tracks", len(stream.tracks)).Msg("local media captured")
		return stream, nil
	}
	return nil, mapDeviceError(lastErr)
}

func (s *DeviceSource) capture(a attempt) (*Stream, error) {
	constraints := mediadevices.MediaStreamConstraints{Codec: s.selector}
	if a.video {
		constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
			// MJPEG nodes on some cameras yield frames the VP8 encoder rejects.
			c.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatYUYV,
				frame.FormatI420,
				frame.FormatI444,
				frame.FormatRGBA,
			}
			c.Width = prop.IntRanged{Max: s.cfg.MaxWidth}
			c.Height = prop.IntRanged{Max: s.cfg.MaxHeight}
		}
	}
	if a.audio {
		constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
	}

	ms, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return nil, err
	}

	streamID := "carecall-" + uuid.NewString()
	captured := ms.GetTracks()
	closeAll := func() {
		for _, t := range captured {
			_ = t.Close()
		}
	}

	gated := make([]*gatedTrack, 0, len(captured))
	for _, t := range captured {
		g, err := s.gate(streamID, t)
		if err != nil {
			for _, made := range gated {
				_ = made.reader.Close()
			}
			closeAll()
			return nil, err
		}
		t.OnEnded(func(err error) {
			if err != nil {
				log.Warn().Err(err).Str("module", "media").Str("stream", streamID).Msg("local track ended")
			}
		})
		gated = append(gated, g)
	}
	return newStream(streamID, gated, closeAll), nil
}

// gate packetizes a captured track and wires it to a static RTP track.
func (s *DeviceSource) gate(streamID string, t mediadevices.Track) (*gatedTrack, error) {
	var capability webrtc.RTPCodecCapability
	switch t.Kind() {
	case webrtc.RTPCodecTypeVideo:
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	case webrtc.RTPCodecTypeAudio:
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	default:
		return nil, fmt.Errorf("unsupported track kind %s", t.Kind())
	}

	local, err := webrtc.NewTrackLocalStaticRTP(capability, t.Kind().String(), streamID)
	if err != nil {
		return nil, err
	}
	reader, err := t.NewRTPReader(capability.MimeType, uint32(uuid.New().ID()), rtpMTU)
	if err != nil {
		return nil, fmt.Errorf("%s encoder: %w", t.Kind(), err)
	}
	return newGatedTrack(t.Kind(), local, reader), nil
}

func mapDeviceError(err error) error {
	switch {
	case err == nil:
		return domain.ErrDeviceUnavailable
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
}
