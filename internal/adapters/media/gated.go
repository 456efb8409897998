package media

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// rtpReader is the packetized output of a captured track
// (mediadevices.RTPReadCloser).
type rtpReader interface {
	Read() ([]*rtp.Packet, func(), error)
	Close() error
}

type packetWriter interface {
	WriteRTP(*rtp.Packet) error
}

// gatedTrack pumps packets from a capture reader into an outbound track.
// While disabled packets are read and dropped, so the remote side sees a
// frozen picture or silence and nothing is renegotiated.
type gatedTrack struct {
	kind   webrtc.RTPCodecType
	local  webrtc.TrackLocal
	out    packetWriter
	reader rtpReader

	enabled atomic.Bool
	sent    atomic.Uint64
	dropped atomic.Uint64
}

func newGatedTrack(kind webrtc.RTPCodecType, local *webrtc.TrackLocalStaticRTP, reader rtpReader) *gatedTrack {
	g := &gatedTrack{kind: kind, local: local, out: local, reader: reader}
	g.enabled.Store(true)
	return g
}

func (g *gatedTrack) setEnabled(on bool) { g.enabled.Store(on) }
func (g *gatedTrack) isEnabled() bool    { return g.enabled.Load() }

// pump runs until ctx ends or the reader fails.
func (g *gatedTrack) pump(ctx context.Context, logger zerolog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		pkts, release, err := g.reader.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("capture read failed")
			}
			return
		}
		g.forward(pkts, logger)
		if release != nil {
			release()
		}
	}
}

func (g *gatedTrack) forward(pkts []*rtp.Packet, logger zerolog.Logger) {
	on := g.enabled.Load()
	for _, pkt := range pkts {
		if pkt == nil {
			continue
		}
		if !on {
			g.dropped.Add(1)
			continue
		}
		if err := g.out.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			logger.Debug().Err(err).Msg("WriteRTP error")
			continue
		}
		g.sent.Add(1)
	}
}
