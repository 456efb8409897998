package core

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// LocalStream is a captured camera/microphone stream.
type LocalStream interface {
	ID() string
	// Tracks returns the outbound tracks to attach to a peer connection.
	Tracks() []webrtc.TrackLocal
	// SetAudioEnabled and SetVideoEnabled gate the tracks in place; nothing
	// is renegotiated.
	SetAudioEnabled(bool)
	SetVideoEnabled(bool)
	// Stop ends every track and frees the devices.
	Stop()
}

// MediaSource opens the platform devices.
type MediaSource interface {
	GetUserMedia(ctx context.Context) (LocalStream, error)
}

// RTPSink receives packets of a remote track.
type RTPSink interface {
	WriteRTP(*rtp.Packet) error
}

// RemoteStream collects the inbound tracks of one peer connection.
type RemoteStream interface {
	ID() string
	TrackCount() int
	AddSink(id string, sink RTPSink)
	RemoveSink(id string)
}
