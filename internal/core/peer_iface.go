package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// PeerConnection owns one negotiation object for a single call.
type PeerConnection interface {
	// CreateOffer sets and returns the local offer.
	CreateOffer(ctx context.Context) (string, error)
	// CreateAnswer applies the remote offer, then sets and returns the local answer.
	CreateAnswer(ctx context.Context, offer string) (string, error)
	// SetRemoteDescription applies the remote answer.
	SetRemoteDescription(answer string) error
	// AddICECandidate applies a remote candidate, or queues it until a
	// remote description exists.
	AddICECandidate(webrtc.ICECandidateInit) error

	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnRemoteStream fires once, when the first remote track arrives.
	OnRemoteStream(func(RemoteStream))
	OnConnectionStateChange(func(webrtc.PeerConnectionState))

	// Close detaches every handler, then closes the connection.
	Close()
}

// PeerFactory creates a fresh PeerConnection carrying the tracks of local.
type PeerFactory interface {
	NewPeer(callID string, local LocalStream) (PeerConnection, error)
}
