package core

//go:generate mockgen -source=signal_iface.go -destination=mocks/mock_signal.go -package=mocks

import (
	"errors"

	"github.com/dkeye/carecall/internal/domain"
	"github.com/pion/webrtc/v4"
)

// ErrBackpressure is returned by TrySend when the send queue is full.
var ErrBackpressure = errors.New("backpressure")

// Frame is a raw encoded signaling message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// SignalChannel is the outbound half of the call signaling transport.
// Every method addresses the counterpart by user id.
type SignalChannel interface {
	SendCallRequest(target, fromID domain.UserID, fromName string) error
	SendCallAccept(target domain.UserID) error
	SendCallReject(target domain.UserID) error
	SendEndCall(target domain.UserID) error
	SendOffer(target domain.UserID, sdp string) error
	SendAnswer(target domain.UserID, sdp string) error
	SendICECandidate(target domain.UserID, candidate webrtc.ICECandidateInit) error
}

// SignalHandler consumes inbound signaling events. The channel delivers
// them one at a time, in arrival order.
type SignalHandler interface {
	OnIncomingCall(from domain.UserID, fromName string)
	OnCallAccepted(from domain.UserID)
	OnCallRejected(from domain.UserID)
	OnCallEnded(from domain.UserID)
	OnOffer(from domain.UserID, sdp string)
	OnAnswer(from domain.UserID, sdp string)
	OnICECandidate(from domain.UserID, candidate webrtc.ICECandidateInit)
	// OnDisconnect fires when the transport drops; OnReconnect after it is
	// re-established and the endpoint identified itself again.
	OnDisconnect()
	OnReconnect()
}
