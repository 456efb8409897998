package domain

import "errors"

// Media acquisition.
var (
	ErrPermissionDenied  = errors.New("media permission denied")
	ErrDeviceUnavailable = errors.New("media device unavailable")
	ErrAcquireInFlight   = errors.New("media acquisition already in progress")
)

// Negotiation and transport.
var (
	ErrNegotiationFailed    = errors.New("negotiation failed")
	ErrChannelDisconnected  = errors.New("signaling channel disconnected")
	ErrPeerConnectionFailed = errors.New("peer connection failed")
	ErrPeerConnectionClosed = errors.New("peer connection closed")
)

// Call lifecycle.
var (
	ErrCallInProgress = errors.New("call already in progress")
	ErrNoIncomingCall = errors.New("no incoming call")
	ErrNoOffer        = errors.New("remote offer not received yet")
	ErrCallEnded      = errors.New("call ended")
	ErrCallSelf       = errors.New("cannot call yourself")
)
