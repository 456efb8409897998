package domain

import "fmt"

// CallState is the lifecycle state of the single call session of an endpoint.
type CallState int

const (
	CallIdle CallState = iota
	CallOutgoing
	CallIncoming
	CallActive
	CallEnded
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "idle"
	case CallOutgoing:
		return "outgoing"
	case CallIncoming:
		return "incoming"
	case CallActive:
		return "active"
	case CallEnded:
		return "ended"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Live reports whether the state holds a remote party.
func (s CallState) Live() bool {
	return s == CallOutgoing || s == CallIncoming || s == CallActive
}

// EndReason records why a session was torn down.
type EndReason int

const (
	EndLocalHangup EndReason = iota
	EndRemoteHangup
	EndRejected
	EndRemoteRejected
	EndSetupTimeout
	EndConnectionFailed
	EndChannelLost
	EndNegotiationFailed
	EndMediaFailed
)

func (r EndReason) String() string {
	switch r {
	case EndLocalHangup:
		return "local_hangup"
	case EndRemoteHangup:
		return "remote_hangup"
	case EndRejected:
		return "rejected"
	case EndRemoteRejected:
		return "remote_rejected"
	case EndSetupTimeout:
		return "setup_timeout"
	case EndConnectionFailed:
		return "connection_failed"
	case EndChannelLost:
		return "channel_lost"
	case EndNegotiationFailed:
		return "negotiation_failed"
	case EndMediaFailed:
		return "media_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// LocallyInitiated reports whether the remote side has to be told about the teardown.
func (r EndReason) LocallyInitiated() bool {
	switch r {
	case EndLocalHangup, EndConnectionFailed, EndNegotiationFailed, EndMediaFailed:
		return true
	}
	return false
}
