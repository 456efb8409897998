package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType is the discriminator of a signaling envelope.
type MessageType string

const (
	MsgCallRequest   MessageType = "call-request"
	MsgCallAccept    MessageType = "call-accept"
	MsgCallReject    MessageType = "call-reject"
	MsgEndCall       MessageType = "end-call"
	MsgOffer         MessageType = "offer"
	MsgAnswer        MessageType = "answer"
	MsgICECandidate  MessageType = "ice-candidate"
	MsgIdentify      MessageType = "identify"
	MsgIdentifyAdmin MessageType = "identify-admin"
	MsgError         MessageType = "error"
	MsgPing          MessageType = "ping"
	MsgPong          MessageType = "pong"
	MsgPresence      MessageType = "presence"
)

// AdminsTarget addresses every connection that identified as admin.
const AdminsTarget UserID = "admins"

// Routed reports whether the relay forwards this type to Message.To.
func (t MessageType) Routed() bool {
	switch t {
	case MsgCallRequest, MsgCallAccept, MsgCallReject, MsgEndCall,
		MsgOffer, MsgAnswer, MsgICECandidate:
		return true
	}
	return false
}

// Message is the transport-agnostic signaling envelope.
type Message struct {
	Type    MessageType     `json:"type"`
	From    UserID          `json:"fromId,omitempty"`
	To      UserID          `json:"toId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CallRequestPayload struct {
	FromName string `json:"fromName"`
}

type SDPPayload struct {
	SDP string `json:"sdp"`
}

// CandidatePayload mirrors RTCIceCandidateInit as browsers serialize it.
type CandidatePayload struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

type IdentifyPayload struct {
	Name string `json:"name,omitempty"`
}

type RejectPayload struct {
	Reason string `json:"reason,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type PresencePayload struct {
	UserID UserID `json:"userId"`
	Online bool   `json:"online"`
}

// NewMessage builds an envelope; a nil payload is omitted.
func NewMessage(t MessageType, from, to UserID, payload any) (Message, error) {
	m := Message{Type: t, From: from, To: to}
	if payload == nil {
		return m, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	m.Payload = raw
	return m, nil
}

// DecodePayload unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// ParseMessage decodes one envelope from the wire.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("bad envelope: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("bad envelope: missing type")
	}
	return m, nil
}
