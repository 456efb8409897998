package relay

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/rs/zerolog/log"
)

// RejectOffline is the call-reject reason sent for a target that is not connected.
const RejectOffline = "offline"

// Switchboard routes signaling messages between identified connections.
type Switchboard struct {
	Registry *Registry
	Policy   Policy
}

func NewSwitchboard(reg *Registry, policy Policy) *Switchboard {
	return &Switchboard{Registry: reg, Policy: policy}
}

// Join binds an identified connection and tells the admins.
func (s *Switchboard) Join(sess core.MemberSession, cancel func()) {
	s.Registry.Bind(sess, cancel)
	s.presence(sess.Meta().User.ID, true)
}

// Leave unbinds a connection unless a newer one replaced it, and reports
// whether the user went offline.
func (s *Switchboard) Leave(sess core.MemberSession) bool {
	id := sess.Meta().User.ID
	if !s.Registry.Unbind(id, sess) {
		return false
	}
	s.presence(id, false)
	return true
}

// Route forwards msg from the sender to msg.To. fromId is always rewritten to
// the sender's identity.
func (s *Switchboard) Route(from core.MemberSession, msg domain.Message) {
	fromID := from.Meta().User.ID
	msg.From = fromID

	if msg.To == domain.AdminsTarget {
		for _, admin := range s.Registry.Admins() {
			if admin == from {
				continue
			}
			s.deliver(admin, msg)
		}
		return
	}
	if msg.To == "" {
		s.ReplyError(from, "missing target")
		return
	}

	target, ok := s.Registry.GetSession(msg.To)
	if !ok {
		log.Debug().
			Str("module", "app.switchboard").
			Str("from", string(fromID)).
			Str("to", string(msg.To)).
			Str("type", string(msg.Type)).
			Msg("target offline")
		if msg.Type == domain.MsgCallRequest {
			reject, err := domain.NewMessage(domain.MsgCallReject, msg.To, fromID, domain.RejectPayload{Reason: RejectOffline})
			if err == nil {
				s.deliver(from, reject)
			}
		}
		return
	}
	s.deliver(target, msg)
}

// ReplyError sends an error message to sess.
func (s *Switchboard) ReplyError(sess core.MemberSession, text string) {
	msg, err := domain.NewMessage(domain.MsgError, "", sess.Meta().User.ID, domain.ErrorPayload{Error: text})
	if err != nil {
		return
	}
	s.deliver(sess, msg)
}

// Reply sends a server-originated message of type t to sess.
func (s *Switchboard) Reply(sess core.MemberSession, t domain.MessageType) {
	s.deliver(sess, domain.Message{Type: t, To: sess.Meta().User.ID})
}

func (s *Switchboard) presence(id domain.UserID, online bool) {
	for _, admin := range s.Registry.Admins() {
		if admin.Meta().User.ID == id {
			continue
		}
		msg, err := domain.NewMessage(domain.MsgPresence, "", admin.Meta().User.ID, domain.PresencePayload{UserID: id, Online: online})
		if err != nil {
			return
		}
		s.deliver(admin, msg)
	}
}

func (s *Switchboard) deliver(sess core.MemberSession, msg domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.switchboard").Msg("marshal message")
		return
	}
	err = sess.Signal().TrySend(data)
	if err == nil {
		return
	}

	id := sess.Meta().User.ID
	log.Warn().Err(err).Str("module", "app.switchboard").Str("to", string(id)).Str("type", string(msg.Type)).Msg("send failed")
	if !errors.Is(err, core.ErrBackpressure) || s.Policy == nil {
		return
	}
	switch s.Policy.OnBackPressure(sess) {
	case KickMember:
		s.Registry.Cancel(id)
	case DropFrame, NoAction:
	}
}
