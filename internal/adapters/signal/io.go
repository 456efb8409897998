package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writePump drains the send queue and pings the peer every pingPeriod.
func writePump(ctx context.Context, c *WsSignalConn, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	defer cancel()

	sess, err := ctl.identify(c)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("identify failed")
		ctl.closeWithError(c, err.Error())
		return
	}
	uid := string(sess.Meta().User.ID)
	ctl.Board.Join(sess, cancel)
	defer func() {
		log.Info().Str("module", "signal").Str("user_id", uid).Msg("readPump closing")
		if ctl.Board.Leave(sess) && ctl.Limiter != nil {
			ctl.Limiter.Forget(sess.Meta().User.ID)
		}
		c.Close()
	}()

	pongWait := ctl.opts.pongWait()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("user_id", uid).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("user_id", uid).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(sess, data)
		}
	}
}

var errNotIdentified = errors.New("first message must be identify")

// identify waits for the identify message that opens every connection.
func (ctl *SignalWSController) identify(c *WsSignalConn) (core.MemberSession, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.IdentifyTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	msg, err := domain.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	if msg.Type != domain.MsgIdentify && msg.Type != domain.MsgIdentifyAdmin {
		return nil, errNotIdentified
	}
	var p domain.IdentifyPayload
	if err := msg.DecodePayload(&p); err != nil {
		return nil, err
	}
	if msg.From == domain.AdminsTarget {
		return nil, errors.New("reserved user id")
	}
	user, err := domain.NewUser(string(msg.From), p.Name)
	if err != nil {
		return nil, err
	}

	admin := msg.Type == domain.MsgIdentifyAdmin
	log.Info().Str("module", "signal").Str("user_id", string(user.ID)).Str("name", user.Name).Bool("admin", admin).Msg("identified")
	return core.NewMemberSession(domain.NewMember(user, admin), c), nil
}

func (ctl *SignalWSController) handleSignal(sess core.MemberSession, data []byte) {
	msg, err := domain.ParseMessage(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.Board.ReplyError(sess, "bad_payload")
		return
	}

	switch {
	case msg.Type == domain.MsgPing:
		ctl.handlePing(sess)
	case msg.Type == domain.MsgPong:
	case msg.Type == domain.MsgIdentify, msg.Type == domain.MsgIdentifyAdmin:
		ctl.Board.ReplyError(sess, "already identified")
	case msg.Type == domain.MsgCallRequest:
		if ctl.Limiter != nil && !ctl.Limiter.Allow(sess.Meta().User.ID) {
			log.Warn().Str("module", "signal").Str("user_id", string(sess.Meta().User.ID)).Msg("call-request rate limited")
			ctl.Board.ReplyError(sess, "rate_limited")
			return
		}
		ctl.Board.Route(sess, msg)
	case msg.Type.Routed():
		ctl.Board.Route(sess, msg)
	default:
		log.Warn().Str("module", "signal").Str("type", string(msg.Type)).Msg("unknown signal")
		ctl.Board.ReplyError(sess, "unknown_type")
	}
}

// closeWithError reports a handshake failure before the socket goes away.
func (ctl *SignalWSController) closeWithError(c *WsSignalConn, text string) {
	msg, err := domain.NewMessage(domain.MsgError, "", "", domain.ErrorPayload{Error: text})
	if err == nil {
		if data, err := encode(msg); err == nil {
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.TextMessage, data)
		}
	}
	c.Close()
}
