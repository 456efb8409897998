package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var _ core.SignalChannel = (*Client)(nil)

// ClientOptions configure the endpoint side of the signaling channel.
type ClientOptions struct {
	URL        string
	Self       *domain.User
	Admin      bool
	SendQueue  int
	PingPeriod time.Duration
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// OnPresence receives presence events; only admins get them.
	OnPresence func(domain.PresencePayload)
}

// Client is the Signaling Channel of a call endpoint: a websocket to the
// relay that identifies itself on every connect and reconnects on failure.
// Inbound events are delivered to the bound handler from one goroutine.
type Client struct {
	opts   ClientOptions
	dialer *websocket.Dialer

	mu      sync.RWMutex
	handler core.SignalHandler
	conn    *WsSignalConn
}

func NewClient(opts ClientOptions) *Client {
	if opts.SendQueue <= 0 {
		opts.SendQueue = 32
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 30 * time.Second
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 30 * time.Second
	}
	return &Client{
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Bind sets the handler for inbound events. Call it before Run.
func (c *Client) Bind(h core.SignalHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Run keeps the channel connected until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.opts.MinBackoff
	connectedOnce := false
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("module", "signal.client").Dur("retry_in", backoff).Msg("connect failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.opts.MaxBackoff)
			continue
		}
		backoff = c.opts.MinBackoff

		c.setConn(conn)
		log.Info().Str("module", "signal.client").Str("url", c.opts.URL).Msg("connected")
		if connectedOnce {
			if h := c.currentHandler(); h != nil {
				h.OnReconnect()
			}
		}
		connectedOnce = true

		c.serve(ctx, conn)
		c.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Str("module", "signal.client").Msg("disconnected")
		if h := c.currentHandler(); h != nil {
			h.OnDisconnect()
		}
	}
}

// connect dials the relay and identifies before anything else is sent.
func (c *Client) connect(ctx context.Context) (*WsSignalConn, error) {
	ws, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, err
	}

	t := domain.MsgIdentify
	if c.opts.Admin {
		t = domain.MsgIdentifyAdmin
	}
	msg, err := domain.NewMessage(t, c.opts.Self.ID, "", domain.IdentifyPayload{Name: c.opts.Self.Name})
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	data, err := encode(msg)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("identify: %w", err)
	}
	return newWsSignalConn(ws, c.opts.SendQueue), nil
}

// serve pumps one connection until it fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn *WsSignalConn) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go writePump(sctx, conn, c.opts.PingPeriod)

	pongWait := c.opts.PingPeriod * 2
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Str("module", "signal.client").Msg("read error")
			}
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		msg, err := domain.ParseMessage(data)
		if err != nil {
			log.Error().Err(err).Str("module", "signal.client").Msg("bad json")
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg domain.Message) {
	h := c.currentHandler()
	logger := log.With().Str("module", "signal.client").Str("type", string(msg.Type)).Str("from", string(msg.From)).Logger()

	switch msg.Type {
	case domain.MsgError:
		var p domain.ErrorPayload
		_ = msg.DecodePayload(&p)
		logger.Warn().Str("error", p.Error).Msg("relay error")
		return
	case domain.MsgPong:
		return
	case domain.MsgPing:
		if err := c.send(domain.Message{Type: domain.MsgPong}); err != nil {
			logger.Debug().Err(err).Msg("pong")
		}
		return
	case domain.MsgPresence:
		var p domain.PresencePayload
		if err := msg.DecodePayload(&p); err != nil {
			logger.Error().Err(err).Msg("bad presence payload")
			return
		}
		if c.opts.OnPresence != nil {
			c.opts.OnPresence(p)
		}
		return
	}

	if h == nil {
		logger.Debug().Msg("no handler bound, dropping")
		return
	}

	switch msg.Type {
	case domain.MsgCallRequest:
		var p domain.CallRequestPayload
		if err := msg.DecodePayload(&p); err != nil {
			logger.Error().Err(err).Msg("bad call-request payload")
			return
		}
		h.OnIncomingCall(msg.From, p.FromName)
	case domain.MsgCallAccept:
		h.OnCallAccepted(msg.From)
	case domain.MsgCallReject:
		var p domain.RejectPayload
		_ = msg.DecodePayload(&p)
		logger.Info().Str("reason", p.Reason).Msg("call rejected")
		h.OnCallRejected(msg.From)
	case domain.MsgEndCall:
		h.OnCallEnded(msg.From)
	case domain.MsgOffer, domain.MsgAnswer:
		var p domain.SDPPayload
		if err := msg.DecodePayload(&p); err != nil {
			logger.Error().Err(err).Msg("bad sdp payload")
			return
		}
		if msg.Type == domain.MsgOffer {
			h.OnOffer(msg.From, p.SDP)
		} else {
			h.OnAnswer(msg.From, p.SDP)
		}
	case domain.MsgICECandidate:
		var p domain.CandidatePayload
		if err := msg.DecodePayload(&p); err != nil {
			logger.Error().Err(err).Msg("bad candidate payload")
			return
		}
		h.OnICECandidate(msg.From, webrtc.ICECandidateInit{
			Candidate:        p.Candidate,
			SDPMid:           p.SDPMid,
			SDPMLineIndex:    p.SDPMLineIndex,
			UsernameFragment: p.UsernameFragment,
		})
	default:
		logger.Warn().Msg("unknown signal")
	}
}

func (c *Client) SendCallRequest(target, fromID domain.UserID, fromName string) error {
	return c.sendTo(domain.MsgCallRequest, target, fromID, domain.CallRequestPayload{FromName: fromName})
}

func (c *Client) SendCallAccept(target domain.UserID) error {
	return c.sendTo(domain.MsgCallAccept, target, c.opts.Self.ID, nil)
}

func (c *Client) SendCallReject(target domain.UserID) error {
	return c.sendTo(domain.MsgCallReject, target, c.opts.Self.ID, nil)
}

func (c *Client) SendEndCall(target domain.UserID) error {
	return c.sendTo(domain.MsgEndCall, target, c.opts.Self.ID, nil)
}

func (c *Client) SendOffer(target domain.UserID, sdp string) error {
	return c.sendTo(domain.MsgOffer, target, c.opts.Self.ID, domain.SDPPayload{SDP: sdp})
}

func (c *Client) SendAnswer(target domain.UserID, sdp string) error {
	return c.sendTo(domain.MsgAnswer, target, c.opts.Self.ID, domain.SDPPayload{SDP: sdp})
}

func (c *Client) SendICECandidate(target domain.UserID, cand webrtc.ICECandidateInit) error {
	return c.sendTo(domain.MsgICECandidate, target, c.opts.Self.ID, domain.CandidatePayload{
		Candidate:        cand.Candidate,
		SDPMid:           cand.SDPMid,
		SDPMLineIndex:    cand.SDPMLineIndex,
		UsernameFragment: cand.UsernameFragment,
	})
}

func (c *Client) sendTo(t domain.MessageType, target, from domain.UserID, payload any) error {
	msg, err := domain.NewMessage(t, from, target, payload)
	if err != nil {
		return err
	}
	return c.send(msg)
}

func (c *Client) send(msg domain.Message) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return domain.ErrChannelDisconnected
	}
	if err := conn.TrySend(data); err != nil {
		if errors.Is(err, core.ErrBackpressure) {
			return fmt.Errorf("send %s: %w", msg.Type, err)
		}
		return err
	}
	return nil
}

func (c *Client) setConn(conn *WsSignalConn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) currentHandler() core.SignalHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}
