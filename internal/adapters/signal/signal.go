package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/carecall/internal/app/relay"
	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// Options tune a relay connection.
type Options struct {
	ReadLimit       int64
	PingPeriod      time.Duration
	IdentifyTimeout time.Duration
	SendQueue       int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:       64 * 1024,
		PingPeriod:      30 * time.Second,
		IdentifyTimeout: 10 * time.Second,
		SendQueue:       32,
	}
}

func (o Options) pongWait() time.Duration { return o.PingPeriod * 2 }

type SignalWSController struct {
	Board   *relay.Switchboard
	Limiter *RateLimiter
	opts    Options
}

func NewSignalWSController(board *relay.Switchboard, limiter *RateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Board:   board,
		Limiter: limiter,
		opts:    opts,
	}
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

// WsSignalConn is one websocket with a bounded send queue drained by writePump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, queue int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, queue)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return domain.ErrChannelDisconnected
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	log.Info().
		Str("module", "signal").
		Str("client_token", c.GetString("client_token")).
		Int64("first_seen", c.GetInt64("first_seen")).
		Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := newWsSignalConn(ws, ctl.opts.SendQueue)
	ctx, cancel := context.WithCancel(ctx)

	go writePump(ctx, conn, ctl.opts.PingPeriod)
	go ctl.readPump(ctx, cancel, conn)
}
