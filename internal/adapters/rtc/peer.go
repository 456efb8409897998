package rtc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	_ core.PeerConnection = (*Peer)(nil)
	_ core.PeerFactory    = (*Factory)(nil)
)

// pion's own agent defaults, used when ICEConfig leaves a timeout unset.
const (
	defaultDisconnectedTimeout = 5 * time.Second
	defaultFailedTimeout       = 25 * time.Second
	defaultKeepAliveInterval   = 2 * time.Second
)

// Factory builds peer connections sharing one pion API.
type Factory struct {
	cfg ICEConfig
	api *webrtc.API
}

func NewFactory(cfg ICEConfig) (*Factory, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	opts := []func(*webrtc.API){
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	}
	if cfg.hasTimeouts() {
		se := webrtc.SettingEngine{}
		se.SetICETimeouts(
			orDefault(cfg.DisconnectedTimeout, defaultDisconnectedTimeout),
			orDefault(cfg.FailedTimeout, defaultFailedTimeout),
			orDefault(cfg.KeepAliveInterval, defaultKeepAliveInterval),
		)
		opts = append(opts, webrtc.WithSettingEngine(se))
	}

	return &Factory{cfg: cfg, api: webrtc.NewAPI(opts...)}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// NewPeer creates a peer connection carrying the tracks of local. Kinds that
// local does not provide get a recvonly transceiver so the remote media still
// arrives. local may be nil.
func (f *Factory) NewPeer(callID string, local core.LocalStream) (core.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.cfg.Configuration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{callID: callID, pc: pc, ctx: ctx, cancel: cancel}

	sent := map[webrtc.RTPCodecType]bool{}
	if local != nil {
		for _, track := range local.Tracks() {
			sender, err := pc.AddTrack(track)
			if err != nil {
				p.Close()
				return nil, fmt.Errorf("%w: add %s track: %v", domain.ErrNegotiationFailed, track.Kind(), err)
			}
			sent[track.Kind()] = true
			go p.drainRTCP(sender)
		}
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if sent[kind] {
			continue
		}
		if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			p.Close()
			return nil, fmt.Errorf("%w: add recvonly %s transceiver: %v", domain.ErrNegotiationFailed, kind, err)
		}
	}

	p.start()
	return p, nil
}

// Peer is a pion peer connection for one call. Remote candidates that arrive
// before the remote description are queued and applied in arrival order once
// it is set.
type Peer struct {
	callID string
	pc     *webrtc.PeerConnection
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	onICE    func(webrtc.ICECandidateInit)
	onRemote func(core.RemoteStream)
	onState  func(webrtc.PeerConnectionState)
	remote   *RemoteStream

	iceMu sync.Mutex
	queue candidateQueue

	keyframeRequests atomic.Uint64
	nacks            atomic.Uint64
}

func (p *Peer) start() {
	p.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "rtc").Str("call_id", p.callID).Str("ice_state", s.String()).Msg("ICE state")
	})

	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("call_id", p.callID).Str("peer_connection_state", s.String()).Msg("Peer state")
		p.mu.Lock()
		fn := p.onState
		closed := p.closed
		p.mu.Unlock()
		if fn != nil && !closed {
			fn(s)
		}
	})

	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		p.mu.Lock()
		fn := p.onICE
		closed := p.closed
		p.mu.Unlock()
		if fn != nil && !closed {
			fn(c.ToJSON())
		}
	})

	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("call_id", p.callID).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		first := p.remote == nil
		if first {
			p.remote = newRemoteStream(p.ctx, track.StreamID())
		}
		stream := p.remote
		fn := p.onRemote
		p.mu.Unlock()

		stream.addTrack(track)
		if first && fn != nil {
			fn(stream)
		}
	})
}

func (p *Peer) CreateOffer(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.isClosed() {
		return "", domain.ErrPeerConnectionClosed
	}
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("%w: create offer: %v", domain.ErrNegotiationFailed, err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("%w: set local offer: %v", domain.ErrNegotiationFailed, err)
	}
	return offer.SDP, nil
}

func (p *Peer) CreateAnswer(ctx context.Context, offer string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.isClosed() {
		return "", domain.ErrPeerConnectionClosed
	}
	if err := p.applyRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		return "", err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("%w: create answer: %v", domain.ErrNegotiationFailed, err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("%w: set local answer: %v", domain.ErrNegotiationFailed, err)
	}
	return answer.SDP, nil
}

func (p *Peer) SetRemoteDescription(answer string) error {
	if p.isClosed() {
		return domain.ErrPeerConnectionClosed
	}
	return p.applyRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer})
}

// applyRemote sets the remote description and replays queued candidates.
func (p *Peer) applyRemote(desc webrtc.SessionDescription) error {
	p.iceMu.Lock()
	defer p.iceMu.Unlock()

	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("%w: set remote %s: %v", domain.ErrNegotiationFailed, desc.Type, err)
	}
	pending := p.queue.drain()
	for _, c := range pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("call_id", p.callID).Msg("queued candidate rejected")
		}
	}
	if len(pending) > 0 {
		log.Debug().Str("module", "rtc").Str("call_id", p.callID).Int("count", len(pending)).Msg("queued candidates applied")
	}
	return nil
}

func (p *Peer) AddICECandidate(c webrtc.ICECandidateInit) error {
	if p.isClosed() {
		return domain.ErrPeerConnectionClosed
	}
	p.iceMu.Lock()
	defer p.iceMu.Unlock()
	if !p.queue.add(c) {
		return nil
	}
	return p.pc.AddICECandidate(c)
}

func (p *Peer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.mu.Lock()
	p.onICE = fn
	p.mu.Unlock()
}

func (p *Peer) OnRemoteStream(fn func(core.RemoteStream)) {
	p.mu.Lock()
	p.onRemote = fn
	p.mu.Unlock()
}

func (p *Peer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

// Close detaches all handlers before closing, so no event of this connection
// reaches the caller afterwards. Safe to call more than once.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.onICE, p.onRemote, p.onState = nil, nil, nil
	remote := p.remote
	p.mu.Unlock()

	p.pc.OnICECandidate(func(*webrtc.ICECandidate) {})
	p.pc.OnTrack(func(*webrtc.TrackRemote, *webrtc.RTPReceiver) {})
	p.pc.OnConnectionStateChange(func(webrtc.PeerConnectionState) {})
	p.pc.OnICEConnectionStateChange(func(webrtc.ICEConnectionState) {})

	p.cancel()
	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("call_id", p.callID).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("call_id", p.callID).
			Uint64("keyframe_requests", p.keyframeRequests.Load()).
			Uint64("nacks", p.nacks.Load()).
			Msg("closed")
	}
	if remote != nil {
		remote.stop()
	}
}

func (p *Peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// drainRTCP reads RTCP for a sender so interceptors such as NACK keep working.
// Keyframe requests are counted and logged.
func (p *Peer) drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	kind := "unknown"
	if t := sender.Track(); t != nil {
		kind = t.Kind().String()
	}
	for {
		n, _, err := sender.Read(buf)
		if err != nil {
			return
		}
		pkts, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		fb := countFeedback(pkts)
		p.keyframeRequests.Add(fb.keyframes)
		p.nacks.Add(fb.nacks)
		if fb.keyframes > 0 {
			log.Debug().Str("module", "rtc").Str("call_id", p.callID).Str("kind", kind).Msg("keyframe requested")
		}
	}
}

type feedback struct {
	keyframes uint64
	nacks     uint64
}

func countFeedback(pkts []rtcp.Packet) feedback {
	var fb feedback
	for _, pkt := range pkts {
		switch pkt := pkt.(type) {
		case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
			fb.keyframes++
		case *rtcp.TransportLayerNack:
			fb.nacks += uint64(len(pkt.Nacks))
		}
	}
	return fb
}

// pendingCandidates reports how many remote candidates wait for a remote
// description.
func (p *Peer) pendingCandidates() int {
	p.iceMu.Lock()
	defer p.iceMu.Unlock()
	return p.queue.len()
}
