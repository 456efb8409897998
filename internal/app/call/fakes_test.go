package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/carecall/internal/core"
	"github.com/pion/webrtc/v4"
)

type fakeStream struct {
	mu    sync.Mutex
	id    string
	stops int
	audio bool
	video bool
}

func (s *fakeStream) ID() string                  { return s.id }
func (s *fakeStream) Tracks() []webrtc.TrackLocal { return nil }
func (s *fakeStream) SetAudioEnabled(on bool) {
	s.mu.Lock()
	s.audio = on
	s.mu.Unlock()
}
func (s *fakeStream) SetVideoEnabled(on bool) {
	s.mu.Lock()
	s.video = on
	s.mu.Unlock()
}
func (s *fakeStream) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
}
func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// fakeSource hands out fakeStreams. When gate is set every request blocks
// until gate is closed.
type fakeSource struct {
	mu      sync.Mutex
	calls   int
	err     error
	gate    chan struct{}
	entered chan struct{}
	streams []*fakeStream
}

func (f *fakeSource) GetUserMedia(ctx context.Context) (core.LocalStream, error) {
	f.mu.Lock()
	f.calls++
	gate, entered, err := f.gate, f.entered, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	s := &fakeStream{id: "local", audio: true, video: true}
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) lastStream() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

type fakePeer struct {
	mu          sync.Mutex
	closed      bool
	added       []webrtc.ICECandidateInit
	remoteSDP   string
	offerSeen   string
	offerErr    error
	answerErr   error
	onOffer     func() // runs inside CreateOffer
	onICE       func(webrtc.ICECandidateInit)
	onState     func(webrtc.PeerConnectionState)
	onRemote    func(core.RemoteStream)
	renegotiate int
}

func (p *fakePeer) CreateOffer(context.Context) (string, error) {
	p.mu.Lock()
	fn, err := p.onOffer, p.offerErr
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
	if err != nil {
		return "", err
	}
	return "offer-sdp", nil
}

func (p *fakePeer) CreateAnswer(_ context.Context, offer string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answerErr != nil {
		return "", p.answerErr
	}
	if p.offerSeen != "" {
		p.renegotiate++
	}
	p.offerSeen = offer
	return "answer-sdp", nil
}

func (p *fakePeer) SetRemoteDescription(sdp string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteSDP = sdp
	return nil
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, c)
	return nil
}

func (p *fakePeer) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.mu.Lock()
	p.onICE = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnRemoteStream(fn func(core.RemoteStream)) {
	p.mu.Lock()
	p.onRemote = fn
	p.mu.Unlock()
}

func (p *fakePeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	p.closed = true
	p.onICE, p.onState, p.onRemote = nil, nil, nil
	p.mu.Unlock()
}

func (p *fakePeer) emitICE(c webrtc.ICECandidateInit) {
	p.mu.Lock()
	fn := p.onICE
	p.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

func (p *fakePeer) emitState(s webrtc.PeerConnectionState) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (p *fakePeer) emitRemote(rs core.RemoteStream) {
	if fn := p.remoteHandler(); fn != nil {
		fn(rs)
	}
}

func (p *fakePeer) remoteHandler() func(core.RemoteStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onRemote
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) candidates() []webrtc.ICECandidateInit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), p.added...)
}

type fakeRemote struct{}

func (fakeRemote) ID() string                   { return "remote" }
func (fakeRemote) TrackCount() int              { return 2 }
func (fakeRemote) AddSink(string, core.RTPSink) {}
func (fakeRemote) RemoveSink(string)            {}

type fakeFactory struct {
	mu    sync.Mutex
	peers []*fakePeer
	// prepare configures each peer before it is returned.
	prepare func(*fakePeer)
}

func (f *fakeFactory) NewPeer(string, core.LocalStream) (core.PeerConnection, error) {
	p := &fakePeer{}
	if f.prepare != nil {
		f.prepare(p)
	}
	f.mu.Lock()
	f.peers = append(f.peers, p)
	f.mu.Unlock()
	return p, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.peers)
}

func (f *fakeFactory) last() *fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.peers) == 0 {
		return nil
	}
	return f.peers[len(f.peers)-1]
}

func candidate(s string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: s}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
