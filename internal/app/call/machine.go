package call

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var _ core.SignalHandler = (*Machine)(nil)

// Timeouts of a call session. Setup also bounds how long an incoming call rings.
type Timeouts struct {
	Setup  time.Duration `mapstructure:"setup"`
	Settle time.Duration `mapstructure:"settle"`
	Grace  time.Duration `mapstructure:"grace"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Setup:  30 * time.Second,
		Settle: time.Second,
		Grace:  10 * time.Second,
	}
}

// Hooks are invoked outside the machine lock. Any of them may be nil.
type Hooks struct {
	OnStateChange  func(domain.CallState)
	OnIncomingCall func(from domain.UserID, fromName string)
	OnRemoteStream func(core.RemoteStream)
	OnEnded        func(EndReport)
	OnError        func(error)
}

// EndReport describes a finished session. Delivered once per session.
type EndReport struct {
	CallID string
	Remote domain.UserID
	Reason domain.EndReason
	Err    error
}

// Session is a snapshot of the current call.
type Session struct {
	CallID        string
	State         domain.CallState
	Remote        domain.UserID
	RemoteName    string
	Outgoing      bool
	StartedAt     time.Time
	MicEnabled    bool
	CameraEnabled bool
}

type Options struct {
	Self     *domain.User
	Signal   core.SignalChannel
	Peers    core.PeerFactory
	Media    *MediaManager
	Timeouts Timeouts
	Hooks    Hooks
}

// Machine drives the single call session of an endpoint. It is the
// SignalHandler of the signaling channel it sends on.
type Machine struct {
	self     *domain.User
	signal   core.SignalChannel
	peers    core.PeerFactory
	media    *MediaManager
	timeouts Timeouts
	hooks    Hooks

	mu    sync.Mutex
	state domain.CallState
	// epoch moves on every new session and every teardown. Async results and
	// timers carrying an older epoch are discarded.
	epoch uint64
	// busy is set by Start/Accept and cleared only by them.
	busy       bool
	callID     string
	remote     domain.UserID
	remoteName string
	outgoing   bool
	startedAt  time.Time
	// announced: the remote knows about the call.
	announced bool
	pc        core.PeerConnection
	offer     string
	// remote candidates received while there is no peer connection yet.
	remoteCands []webrtc.ICECandidateInit
	// local candidates held until the offer/answer is on the wire.
	localCands []webrtc.ICECandidateInit
	trickling  bool

	setupTimer  *time.Timer
	settleTimer *time.Timer
	graceTimer  *time.Timer

	// trickleMu keeps local candidates in gathering order on the wire.
	trickleMu sync.Mutex
}

func NewMachine(opts Options) *Machine {
	t := opts.Timeouts
	def := DefaultTimeouts()
	if t.Setup <= 0 {
		t.Setup = def.Setup
	}
	if t.Settle <= 0 {
		t.Settle = def.Settle
	}
	if t.Grace <= 0 {
		t.Grace = def.Grace
	}
	return &Machine{
		self:     opts.Self,
		signal:   opts.Signal,
		peers:    opts.Peers,
		media:    opts.Media,
		timeouts: t,
		hooks:    opts.Hooks,
	}
}

func (m *Machine) State() domain.CallState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Session() Session {
	m.mu.Lock()
	s := Session{
		CallID:     m.callID,
		State:      m.state,
		Remote:     m.remote,
		RemoteName: m.remoteName,
		Outgoing:   m.outgoing,
		StartedAt:  m.startedAt,
	}
	m.mu.Unlock()
	s.MicEnabled = m.media.MicEnabled()
	s.CameraEnabled = m.media.CameraEnabled()
	return s
}

func (m *Machine) SetMicEnabled(on bool)    { m.media.SetMicEnabled(on) }
func (m *Machine) SetCameraEnabled(on bool) { m.media.SetCameraEnabled(on) }
func (m *Machine) ToggleMic() bool          { return m.media.ToggleMic() }
func (m *Machine) ToggleCamera() bool       { return m.media.ToggleCamera() }

// Start places a call to remote: local media, peer connection, offer, then
// call-request followed by the offer.
func (m *Machine) Start(ctx context.Context, remote domain.UserID, remoteName string) error {
	if remote == "" {
		return domain.ErrUserIDEmpty
	}
	if m.self != nil && remote == m.self.ID {
		return domain.ErrCallSelf
	}

	m.mu.Lock()
	if m.state != domain.CallIdle || m.busy {
		m.mu.Unlock()
		return domain.ErrCallInProgress
	}
	m.epoch++
	epoch := m.epoch
	m.busy = true
	m.resetLocked()
	m.state = domain.CallOutgoing
	m.callID = uuid.NewString()
	m.remote = remote
	m.remoteName = remoteName
	m.outgoing = true
	m.setupTimer = m.timer(epoch, m.timeouts.Setup, func() {
		m.teardown(epoch, domain.EndSetupTimeout, nil)
	})
	callID := m.callID
	m.mu.Unlock()
	defer m.finish()

	logger := log.With().Str("module", "call").Str("call_id", callID).Str("remote", string(remote)).Logger()
	logger.Info().Msg("outgoing call")
	m.emitState(domain.CallOutgoing)

	stream, err := m.media.Acquire(ctx)
	if err != nil {
		m.teardown(epoch, domain.EndMediaFailed, err)
		return err
	}
	if !m.current(epoch) {
		m.media.Release()
		return domain.ErrCallEnded
	}

	pc, err := m.peers.NewPeer(callID, stream)
	if err != nil {
		m.teardown(epoch, domain.EndNegotiationFailed, err)
		return err
	}
	if !m.attach(epoch, pc) {
		pc.Close()
		return domain.ErrCallEnded
	}

	sdp, err := pc.CreateOffer(ctx)
	if err != nil {
		m.teardown(epoch, domain.EndNegotiationFailed, err)
		return err
	}
	if !m.current(epoch) {
		return domain.ErrCallEnded
	}

	name := ""
	if m.self != nil {
		name = m.self.Name
	}
	if err := m.signal.SendCallRequest(remote, m.selfID(), name); err != nil {
		m.sendFailed(epoch, err)
		return err
	}
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return domain.ErrCallEnded
	}
	m.announced = true
	m.mu.Unlock()

	if err := m.signal.SendOffer(remote, sdp); err != nil {
		m.sendFailed(epoch, err)
		return err
	}
	m.startTrickle(epoch)
	logger.Info().Msg("call-request and offer sent")
	return nil
}

// Accept answers the ringing call.
func (m *Machine) Accept(ctx context.Context) error {
	m.mu.Lock()
	if m.state != domain.CallIncoming {
		m.mu.Unlock()
		return domain.ErrNoIncomingCall
	}
	if m.busy {
		m.mu.Unlock()
		return domain.ErrCallInProgress
	}
	if m.offer == "" {
		m.mu.Unlock()
		return domain.ErrNoOffer
	}
	m.busy = true
	epoch := m.epoch
	callID, remote, offer := m.callID, m.remote, m.offer
	// The ring timer becomes the setup timer.
	stopTimer(&m.setupTimer)
	m.setupTimer = m.timer(epoch, m.timeouts.Setup, func() {
		m.teardown(epoch, domain.EndSetupTimeout, nil)
	})
	m.mu.Unlock()
	defer m.finish()

	logger := log.With().Str("module", "call").Str("call_id", callID).Str("remote", string(remote)).Logger()

	stream, err := m.media.Acquire(ctx)
	if err != nil {
		m.teardown(epoch, domain.EndMediaFailed, err)
		return err
	}
	if !m.current(epoch) {
		m.media.Release()
		return domain.ErrCallEnded
	}

	pc, err := m.peers.NewPeer(callID, stream)
	if err != nil {
		m.teardown(epoch, domain.EndNegotiationFailed, err)
		return err
	}
	if !m.attach(epoch, pc) {
		pc.Close()
		return domain.ErrCallEnded
	}

	sdp, err := pc.CreateAnswer(ctx, offer)
	if err != nil {
		m.teardown(epoch, domain.EndNegotiationFailed, err)
		return err
	}
	if !m.current(epoch) {
		return domain.ErrCallEnded
	}

	if err := m.signal.SendCallAccept(remote); err != nil {
		m.sendFailed(epoch, err)
		return err
	}
	if err := m.signal.SendAnswer(remote, sdp); err != nil {
		m.sendFailed(epoch, err)
		return err
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return domain.ErrCallEnded
	}
	m.state = domain.CallActive
	m.startedAt = time.Now()
	stopTimer(&m.setupTimer)
	m.mu.Unlock()

	m.startTrickle(epoch)
	logger.Info().Msg("call accepted")
	m.emitState(domain.CallActive)
	return nil
}

// Reject declines the ringing call. No media was touched for it.
func (m *Machine) Reject() error {
	m.mu.Lock()
	if m.state != domain.CallIncoming {
		m.mu.Unlock()
		return domain.ErrNoIncomingCall
	}
	if m.busy {
		m.mu.Unlock()
		return domain.ErrCallInProgress
	}
	epoch, remote := m.epoch, m.remote
	m.mu.Unlock()

	err := m.signal.SendCallReject(remote)
	if err != nil {
		log.Warn().Err(err).Str("module", "call").Str("remote", string(remote)).Msg("send call-reject failed")
	}
	m.teardown(epoch, domain.EndRejected, nil)
	return err
}

// End hangs up. No-op when there is no call.
func (m *Machine) End() {
	m.mu.Lock()
	if !m.state.Live() {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	m.mu.Unlock()
	m.teardown(epoch, domain.EndLocalHangup, nil)
}

func (m *Machine) OnIncomingCall(from domain.UserID, fromName string) {
	m.mu.Lock()
	if m.state == domain.CallIncoming && m.remote == from {
		m.mu.Unlock()
		return
	}
	if m.state != domain.CallIdle || m.busy {
		m.mu.Unlock()
		log.Info().Str("module", "call").Str("remote", string(from)).Msg("busy, rejecting incoming call")
		if err := m.signal.SendCallReject(from); err != nil {
			log.Warn().Err(err).Str("module", "call").Str("remote", string(from)).Msg("send call-reject failed")
		}
		return
	}
	m.epoch++
	epoch := m.epoch
	m.resetLocked()
	m.state = domain.CallIncoming
	m.callID = uuid.NewString()
	m.remote = from
	m.remoteName = fromName
	m.announced = true
	m.setupTimer = m.timer(epoch, m.timeouts.Setup, func() {
		m.teardown(epoch, domain.EndSetupTimeout, nil)
	})
	callID := m.callID
	m.mu.Unlock()

	log.Info().Str("module", "call").Str("call_id", callID).Str("remote", string(from)).Str("name", fromName).Msg("incoming call")
	m.emitState(domain.CallIncoming)
	if m.hooks.OnIncomingCall != nil {
		m.hooks.OnIncomingCall(from, fromName)
	}
}

func (m *Machine) OnCallAccepted(from domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != domain.CallOutgoing || m.remote != from {
		return
	}
	// The answer is still outstanding; give it a fresh setup window.
	epoch := m.epoch
	stopTimer(&m.setupTimer)
	m.setupTimer = m.timer(epoch, m.timeouts.Setup, func() {
		m.teardown(epoch, domain.EndSetupTimeout, nil)
	})
	log.Info().Str("module", "call").Str("call_id", m.callID).Msg("call accepted by remote")
}

func (m *Machine) OnCallRejected(from domain.UserID) {
	if epoch, ok := m.liveFrom(from); ok {
		m.teardown(epoch, domain.EndRemoteRejected, nil)
	}
}

func (m *Machine) OnCallEnded(from domain.UserID) {
	if epoch, ok := m.liveFrom(from); ok {
		m.teardown(epoch, domain.EndRemoteHangup, nil)
	}
}

func (m *Machine) OnOffer(from domain.UserID, sdp string) {
	m.mu.Lock()
	if !m.state.Live() || m.remote != from {
		m.mu.Unlock()
		return
	}
	switch {
	case m.state == domain.CallIncoming:
		m.offer = sdp
		m.mu.Unlock()
	case m.state == domain.CallActive && m.pc != nil && !m.busy:
		epoch, pc, remote := m.epoch, m.pc, m.remote
		m.mu.Unlock()
		m.renegotiate(epoch, pc, remote, sdp)
	default:
		m.mu.Unlock()
		log.Debug().Str("module", "call").Str("remote", string(from)).Msg("offer ignored")
	}
}

func (m *Machine) renegotiate(epoch uint64, pc core.PeerConnection, remote domain.UserID, offer string) {
	answer, err := pc.CreateAnswer(context.Background(), offer)
	if err != nil {
		m.teardown(epoch, domain.EndNegotiationFailed, err)
		return
	}
	if !m.current(epoch) {
		return
	}
	if err := m.signal.SendAnswer(remote, answer); err != nil {
		log.Warn().Err(err).Str("module", "call").Msg("send renegotiation answer failed")
	}
}

func (m *Machine) OnAnswer(from domain.UserID, sdp string) {
	m.mu.Lock()
	if m.state != domain.CallOutgoing || m.remote != from || m.pc == nil {
		m.mu.Unlock()
		return
	}
	epoch, pc := m.epoch, m.pc
	m.mu.Unlock()

	if err := pc.SetRemoteDescription(sdp); err != nil {
		m.teardown(epoch, domain.EndNegotiationFailed, err)
		return
	}

	m.mu.Lock()
	if m.epoch != epoch || m.state != domain.CallOutgoing {
		m.mu.Unlock()
		return
	}
	m.state = domain.CallActive
	m.startedAt = time.Now()
	stopTimer(&m.setupTimer)
	callID := m.callID
	m.mu.Unlock()

	log.Info().Str("module", "call").Str("call_id", callID).Msg("call active")
	m.emitState(domain.CallActive)
}

func (m *Machine) OnICECandidate(from domain.UserID, c webrtc.ICECandidateInit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Live() || m.remote != from {
		return
	}
	if m.pc == nil {
		m.remoteCands = append(m.remoteCands, c)
		return
	}
	if err := m.pc.AddICECandidate(c); err != nil {
		log.Warn().Err(err).Str("module", "call").Str("call_id", m.callID).Msg("remote candidate rejected")
	}
}

func (m *Machine) OnDisconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Live() || m.graceTimer != nil {
		return
	}
	epoch := m.epoch
	log.Warn().Str("module", "call").Str("call_id", m.callID).Dur("grace", m.timeouts.Grace).Msg("signaling lost")
	m.graceTimer = m.timer(epoch, m.timeouts.Grace, func() {
		m.teardown(epoch, domain.EndChannelLost, domain.ErrChannelDisconnected)
	})
}

func (m *Machine) OnReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.graceTimer != nil {
		stopTimer(&m.graceTimer)
		log.Info().Str("module", "call").Str("call_id", m.callID).Msg("signaling restored")
	}
}

// attach binds pc to the session and hands it the remote candidates buffered
// so far. Reports false if the session is gone.
func (m *Machine) attach(epoch uint64, pc core.PeerConnection) bool {
	pc.OnICECandidate(func(c webrtc.ICECandidateInit) { m.onLocalCandidate(epoch, c) })
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) { m.onConnectionState(epoch, s) })
	pc.OnRemoteStream(func(rs core.RemoteStream) {
		if m.current(epoch) && m.hooks.OnRemoteStream != nil {
			m.hooks.OnRemoteStream(rs)
		}
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return false
	}
	m.pc = pc
	for _, c := range m.remoteCands {
		if err := pc.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "call").Str("call_id", m.callID).Msg("buffered candidate rejected")
		}
	}
	m.remoteCands = nil
	return true
}

func (m *Machine) onLocalCandidate(epoch uint64, c webrtc.ICECandidateInit) {
	m.trickleMu.Lock()
	defer m.trickleMu.Unlock()

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	if !m.trickling {
		m.localCands = append(m.localCands, c)
		m.mu.Unlock()
		return
	}
	remote := m.remote
	m.mu.Unlock()

	if err := m.signal.SendICECandidate(remote, c); err != nil {
		log.Warn().Err(err).Str("module", "call").Msg("send candidate failed")
	}
}

// startTrickle flushes the held local candidates, in order, and lets later
// ones go out directly.
func (m *Machine) startTrickle(epoch uint64) {
	m.trickleMu.Lock()
	defer m.trickleMu.Unlock()

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.trickling = true
	held := m.localCands
	m.localCands = nil
	remote := m.remote
	m.mu.Unlock()

	for _, c := range held {
		if err := m.signal.SendICECandidate(remote, c); err != nil {
			log.Warn().Err(err).Str("module", "call").Msg("send candidate failed")
		}
	}
}

func (m *Machine) onConnectionState(epoch uint64, s webrtc.PeerConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	switch s {
	case webrtc.PeerConnectionStateFailed:
		if m.settleTimer != nil {
			return
		}
		log.Warn().Str("module", "call").Str("call_id", m.callID).Msg("peer connection failed, settling")
		m.settleTimer = m.timer(epoch, m.timeouts.Settle, func() {
			m.teardown(epoch, domain.EndConnectionFailed, domain.ErrPeerConnectionFailed)
		})
	case webrtc.PeerConnectionStateConnected:
		stopTimer(&m.settleTimer)
	}
}

// teardown is the only way out of a session. The first caller for an epoch
// wins; every later one returns false.
func (m *Machine) teardown(epoch uint64, reason domain.EndReason, cause error) bool {
	return m.end(epoch, reason, cause, false)
}

// sendFailed ends the session after a signaling send failed. A remote that
// already knows the call still gets a best-effort end-call.
func (m *Machine) sendFailed(epoch uint64, err error) bool {
	return m.end(epoch, domain.EndChannelLost, err, true)
}

func (m *Machine) end(epoch uint64, reason domain.EndReason, cause error, notifyRemote bool) bool {
	m.mu.Lock()
	if m.epoch != epoch || !m.state.Live() {
		m.mu.Unlock()
		return false
	}
	report := EndReport{CallID: m.callID, Remote: m.remote, Reason: reason, Err: cause}
	notify := m.announced && (notifyRemote || reason.LocallyInitiated())
	pc := m.pc

	m.state = domain.CallEnded
	m.epoch++
	m.resetLocked()
	m.state = domain.CallIdle
	m.mu.Unlock()

	if pc != nil {
		pc.Close()
	}
	m.media.Release()
	if notify {
		if err := m.signal.SendEndCall(report.Remote); err != nil {
			log.Warn().Err(err).Str("module", "call").Str("call_id", report.CallID).Msg("send end-call failed")
		}
	}

	ev := log.Info()
	if cause != nil {
		ev = log.Warn().Err(cause)
	}
	ev.Str("module", "call").
		Str("call_id", report.CallID).
		Str("remote", string(report.Remote)).
		Str("reason", reason.String()).
		Msg("call ended")

	m.emitState(domain.CallEnded)
	m.emitState(domain.CallIdle)
	if m.hooks.OnEnded != nil {
		m.hooks.OnEnded(report)
	}
	if cause != nil && m.hooks.OnError != nil {
		m.hooks.OnError(cause)
	}
	return true
}

// resetLocked clears every per-session field except state, epoch and busy.
func (m *Machine) resetLocked() {
	stopTimer(&m.setupTimer)
	stopTimer(&m.settleTimer)
	stopTimer(&m.graceTimer)
	m.callID = ""
	m.remote = ""
	m.remoteName = ""
	m.outgoing = false
	m.startedAt = time.Time{}
	m.announced = false
	m.pc = nil
	m.offer = ""
	m.remoteCands = nil
	m.localCands = nil
	m.trickling = false
}

func (m *Machine) finish() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

func (m *Machine) current(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch == epoch && m.state.Live()
}

func (m *Machine) liveFrom(from domain.UserID) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Live() || m.remote != from {
		return 0, false
	}
	return m.epoch, true
}

func (m *Machine) selfID() domain.UserID {
	if m.self == nil {
		return ""
	}
	return m.self.ID
}

func (m *Machine) emitState(s domain.CallState) {
	if m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(s)
	}
}

// timer runs fn after d unless the session moved on.
func (m *Machine) timer(epoch uint64, d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		if m.current(epoch) {
			fn()
		}
	})
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
