package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/carecall/internal/app/relay"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

type event struct {
	kind string
	from domain.UserID
	data string
}

// recorder is a SignalHandler that forwards every event to a channel.
type recorder struct {
	events chan event
}

func newRecorder() *recorder { return &recorder{events: make(chan event, 32)} }

func (r *recorder) OnIncomingCall(from domain.UserID, name string) {
	r.events <- event{"incoming", from, name}
}
func (r *recorder) OnCallAccepted(from domain.UserID) { r.events <- event{"accepted", from, ""} }
func (r *recorder) OnCallRejected(from domain.UserID) { r.events <- event{"rejected", from, ""} }
func (r *recorder) OnCallEnded(from domain.UserID)    { r.events <- event{"ended", from, ""} }
func (r *recorder) OnOffer(from domain.UserID, sdp string) {
	r.events <- event{"offer", from, sdp}
}
func (r *recorder) OnAnswer(from domain.UserID, sdp string) {
	r.events <- event{"answer", from, sdp}
}
func (r *recorder) OnICECandidate(from domain.UserID, c webrtc.ICECandidateInit) {
	r.events <- event{"candidate", from, c.Candidate}
}
func (r *recorder) OnDisconnect() { r.events <- event{kind: "disconnect"} }
func (r *recorder) OnReconnect()  { r.events <- event{kind: "reconnect"} }

func (r *recorder) next(t *testing.T) event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for signaling event")
		return event{}
	}
}

type relayServer struct {
	url   string
	board *relay.Switchboard
}

func startRelay(t *testing.T, limiter *RateLimiter) *relayServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	board := relay.NewSwitchboard(relay.NewRegistry(), relay.SimplePolicy{})
	opts := DefaultOptions()
	opts.IdentifyTimeout = time.Second
	ctl := NewSignalWSController(board, limiter, opts)

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &relayServer{
		url:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal",
		board: board,
	}
}

func startClient(t *testing.T, url, id string) (*Client, *recorder) {
	t.Helper()
	user, err := domain.NewUser(id, strings.ToUpper(id[:1])+id[1:])
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	c := NewClient(ClientOptions{URL: url, Self: user, MinBackoff: 20 * time.Millisecond, MaxBackoff: 100 * time.Millisecond})
	rec := newRecorder()
	c.Bind(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, rec
}

func waitOnline(t *testing.T, s *relayServer, ids ...domain.UserID) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		online := s.board.Registry.Online()
		all := true
		for _, id := range ids {
			found := false
			for _, o := range online {
				if o == id {
					found = true
				}
			}
			all = all && found
		}
		if all {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("users %v never came online", ids)
}

func TestSignal_CallFlowThroughRelay(t *testing.T) {
	s := startRelay(t, nil)
	alice, _ := startClient(t, s.url, "alice")
	bob, bobRec := startClient(t, s.url, "bob")
	waitOnline(t, s, "alice", "bob")

	if err := alice.SendCallRequest("bob", "alice", "Alice"); err != nil {
		t.Fatalf("SendCallRequest: %v", err)
	}
	if err := alice.SendOffer("bob", "v=0 offer"); err != nil {
		t.Fatalf("SendOffer: %v", err)
	}
	mid := "0"
	if err := alice.SendICECandidate("bob", webrtc.ICECandidateInit{Candidate: "candidate:1", SDPMid: &mid}); err != nil {
		t.Fatalf("SendICECandidate: %v", err)
	}

	want := []event{
		{"incoming", "alice", "Alice"},
		{"offer", "alice", "v=0 offer"},
		{"candidate", "alice", "candidate:1"},
	}
	for _, w := range want {
		if got := bobRec.next(t); got != w {
			t.Errorf("event = %+v, want %+v", got, w)
		}
	}
	_ = bob
}

func TestSignal_OfflineTargetRejected(t *testing.T) {
	s := startRelay(t, nil)
	alice, aliceRec := startClient(t, s.url, "alice")
	waitOnline(t, s, "alice")

	if err := alice.SendCallRequest("ghost", "alice", "Alice"); err != nil {
		t.Fatalf("SendCallRequest: %v", err)
	}
	if got := aliceRec.next(t); got.kind != "rejected" || got.from != "ghost" {
		t.Errorf("event = %+v, want rejected from ghost", got)
	}
}

func TestSignal_ReconnectAfterKick(t *testing.T) {
	s := startRelay(t, nil)
	_, rec := startClient(t, s.url, "alice")
	waitOnline(t, s, "alice")

	s.board.Registry.Cancel("alice")

	if got := rec.next(t); got.kind != "disconnect" {
		t.Fatalf("event = %+v, want disconnect", got)
	}
	if got := rec.next(t); got.kind != "reconnect" {
		t.Fatalf("event = %+v, want reconnect", got)
	}
	waitOnline(t, s, "alice")
}

func TestSignal_FirstMessageMustIdentify(t *testing.T) {
	s := startRelay(t, nil)
	ws, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	msg, _ := domain.NewMessage(domain.MsgOffer, "mallory", "bob", domain.SDPPayload{SDP: "x"})
	data, _ := encode(msg)
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, reply, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := domain.ParseMessage(reply)
	if err != nil || got.Type != domain.MsgError {
		t.Fatalf("reply = %s, want error message", reply)
	}
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("connection still open after failed identify")
	}
	if n := len(s.board.Registry.Online()); n != 0 {
		t.Errorf("online = %d, want 0", n)
	}
}

func TestSignal_SendWhileDisconnected(t *testing.T) {
	user, _ := domain.NewUser("alice", "")
	c := NewClient(ClientOptions{URL: "ws://127.0.0.1:1/none", Self: user})
	if err := c.SendEndCall("bob"); err != domain.ErrChannelDisconnected {
		t.Errorf("err = %v, want ErrChannelDisconnected", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("alice") || !rl.Allow("alice") {
		t.Fatal("first two attempts denied")
	}
	if rl.Allow("alice") {
		t.Error("third attempt allowed inside window")
	}
	if !rl.Allow("bob") {
		t.Error("other user limited")
	}
	now = now.Add(61 * time.Second)
	if !rl.Allow("alice") {
		t.Error("attempt after window denied")
	}

	rl.Allow("alice")
	rl.Forget("alice")
	if !rl.Allow("alice") {
		t.Error("forgotten user still limited")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("attempt %d denied with limiting disabled", i)
		}
	}
}
