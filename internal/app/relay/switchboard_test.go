package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/core/mocks"
	"github.com/dkeye/carecall/internal/domain"
	"go.uber.org/mock/gomock"
)

// inbox records every frame sent to a mocked connection.
type inbox struct {
	mu     sync.Mutex
	frames []domain.Message
}

func (b *inbox) record(f core.Frame) error {
	var m domain.Message
	if err := json.Unmarshal(f, &m); err != nil {
		return err
	}
	b.mu.Lock()
	b.frames = append(b.frames, m)
	b.mu.Unlock()
	return nil
}

func (b *inbox) messages() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Message(nil), b.frames...)
}

func newMember(t *testing.T, ctrl *gomock.Controller, id string, admin bool) (core.MemberSession, *mocks.MockSignalConnection, *inbox) {
	t.Helper()
	user, err := domain.NewUser(id, "")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	conn := mocks.NewMockSignalConnection(ctrl)
	box := &inbox{}
	conn.EXPECT().TrySend(gomock.Any()).DoAndReturn(box.record).AnyTimes()
	return core.NewMemberSession(domain.NewMember(user, admin), conn), conn, box
}

func TestSwitchboard_RouteRewritesFrom(t *testing.T) {
	ctrl := gomock.NewController(t)
	sb := NewSwitchboard(NewRegistry(), SimplePolicy{})
	alice, _, _ := newMember(t, ctrl, "alice", false)
	bob, _, bobBox := newMember(t, ctrl, "bob", false)
	sb.Join(alice, nil)
	sb.Join(bob, nil)

	msg, _ := domain.NewMessage(domain.MsgOffer, "mallory", "bob", domain.SDPPayload{SDP: "v=0"})
	sb.Route(alice, msg)

	got := bobBox.messages()
	if len(got) != 1 {
		t.Fatalf("bob received %d messages, want 1", len(got))
	}
	if got[0].From != "alice" {
		t.Errorf("fromId = %q, want alice", got[0].From)
	}
	var p domain.SDPPayload
	if err := got[0].DecodePayload(&p); err != nil || p.SDP != "v=0" {
		t.Errorf("payload = %+v (%v), want sdp v=0", p, err)
	}
}

func TestSwitchboard_CallRequestToOfflineIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	sb := NewSwitchboard(NewRegistry(), SimplePolicy{})
	alice, _, aliceBox := newMember(t, ctrl, "alice", false)
	sb.Join(alice, nil)

	req, _ := domain.NewMessage(domain.MsgCallRequest, "", "ghost", domain.CallRequestPayload{FromName: "Alice"})
	sb.Route(alice, req)
	ice, _ := domain.NewMessage(domain.MsgICECandidate, "", "ghost", domain.CandidatePayload{Candidate: "c"})
	sb.Route(alice, ice)

	got := aliceBox.messages()
	if len(got) != 1 {
		t.Fatalf("alice received %d messages, want 1", len(got))
	}
	if got[0].Type != domain.MsgCallReject || got[0].From != "ghost" {
		t.Errorf("reply = %+v, want call-reject from ghost", got[0])
	}
	var p domain.RejectPayload
	_ = got[0].DecodePayload(&p)
	if p.Reason != RejectOffline {
		t.Errorf("reason = %q, want %q", p.Reason, RejectOffline)
	}
}

func TestSwitchboard_AdminsFanOutAndPresence(t *testing.T) {
	ctrl := gomock.NewController(t)
	sb := NewSwitchboard(NewRegistry(), SimplePolicy{})
	admin1, _, box1 := newMember(t, ctrl, "nurse-1", true)
	admin2, _, box2 := newMember(t, ctrl, "nurse-2", true)
	patient, _, _ := newMember(t, ctrl, "patient", false)
	sb.Join(admin1, nil)
	sb.Join(admin2, nil)
	sb.Join(patient, nil)

	req, _ := domain.NewMessage(domain.MsgCallRequest, "", domain.AdminsTarget, domain.CallRequestPayload{FromName: "P"})
	sb.Route(patient, req)
	if !sb.Leave(patient) {
		t.Fatal("patient should go offline")
	}

	for name, box := range map[string]*inbox{"nurse-1": box1, "nurse-2": box2} {
		var presence []domain.PresencePayload
		var requests int
		for _, m := range box.messages() {
			switch m.Type {
			case domain.MsgPresence:
				var p domain.PresencePayload
				_ = m.DecodePayload(&p)
				if p.UserID == "patient" {
					presence = append(presence, p)
				}
			case domain.MsgCallRequest:
				requests++
				if m.From != "patient" {
					t.Errorf("%s: fromId = %q, want patient", name, m.From)
				}
			}
		}
		if requests != 1 {
			t.Errorf("%s: call-requests = %d, want 1", name, requests)
		}
		if len(presence) != 2 || !presence[0].Online || presence[1].Online {
			t.Errorf("%s: presence = %+v, want online then offline", name, presence)
		}
	}
}

func TestSwitchboard_BackpressureKicksUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	sb := NewSwitchboard(NewRegistry(), SimplePolicy{})
	alice, _, _ := newMember(t, ctrl, "alice", false)

	user, _ := domain.NewUser("bob", "")
	conn := mocks.NewMockSignalConnection(ctrl)
	conn.EXPECT().TrySend(gomock.Any()).Return(core.ErrBackpressure)
	bob := core.NewMemberSession(domain.NewMember(user, false), conn)

	canceled := false
	sb.Join(alice, nil)
	sb.Join(bob, func() { canceled = true })

	msg, _ := domain.NewMessage(domain.MsgEndCall, "", "bob", nil)
	sb.Route(alice, msg)
	if !canceled {
		t.Error("slow connection not canceled")
	}
}
