package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gabber/internal/app/protocol"
	"gabber/internal/app/transport"
)

// fakeConn records sends and lets tests drive events by hand. Session tests
// run everything on the test goroutine, the way the application run loop
// delivers events one at a time.
type fakeConn struct {
	events  chan transport.Event
	sent    []protocol.Request
	sendErr error
	closes  int
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan transport.Event, 16)}
}

func (f *fakeConn) Events() <-chan transport.Event { return f.events }

func (f *fakeConn) Send(data []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeConn) Close() error {
	f.closes++
	return nil
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	dials int
}

func (f *fakeDialer) Dial(context.Context, string) (transport.Conn, error) {
	f.dials++
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

type harness struct {
	sess    *Session
	conn    *fakeConn
	dialer  *fakeDialer
	notices []State
}

func newHarness() *harness {
	h := &harness{conn: newFakeConn()}
	h.dialer = &fakeDialer{conn: h.conn}
	h.sess = New("ws://test/v1.0/chat", "Demo", h.dialer, func(st State) {
		h.notices = append(h.notices, st)
	})
	return h
}

func (h *harness) deliver(t *testing.T, rsp protocol.Response) {
	t.Helper()
	data, err := json.Marshal(rsp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	h.sess.HandleEvent(transport.Message{Data: data})
}

// connect walks the session to PhaseConnected and resets the notice count.
func (h *harness) connect(t *testing.T, nickname string, roster []string) {
	t.Helper()
	h.sess.Login(context.Background(), nickname)
	h.sess.HandleEvent(transport.Opened{})
	h.deliver(t, protocol.Response{RspType: protocol.RspSetNickname, Content: `Nickname set to "` + nickname + `".`})
	h.deliver(t, protocol.Response{RspType: protocol.RspJoin, Content: nickname + " has joined the room.", List: roster})
	if got := h.sess.State().Phase; got != PhaseConnected {
		t.Fatalf("setup: phase = %v, want connected", got)
	}
	h.notices = nil
	h.conn.sent = nil
}

func TestLoginEmptyNicknameStaysLocal(t *testing.T) {
	h := newHarness()
	h.sess.Login(context.Background(), "")

	if h.dialer.dials != 0 {
		t.Error("empty nickname caused a dial")
	}
	st := h.sess.State()
	if st.Phase != PhaseIdle {
		t.Errorf("phase = %v, want idle", st.Phase)
	}
	if st.Err != "nickname required" {
		t.Errorf("err = %q, want \"nickname required\"", st.Err)
	}
	if len(h.notices) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notices))
	}
}

func TestLoginDialFailure(t *testing.T) {
	h := newHarness()
	h.dialer.err = transport.ErrUnavailable

	h.sess.Login(context.Background(), "alice")

	st := h.sess.State()
	if st.Phase != PhaseDisconnected {
		t.Errorf("phase = %v, want disconnected", st.Phase)
	}
	if st.Err == "" {
		t.Error("err not set after dial failure")
	}
	if len(h.notices) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notices))
	}
}

// Scenario: nickname "alice", open, SET_NICKNAME ack "Welcome", JOIN ack
// "joined Demo" with roster ["alice"].
func TestLoginHandshakeToConnected(t *testing.T) {
	h := newHarness()

	h.sess.Login(context.Background(), "alice")
	if got := h.sess.State().Phase; got != PhaseConnecting {
		t.Fatalf("phase after login = %v, want connecting", got)
	}

	h.sess.HandleEvent(transport.Opened{})
	if len(h.conn.sent) != 2 {
		t.Fatalf("requests after open = %d, want 2", len(h.conn.sent))
	}
	if req := h.conn.sent[0]; req.ReqType != protocol.ReqSetNickname || req.Content != "alice" || req.RoomName != "" {
		t.Errorf("first request = %+v, want SET_NICKNAME alice", req)
	}
	if req := h.conn.sent[1]; req.ReqType != protocol.ReqJoin || req.RoomName != "Demo" {
		t.Errorf("second request = %+v, want JOIN Demo", req)
	}

	h.deliver(t, protocol.Response{RspType: protocol.RspSetNickname, Content: "Welcome"})
	if got := h.sess.State().Phase; got != PhaseConnecting {
		t.Fatalf("phase after nickname ack = %v, want connecting", got)
	}

	h.deliver(t, protocol.Response{RspType: protocol.RspJoin, Content: "joined Demo", List: []string{"alice"}})

	st := h.sess.State()
	if st.Phase != PhaseConnected {
		t.Errorf("phase = %v, want connected", st.Phase)
	}
	if len(st.Users) != 1 || st.Users[0] != "alice" {
		t.Errorf("users = %v, want [alice]", st.Users)
	}
	joined := strings.Join(st.History, "\n")
	if !strings.Contains(joined, "Welcome") || !strings.Contains(joined, "joined Demo") {
		t.Errorf("history = %q, want Welcome and joined Demo lines", joined)
	}

	// login, opened, nickname ack, join ack: one notification each.
	if len(h.notices) != 4 {
		t.Errorf("notifications = %d, want 4", len(h.notices))
	}
}

// The JOIN ack updates users and history but must fire one notification.
func TestOneNotificationPerTrigger(t *testing.T) {
	h := newHarness()
	h.sess.Login(context.Background(), "alice")
	h.sess.HandleEvent(transport.Opened{})
	h.notices = nil

	h.deliver(t, protocol.Response{RspType: protocol.RspJoin, Content: "joined", List: []string{"alice", "bob"}})

	if len(h.notices) != 1 {
		t.Fatalf("notifications = %d, want 1", len(h.notices))
	}
	if got := h.notices[0]; len(got.Users) != 2 || len(got.History) != 1 {
		t.Errorf("notified snapshot = %+v, want both fields applied", got)
	}
}

// Scenario: nickname already in use; server answers ERR_NICKNAME_USED.
func TestNicknameUsedTearsDown(t *testing.T) {
	h := newHarness()
	h.sess.Login(context.Background(), "bob")
	h.sess.HandleEvent(transport.Opened{})
	h.notices = nil

	h.deliver(t, protocol.Response{RspType: protocol.RspErrNicknameUsed, Content: `Nickname "bob" is already in use.`})

	st := h.sess.State()
	if st.Phase != PhaseDisconnected {
		t.Errorf("phase = %v, want disconnected", st.Phase)
	}
	if st.Err != `Nickname "bob" is already in use.` {
		t.Errorf("err = %q, want the server content verbatim", st.Err)
	}
	if h.conn.closes == 0 {
		t.Error("transport not closed on protocol error")
	}
	if len(h.notices) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notices))
	}
}

// Scenario: an unsolicited LEAVE while connected replaces the roster.
func TestLeaveReplacesRoster(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice", "bob"})

	h.deliver(t, protocol.Response{RspType: protocol.RspLeave, Content: "bob has left the room.", List: []string{"alice"}})

	st := h.sess.State()
	if len(st.Users) != 1 || st.Users[0] != "alice" {
		t.Errorf("users = %v, want [alice]", st.Users)
	}
	if st.Phase != PhaseConnected {
		t.Errorf("phase = %v, want connected", st.Phase)
	}
	if len(h.notices) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notices))
	}
}

func TestListNamesReplacesRoster(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})

	h.deliver(t, protocol.Response{RspType: protocol.RspListNames, List: []string{"alice", "carol"}})

	if st := h.sess.State(); len(st.Users) != 2 || st.Users[1] != "carol" {
		t.Errorf("users = %v, want [alice carol]", st.Users)
	}
}

func TestSendMessage(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})

	h.sess.SendMessage("hello there")
	if len(h.conn.sent) != 1 {
		t.Fatalf("requests = %d, want 1", len(h.conn.sent))
	}
	if req := h.conn.sent[0]; req.ReqType != protocol.ReqMsg || req.Content != "hello there" || req.RoomName != "Demo" {
		t.Errorf("request = %+v, want MSG hello there to Demo", req)
	}

	// Empty text never reaches the wire and is not a state change.
	h.notices = nil
	h.sess.SendMessage("")
	if len(h.conn.sent) != 1 || len(h.notices) != 0 {
		t.Error("empty message produced a send or a notification")
	}
}

// Scenario: abnormal close with 1006 while connected.
func TestAbnormalCloseWhileConnected(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})

	h.sess.HandleEvent(transport.Closed{Code: 1006, Reason: "abnormal closure"})

	st := h.sess.State()
	if st.Phase != PhaseDisconnected {
		t.Errorf("phase = %v, want disconnected", st.Phase)
	}
	if !strings.Contains(st.Err, "disconnected") || !strings.Contains(st.Err, "1006") {
		t.Errorf("err = %q, want a disconnection message with the close code", st.Err)
	}

	// No further sends attempted once terminal.
	h.sess.SendMessage("anyone there?")
	if len(h.conn.sent) != 0 {
		t.Error("send attempted after disconnection")
	}
}

func TestQuitThenLateEventsAreNoOps(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice", "bob"})

	h.sess.Quit()
	st := h.sess.State()
	if st.Phase != PhaseDisconnected {
		t.Fatalf("phase after quit = %v, want disconnected", st.Phase)
	}
	if st.Err != "" {
		t.Errorf("err after user quit = %q, want empty", st.Err)
	}
	if h.conn.closes == 0 {
		t.Error("transport not closed on quit")
	}

	before := h.sess.State()
	h.notices = nil
	h.deliver(t, protocol.Response{RspType: protocol.RspMsg, Content: "late"})
	h.sess.HandleEvent(transport.Closed{Code: 1000})
	h.sess.HandleEvent(transport.Errored{Err: errors.New("late error")})

	after := h.sess.State()
	if len(h.notices) != 0 {
		t.Errorf("notifications after terminal state = %d, want 0", len(h.notices))
	}
	if after.Phase != before.Phase || after.Err != before.Err ||
		len(after.History) != len(before.History) || len(after.Users) != len(before.Users) {
		t.Errorf("state changed after terminal phase: %+v -> %+v", before, after)
	}
}

func TestMalformedPayloadIsFatal(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})

	h.sess.HandleEvent(transport.Message{Data: []byte("{{nope")})

	st := h.sess.State()
	if st.Phase != PhaseDisconnected || st.Err == "" {
		t.Errorf("state = %+v, want disconnected with error", st)
	}
	if h.conn.closes == 0 {
		t.Error("transport not closed after decode failure")
	}
}

func TestUnknownResponseTypeIsFatal(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})
	h.notices = nil

	h.deliver(t, protocol.Response{RspType: 4242, Content: "strange"})

	st := h.sess.State()
	if st.Phase != PhaseDisconnected || st.Err == "" {
		t.Errorf("state = %+v, want disconnected with error", st)
	}
	if len(st.History) == 0 || st.History[len(st.History)-1] != "strange" {
		t.Errorf("history = %v, want the unknown content appended", st.History)
	}
	if len(h.notices) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notices))
	}
}

func TestSendFailureTearsDown(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})
	h.conn.sendErr = transport.ErrNotConnected

	h.sess.SendMessage("into the void")

	if st := h.sess.State(); st.Phase != PhaseDisconnected || st.Err == "" {
		t.Errorf("state = %+v, want disconnected with error", st)
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseConnecting, true},
		{PhaseIdle, PhaseDisconnected, true},
		{PhaseIdle, PhaseConnected, false},
		{PhaseConnecting, PhaseConnected, true},
		{PhaseConnecting, PhaseDisconnected, true},
		{PhaseConnecting, PhaseIdle, false},
		{PhaseConnected, PhaseDisconnected, true},
		{PhaseConnected, PhaseConnecting, false},
		{PhaseDisconnected, PhaseIdle, false},
		{PhaseDisconnected, PhaseConnecting, false},
	}
	for _, tt := range tests {
		if got := validTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("validTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	h := newHarness()
	h.connect(t, "alice", []string{"alice"})

	snap := h.sess.State()
	snap.Users[0] = "mallory"
	snap.History = append(snap.History, "injected")

	if st := h.sess.State(); st.Users[0] != "alice" {
		t.Error("mutating a snapshot leaked into the session")
	}
}
