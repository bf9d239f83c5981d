/*
Package session implements the chat session state machine.

This file is the machine itself. All methods run on the application
context's single logical thread of control; the session never spawns
goroutines and never blocks. The transport's events are the only
asynchronous boundary, and they are handed in one at a time via
HandleEvent in delivery order.

Responses correlate to requests purely by type: the protocol has no request
IDs, so a response is interpreted relative to the current phase (a JOIN ack
only means "we are in" while connecting). At most one request per kind is
outstanding at any time, which keeps that correlation sound.
*/
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gabber/internal/app/protocol"
	"gabber/internal/app/transport"

	"gabber/internal/pkg/logx"
)

// serverLinePrefix marks history lines that the server originated, as
// opposed to relayed chat text which arrives pre-formatted.
const serverLinePrefix = "server: "

// Session owns one transport connection and all connection/login/error/room
// state for a single login attempt. It is discarded, never reused, once it
// reaches PhaseDisconnected.
type Session struct {
	state     State
	serverURL string
	dialer    transport.Dialer
	conn      transport.Conn
	notify    func(State)
	quitting  bool
	logger    zerolog.Logger
}

// New constructs an idle session bound to the room it may occupy. notify
// receives one snapshot per external trigger, never more.
func New(serverURL, room string, dialer transport.Dialer, notify func(State)) *Session {
	return &Session{
		state:     State{Phase: PhaseIdle, Room: room},
		serverURL: serverURL,
		dialer:    dialer,
		notify:    notify,
		logger:    logx.Logger().With().Str("component", "session").Str("room", room).Logger(),
	}
}

// State returns a detached snapshot of the current session state.
func (s *Session) State() State {
	return s.state.clone()
}

// Events exposes the live transport's event stream to the run loop, or nil
// when no transport is attached (a nil channel never fires in a select).
func (s *Session) Events() <-chan transport.Event {
	if s.conn == nil {
		return nil
	}
	return s.conn.Events()
}

// publish pushes the snapshot to the observer. Every external trigger
// funnels through exactly one publish, no matter how many fields it
// touched.
func (s *Session) publish() {
	if s.notify != nil {
		s.notify(s.state.clone())
	}
}

// transition moves the machine to the next phase, enforcing the legality
// table. Illegal transitions indicate a bug and are refused loudly.
func (s *Session) transition(to Phase) {
	if !validTransition(s.state.Phase, to) {
		s.logger.Error().
			Stringer("from", s.state.Phase).
			Stringer("to", to).
			Msg("Illegal phase transition refused")
		return
	}
	s.logger.Debug().Stringer("from", s.state.Phase).Stringer("to", to).Msg("Phase transition")
	s.state.Phase = to
}

// Login validates the nickname and opens the transport. An empty nickname
// is rejected locally and never touches the network.
func (s *Session) Login(ctx context.Context, nickname string) {
	if s.state.Phase != PhaseIdle {
		return
	}
	if nickname == "" {
		s.state.Err = "nickname required"
		s.publish()
		return
	}

	s.state.Nickname = nickname
	s.state.Err = ""

	conn, err := s.dialer.Dial(ctx, s.serverURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", s.serverURL).Msg("Dial failed")
		s.state.Err = fmt.Sprintf("server unavailable: %v", err)
		s.teardownLocal()
		s.publish()
		return
	}

	s.conn = conn
	s.transition(PhaseConnecting)
	s.publish()
}

// SendMessage sends chat text to the joined room. Empty text is dropped
// locally; it is not an error and produces no notification.
func (s *Session) SendMessage(text string) {
	if s.state.Phase != PhaseConnected || text == "" {
		return
	}
	s.sendRequest(s.state.Room, protocol.ReqMsg, text)
}

// SendCommand sends an arbitrary protocol request against the current
// room. Used by the application context for the slash-commands (names,
// rooms, nick, hide, unhide); plain chat text goes through SendMessage.
func (s *Session) SendCommand(reqType protocol.RequestType, content string) {
	if s.state.Phase != PhaseConnected {
		return
	}
	room := s.state.Room
	if reqType == protocol.ReqGetNickname || reqType == protocol.ReqListRooms {
		room = "" // server-scoped commands carry no room
	}
	s.sendRequest(room, reqType, content)
}

// Quit is the user hanging up: close the transport with a normal code and
// end the session with no error recorded.
func (s *Session) Quit() {
	if s.state.Phase == PhaseDisconnected {
		return
	}
	s.quitting = true
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Transport close on quit")
		}
	}
	s.teardownLocal()
	s.publish()
}

// HandleEvent applies one transport event. Events arriving after the
// session reached its terminal phase are ignored entirely — the transport
// may still flush events queued before a local Close.
func (s *Session) HandleEvent(ev transport.Event) {
	if s.state.Phase == PhaseDisconnected {
		return
	}

	switch ev := ev.(type) {
	case transport.Opened:
		s.handleOpened()
	case transport.Message:
		s.handleMessage(ev.Data)
	case transport.Errored:
		s.fail(fmt.Sprintf("server disconnected: %v", ev.Err))
	case transport.Closed:
		s.handleClosed(ev)
	}
}

// handleOpened announces the nickname and joins the fixed room. Both acks
// are still outstanding afterwards, so the phase stays connecting.
func (s *Session) handleOpened() {
	s.logger.Info().Str("nickname", s.state.Nickname).Msg("Transport opened")
	s.sendRequest("", protocol.ReqSetNickname, s.state.Nickname)
	if s.state.Phase == PhaseDisconnected {
		return // send failed and tore the session down, which published
	}
	s.sendRequest(s.state.Room, protocol.ReqJoin, s.state.Room)
	if s.state.Phase == PhaseDisconnected {
		return
	}
	s.publish()
}

func (s *Session) handleMessage(data []byte) {
	rsp, err := protocol.DecodeResponse(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Undecodable server payload")
		s.fail(fmt.Sprintf("server disconnected: %v", err))
		return
	}

	if !rsp.RspType.Known() {
		s.logger.Warn().Int("rspType", int(rsp.RspType)).Msg("Unrecognized response type")
		s.state.History = append(s.state.History, rsp.Content)
		s.fail(fmt.Sprintf("unrecognized server response %d", int(rsp.RspType)))
		return
	}
	if rsp.RspType.IsError() {
		s.logger.Warn().Stringer("rspType", rsp.RspType).Str("content", rsp.Content).Msg("Server error response")
		s.state.History = append(s.state.History, serverLinePrefix+rsp.Content)
		s.fail(rsp.Content)
		return
	}

	switch rsp.RspType {
	case protocol.RspSetNickname, protocol.RspGetNickname, protocol.RspListRooms,
		protocol.RspHide, protocol.RspUnhide:
		s.state.History = append(s.state.History, serverLinePrefix+rsp.Content)

	case protocol.RspJoin:
		s.state.Users = append([]string(nil), rsp.List...)
		s.state.History = append(s.state.History, serverLinePrefix+rsp.Content)
		if s.state.Phase == PhaseConnecting {
			s.transition(PhaseConnected)
		}

	case protocol.RspListNames:
		s.state.Users = append([]string(nil), rsp.List...)

	case protocol.RspMsg:
		s.state.History = append(s.state.History, rsp.Content)

	case protocol.RspLeave:
		s.state.Users = append([]string(nil), rsp.List...)
		s.state.History = append(s.state.History, serverLinePrefix+rsp.Content)
	}

	s.publish()
}

func (s *Session) handleClosed(ev transport.Closed) {
	if s.quitting {
		// Our own close frame coming back around; Quit already published.
		return
	}
	reason := ev.Reason
	if reason == "" {
		reason = "connection closed"
	}
	s.fail(fmt.Sprintf("server disconnected: %s (code %d)", reason, ev.Code))
}

// sendRequest encodes and sends one request. Any failure to reach the wire
// is a transport failure and tears the session down.
func (s *Session) sendRequest(room string, reqType protocol.RequestType, content string) {
	data, err := protocol.EncodeRequest(protocol.Request{
		RoomName: room,
		ReqType:  reqType,
		Content:  content,
	})
	if err != nil {
		s.logger.Error().Err(err).Stringer("reqtype", reqType).Msg("Encode request")
		s.fail(fmt.Sprintf("cannot encode request: %v", err))
		return
	}
	s.logger.Debug().Stringer("reqtype", reqType).Msg("Request sent")
	if err := s.conn.Send(data); err != nil {
		s.logger.Warn().Err(err).Stringer("reqtype", reqType).Msg("Send failed")
		s.fail(fmt.Sprintf("server disconnected: %v", err))
	}
}

// fail records the error, closes the transport, and publishes the terminal
// snapshot. Every fatal path — protocol error, unknown response, decode
// failure, transport loss — funnels through here so teardown happens once.
func (s *Session) fail(errMsg string) {
	s.state.Err = errMsg
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Transport close during teardown")
		}
	}
	s.teardownLocal()
	s.publish()
}

// teardownLocal resets the per-connection fields and marks the session
// terminal. The error field is left alone: Quit keeps it empty, fail sets
// it first.
func (s *Session) teardownLocal() {
	s.state.Users = nil
	s.state.Nickname = ""
	if s.state.Phase != PhaseDisconnected {
		s.transition(PhaseDisconnected)
	}
}
