/*
Package session implements the chat session state machine: one
authenticated, single-room connection lifecycle from login to
disconnection.

This file defines the phase enum, its legality table, and the state
snapshot published to observers.
*/
package session

// Phase is the session's current state-machine state. Disconnected is
// terminal: retrying means constructing a brand-new session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// validTransition defines which phase changes are legal. Every transition
// funnels through here; an illegal one is a bug in the machine itself.
func validTransition(from, to Phase) bool {
	allowed := map[Phase][]Phase{
		PhaseIdle:         {PhaseConnecting, PhaseDisconnected},
		PhaseConnecting:   {PhaseConnected, PhaseDisconnected},
		PhaseConnected:    {PhaseDisconnected},
		PhaseDisconnected: {},
	}
	for _, valid := range allowed[from] {
		if to == valid {
			return true
		}
	}
	return false
}

// State is the read-only snapshot a session publishes after every
// transition. Published copies are detached from the session's own slices,
// so observers may hold them without locking.
type State struct {
	Phase    Phase
	Nickname string
	Room     string
	Users    []string
	History  []string
	Err      string
}

// clone detaches the snapshot from the session's internal slices.
func (s State) clone() State {
	out := s
	out.Users = append([]string(nil), s.Users...)
	out.History = append([]string(nil), s.History...)
	return out
}
