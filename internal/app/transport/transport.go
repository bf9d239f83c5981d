/*
Package transport wraps one bidirectional message channel to the chat
server behind a small contract the session layer can own.

A Conn emits exactly one Opened event per successful dial, zero or more
Message events while open, and exactly one terminal event — Closed or
Errored — after which the event channel is closed and nothing more is
emitted. The session relies on that terminal-exactly-once guarantee to
avoid double teardown.
*/
package transport

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by a Dialer when the channel cannot be
// constructed at all, e.g. an invalid endpoint or a refused connection.
var ErrUnavailable = errors.New("transport unavailable")

// ErrNotConnected is returned by Send before the Opened event has been
// emitted or after the terminal event.
var ErrNotConnected = errors.New("transport not connected")

// Event is the closed set of things a Conn can report. Exactly one of the
// concrete types below flows through Conn.Events per occurrence, in the
// order the underlying channel produced them.
type Event interface {
	isEvent()
}

// Opened signals the channel is established and Send may be called.
type Opened struct{}

// Message carries one inbound wire payload.
type Message struct {
	Data []byte
}

// Errored is a terminal event: the channel failed.
type Errored struct {
	Err error
}

// Closed is a terminal event: the channel closed with a websocket close
// code and optional reason. Code 1000 is a normal closure.
type Closed struct {
	Code   int
	Reason string
}

func (Opened) isEvent()  {}
func (Message) isEvent() {}
func (Errored) isEvent() {}
func (Closed) isEvent()  {}

// Conn is one live channel to the server. It is exclusively owned by a
// single session instance at a time.
type Conn interface {
	// Events returns the channel lifecycle events in delivery order. The
	// channel is closed after the terminal event.
	Events() <-chan Event

	// Send delivers wire bytes to the server. It never blocks on the
	// network from the caller's point of view beyond the socket write.
	Send(data []byte) error

	// Close tears the channel down with a normal close code. Safe to call
	// more than once.
	Close() error
}

// Dialer constructs a Conn. The concrete implementation is the only place
// that knows what kind of socket is underneath.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}
