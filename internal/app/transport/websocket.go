/*
Package transport wraps one bidirectional message channel to the chat
server.

This file is the gorilla/websocket implementation. The dial is synchronous,
so Opened is queued as the first event; a single read pump goroutine then
owns the events channel, translates the socket close into exactly one
terminal event, and closes the channel.
*/
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// timeout for the websocket handshake during dial.
	handshakeTimeout = 10 * time.Second

	// timeout for each outbound frame write.
	writeWait = 10 * time.Second

	// channel capacity for buffered inbound events.
	eventBuffer = 64
)

// WebsocketDialer dials a chat server over a websocket.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer returns a dialer with the default handshake timeout.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Dial opens a connection to url. Failure to construct the channel, for any
// reason, is reported as a wrapped ErrUnavailable.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	ws, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, url, err)
	}

	c := &wsConn{
		ws:     ws,
		events: make(chan Event, eventBuffer),
	}
	c.events <- Opened{}
	c.opened.Store(true)

	go c.readPump()
	return c, nil
}

// wsConn implements Conn over a gorilla websocket connection.
type wsConn struct {
	ws     *websocket.Conn
	events chan Event

	// writeMu serializes frame writes; gorilla permits one writer at a time.
	writeMu sync.Mutex

	opened   atomic.Bool
	closed   atomic.Bool
	termOnce sync.Once
	closeErr error
}

func (c *wsConn) Events() <-chan Event {
	return c.events
}

func (c *wsConn) Send(data []byte) error {
	if !c.opened.Load() || c.closed.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Close sends a normal close frame and tears down the socket. Idempotent;
// the read pump notices the socket going away and emits the terminal event.
func (c *wsConn) Close() error {
	if c.closed.Swap(true) {
		return c.closeErr
	}

	c.writeMu.Lock()
	deadline := time.Now().Add(writeWait)
	c.ws.SetWriteDeadline(deadline)
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()

	c.closeErr = c.ws.Close()
	return c.closeErr
}

// readPump delivers inbound frames in socket order and exits on the first
// read error, emitting the single terminal event.
func (c *wsConn) readPump() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.terminate(err)
			return
		}
		c.events <- Message{Data: data}
	}
}

// terminate classifies the read error into the terminal event and closes
// the events channel. Runs at most once regardless of how the socket dies.
func (c *wsConn) terminate(err error) {
	c.termOnce.Do(func() {
		switch {
		case c.closed.Load():
			// We hung up ourselves: a clean local closure.
			c.events <- Closed{Code: websocket.CloseNormalClosure}
		default:
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.events <- Closed{Code: ce.Code, Reason: ce.Text}
			} else {
				c.events <- Errored{Err: err}
			}
		}
		close(c.events)
	})
}
