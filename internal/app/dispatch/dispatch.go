/*
Package dispatch carries user intent from the front-ends into the chat
session core.

The dispatcher is a queue owned by the application context, not an ambient
singleton: front-ends enqueue actions from any goroutine, the context's run
loop drains them strictly in submission order, and every handler runs to
completion before the next action starts. A handler is never allowed to
dispatch synchronously — that would let it observe a half-applied action,
so it is treated as a programming error and not recovered.
*/
package dispatch

import (
	"bytes"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrQueueFull is returned by Dispatch when the queue is saturated.
// Dispatch never suspends the caller.
var ErrQueueFull = errors.New("dispatch queue full")

const defaultQueueSize = 128

// Action is the closed set of user intents.
type Action interface {
	isAction()
}

// Login submits a nickname and asks for a connection.
type Login struct {
	Nickname string
}

// SendMessage sends text to the joined room.
type SendMessage struct {
	Text string
}

// Logout quits the current session.
type Logout struct{}

func (Login) isAction()       {}
func (SendMessage) isAction() {}
func (Logout) isAction()      {}

// Dispatcher fans actions out to its registered handlers, one action at a
// time, in the order they were dispatched.
type Dispatcher struct {
	queue    chan Action
	mu       sync.Mutex
	handlers []func(Action)

	// invoking holds the goroutine id of the drain loop while handlers run,
	// zero otherwise. Used to catch re-entrant dispatch from a handler.
	invoking atomic.Uint64
}

// New returns a dispatcher with the default queue capacity.
func New() *Dispatcher {
	return &Dispatcher{queue: make(chan Action, defaultQueueSize)}
}

// Register adds a handler. Handlers are invoked in registration order for
// every action. Register before the owning run loop starts draining.
func (d *Dispatcher) Register(h func(Action)) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

// Dispatch enqueues an action. It returns ErrQueueFull rather than block,
// and panics if called synchronously from a handler.
func (d *Dispatcher) Dispatch(a Action) error {
	if d.invoking.Load() == gid() {
		panic("dispatch: Dispatch called from inside a handler")
	}
	select {
	case d.queue <- a:
		return nil
	default:
		return ErrQueueFull
	}
}

// Actions exposes the queue to the owning run loop. The loop must pass each
// received action to Invoke before taking the next one.
func (d *Dispatcher) Actions() <-chan Action {
	return d.queue
}

// Invoke runs every registered handler for a, to completion, on the
// caller's goroutine.
func (d *Dispatcher) Invoke(a Action) {
	d.mu.Lock()
	handlers := make([]func(Action), len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.Unlock()

	d.invoking.Store(gid())
	defer d.invoking.Store(0)

	for _, h := range handlers {
		h(a)
	}
}

// gid returns the current goroutine id, parsed from the stack header. Only
// used for the re-entrancy check; never for scheduling decisions.
func gid() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i > 0 {
		if id, err := strconv.ParseUint(string(buf[:i]), 10, 64); err == nil {
			return id
		}
	}
	return 0
}
