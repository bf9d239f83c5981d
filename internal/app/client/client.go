/*
Package client is the application context for the chat client: it owns the
dispatcher, the two observable stores, and at most one live session, and it
runs the single logical thread of control everything else observes.

Front-ends dispatch actions from their own goroutines and re-render from
store snapshots; they never touch the session directly. The run loop is the
only goroutine that mutates session state, which is what makes the
exactly-once notification and ordering guarantees hold without locking.
*/
package client

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"gabber/internal/app/dispatch"
	"gabber/internal/app/protocol"
	"gabber/internal/app/session"
	"gabber/internal/app/store"
	"gabber/internal/app/transport"
	"gabber/internal/configs"
	"gabber/internal/pkg/logx"
)

// LoginState is what the login view renders: the last submitted nickname
// and the error to show next to the form, if any.
type LoginState struct {
	Nickname string
	Err      string
}

// App wires the chat client core together. Construct one at application
// start, run it for the life of the process, and let it die with the
// process; it is never a package-level singleton.
type App struct {
	cfg        *configs.ClientConfig
	dialer     transport.Dialer
	dispatcher *dispatch.Dispatcher
	loginStore *store.Store[LoginState]
	connStore  *store.Store[session.State]

	// Run-loop-owned; nil between sessions.
	sess   *session.Session
	events <-chan transport.Event

	logger zerolog.Logger
}

// New constructs an application context around the given dialer.
func New(cfg *configs.ClientConfig, dialer transport.Dialer) *App {
	a := &App{
		cfg:        cfg,
		dialer:     dialer,
		dispatcher: dispatch.New(),
		loginStore: store.New(LoginState{Nickname: cfg.Nickname}),
		connStore:  store.New(session.State{Phase: session.PhaseIdle, Room: cfg.Room}),
		logger:     logx.Logger().With().Str("component", "client").Logger(),
	}
	a.dispatcher.Register(a.handle)
	return a
}

// Dispatch submits a user action. Safe from any goroutine.
func (a *App) Dispatch(action dispatch.Action) error {
	return a.dispatcher.Dispatch(action)
}

// LoginStore exposes the login-view state for subscription.
func (a *App) LoginStore() *store.Store[LoginState] {
	return a.loginStore
}

// ConnectionStore exposes the session snapshot for subscription.
func (a *App) ConnectionStore() *store.Store[session.State] {
	return a.connStore
}

// Run drains actions and transport events until ctx is cancelled. All
// session transitions happen on this goroutine, in arrival order, one at a
// time.
func (a *App) Run(ctx context.Context) {
	a.logger.Info().Str("server", a.cfg.ServerURL).Str("room", a.cfg.Room).Msg("Client context running")

	for {
		select {
		case <-ctx.Done():
			if a.sess != nil {
				a.sess.Quit()
				a.sess = nil
			}
			a.logger.Info().Msg("Client context stopped")
			return

		case action := <-a.dispatcher.Actions():
			a.dispatcher.Invoke(action)

		case ev, ok := <-a.events:
			if !ok {
				// Transport emitted its terminal event; nothing more comes.
				a.events = nil
				continue
			}
			if a.sess != nil {
				a.sess.HandleEvent(ev)
			}
		}
	}
}

// handle applies one user action. Runs on the run-loop goroutine via the
// dispatcher.
func (a *App) handle(action dispatch.Action) {
	switch action := action.(type) {
	case dispatch.Login:
		a.handleLogin(action.Nickname)
	case dispatch.SendMessage:
		a.handleSend(action.Text)
	case dispatch.Logout:
		a.handleLogout()
	}
}

func (a *App) handleLogin(nickname string) {
	if a.sess != nil && a.alive() {
		a.loginStore.Set(LoginState{Nickname: nickname, Err: "already connected"})
		return
	}

	a.loginStore.Set(LoginState{Nickname: nickname})

	// A fresh session instance per attempt; the previous one, if any, is
	// terminal and discarded.
	sess := session.New(a.cfg.ServerURL, a.cfg.Room, a.dialer, func(st session.State) {
		a.connStore.Set(st)
		if st.Err != "" {
			a.loginStore.Set(LoginState{Nickname: nickname, Err: st.Err})
		}
	})
	sess.Login(context.Background(), nickname)

	switch sess.State().Phase {
	case session.PhaseConnecting:
		a.sess = sess
		a.events = sess.Events()
	default:
		// Rejected locally or dial failure: nothing to keep.
		a.sess = nil
		a.events = nil
	}
}

func (a *App) handleSend(text string) {
	if a.sess == nil || !a.alive() {
		a.logger.Debug().Msg("Message dropped, no live session")
		return
	}

	if req, content, ok := slashCommand(text); ok {
		a.sess.SendCommand(req, content)
		return
	}
	a.sess.SendMessage(text)
}

func (a *App) handleLogout() {
	if a.sess == nil {
		return
	}
	a.sess.Quit()
	a.sess = nil
}

// alive reports whether the current session can still talk to the server.
func (a *App) alive() bool {
	if a.sess == nil {
		return false
	}
	switch a.sess.State().Phase {
	case session.PhaseConnecting, session.PhaseConnected:
		return true
	}
	return false
}

// slashCommand maps front-end command text onto protocol requests. Plain
// text is not a command.
func slashCommand(text string) (protocol.RequestType, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return 0, "", false
	}
	cmd, _, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	switch strings.ToLower(cmd) {
	case "names":
		return protocol.ReqListNames, "", true
	case "rooms":
		return protocol.ReqListRooms, "", true
	case "nick":
		return protocol.ReqGetNickname, "", true
	case "hide":
		return protocol.ReqHide, "", true
	case "unhide":
		return protocol.ReqUnhide, "", true
	}
	return 0, "", false
}
