/*
Package main is the interactive terminal chat client.

It renders two views over the application context: a login form while the
session is down and a chat view while it is up. All chat state arrives as
store snapshots forwarded into the bubbletea program; keystrokes leave as
dispatched actions. The model itself never talks to the network.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gabber/internal/app/client"
	"gabber/internal/app/dispatch"
	"gabber/internal/app/session"
	"gabber/internal/app/transport"
	"gabber/internal/configs"
	"gabber/internal/pkg/logx"
)

// Store snapshots forwarded into the program.
type loginUpdateMsg client.LoginState
type connUpdateMsg session.State

type theme struct {
	title    lipgloss.Style
	status   lipgloss.Style
	errText  lipgloss.Style
	roster   lipgloss.Style
	inputBox lipgloss.Style
	help     lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("63")
	muted := lipgloss.Color("241")
	red := lipgloss.Color("196")

	return theme{
		title:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		status:  lipgloss.NewStyle().Foreground(muted),
		errText: lipgloss.NewStyle().Foreground(red).Bold(true),
		roster:  lipgloss.NewStyle().Foreground(accent),
		inputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(muted),
	}
}

type model struct {
	app   *client.App
	room  string
	theme theme

	login client.LoginState
	conn  session.State

	input    textinput.Model
	history  viewport.Model
	width    int
	height   int
	ready    bool
	quitting bool
}

func newModel(app *client.App, cfg *configs.ClientConfig) model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Placeholder = "nickname"
	input.SetValue(cfg.Nickname)
	input.Focus()

	return model{
		app:     app,
		room:    cfg.Room,
		theme:   newTheme(),
		conn:    app.ConnectionStore().Current(),
		login:   app.LoginStore().Current(),
		input:   input,
		history: viewport.New(0, 0),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) connected() bool {
	return m.conn.Phase == session.PhaseConnecting || m.conn.Phase == session.PhaseConnected
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.Width = msg.Width - 2
		m.history.Height = msg.Height - 6
		m.ready = true
		m.renderHistory()

	case loginUpdateMsg:
		m.login = client.LoginState(msg)

	case connUpdateMsg:
		wasDown := !m.connected()
		m.conn = session.State(msg)
		if wasDown && m.connected() {
			// Fresh session; switch the input over to chat.
			m.input.Reset()
			m.input.Placeholder = "message (/names, /rooms, /hide, /unhide, /quit)"
		}
		if !m.connected() {
			m.input.Placeholder = "nickname"
			m.input.SetValue(m.login.Nickname)
		}
		m.renderHistory()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.app.Dispatch(dispatch.Logout{})
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if m.connected() {
				if text == "/quit" {
					m.quitting = true
					m.app.Dispatch(dispatch.Logout{})
					return m, tea.Quit
				}
				m.app.Dispatch(dispatch.SendMessage{Text: text})
			} else {
				m.app.Dispatch(dispatch.Login{Nickname: text})
			}
			m.input.Reset()
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.history, cmd = m.history.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// renderHistory refreshes the viewport from the latest snapshot and keeps
// it pinned to the newest line.
func (m *model) renderHistory() {
	if !m.ready {
		return
	}
	m.history.SetContent(strings.Join(m.conn.History, "\n"))
	m.history.GotoBottom()
}

func (m model) View() string {
	if m.quitting {
		return "Bye.\n"
	}
	if !m.ready {
		return "Loading..."
	}

	if m.connected() {
		return m.chatView()
	}
	return m.loginView()
}

func (m model) loginView() string {
	var b strings.Builder
	b.WriteString(m.theme.title.Render("gabber") + "\n\n")
	b.WriteString(fmt.Sprintf("Room %q. Pick a nickname to join.\n\n", m.room))
	b.WriteString(m.theme.inputBox.Render(m.input.View()) + "\n")
	if m.login.Err != "" {
		b.WriteString("\n" + m.theme.errText.Render(m.login.Err) + "\n")
	}
	b.WriteString("\n" + m.theme.help.Render("enter to join · esc to quit"))
	return b.String()
}

func (m model) chatView() string {
	status := fmt.Sprintf("%s · room %s · %s · %d online",
		m.conn.Phase, m.conn.Room, m.conn.Nickname, len(m.conn.Users))

	roster := ""
	if len(m.conn.Users) > 0 {
		roster = m.theme.roster.Render(strings.Join(m.conn.Users, ", "))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.status.Render(status),
		roster,
		m.history.View(),
		m.theme.inputBox.Render(m.input.View()),
	)
}

func main() {
	cfg, err := configs.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	if err := logx.InitFileLogger(cfg.LogFile, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to open log file: %v\n", err)
		os.Exit(1)
	}

	app := client.New(cfg, transport.NewWebsocketDialer())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Run(ctx)

	p := tea.NewProgram(newModel(app, cfg), tea.WithAltScreen())

	// Store notifications become program messages. Subscriptions fire on
	// the app run loop; p.Send is safe from any goroutine.
	loginSub := app.LoginStore().Subscribe(func(st client.LoginState) {
		p.Send(loginUpdateMsg(st))
	})
	defer loginSub.Cancel()
	connSub := app.ConnectionStore().Subscribe(func(st session.State) {
		p.Send(connUpdateMsg(st))
	})
	defer connSub.Cancel()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gabber fatal error: %v\n", err)
		os.Exit(1)
	}
}
