/*
Package main is the plain line-oriented chat client.

It prompts for a nickname, then turns every stdin line into a dispatched
action and every store snapshot into printed output. Useful over ssh and
for piping; the interactive client lives in cmd/gabber.
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gabber/internal/app/client"
	"gabber/internal/app/dispatch"
	"gabber/internal/app/session"
	"gabber/internal/app/transport"
	"gabber/internal/configs"
	"gabber/internal/pkg/logx"
)

// printer serializes output and tracks how much history is already on
// screen so each snapshot prints only its new lines.
type printer struct {
	mu      sync.Mutex
	printed int
	phase   session.Phase
}

func (p *printer) connUpdate(st session.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A new session starts with a shorter history; start over.
	if len(st.History) < p.printed {
		p.printed = 0
	}
	for _, line := range st.History[p.printed:] {
		fmt.Println(line)
	}
	p.printed = len(st.History)

	if st.Phase != p.phase {
		p.phase = st.Phase
		switch st.Phase {
		case session.PhaseConnected:
			fmt.Printf("* connected to %q as %s (%d online)\n", st.Room, st.Nickname, len(st.Users))
		case session.PhaseDisconnected:
			if st.Err != "" {
				fmt.Printf("* disconnected: %s\n", st.Err)
			} else {
				fmt.Println("* disconnected")
			}
		}
	}
}

func (p *printer) loginUpdate(st client.LoginState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st.Err != "" {
		fmt.Printf("* login failed: %s\n", st.Err)
	}
}

func main() {
	cfg, err := configs.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logx.InitFileLogger(cfg.LogFile, cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to open log file: %v\n", err)
		os.Exit(1)
	}

	app := client.New(cfg, transport.NewWebsocketDialer())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Run(ctx)

	out := &printer{}
	loginSub := app.LoginStore().Subscribe(out.loginUpdate)
	defer loginSub.Cancel()
	connSub := app.ConnectionStore().Subscribe(out.connUpdate)
	defer connSub.Cancel()

	scanner := bufio.NewScanner(os.Stdin)

	nickname := cfg.Nickname
	if nickname == "" {
		fmt.Print("Nickname: ")
		if !scanner.Scan() {
			return
		}
		nickname = strings.TrimSpace(scanner.Text())
	}

	if err := app.Dispatch(dispatch.Login{Nickname: nickname}); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if err := app.Dispatch(dispatch.SendMessage{Text: line}); err != nil {
			fmt.Fprintf(os.Stderr, "dropped: %v\n", err)
		}
	}

	app.Dispatch(dispatch.Logout{})
	fmt.Println("Bye.")
}
