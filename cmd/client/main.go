// Command client is a terminal front end for the RentMyVenue auth API.
// It drives the same verification flow the web app uses: credentials,
// one-time passcode, established session.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/codewithdenise/rentmyvenue/internal/client/gateway"
	"github.com/codewithdenise/rentmyvenue/internal/client/session"
	"github.com/codewithdenise/rentmyvenue/internal/client/verifier"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8000", "auth API base URL")
	stateDir := flag.String("state-dir", "", "directory for the persisted session (default: user config dir)")
	admin := flag.Bool("admin", false, "sign in to the admin area")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := session.NewStore(*stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open session store: %v\n", err)
		os.Exit(1)
	}

	gw := gateway.NewHTTPGateway(*baseURL, logger)
	ctrl := verifier.NewController(gw, store, logger)
	ctrl.Resume(ctx)

	app := &app{
		reader: bufio.NewReader(os.Stdin),
		ctrl:   ctrl,
		admin:  *admin,
	}
	if err := app.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	reader *bufio.Reader
	ctrl   *verifier.Controller
	admin  bool
}

func (a *app) run(ctx context.Context) error {
	if sess := a.ctrl.Session(); sess.Authenticated {
		fmt.Printf("Signed in as %s (%s)\n", sess.Identity.Email, sess.Identity.Role)
	}

	fmt.Println("Commands: login, register, logout, whoami, quit")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cmd, err := a.prompt("> ")
		if err != nil {
			return err
		}
		switch cmd {
		case "login":
			a.login(ctx)
		case "register":
			a.register(ctx)
		case "logout":
			a.ctrl.Logout(ctx)
			fmt.Println("Signed out.")
		case "whoami":
			a.whoami()
		case "quit", "exit", "q":
			return nil
		case "":
		default:
			fmt.Printf("Unknown command %q\n", cmd)
		}
	}
}

func (a *app) login(ctx context.Context) {
	email, err := a.prompt("Email: ")
	if err != nil {
		return
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return
	}
	remember := false
	if !a.admin {
		answer, err := a.prompt("Stay signed in? [y/N]: ")
		if err != nil {
			return
		}
		remember = strings.EqualFold(answer, "y")
	}

	flow := verifier.FlowLogin
	if a.admin {
		flow = verifier.FlowAdminLogin
	}
	if violations := a.ctrl.SubmitLogin(ctx, flow, email, password, remember); violations != nil {
		for _, v := range violations {
			fmt.Printf("  %s: %s\n", v.Field, v.Message)
		}
		return
	}
	a.finish(ctx)
}

func (a *app) register(ctx context.Context) {
	email, err := a.prompt("Email: ")
	if err != nil {
		return
	}
	name, err := a.prompt("Full name: ")
	if err != nil {
		return
	}
	roleInput, err := a.prompt("Account type [consumer/vendor]: ")
	if err != nil {
		return
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return
	}
	confirm, err := a.promptPassword("Confirm password: ")
	if err != nil {
		return
	}

	role := session.Role(strings.ToLower(roleInput))
	if violations := a.ctrl.SubmitRegistration(ctx, email, password, confirm, name, role); violations != nil {
		for _, v := range violations {
			fmt.Printf("  %s: %s\n", v.Field, v.Message)
		}
		return
	}
	a.finish(ctx)
}

// finish runs the passcode step until the flow settles.
func (a *app) finish(ctx context.Context) {
	for a.ctrl.State() == verifier.StateOTPPending {
		code, err := a.prompt("One-time code (blank to resend, \"back\" to cancel): ")
		if err != nil {
			return
		}
		switch code {
		case "":
			if err := a.ctrl.ResendCode(ctx); err != nil {
				fmt.Println(a.ctrl.Session().LastError)
				continue
			}
			fmt.Println("A new code is on its way.")
			continue
		case "back":
			a.ctrl.Back()
			return
		}

		redirect, err := a.ctrl.SubmitCode(ctx, code)
		if err != nil {
			fmt.Println(a.ctrl.Session().LastError)
			continue
		}
		sess := a.ctrl.Session()
		fmt.Printf("Welcome, %s! (%s)\n", sess.Identity.Name, redirect)
		return
	}

	if msg := a.ctrl.Session().LastError; msg != "" {
		fmt.Println(msg)
	}
}

func (a *app) whoami() {
	sess := a.ctrl.Session()
	if !sess.Authenticated {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("%s <%s> role=%s\n", sess.Identity.Name, sess.Identity.Email, sess.Identity.Role)
}

func (a *app) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) promptPassword(label string) (string, error) {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
