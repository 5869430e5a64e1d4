package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/locktalk/locktalk/internal/client"
)

// App is the interactive client. Input/output are injected so the flow is
// testable without a terminal.
type App struct {
	config *Config
	in     *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *Config, in io.Reader, out io.Writer) *App {
	return &App{
		config: cfg,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Run walks the user through register/login and then enters chat mode.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "=== LockTalk ===")
	fmt.Fprintln(a.out, "1. Register")
	fmt.Fprintln(a.out, "2. Login")

	choice, err := GetSimpleText(a.in, ">", a.out)
	if err != nil {
		return err
	}

	authClient := client.NewAuthClient(a.config.AuthAddr)

	var userName, token string
	switch choice {
	case "1":
		userName, token, err = a.register(ctx, authClient)
	case "2":
		userName, token, err = a.login(ctx, authClient)
	default:
		return fmt.Errorf("unknown choice: %q", choice)
	}
	if err != nil {
		return err
	}

	return a.chat(ctx, userName, token)
}

func (a *App) register(ctx context.Context, ac *client.AuthClient) (userName, token string, err error) {
	userName, err = GetSimpleText(a.in, "Username", a.out)
	if err != nil {
		return "", "", err
	}
	email, err := GetSimpleText(a.in, "Email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", "", err
	}

	if err := ac.Register(ctx, userName, email, password); err != nil {
		return "", "", fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintln(a.out, "Registered successfully.")

	// Log straight in with the same credentials.
	token, err = ac.Login(ctx, userName, password)
	if err != nil {
		return "", "", fmt.Errorf("login after registration failed: %w", err)
	}
	return userName, token, nil
}

func (a *App) login(ctx context.Context, ac *client.AuthClient) (userName, token string, err error) {
	userName, err = GetSimpleText(a.in, "Username", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", "", err
	}

	token, err = ac.Login(ctx, userName, password)
	if err != nil {
		return "", "", fmt.Errorf("login failed: %w", err)
	}
	return userName, token, nil
}

// chat connects, prints incoming traffic from a background loop, and reads
// outgoing lines until /quit or EOF.
func (a *App) chat(ctx context.Context, userName, token string) error {
	cc, err := client.Connect(ctx, a.config.ChatAddr, token, userName, a.config.AESKey, a.config.HMACSecret)
	if err != nil {
		return err
	}
	defer cc.Close()

	fmt.Fprintln(a.out, "You are now in chat mode. Type messages or /quit to exit.")

	go func() {
		for {
			msg, err := cc.Receive()
			if err != nil {
				fmt.Fprintln(a.out, "Disconnected from server.")
				return
			}
			a.printIncoming(msg)
		}
	}()

	for {
		line, err := a.in.ReadString('\n')
		if err != nil {
			return nil // EOF closes the session
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "/quit") {
			fmt.Fprintln(a.out, "Disconnecting...")
			return nil
		}
		if err := cc.Send(line); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}
}

func (a *App) printIncoming(msg client.Incoming) {
	prefix := ""
	if msg.History {
		prefix = "(history) "
	}
	if msg.Sender == "" {
		fmt.Fprintf(a.out, "%s%s\n", prefix, msg.Text)
		return
	}
	if !msg.Decrypted {
		// Undecryptable envelope; show it raw rather than dropping it.
		fmt.Fprintf(a.out, "%s[%s] <unreadable> %s\n", prefix, msg.Sender, msg.Text)
		return
	}
	fmt.Fprintf(a.out, "%s[%s] %s\n", prefix, msg.Sender, msg.Text)
}
