// Package client implements the LockTalk client libraries: the auth client
// that obtains credentials from the auth endpoint, and the chat client that
// speaks the framed chat protocol with end-to-end encrypted messages.
package client

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/locktalk/locktalk/internal/protocol"
)

// AuthClient talks to the auth endpoint. One connection per request.
type AuthClient struct {
	addr   string
	dialer net.Dialer
}

func NewAuthClient(addr string) *AuthClient {
	return &AuthClient{addr: addr}
}

// Register creates an account. The returned error carries the server's
// reason string on rejection.
func (a *AuthClient) Register(ctx context.Context, userName, email, password string) error {
	_, err := a.request(ctx, protocol.VerbRegister, userName, email, password)
	return err
}

// Login exchanges name/password for a signed credential.
func (a *AuthClient) Login(ctx context.Context, userName, password string) (string, error) {
	return a.request(ctx, protocol.VerbLogin, userName, password)
}

func (a *AuthClient) request(ctx context.Context, verb string, args ...string) (string, error) {
	conn, err := a.dialer.DialContext(ctx, "tcp", a.addr)
	if err != nil {
		return "", fmt.Errorf("auth server unreachable: %w", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, verb); err != nil {
		return "", err
	}
	for _, arg := range args {
		if err := protocol.WriteFrame(conn, arg); err != nil {
			return "", err
		}
	}

	reply, err := protocol.ReadFrame(conn)
	if err != nil {
		return "", err
	}

	marker, detail, _ := strings.Cut(reply, " ")
	switch marker {
	case protocol.ReplyOK:
		return detail, nil
	case protocol.ReplyErr:
		return "", fmt.Errorf("%s", detail)
	default:
		return "", fmt.Errorf("unexpected reply: %q", reply)
	}
}
