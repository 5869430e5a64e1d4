package chat

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/cryptox"
	"github.com/locktalk/locktalk/internal/protocol"
	"github.com/locktalk/locktalk/internal/server/directory"
)

// fakeAuth resolves a fixed token table without touching JWT or bcrypt.
type fakeAuth struct {
	users map[string]*directory.User
	errs  map[string]error
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*directory.User, error) {
	if err, ok := f.errs[token]; ok {
		return nil, err
	}
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, common.ErrInvalidToken
}

var testSecret = []byte("integrity-secret")

func startSession(t *testing.T, r *Registry, authn Authenticator) (net.Conn, chan struct{}) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	s := NewSession(server, r, authn, testSecret, testLogger())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background())
	}()
	return client, done
}

func sendSigned(t *testing.T, conn net.Conn, user, envelope string) {
	t.Helper()
	tag := cryptox.Tag(testSecret, protocol.FormatMessage(user, envelope))
	if err := protocol.WriteFrame(conn, envelope); err != nil {
		t.Fatalf("write envelope: %v", err)
	}
	if err := protocol.WriteFrame(conn, tag); err != nil {
		t.Fatalf("write tag: %v", err)
	}
}

func readFrameTimeout(t *testing.T, conn net.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	return frame
}

func TestSession_HandshakeInvalidToken(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, testLogger())
	authn := &fakeAuth{errs: map[string]error{
		"bad-signature": common.ErrInvalidToken,
		"expired":       common.ErrTokenExpired,
		"wrong-issuer":  common.ErrWrongIssuer,
	}}

	for _, token := range []string{"bad-signature", "expired", "wrong-issuer"} {
		conn, done := startSession(t, r, authn)
		if err := protocol.WriteFrame(conn, token); err != nil {
			t.Fatalf("write token: %v", err)
		}
		if got := readFrameTimeout(t, conn); got != protocol.InvalidTokenReply {
			t.Fatalf("token %q: verdict = %q, want %q", token, got, protocol.InvalidTokenReply)
		}
		<-done
	}

	if r.Online() != 0 {
		t.Fatalf("rejected sessions must not be registered")
	}
}

func TestSession_HandshakeUnknownUser(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, testLogger())
	authn := &fakeAuth{errs: map[string]error{
		"ghost":    common.ErrorNotFound,
		"inactive": common.ErrInactiveUser,
	}}

	for _, token := range []string{"ghost", "inactive"} {
		conn, done := startSession(t, r, authn)
		if err := protocol.WriteFrame(conn, token); err != nil {
			t.Fatalf("write token: %v", err)
		}
		if got := readFrameTimeout(t, conn); got != protocol.AuthFailed {
			t.Fatalf("token %q: verdict = %q, want %q", token, got, protocol.AuthFailed)
		}
		<-done
	}
}

func TestSession_ActiveFlow(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, testLogger())
	authn := &fakeAuth{users: map[string]*directory.User{
		"alice-token": {ID: "1", UserName: "alice", Active: true},
		"bob-token":   {ID: "2", UserName: "bob", Active: true},
	}}

	alice, _ := startSession(t, r, authn)
	if err := protocol.WriteFrame(alice, "alice-token"); err != nil {
		t.Fatalf("write token: %v", err)
	}
	if got := readFrameTimeout(t, alice); got != protocol.AuthSuccess {
		t.Fatalf("verdict = %q", got)
	}

	// First message: self-echo comes back to alice.
	sendSigned(t, alice, "alice", "ENV-hi")
	if got := readFrameTimeout(t, alice); got != "alice: ENV-hi" {
		t.Fatalf("self echo = %q", got)
	}

	// Bob joins afterwards and must see the history marker first.
	bob, _ := startSession(t, r, authn)
	if err := protocol.WriteFrame(bob, "bob-token"); err != nil {
		t.Fatalf("write token: %v", err)
	}
	if got := readFrameTimeout(t, bob); got != protocol.AuthSuccess {
		t.Fatalf("verdict = %q", got)
	}
	if got := readFrameTimeout(t, bob); got != protocol.HistoryPrefix+"alice: ENV-hi" {
		t.Fatalf("history frame = %q", got)
	}

	// Live traffic flows both ways after replay.
	sendSigned(t, bob, "bob", "ENV-yo")
	if got := readFrameTimeout(t, alice); got != "bob: ENV-yo" {
		t.Fatalf("alice received %q", got)
	}
	if got := readFrameTimeout(t, bob); got != "bob: ENV-yo" {
		t.Fatalf("bob self echo = %q", got)
	}
}

func TestSession_TamperedTagDroppedSessionKept(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, testLogger())
	authn := &fakeAuth{users: map[string]*directory.User{
		"alice-token": {ID: "1", UserName: "alice", Active: true},
	}}

	alice, _ := startSession(t, r, authn)
	if err := protocol.WriteFrame(alice, "alice-token"); err != nil {
		t.Fatalf("write token: %v", err)
	}
	if got := readFrameTimeout(t, alice); got != protocol.AuthSuccess {
		t.Fatalf("verdict = %q", got)
	}

	// Valid envelope, corrupted tag: silently discarded.
	if err := protocol.WriteFrame(alice, "ENV-evil"); err != nil {
		t.Fatalf("write envelope: %v", err)
	}
	if err := protocol.WriteFrame(alice, "bm90IGEgcmVhbCB0YWc="); err != nil {
		t.Fatalf("write tag: %v", err)
	}

	// Session must still be alive: the next valid message round-trips.
	sendSigned(t, alice, "alice", "ENV-good")
	if got := readFrameTimeout(t, alice); got != "alice: ENV-good" {
		t.Fatalf("received %q, want the valid message", got)
	}

	if history := r.History(); len(history) != 1 || !strings.Contains(history[0], "ENV-good") {
		t.Fatalf("tampered message must not reach history: %v", history)
	}
}

func TestSession_ShutdownUnblocksHandshake(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, testLogger())
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	s := NewSession(server, r, &fakeAuth{}, testSecret, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	// The client never sends its credential; the session is parked on the
	// first read when the server shuts down.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session still running after shutdown")
	}
}

func TestSession_DisconnectDeregisters(t *testing.T) {
	t.Parallel()

	r := NewRegistry(0, testLogger())
	authn := &fakeAuth{users: map[string]*directory.User{
		"alice-token": {ID: "1", UserName: "alice", Active: true},
	}}

	conn, done := startSession(t, r, authn)
	if err := protocol.WriteFrame(conn, "alice-token"); err != nil {
		t.Fatalf("write token: %v", err)
	}
	if got := readFrameTimeout(t, conn); got != protocol.AuthSuccess {
		t.Fatalf("verdict = %q", got)
	}
	if r.Online() != 1 {
		t.Fatalf("expected one live session")
	}

	conn.Close()
	<-done

	if r.Online() != 0 {
		t.Fatalf("session must deregister on disconnect")
	}
}
