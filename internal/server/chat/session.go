package chat

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/cryptox"
	"github.com/locktalk/locktalk/internal/logging"
	"github.com/locktalk/locktalk/internal/protocol"
	"github.com/locktalk/locktalk/internal/server/directory"
)

// Authenticator gates entry to the channel. *auth.Gateway satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*directory.User, error)
}

const (
	outboxSize       = 256
	handshakeTimeout = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// Session owns one client connection: the credential handshake, the
// receive/verify/forward loop, and a dedicated writer draining the outbox so
// a slow peer never blocks the registry.
//
// States: connected -> authenticating -> active -> closed. The liveness flip
// to closed happens exactly once, whether triggered by end-of-stream, a
// protocol violation, a stalled outbox, or server shutdown. There is no
// explicit quit frame; clients quit by closing the connection.
type Session struct {
	conn       net.Conn
	registry   *Registry
	authn      Authenticator
	hmacSecret []byte
	logger     logging.Logger

	userName  string
	outbox    chan string
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(conn net.Conn, registry *Registry, authn Authenticator, hmacSecret []byte, logger logging.Logger) *Session {
	return &Session{
		conn:       conn,
		registry:   registry,
		authn:      authn,
		hmacSecret: hmacSecret,
		logger:     logger.With("module", "session", "remote", conn.RemoteAddr().String()),
		outbox:     make(chan string, outboxSize),
		done:       make(chan struct{}),
	}
}

// UserName returns the display name bound at handshake, or "" before it.
func (s *Session) UserName() string {
	return s.userName
}

// Run drives the session to completion. It blocks until the connection is
// closed and always leaves the registry and the transport cleaned up.
func (s *Session) Run(ctx context.Context) {
	defer func() {
		s.registry.Leave(s)
		s.shutdown()
	}()

	// Server shutdown must unblock a session parked on a network read,
	// including one still mid-handshake that the registry has never seen.
	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case <-s.done:
		}
	}()

	user, ok := s.handshake(ctx)
	if !ok {
		return
	}
	s.userName = user.UserName

	history, err := s.registry.Join(s)
	if err != nil {
		if errors.Is(err, common.ErrCapacityExceeded) {
			s.logger.Warn(ctx, "join rejected: server full", "user", s.userName)
			_ = protocol.WriteFrame(s.conn, protocol.CapacityReply)
		}
		return
	}

	if err := protocol.WriteFrame(s.conn, protocol.AuthSuccess); err != nil {
		return
	}

	// Replay happens before the writer starts draining the outbox, so a
	// message broadcast during replay is delivered after it, never before.
	for _, message := range history {
		if err := protocol.WriteFrame(s.conn, protocol.HistoryPrefix+message); err != nil {
			return
		}
	}
	if len(history) > 0 {
		s.logger.Info(ctx, "history replayed", "user", s.userName, "messages", len(history))
	}

	go s.writePump()

	s.readLoop(ctx)
}

// handshake expects the credential as the very first frame and answers with
// a single-frame verdict. On any failure the verdict is sent and the session
// ends without registering; there is no in-connection retry.
func (s *Session) handshake(ctx context.Context) (*directory.User, bool) {
	_ = s.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	token, err := protocol.ReadFrame(s.conn)
	if err != nil {
		s.logger.Debug(ctx, "connection closed before credential", "error", err)
		return nil, false
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	user, err := s.authn.Authenticate(ctx, token)
	if err != nil {
		reply := protocol.AuthFailed
		if errors.Is(err, common.ErrInvalidToken) ||
			errors.Is(err, common.ErrTokenExpired) ||
			errors.Is(err, common.ErrWrongIssuer) {
			reply = protocol.InvalidTokenReply
		}
		s.logger.Warn(ctx, "authentication rejected", "reason", err)
		_ = protocol.WriteFrame(s.conn, reply)
		return nil, false
	}

	return user, true
}

// readLoop receives (envelope, tag) frame pairs. A tag that does not verify
// over "<user>: <envelope>" drops that single message and keeps the session;
// transport errors and malformed frames end the session.
func (s *Session) readLoop(ctx context.Context) {
	for {
		envelope, err := protocol.ReadFrame(s.conn)
		if err != nil {
			s.logReadEnd(ctx, err)
			return
		}
		tag, err := protocol.ReadFrame(s.conn)
		if err != nil {
			s.logReadEnd(ctx, err)
			return
		}

		signed := protocol.FormatMessage(s.userName, envelope)
		if !cryptox.VerifyTag(s.hmacSecret, signed, tag) {
			s.logger.Warn(ctx, "message failed integrity check; dropped", "user", s.userName)
			continue
		}

		s.registry.Broadcast(s.userName, envelope)
	}
}

func (s *Session) logReadEnd(ctx context.Context, err error) {
	if errors.Is(err, common.ErrMalformedFrame) {
		s.logger.Warn(ctx, "protocol violation; closing session", "user", s.userName, "error", err)
		return
	}
	s.logger.Info(ctx, "session read loop ended", "user", s.userName, "error", err)
}

// writePump is the only writer once the session is active. It drains the
// outbox until the session shuts down.
func (s *Session) writePump() {
	for {
		select {
		case message := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := protocol.WriteFrame(s.conn, message); err != nil {
				s.shutdown()
				return
			}
		case <-s.done:
			return
		}
	}
}

// enqueue offers a broadcast message to this session without blocking.
// It reports false when the session is closed or its outbox is full.
func (s *Session) enqueue(message string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- message:
		return true
	default:
		return false
	}
}

// shutdown flips the session to closed exactly once and releases the
// transport. Safe to call from any goroutine, any number of times.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
