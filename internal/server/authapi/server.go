// Package authapi exposes registration and login over a small framed TCP
// endpoint, separate from the chat listener. Each connection carries exactly
// one request: a verb frame followed by its argument frames, answered with a
// single "OK <detail>" or "ERR <reason>" frame.
package authapi

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/logging"
	"github.com/locktalk/locktalk/internal/protocol"
	"github.com/locktalk/locktalk/internal/server/directory"
)

// Gateway is the slice of the auth gateway this endpoint needs.
type Gateway interface {
	Register(ctx context.Context, userName, email, password string) (*directory.User, error)
	Login(ctx context.Context, userName, password string) (string, error)
}

const requestTimeout = 30 * time.Second

type Server struct {
	addr    string
	gateway Gateway
	logger  logging.Logger
	wg      sync.WaitGroup
}

func NewServer(addr string, gateway Gateway, logger logging.Logger) *Server {
	return &Server{
		addr:    addr,
		gateway: gateway,
		logger:  logger.With("module", "auth_server"),
	}
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.logger.Info(ctx, "auth server listening", "address", listener.Addr().String())

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Error(ctx, "accept failed", "error", err)
			break
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}

	s.wg.Wait()
	s.logger.Info(ctx, "auth server stopped")
	return nil
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	verb, err := protocol.ReadFrame(conn)
	if err != nil {
		return
	}

	switch verb {
	case protocol.VerbRegister:
		s.handleRegister(ctx, conn)
	case protocol.VerbLogin:
		s.handleLogin(ctx, conn)
	default:
		s.logger.Warn(ctx, "unknown auth verb", "verb", verb)
		_ = protocol.WriteFrame(conn, protocol.ReplyErr+" unknown command")
	}
}

func (s *Server) handleRegister(ctx context.Context, conn net.Conn) {
	userName, email, password, err := readArgs3(conn)
	if err != nil {
		return
	}

	if _, err := s.gateway.Register(ctx, userName, email, password); err != nil {
		s.writeErr(ctx, conn, err)
		return
	}
	_ = protocol.WriteFrame(conn, protocol.ReplyOK+" registered")
}

func (s *Server) handleLogin(ctx context.Context, conn net.Conn) {
	userName, err := protocol.ReadFrame(conn)
	if err != nil {
		return
	}
	password, err := protocol.ReadFrame(conn)
	if err != nil {
		return
	}

	token, err := s.gateway.Login(ctx, userName, password)
	if err != nil {
		s.writeErr(ctx, conn, err)
		return
	}
	_ = protocol.WriteFrame(conn, protocol.ReplyOK+" "+token)
}

// writeErr sends "ERR <reason>" with a client-safe reason. Validation
// failures pass through verbatim; credential failures collapse to a single
// reason so a login probe cannot tell a wrong password from an unknown
// account; anything else stays in the server log only.
func (s *Server) writeErr(ctx context.Context, conn net.Conn, err error) {
	var reason string
	switch {
	case errors.Is(err, common.ErrMissingFields),
		errors.Is(err, common.ErrDuplicateName):
		reason = err.Error()
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrBadPassword),
		errors.Is(err, common.ErrInactiveUser):
		reason = common.ErrorUnauthorized.Error()
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		reason = common.ErrorInternal.Error()
	}
	_ = protocol.WriteFrame(conn, protocol.ReplyErr+" "+reason)
}

func readArgs3(conn net.Conn) (a, b, c string, err error) {
	if a, err = protocol.ReadFrame(conn); err != nil {
		return
	}
	if b, err = protocol.ReadFrame(conn); err != nil {
		return
	}
	c, err = protocol.ReadFrame(conn)
	return
}
