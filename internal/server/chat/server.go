package chat

import (
	"context"
	"net"
	"sync"

	"github.com/locktalk/locktalk/internal/logging"
)

// Server accepts chat connections and runs one Session per connection on its
// own goroutine. Workers block on network reads; the registry is the only
// state they share.
type Server struct {
	addr       string
	registry   *Registry
	authn      Authenticator
	hmacSecret []byte
	logger     logging.Logger
	wg         sync.WaitGroup
}

func NewServer(addr string, registry *Registry, authn Authenticator, hmacSecret []byte, logger logging.Logger) *Server {
	return &Server{
		addr:       addr,
		registry:   registry,
		authn:      authn,
		hmacSecret: hmacSecret,
		logger:     logger.With("module", "chat_server"),
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

// Serve accepts connections from listener until ctx is canceled, then shuts
// down every live session and waits for their goroutines to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.logger.Info(ctx, "chat server listening", "address", listener.Addr().String())

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

		s.logger.Info(ctx, "connection accepted", "remote", conn.RemoteAddr().String())
		session := NewSession(conn, s.registry, s.authn, s.hmacSecret, s.logger)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session.Run(ctx)
		}()
	}

	s.registry.CloseAll()
	s.wg.Wait()
	s.logger.Info(ctx, "chat server stopped")
	return nil
}
