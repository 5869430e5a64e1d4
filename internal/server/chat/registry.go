// Package chat implements the broadcast core of the relay: the registry of
// live sessions with the ordered message history, the per-connection session
// state machine, and the TCP server that ties them together.
package chat

import (
	"context"
	"sync"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/logging"
	"github.com/locktalk/locktalk/internal/protocol"
)

// Registry is the single authority for live sessions and the ordered chat
// history. Join, Leave, and Broadcast are serialized under one mutex, which
// gives every observer the same global message order and makes the history
// snapshot handed to a joining session atomic: a joiner can never miss a
// message broadcast after its join, nor receive one twice.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	history  []string
	capacity int
	closed   bool
	logger   logging.Logger
}

// DefaultCapacity mirrors the deployment default of ten concurrent clients.
const DefaultCapacity = 10

func NewRegistry(capacity int, logger logging.Logger) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		sessions: make(map[*Session]struct{}),
		capacity: capacity,
		logger:   logger.With("module", "registry"),
	}
}

// Join adds the session and returns the history to replay. At the capacity
// ceiling it returns common.ErrCapacityExceeded; after CloseAll it returns
// common.ErrSessionClosed. In both cases the session is not registered at
// all, so a handshake that straddles shutdown cannot land in a dead room.
func (r *Registry) Join(s *Session) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, common.ErrSessionClosed
	}
	if len(r.sessions) >= r.capacity {
		return nil, common.ErrCapacityExceeded
	}
	r.sessions[s] = struct{}{}

	snapshot := make([]string, len(r.history))
	copy(snapshot, r.history)

	r.logger.Info(context.Background(), "session joined",
		"user", s.UserName(), "online", len(r.sessions))
	return snapshot, nil
}

// Leave removes the session. Idempotent; a no-op if already removed.
func (r *Registry) Leave(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s]; !ok {
		return
	}
	delete(r.sessions, s)
	r.logger.Info(context.Background(), "session left",
		"user", s.UserName(), "online", len(r.sessions))
}

// Broadcast appends the rendered "<sender>: <envelope>" message to history
// and forwards it to every live session, the sender included. Delivery is
// best-effort per recipient: a session whose outbox is full is dropped
// rather than allowed to stall the others.
func (r *Registry) Broadcast(sender, envelope string) {
	message := protocol.FormatMessage(sender, envelope)

	r.mu.Lock()
	r.history = append(r.history, message)

	var stalled []*Session
	for s := range r.sessions {
		if !s.enqueue(message) {
			stalled = append(stalled, s)
		}
	}
	for _, s := range stalled {
		delete(r.sessions, s)
	}
	online := len(r.sessions)
	r.mu.Unlock()

	// Closing outside the lock: shutdown flips the session's liveness and
	// its own deferred Leave becomes a no-op.
	for _, s := range stalled {
		r.logger.Warn(context.Background(), "dropping stalled session", "user", s.UserName())
		s.shutdown()
	}

	r.logger.Info(context.Background(), "message broadcast",
		"sender", sender, "recipients", online)
}

// History returns a copy of the ordered message log.
func (r *Registry) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

// Online returns the number of live sessions.
func (r *Registry) Online() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll marks the registry closed and shuts down every live session.
// Used on server shutdown; further Join calls are rejected.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[*Session]struct{})
	r.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
}
