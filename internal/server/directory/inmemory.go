package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/locktalk/locktalk/internal/common"
)

// InMemoryRepository keeps the directory in process memory. It backs tests
// and single-node deployments that run without PostgreSQL.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*User
	nameIdx map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*User),
		nameIdx: make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.nameIdx[user.UserName]; taken {
		return nil, common.ErrDuplicateName
	}

	stored := *user
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.Active = true

	r.byID[stored.ID] = &stored
	r.nameIdx[stored.UserName] = stored.ID

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) FindByName(ctx context.Context, userName string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.nameIdx[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *user
	return &out, nil
}

func (r *InMemoryRepository) Exists(ctx context.Context, userName string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.nameIdx[userName]
	return ok, nil
}

// SetActive flips the account's active flag. Not part of the Repository
// interface; deactivation is an administrative action on the backing store.
func (r *InMemoryRepository) SetActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byID[id]; ok {
		user.Active = active
	}
}

func (r *InMemoryRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	user.LastLogin = at
	return nil
}
