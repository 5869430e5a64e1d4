// Package directory is the user-directory collaborator: account lookup and
// creation behind a small Repository interface. The chat core only reads
// id, username, and the active flag; the auth gateway also reads the
// password verifier.
package directory

import (
	"context"
	"time"
)

type Repository interface {
	// Create stores a new user and returns it with its generated ID.
	// Returns common.ErrDuplicateName if the username is taken.
	Create(ctx context.Context, user *User) (*User, error)

	// FindByName returns common.ErrorNotFound when no such user exists.
	FindByName(ctx context.Context, userName string) (*User, error)

	// FindByID returns common.ErrorNotFound when no such user exists.
	FindByID(ctx context.Context, id string) (*User, error)

	// Exists reports whether a username is already registered.
	Exists(ctx context.Context, userName string) (bool, error)

	// RecordLogin stamps the user's last successful login time.
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
