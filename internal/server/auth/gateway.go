package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/logging"
	"github.com/locktalk/locktalk/internal/server/directory"
	"golang.org/x/crypto/bcrypt"
)

// Gateway orchestrates registration and login against the user directory
// and vends credentials for the chat handshake.
type Gateway struct {
	repo      directory.Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    logging.Logger
}

func NewGateway(repo directory.Repository, jwtSecret []byte, tokenTTL time.Duration, logger logging.Logger) *Gateway {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Gateway{
		repo:      repo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.With("module", "auth"),
	}
}

// Register creates a new account. The password is stored only as a bcrypt
// verifier. Returns common.ErrDuplicateName when the username is taken.
func (g *Gateway) Register(ctx context.Context, userName, email, password string) (*directory.User, error) {
	if userName == "" || email == "" || password == "" {
		return nil, common.ErrMissingFields
	}

	taken, err := g.repo.Exists(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if taken {
		return nil, common.ErrDuplicateName
	}

	verifier, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("derive verifier: %w", err)
	}

	user, err := g.repo.Create(ctx, &directory.User{
		UserName: userName,
		Email:    email,
		Verifier: verifier,
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info(ctx, "user registered", "user", userName)
	return user, nil
}

// Login checks the password against the stored verifier and, on success,
// issues a credential and records the login time. Returns
// common.ErrorNotFound or common.ErrBadPassword on failure.
func (g *Gateway) Login(ctx context.Context, userName, password string) (string, error) {
	user, err := g.repo.FindByName(ctx, userName)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.Verifier, []byte(password)); err != nil {
		return "", common.ErrBadPassword
	}

	token, err := IssueToken(user, g.jwtSecret, g.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	if err := g.repo.RecordLogin(ctx, user.ID, time.Now()); err != nil {
		// The credential is already issued; a failed stamp is not fatal.
		g.logger.Warn(ctx, "failed to record login time", "user", userName, "error", err)
	}

	g.logger.Info(ctx, "user logged in", "user", userName)
	return token, nil
}

// Authenticate verifies a credential and re-resolves the account by its
// stable id (the subject claim). The username claim is informational only;
// there is no fallback lookup path. Returns nil and an error when the
// credential is invalid or the account is gone or inactive.
func (g *Gateway) Authenticate(ctx context.Context, tokenString string) (*directory.User, error) {
	claims, err := VerifyToken(tokenString, g.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := g.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if !user.Active {
		return nil, common.ErrInactiveUser
	}

	return user, nil
}
