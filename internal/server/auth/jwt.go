// Package auth implements credential issuing/verification (signed, expiring
// JWTs) and the gateway that orchestrates registration and login against the
// user directory.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/server/directory"
)

// Issuer is stamped into and required from every credential.
const Issuer = "LockTalk"

// DefaultTokenTTL is the credential lifetime. There is no revocation: once
// issued, a credential is honored until it expires.
const DefaultTokenTTL = 24 * time.Hour

// Claims carries the registered claims plus the user's display name and
// email. Subject is the stable user id.
type Claims struct {
	jwt.RegisteredClaims
	UserName string `json:"username"`
	Email    string `json:"email"`
}

// IssueToken signs a credential for the user: HS256, issuer stamped,
// issued-at now, expiry now+ttl.
func IssueToken(user *directory.User, secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserName: user.UserName,
		Email:    user.Email,
	})

	return token.SignedString(secretKey)
}

// VerifyToken parses and validates a credential. A credential is valid iff
// its signature verifies under secretKey, its issuer matches, and it has not
// expired. Failures map onto the common sentinels: ErrTokenExpired,
// ErrWrongIssuer, or ErrInvalidToken (bad signature/malformed).
func VerifyToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, common.ErrWrongIssuer
		default:
			return nil, common.ErrInvalidToken
		}
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
