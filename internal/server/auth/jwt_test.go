package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/server/directory"
)

func testUser() *directory.User {
	return &directory.User{
		ID:       "user-123",
		UserName: "alice",
		Email:    "a@x.com",
		Active:   true,
	}
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := IssueToken(testUser(), secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	claims, err := VerifyToken(tok, secret)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, "user-123")
	}
	if claims.UserName != "alice" || claims.Email != "a@x.com" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.Issuer != Issuer {
		t.Fatalf("issuer mismatch: got %q", claims.Issuer)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := IssueToken(testUser(), secret, -1*time.Second)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = VerifyToken(tok, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := IssueToken(testUser(), []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	_, err = VerifyToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken_WrongIssuer(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	now := time.Now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "SomebodyElse",
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	_, err = VerifyToken(tok, secret)
	if !errors.Is(err, common.ErrWrongIssuer) {
		t.Fatalf("expected common.ErrWrongIssuer, got %v", err)
	}
}

func TestVerifyToken_Tampered(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := IssueToken(testUser(), secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	// Corrupt one character of the payload segment.
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := VerifyToken(tampered, secret); err == nil {
		t.Fatalf("expected error for tampered token, got nil")
	}
}

func TestVerifyToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := VerifyToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
