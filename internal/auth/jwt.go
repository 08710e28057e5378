// Package auth issues and checks the bearer tokens that identify ledger users.
// Tokens are minted offline by splitctl; the API only verifies them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "splitledger"

// Claims identifies the caller behind a token.
type Claims struct {
	UserID   uuid.UUID
	Username string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// IssueToken signs an HS256 token whose subject is the user id.
func IssueToken(c Claims, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("IssueToken: empty signing secret")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("IssueToken: ttl must be positive, got %s", ttl)
	}

	now := time.Now()
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   c.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: c.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("IssueToken: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature, issuer and expiry of raw. Tokens without
// an expiry are rejected.
func ParseToken(raw, secret string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("ParseToken: %w", err)
	}

	id, err := uuid.Parse(tc.Subject)
	if err != nil || id == uuid.Nil {
		return Claims{}, fmt.Errorf("ParseToken: subject %q is not a user id", tc.Subject)
	}
	return Claims{UserID: id, Username: tc.Username}, nil
}
