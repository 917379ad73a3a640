// Package auth reads the claims a client needs from its own access token.
// Signatures are not checked here: the token was issued to us and the
// services verify it on every call.
package auth

import (
	"fmt"
	"time"

	"sendify-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// ReadClaims decodes token without verifying its signature.
func ReadClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim. A token without one is invalid.
func ExpiresAt(token string) (time.Time, error) {
	claims, err := ReadClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", errors.ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether token is past its exp claim at now, treating it
// as expired leeway early.
func IsExpired(token string, now time.Time, leeway time.Duration) (bool, error) {
	exp, err := ExpiresAt(token)
	if err != nil {
		return false, err
	}
	return !now.Add(leeway).Before(exp), nil
}
