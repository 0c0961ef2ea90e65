// Package auth issues and validates user JWTs for the public API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a token that failed validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// UserClaims are the claims carried by user tokens.
type UserClaims struct {
	jwt.RegisteredClaims
}

// IssueUserToken signs a token whose subject is the user ID.
func IssueUserToken(secret, userID string, expiry time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: missing user id")
	}
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("auth: missing jwt secret")
	}
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseUserToken validates a token and returns the user ID from its subject.
func ParseUserToken(secret, raw string) (string, error) {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(raw) == "" {
		return "", ErrInvalidToken
	}
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
