package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

var ErrTokenInvalid = errors.New("session token is missing, malformed or expired")

// SessionClaims are the identity claims embedded in every session
// token. Tokens are self-contained, nothing is looked up server-side,
// which also means a token can't be revoked before it expires
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IssueSession signs a new session token for the given identity. The
// lifetime comes from auth.session_ttl
func IssueSession(userID, email, role string) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(viper.GetDuration("auth.session_ttl"))),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	})

	return t.SignedString([]byte(viper.GetString("security.jwt_secret")))
}

// VerifySession parses and validates a session token. Any failure
// (bad signature, wrong algorithm, expiry, garbage input) collapses
// into ErrTokenInvalid, callers don't get to distinguish
func VerifySession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(viper.GetString("security.jwt_secret")), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
