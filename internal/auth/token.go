package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without verifying it.
type TokenInfo struct {
	// JWT is false for opaque tokens; the other fields are then zero.
	JWT       bool
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.JWT && !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes the claims of a JWT bearer token. The signature is not
// checked; only the server can do that. Opaque tokens return a zero
// TokenInfo and no error.
func Inspect(token string) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, errors.New("empty token")
	}
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return TokenInfo{}, nil
		}
		return TokenInfo{}, err
	}
	info := TokenInfo{JWT: true, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
