// Package auth implements the broker's Access Gate: HS256 bearer-token
// verification guarding publish and subscribe operations.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims mirrors the wire contract of spec.md §4.B: an expiration and a
// subject, nothing else required.
type claims struct {
	jwt.RegisteredClaims
}

// Verify is the pure function consumed by the rest of the broker:
// signature must verify under secret, the token must not be expired, and
// (unless expectedSubject is empty) its subject must equal
// expectedSubject. Every failure mode — bad signature, wrong algorithm,
// malformed token, expired token, subject mismatch — collapses to false;
// callers never learn why a token was rejected.
func Verify(token, secret, expectedSubject string) bool {
	if token == "" {
		return false
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return false
	}

	c, ok := parsed.Claims.(*claims)
	if !ok {
		return false
	}
	if c.ExpiresAt == nil || !c.ExpiresAt.After(time.Now()) {
		return false
	}
	if expectedSubject != "" && c.Subject != expectedSubject {
		return false
	}
	return true
}
