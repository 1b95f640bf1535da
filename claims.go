package keybot

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set of a session token. userId and username are
// read by the website that consumes the token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time, zero when absent
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
