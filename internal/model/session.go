package model

import (
	"strings"
	"time"
)

// Session is an authenticated identity issued by the backend.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the session carries both a user and an access token.
// Anything less is treated as no session at all.
func (s *Session) Valid() bool {
	return s != nil &&
		strings.TrimSpace(s.UserID) != "" &&
		strings.TrimSpace(s.AccessToken) != ""
}

// Expired reports whether the access token is past its expiry at now.
// A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// SameIdentity reports whether a and b refer to the same valid user.
func SameIdentity(a, b *Session) bool {
	if !a.Valid() || !b.Valid() {
		return !a.Valid() && !b.Valid()
	}
	return a.UserID == b.UserID
}
