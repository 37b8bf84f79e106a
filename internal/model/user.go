package model

import "time"

// Identity is the signed-in user resolved from a session token.
type Identity struct {
	Email     string    `json:"email"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginToken is the stored half of a one-time sign-in link.
// Uses string types for Redis hash compatibility.
type LoginToken struct {
	ID       string `redis:"-"`
	Hash     string `redis:"hash"`
	Email    string `redis:"email"`
	IssuedAt string `redis:"issued_at"` // Unix timestamp
}
