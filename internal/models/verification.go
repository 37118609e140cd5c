package models

import "time"

// PendingVerification is a not-yet-confirmed email subscription request.
// It lives in short-lived storage only; the durable registry sees the
// topics after a successful code match. A session is single-use: both
// successful verification and expiry remove it.
type PendingVerification struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Topics    []string  `json:"topics"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Expired reports whether the session's TTL has elapsed.
func (p PendingVerification) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
