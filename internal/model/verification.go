package model

import "time"

// PendingVerification is the phone login attempt waiting for its code.
// CodeHash is a bcrypt hash; the plain code is never stored.
type PendingVerification struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the attempt can no longer be verified at now.
func (p PendingVerification) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
