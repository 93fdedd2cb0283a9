package models

import "time"

// SessionRecord is the persisted pairing of a bearer token and its verified
// profile. Token and profile are always stored and cleared together; a record
// with a token but no profile is a bootstrapping session awaiting one
// verification attempt.
type SessionRecord struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Profile   *Profile  `json:"profile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r *SessionRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
