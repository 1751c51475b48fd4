package domain

import "time"

// User is the credential record owned by the user store. PasswordHash is
// argon2 encoded and never leaves the process in any serialized view.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSnapshot is the cached, time-bounded copy of a credential record. The
// store stays authoritative; a snapshot may be stale by up to the cache TTL.
//
// PasswordHash is optional: the login path caches it so subsequent logins can
// verify without touching the store, while the session-resolver path caches
// only the identity fields. Consumers must treat an empty hash as "unknown",
// not as "no password".
type UserSnapshot struct {
	ID           string `json:"id,omitempty"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// Snapshot derives the cacheable view of a user. withHash controls whether
// the credential hash is carried along (login fast path only).
func (u User) Snapshot(withHash bool) UserSnapshot {
	s := UserSnapshot{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
	if withHash {
		s.PasswordHash = u.PasswordHash
	}
	return s
}
