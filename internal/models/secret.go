package models

import "time"

// Secret is the stored record for one disposable secret. Ciphertext and
// Nonce are opaque authenticated-encryption output; the plaintext never
// touches the store.
type Secret struct {
	ID                string    `json:"id"`
	Ciphertext        []byte    `json:"-"`
	Nonce             []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Consumed          bool      `json:"viewed"`
	PasswordProtected bool      `json:"password_protected"`
	PasswordHash      string    `json:"-"`
}

// Expired reports whether the record is past its expiry at the given time.
// Expired records must never be returned by read operations even when they
// are still physically present.
func (s *Secret) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Stats is the global counter aggregate. TotalCreated and TotalViewed are
// monotonic; ActiveSecrets is derived from the store at read time and counts
// all not-yet-purged records, including consumed ones awaiting a sweep.
type Stats struct {
	TotalCreated  int64 `json:"total_secrets_created"`
	TotalViewed   int64 `json:"total_secrets_viewed"`
	ActiveSecrets int64 `json:"active_secrets"`
}
