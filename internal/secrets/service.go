// Package secrets implements the secret lifecycle: create, one-time
// retrieve, metadata inspection, stats and expiry sweeps. The store's atomic
// TryConsume is the only safety boundary against double delivery; every
// pre-check here exists for error quality, not correctness.
package secrets

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/nipun22325/secret-sharing/internal/crypto"
	"github.com/nipun22325/secret-sharing/internal/models"
	"github.com/nipun22325/secret-sharing/internal/store"
)

const (
	MinContentLength = 1
	MaxContentLength = 10000
	MinTTLHours      = 1
	MaxTTLHours      = 168
	DefaultTTLHours  = 24

	idLength      = 8
	idMaxAttempts = 10
)

type Service struct {
	store  store.Store
	cipher *crypto.Cipher
	now    func() time.Time
}

func New(st store.Store, cipher *crypto.Cipher) *Service {
	return &Service{store: st, cipher: cipher, now: time.Now}
}

// CreateParams carries the inputs for a new secret. TTLHours of zero means
// the default of 24 hours.
type CreateParams struct {
	Content           string
	TTLHours          int
	PasswordProtected bool
	AccessPassword    string
}

// Created reports the public identifier and expiry of a stored secret.
type Created struct {
	ID        string
	ExpiresAt time.Time
}

// Content is a decrypted secret with its original timestamps.
type Content struct {
	Content   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Info is secret metadata, exposed without consuming the record.
type Info struct {
	CreatedAt         time.Time
	ExpiresAt         time.Time
	PasswordProtected bool
	Viewed            bool
}

// Create validates, encrypts and persists a new secret, then bumps the
// created counter. A password-protected request without a password is
// rejected outright: a record marked protected but carrying no hash would
// otherwise be unlockable by nobody.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Created, error) {
	length := utf8.RuneCountInString(p.Content)
	if length < MinContentLength || length > MaxContentLength {
		return nil, validationf("content length must be between %d and %d characters", MinContentLength, MaxContentLength)
	}

	ttlHours := p.TTLHours
	if ttlHours == 0 {
		ttlHours = DefaultTTLHours
	}
	if ttlHours < MinTTLHours || ttlHours > MaxTTLHours {
		return nil, validationf("ttl_hours must be between %d and %d", MinTTLHours, MaxTTLHours)
	}

	if p.PasswordProtected && p.AccessPassword == "" {
		return nil, validationf("access_password is required when password_protected is set")
	}

	ciphertext, nonce, err := s.cipher.Encrypt([]byte(p.Content))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	secret := &models.Secret{
		Ciphertext:        ciphertext,
		Nonce:             nonce,
		CreatedAt:         now,
		ExpiresAt:         now.Add(time.Duration(ttlHours) * time.Hour),
		PasswordProtected: p.PasswordProtected,
	}
	if p.PasswordProtected {
		secret.PasswordHash = crypto.HashPassword(p.AccessPassword)
	}

	// Bounded allocation: generate, insert, retry on collision. With an
	// 8-symbol alphanumeric id collisions are effectively never; exhausting
	// the attempts means the random source is broken.
	inserted := false
	for attempt := 0; attempt < idMaxAttempts; attempt++ {
		id, err := crypto.GenerateID(idLength)
		if err != nil {
			return nil, err
		}
		secret.ID = id
		err = s.store.Insert(ctx, secret)
		if err == nil {
			inserted = true
			break
		}
		if errors.Is(err, store.ErrDuplicateID) {
			continue
		}
		return nil, err
	}
	if !inserted {
		return nil, ErrIDExhausted
	}

	if err := s.store.IncrementCreated(ctx); err != nil {
		return nil, err
	}

	return &Created{ID: secret.ID, ExpiresAt: secret.ExpiresAt}, nil
}

// Retrieve performs the one-time read. The pre-checks against the loaded
// record produce precise errors in the common case; only TryConsume decides
// who gets the plaintext, so a race between the checks and the consume
// surfaces as ErrNotFound rather than a second success. Once the consumed
// flag has flipped there is no rollback: a client that disconnects after the
// flip loses the secret rather than gaining a replay.
func (s *Service) Retrieve(ctx context.Context, id, accessPassword string) (*Content, error) {
	now := s.now().UTC()

	// Best-effort sweep; TryConsume re-checks expiry, so a failure here
	// costs nothing but staler active counts.
	_, _ = s.store.DeleteExpired(ctx, now)

	secret, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if secret.Expired(now) {
		return nil, ErrNotFound
	}
	if secret.Consumed {
		return nil, ErrAlreadyViewed
	}
	if secret.PasswordProtected {
		if accessPassword == "" {
			return nil, ErrPasswordRequired
		}
		if secret.PasswordHash == "" || !crypto.VerifyPassword(secret.PasswordHash, accessPassword) {
			return nil, ErrInvalidPassword
		}
	}

	consumed, err := s.store.TryConsume(ctx, id, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	plaintext, err := s.cipher.Decrypt(consumed.Ciphertext, consumed.Nonce)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	if err := s.store.IncrementViewed(ctx); err != nil {
		return nil, err
	}

	return &Content{
		Content:   string(plaintext),
		CreatedAt: consumed.CreatedAt,
		ExpiresAt: consumed.ExpiresAt,
	}, nil
}

// Info returns metadata without touching the content or the consumed flag.
// Expired records are filtered here even when still physically present.
func (s *Service) Info(ctx context.Context, id string) (*Info, error) {
	secret, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if secret.Expired(s.now().UTC()) {
		return nil, ErrNotFound
	}
	return &Info{
		CreatedAt:         secret.CreatedAt,
		ExpiresAt:         secret.ExpiresAt,
		PasswordProtected: secret.PasswordProtected,
		Viewed:            secret.Consumed,
	}, nil
}

// Stats sweeps first so the active count reflects current reality, then
// reads the global counters.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	_, _ = s.store.DeleteExpired(ctx, s.now().UTC())

	created, viewed, err := s.store.Counters(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Stats{
		TotalCreated:  created,
		TotalViewed:   viewed,
		ActiveSecrets: active,
	}, nil
}

// Sweep purges expired records and reports how many were deleted.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now().UTC())
}
