package store

import (
	"context"
	"errors"
	"time"

	"github.com/nipun22325/secret-sharing/internal/models"
)

var (
	ErrNotFound    = errors.New("secret not found")
	ErrDuplicateID = errors.New("secret id already exists")
)

// Store abstracts the document store holding secret records and the global
// counters. Implementations must make TryConsume atomic: it is the sole
// mechanism preventing double delivery of plaintext under concurrent
// retrieval, across processes sharing one store.
type Store interface {
	// Insert persists a new record. Fails with ErrDuplicateID if the id is
	// already taken.
	Insert(ctx context.Context, secret *models.Secret) error

	// FindByID returns the record as stored, without expiry filtering;
	// callers must check ExpiresAt themselves. ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*models.Secret, error)

	// TryConsume atomically locates a record with the given id that is
	// unconsumed and unexpired at now, marks it consumed, and returns it as
	// it was found. ErrNotFound if no such record exists (absent, already
	// consumed, or expired) — at most one caller per id ever succeeds.
	TryConsume(ctx context.Context, id string, now time.Time) (*models.Secret, error)

	// DeleteExpired purges all records whose expiry has passed and returns
	// the number deleted. Idempotent and safe to run concurrently.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountActive counts all records still physically present, including
	// consumed ones not yet swept.
	CountActive(ctx context.Context) (int64, error)

	// IncrementCreated and IncrementViewed bump the global counters
	// atomically; counters live in the store so that multiple server
	// instances share them.
	IncrementCreated(ctx context.Context) error
	IncrementViewed(ctx context.Context) error

	// Counters returns the current totals.
	Counters(ctx context.Context) (created, viewed int64, err error)

	Close() error
}
