package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nipun22325/secret-sharing/internal/models"
)

func newSecret(id string, expiresAt time.Time) *models.Secret {
	now := time.Now().UTC()
	return &models.Secret{
		ID:         id,
		Ciphertext: []byte("opaque"),
		Nonce:      []byte("nonce0123456"),
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(time.Hour)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemoryInsertDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if err := s.Insert(ctx, newSecret("abc", exp)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := s.Insert(ctx, newSecret("abc", exp)); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestMemoryFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// FindByID does no expiry filtering; callers check ExpiresAt.
	expired := newSecret("old", time.Now().Add(-time.Hour))
	if err := s.Insert(ctx, expired); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	got, err := s.FindByID(ctx, "old")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !got.Expired(time.Now()) {
		t.Error("expected record to report expired")
	}
}

func TestMemoryTryConsume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Insert(ctx, newSecret("abc", now.Add(time.Hour))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := s.TryConsume(ctx, "abc", now)
	if err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}
	if got.Consumed {
		t.Error("TryConsume must return the record as it was found")
	}

	// Second consume loses.
	if _, err := s.TryConsume(ctx, "abc", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second consume, got %v", err)
	}

	// Stored record is flagged.
	stored, err := s.FindByID(ctx, "abc")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !stored.Consumed {
		t.Error("stored record must be consumed")
	}
}

func TestMemoryTryConsumeExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Insert(ctx, newSecret("abc", now.Add(time.Minute))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.TryConsume(ctx, "abc", now.Add(2*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired record, got %v", err)
	}
}

func TestMemoryTryConsumeSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Insert(ctx, newSecret("abc", now.Add(time.Hour))); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	const n = 50
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.TryConsume(ctx, "abc", now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner out of %d, got %d", n, wins)
	}
}

func TestMemoryDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_ = s.Insert(ctx, newSecret("live", now.Add(time.Hour)))
	_ = s.Insert(ctx, newSecret("dead1", now.Add(-time.Hour)))
	_ = s.Insert(ctx, newSecret("dead2", now.Add(-time.Minute)))

	deleted, err := s.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	// Idempotent: second sweep deletes nothing.
	deleted, err = s.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted on repeat sweep, got %d", deleted)
	}

	// Live record untouched.
	if _, err := s.FindByID(ctx, "live"); err != nil {
		t.Errorf("live record must survive the sweep: %v", err)
	}
}

func TestMemoryCountActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_ = s.Insert(ctx, newSecret("a", now.Add(time.Hour)))
	_ = s.Insert(ctx, newSecret("b", now.Add(time.Hour)))

	// Consumed-but-unswept records still count as active.
	if _, err := s.TryConsume(ctx, "a", now); err != nil {
		t.Fatalf("TryConsume failed: %v", err)
	}

	count, err := s.CountActive(ctx)
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 active, got %d", count)
	}
}

func TestMemoryCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.IncrementCreated(ctx); err != nil {
			t.Fatalf("IncrementCreated failed: %v", err)
		}
	}
	if err := s.IncrementViewed(ctx); err != nil {
		t.Fatalf("IncrementViewed failed: %v", err)
	}

	created, viewed, err := s.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters failed: %v", err)
	}
	if created != 3 || viewed != 1 {
		t.Errorf("expected counters (3, 1), got (%d, %d)", created, viewed)
	}
}
