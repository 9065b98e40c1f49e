package store

import (
	"context"
	"sync"
	"time"

	"github.com/nipun22325/secret-sharing/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in a mutex-guarded map. Suitable for
// single-process deployments and tests; a background loop purges expired
// records on an interval.
type MemoryStore struct {
	secrets       map[string]*models.Secret
	totalCreated  int64
	totalViewed   int64
	mu            sync.RWMutex
	cleanupCancel context.CancelFunc
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &MemoryStore{
		secrets:       make(map[string]*models.Secret),
		cleanupCancel: cancel,
	}
	go s.cleanupLoop(ctx, cleanupInterval)
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, secret *models.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.secrets[secret.ID]; exists {
		return ErrDuplicateID
	}
	cp := *secret
	s.secrets[secret.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *secret
	return &cp, nil
}

func (s *MemoryStore) TryConsume(ctx context.Context, id string, now time.Time) (*models.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[id]
	if !ok || secret.Consumed || secret.Expired(now) {
		return nil, ErrNotFound
	}

	// Return the record as it was found; the stored copy flips in the same
	// critical section, so only one caller ever sees Consumed=false.
	cp := *secret
	secret.Consumed = true
	return &cp, nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, secret := range s.secrets {
		if secret.Expired(now) {
			delete(s.secrets, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) CountActive(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.secrets)), nil
}

func (s *MemoryStore) IncrementCreated(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCreated++
	return nil
}

func (s *MemoryStore) IncrementViewed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalViewed++
	return nil
}

func (s *MemoryStore) Counters(ctx context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.totalCreated, s.totalViewed, nil
}

func (s *MemoryStore) Close() error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets = nil
	return nil
}

func (s *MemoryStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.DeleteExpired(context.Background(), time.Now())
		}
	}
}
