package style

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrProfileNotFound = errors.New("style profile not found")

// ProfileStore persists learning-style profiles across sessions. Persistence
// is opt-in: the middleware works identically when no store is configured.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Put(ctx context.Context, userID string, profile Profile) error
	Delete(ctx context.Context, userID string) error
	Close() error
}

// NewProfileStore creates a Postgres-backed store when a database URL is
// configured, otherwise an in-process one.
func NewProfileStore(ctx context.Context, databaseURL string) (ProfileStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryProfileStore(), nil
	}
	return NewPostgresProfileStore(ctx, databaseURL)
}

// InMemoryProfileStore keeps profiles in process memory, for local use and
// tests.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[string]Profile)}
}

func (s *InMemoryProfileStore) Get(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryProfileStore) Put(_ context.Context, userID string, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(Profile, len(profile))
	for k, v := range profile {
		cp[k] = v
	}
	s.profiles[userID] = cp
	return nil
}

func (s *InMemoryProfileStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}

func (s *InMemoryProfileStore) Close() error { return nil }
