package identity

import (
	"context"
	"sync"
	"time"

	"tradedesk.org/internal/ids"
)

// Store persists users keyed by username. Usernames and emails are unique.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
}

// InMemory is a concurrency-safe Store for tests and single-node runs.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]*User
	byName map[string]string // username -> id
	now    func() time.Time
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]*User),
		byName: make(map[string]string),
		now:    time.Now,
	}
}

func (s *InMemory) Create(ctx context.Context, u *User) error {
	if u == nil || u.Username == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Username]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.byID[u.ID] = &cp
	s.byName[u.Username] = u.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) Update(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now().UTC()
	cp := *u
	s.byID[u.ID] = &cp
	s.byName[u.Username] = u.ID
	return nil
}
