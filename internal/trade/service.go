package trade

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tradedesk.org/internal/ids"
)

// Service defines trade persistence and workflow transitions. Every
// transition is conditional on the current status (compare-and-set): when two
// requests race, the second one observes the changed status and fails with
// ErrStatusConflict instead of overwriting silently.
type Service interface {
	Create(ctx context.Context, t *Trade) (Trade, error)
	Get(ctx context.Context, id string) (Trade, error)
	List(ctx context.Context, filter Status, limit int) ([]Trade, error)
	Counts(ctx context.Context) (map[Status]int, error)
	Confirm(ctx context.Context, id, userID string) (Trade, error)
	Unconfirm(ctx context.Context, id string) (Trade, error)
	Approve(ctx context.Context, id, userID string) (Trade, error)
	Reject(ctx context.Context, id, userID string) (Trade, error)
	Delete(ctx context.Context, id string) error
}

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu     sync.RWMutex
	trades map[string]*Trade
	now    func() time.Time
}

// Option configures InMemory.
type Option func(*InMemory)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *InMemory) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewInMemory creates an empty trade service.
func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		trades: make(map[string]*Trade),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(ctx context.Context, t *Trade) (Trade, error) {
	if t == nil {
		return Trade{}, ErrInvalidSymbol
	}
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	cp.ID = ids.New()
	cp.Status = StatusPending
	cp.CreatedAt = s.now().UTC()
	cp.ConfirmedBy, cp.ApprovedBy = "", ""
	cp.ConfirmedAt, cp.ApprovedAt = time.Time{}, time.Time{}
	s.trades[cp.ID] = &cp
	return cp, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return Trade{}, ErrNotFound
	}
	return *t, nil
}

// List returns trades newest first, optionally filtered by status.
func (s *InMemory) List(ctx context.Context, filter Status, limit int) ([]Trade, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Trade, 0, len(s.trades))
	for _, t := range s.trades {
		if filter != "" && t.Status != filter {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) Counts(ctx context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, t := range s.trades {
		counts[t.Status]++
	}
	return counts, nil
}

// transition applies fn to the trade iff its status equals expected.
func (s *InMemory) transition(id string, expected Status, fn func(*Trade)) (Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return Trade{}, ErrNotFound
	}
	if t.Status != expected {
		return Trade{}, ErrStatusConflict
	}
	fn(t)
	return *t, nil
}

func (s *InMemory) Confirm(ctx context.Context, id, userID string) (Trade, error) {
	return s.transition(id, StatusPending, func(t *Trade) {
		t.Status = StatusConfirmed
		t.ConfirmedBy = userID
		t.ConfirmedAt = s.now().UTC()
	})
}

func (s *InMemory) Unconfirm(ctx context.Context, id string) (Trade, error) {
	return s.transition(id, StatusConfirmed, func(t *Trade) {
		t.Status = StatusPending
		t.ConfirmedBy = ""
		t.ConfirmedAt = time.Time{}
	})
}

func (s *InMemory) Approve(ctx context.Context, id, userID string) (Trade, error) {
	return s.transition(id, StatusConfirmed, func(t *Trade) {
		t.Status = StatusApproved
		t.ApprovedBy = userID
		t.ApprovedAt = s.now().UTC()
	})
}

func (s *InMemory) Reject(ctx context.Context, id, userID string) (Trade, error) {
	return s.transition(id, StatusConfirmed, func(t *Trade) {
		t.Status = StatusRejected
		t.ApprovedBy = userID
		t.ApprovedAt = s.now().UTC()
	})
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[id]; !ok {
		return ErrNotFound
	}
	delete(s.trades, id)
	return nil
}
