package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing; production deployments use the
// Mongo or Postgres implementations.
type MemoryStorage struct {
	mu     sync.RWMutex
	items  map[string]*Notification
	byUser map[string][]string
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items:  make(map[string]*Notification),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, n *Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[n.ID]; exists {
		return ErrAlreadyExists
	}

	cp := n.Clone()
	cp.Normalize()
	s.items[cp.ID] = cp
	s.byUser[cp.UserID] = append(s.byUser[cp.UserID], cp.ID)

	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

func (s *MemoryStorage) Mutate(ctx context.Context, id string, fn func(*Notification) error) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	// fn works on a copy so an aborted mutation leaves stored state untouched.
	cp := n.Clone()
	if err := fn(cp); err != nil {
		return nil, err
	}

	cp.Normalize()
	cp.UpdatedAt = time.Now()
	s.items[id] = cp

	return cp.Clone(), nil
}

func (s *MemoryStorage) Claim(ctx context.Context, id string, workerID string, lease time.Duration) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	if n.Status != StatusPending || n.Archived {
		return nil, ErrClaimConflict
	}
	if n.ClaimedUntil != nil && n.ClaimedUntil.After(now) {
		return nil, ErrClaimConflict
	}

	until := now.Add(lease)
	n.ClaimedBy = &workerID
	n.ClaimedUntil = &until
	n.UpdatedAt = now

	return n.Clone(), nil
}

func (s *MemoryStorage) Release(ctx context.Context, id string, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}

	if n.ClaimedBy == nil || *n.ClaimedBy != workerID {
		return ErrNotClaimed
	}

	n.ClaimedBy = nil
	n.ClaimedUntil = nil
	n.UpdatedAt = time.Now()

	return nil
}

func (s *MemoryStorage) DueForDelivery(ctx context.Context, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var due []*Notification
	for _, n := range s.items {
		if !n.IsDue(now) {
			continue
		}
		if n.ClaimedUntil != nil && n.ClaimedUntil.After(now) {
			continue
		}
		due = append(due, n.Clone())
	}

	// Priority first, earliest creation breaks ties, to bound starvation.
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority.Rank() != due[j].Priority.Rank() {
			return due[i].Priority.Rank() > due[j].Priority.Rank()
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (s *MemoryStorage) ListForUser(ctx context.Context, userID string, opts ListOptions) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*Notification
	for _, id := range s.byUser[userID] {
		n, ok := s.items[id]
		if !ok || !opts.matches(n) {
			continue
		}
		filtered = append(filtered, n.Clone())
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	offset, limit := opts.offsetLimit()
	if offset >= len(filtered) {
		return []*Notification{}, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[offset:end], nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[userID] {
		n, ok := s.items[id]
		if !ok {
			continue
		}
		if !n.IsRead && !n.Archived {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStorage) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, n := range s.items {
		if !n.Archived || !n.IsExpired() {
			continue
		}
		delete(s.items, id)
		s.removeFromUserIndex(n.UserID, id)
		deleted++
	}

	return deleted, nil
}

func (s *MemoryStorage) removeFromUserIndex(userID string, id string) {
	ids := s.byUser[userID]
	for i, existing := range ids {
		if existing == id {
			s.byUser[userID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
