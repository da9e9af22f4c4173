package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"gearcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps the outbox in process memory, for tests and local runs.
type InMemoryStore struct {
	mu    sync.Mutex
	rows  map[string]*Notification
	order []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string]*Notification)}
}

func (s *InMemoryStore) Append(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[n.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *n
	s.rows[n.ID] = &cp
	s.order = append(s.order, n.ID)
	return nil
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, id := range s.order {
		n := s.rows[id]
		if n.PublishedAt != nil {
			continue
		}
		out = append(out, *n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.rows[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	n.PublishedAt = &now
	return nil
}

func (s *InMemoryStore) ListByTeam(_ context.Context, teamID string) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, n := range s.rows {
		if n.TeamID == teamID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
