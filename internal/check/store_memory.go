package check

import (
	"context"
	"sort"
	"sync"
	"time"

	"gearcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps checks in process memory, for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[string]*Check // by check id
	items  map[string][]Item // by check id
	byDay  map[string]string // worker id + "|" + day -> check id
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		checks: make(map[string]*Check),
		items:  make(map[string][]Item),
		byDay:  make(map[string]string),
	}
}

func dayKey(workerID, day string) string { return workerID + "|" + day }

func (s *InMemoryStore) Create(ctx context.Context, c *Check, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(c.WorkerID, c.Day)
	if _, exists := s.byDay[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.checks[c.ID]; exists {
		return sentinel.ErrConflict
	}

	cp := *c
	s.checks[c.ID] = &cp
	s.items[c.ID] = append([]Item(nil), items...)
	s.byDay[key] = c.ID
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id string) (*WithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

func (s *InMemoryStore) FindByWorkerAndDay(ctx context.Context, workerID, day string) (*WithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDay[dayKey(workerID, day)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.findLocked(id)
}

func (s *InMemoryStore) findLocked(id string) (*WithItems, error) {
	c, ok := s.checks[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &WithItems{
		Check: *c,
		Items: append([]Item(nil), s.items[id]...),
	}, nil
}

func (s *InMemoryStore) UpdateResult(ctx context.Context, checkID string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.checks[checkID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Result = result
	return nil
}

func (s *InMemoryStore) ReplaceItems(ctx context.Context, checkID string, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checks[checkID]; !ok {
		return sentinel.ErrNotFound
	}
	s.items[checkID] = append([]Item(nil), items...)
	return nil
}

func (s *InMemoryStore) ListByWorkerSince(ctx context.Context, workerID string, since time.Time) ([]WithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []WithItems
	for id, c := range s.checks {
		if c.WorkerID != workerID || c.CreatedAt.Before(since) {
			continue
		}
		out = append(out, WithItems{
			Check: *c,
			Items: append([]Item(nil), s.items[id]...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Check.CreatedAt.After(out[j].Check.CreatedAt)
	})
	return out, nil
}
