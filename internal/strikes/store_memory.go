package strikes

import (
	"context"
	"sort"
	"sync"
	"time"

	"gearcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps counters in process memory, for tests and local runs.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[string]*Counter // worker id + "|" + equipment id
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counters: make(map[string]*Counter)}
}

func counterKey(workerID, equipmentID string) string {
	return workerID + "|" + equipmentID
}

func (s *InMemoryStore) Increment(_ context.Context, workerID, equipmentID string, at time.Time) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey(workerID, equipmentID)
	c, ok := s.counters[key]
	if !ok {
		c = &Counter{WorkerID: workerID, EquipmentID: equipmentID}
		s.counters[key] = c
	}
	c.Count++
	c.LastMissAt = at

	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) MarkNotified(_ context.Context, workerID, equipmentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[counterKey(workerID, equipmentID)]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := at
	c.NotifiedAt = &t
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, workerID, equipmentID string) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[counterKey(workerID, equipmentID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) ListByWorker(_ context.Context, workerID string) ([]Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Counter
	for _, c := range s.counters {
		if c.WorkerID == workerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EquipmentID < out[j].EquipmentID })
	return out, nil
}

func (s *InMemoryStore) Reset(_ context.Context, workerID, equipmentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[counterKey(workerID, equipmentID)]
	if !ok {
		return false, nil
	}
	c.Count = 0
	c.NotifiedAt = nil
	return true, nil
}

func (s *InMemoryStore) ResetAll(_ context.Context, workerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.counters {
		if c.WorkerID == workerID {
			c.Count = 0
			c.NotifiedAt = nil
			n++
		}
	}
	return n, nil
}
