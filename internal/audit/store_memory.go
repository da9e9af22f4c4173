package audit

import (
	"context"
	"sync"

	"gearcheck/internal/check"
	"gearcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps audit rows in process memory, for tests and local runs.
type InMemoryStore struct {
	mu   sync.Mutex
	rows map[string][]Revision // by check id, ordered by revision
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string][]Revision)}
}

func (s *InMemoryStore) Append(_ context.Context, rev *Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.rows[rev.CheckID]
	rev.Revision = len(existing) + 1

	cp := *rev
	cp.Snapshot.Items = append([]check.Item(nil), rev.Snapshot.Items...)
	s.rows[rev.CheckID] = append(existing, cp)
	return nil
}

func (s *InMemoryStore) ListByCheck(_ context.Context, checkID string) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.rows[checkID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]Revision(nil), rows...), nil
}

func (s *InMemoryStore) FindRevision(_ context.Context, checkID string, revision int) (*Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[checkID]
	if revision < 1 || revision > len(rows) {
		return nil, sentinel.ErrNotFound
	}
	cp := rows[revision-1]
	return &cp, nil
}
