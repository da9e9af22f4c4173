package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gearcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps the directory lightweight for tests and dev mode. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu      sync.RWMutex
	workers map[string]*Worker
	teams   map[string]*Team
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workers: make(map[string]*Worker),
		teams:   make(map[string]*Team),
	}
}

// SeedWorker registers a worker. Test and dev wiring only.
func (s *InMemoryStore) SeedWorker(w *Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.workers[w.ID] = &cp
}

// SeedTeam registers a team. Test and dev wiring only.
func (s *InMemoryStore) SeedTeam(t *Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.teams[t.ID] = &cp
}

func (s *InMemoryStore) FindWorker(_ context.Context, id string) (*Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.workers[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindTeam(_ context.Context, id string) (*Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListTeams(_ context.Context) ([]*Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]*Team, 0, len(s.teams))
	for _, t := range s.teams {
		cp := *t
		teams = append(teams, &cp)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (s *InMemoryStore) ListTeamWorkers(_ context.Context, teamID string) ([]*Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var workers []*Worker
	for _, w := range s.workers {
		if w.TeamID == teamID {
			cp := *w
			workers = append(workers, &cp)
		}
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].Name < workers[j].Name })
	return workers, nil
}

func (s *InMemoryStore) ApplyCheckOutcome(_ context.Context, workerID string, status WorkerStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[workerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	w.Status = status
	w.Controlled = true
	w.LastCheckAt = &at
	return nil
}
