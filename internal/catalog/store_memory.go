package catalog

import (
	"context"
	"sort"
	"sync"

	"gearcheck/pkg/platform/sentinel"
)

// InMemoryStore backs the catalog for tests and dev mode.
type InMemoryStore struct {
	mu        sync.RWMutex
	equipment map[string]Equipment
	roles     map[string]Role
	allowlist map[string]map[string]bool // roleID -> equipmentID set

	// usedEquipment marks ids referenced by check items, to mirror the
	// FK-restrict behavior of the SQL store on delete.
	usedEquipment map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		equipment:     make(map[string]Equipment),
		roles:         make(map[string]Role),
		allowlist:     make(map[string]map[string]bool),
		usedEquipment: make(map[string]bool),
	}
}

// MarkEquipmentUsed records that checks reference this equipment. Test wiring.
func (s *InMemoryStore) MarkEquipmentUsed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedEquipment[id] = true
}

func (s *InMemoryStore) GetEquipment(_ context.Context, ids []string) (map[string]Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]Equipment, len(ids))
	for _, id := range ids {
		if eq, ok := s.equipment[id]; ok {
			found[id] = eq
		}
	}
	return found, nil
}

func (s *InMemoryStore) RoleEquipment(_ context.Context, roleID string) ([]Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	var out []Equipment
	for id := range s.allowlist[roleID] {
		if eq, ok := s.equipment[id]; ok {
			out = append(out, eq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) ListEquipment(_ context.Context) ([]Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Equipment, 0, len(s.equipment))
	for _, eq := range s.equipment {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) CreateEquipment(_ context.Context, eq Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.equipment[eq.ID]; exists {
		return sentinel.ErrConflict
	}
	s.equipment[eq.ID] = eq
	return nil
}

func (s *InMemoryStore) RenameEquipment(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.equipment[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	eq.Name = name
	s.equipment[id] = eq
	return nil
}

func (s *InMemoryStore) DeleteEquipment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[id]; !ok {
		return sentinel.ErrNotFound
	}
	if s.usedEquipment[id] {
		return sentinel.ErrConflict
	}
	delete(s.equipment, id)
	for _, set := range s.allowlist {
		delete(set, id)
	}
	return nil
}

func (s *InMemoryStore) ListRoles(_ context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *InMemoryStore) FindRole(_ context.Context, id string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.roles[id]; ok {
		return &r, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) CreateRole(_ context.Context, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.roles[role.ID]; exists {
		return sentinel.ErrConflict
	}
	s.roles[role.ID] = role
	return nil
}

func (s *InMemoryStore) RenameRole(_ context.Context, id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.Label = label
	s.roles[id] = r
	return nil
}

func (s *InMemoryStore) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.roles, id)
	delete(s.allowlist, id)
	return nil
}

func (s *InMemoryStore) AssignEquipment(_ context.Context, roleID, equipmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.equipment[equipmentID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.allowlist[roleID] == nil {
		s.allowlist[roleID] = make(map[string]bool)
	}
	s.allowlist[roleID][equipmentID] = true
	return nil
}

func (s *InMemoryStore) UnassignEquipment(_ context.Context, roleID, equipmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allowlist[roleID][equipmentID] {
		return sentinel.ErrNotFound
	}
	delete(s.allowlist[roleID], equipmentID)
	return nil
}
