package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"gearcheck/internal/platform/redis"
)

// CachedStore is a read-through redis cache over a catalog Store. Equipment
// records and role allowlists are read on every submission, so they are worth
// keeping hot; writes go straight to the backing store and drop the affected
// keys.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
}

func NewCachedStore(store Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, client: client, ttl: ttl}
}

func equipmentKey(id string) string     { return "catalog:equipment:" + id }
func roleEquipKey(roleID string) string { return "catalog:role-equipment:" + roleID }

func (c *CachedStore) GetEquipment(ctx context.Context, ids []string) (map[string]Equipment, error) {
	found := make(map[string]Equipment, len(ids))
	var missed []string

	for _, id := range ids {
		raw, err := c.client.Get(ctx, equipmentKey(id)).Bytes()
		if err != nil {
			if !errors.Is(err, goredis.Nil) {
				// Cache trouble must not fail lookups; fall through to the store.
				missed = append(missed, id)
				continue
			}
			missed = append(missed, id)
			continue
		}
		var eq Equipment
		if err := json.Unmarshal(raw, &eq); err != nil {
			missed = append(missed, id)
			continue
		}
		found[id] = eq
	}

	if len(missed) == 0 {
		return found, nil
	}

	fromStore, err := c.Store.GetEquipment(ctx, missed)
	if err != nil {
		return nil, err
	}
	for id, eq := range fromStore {
		found[id] = eq
		if raw, err := json.Marshal(eq); err == nil {
			c.client.Set(ctx, equipmentKey(id), raw, c.ttl)
		}
	}
	return found, nil
}

func (c *CachedStore) RoleEquipment(ctx context.Context, roleID string) ([]Equipment, error) {
	raw, err := c.client.Get(ctx, roleEquipKey(roleID)).Bytes()
	if err == nil {
		var out []Equipment
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	}

	out, err := c.Store.RoleEquipment(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		c.client.Set(ctx, roleEquipKey(roleID), raw, c.ttl)
	}
	return out, nil
}

func (c *CachedStore) CreateEquipment(ctx context.Context, eq Equipment) error {
	if err := c.Store.CreateEquipment(ctx, eq); err != nil {
		return err
	}
	c.client.Del(ctx, equipmentKey(eq.ID))
	return nil
}

func (c *CachedStore) RenameEquipment(ctx context.Context, id, name string) error {
	if err := c.Store.RenameEquipment(ctx, id, name); err != nil {
		return err
	}
	return c.invalidateEquipment(ctx, id)
}

func (c *CachedStore) DeleteEquipment(ctx context.Context, id string) error {
	if err := c.Store.DeleteEquipment(ctx, id); err != nil {
		return err
	}
	return c.invalidateEquipment(ctx, id)
}

func (c *CachedStore) AssignEquipment(ctx context.Context, roleID, equipmentID string) error {
	if err := c.Store.AssignEquipment(ctx, roleID, equipmentID); err != nil {
		return err
	}
	c.client.Del(ctx, roleEquipKey(roleID))
	return nil
}

func (c *CachedStore) UnassignEquipment(ctx context.Context, roleID, equipmentID string) error {
	if err := c.Store.UnassignEquipment(ctx, roleID, equipmentID); err != nil {
		return err
	}
	c.client.Del(ctx, roleEquipKey(roleID))
	return nil
}

func (c *CachedStore) DeleteRole(ctx context.Context, id string) error {
	if err := c.Store.DeleteRole(ctx, id); err != nil {
		return err
	}
	c.client.Del(ctx, roleEquipKey(id))
	return nil
}

// invalidateEquipment drops the equipment key and every role allowlist, since
// allowlists embed equipment records.
func (c *CachedStore) invalidateEquipment(ctx context.Context, id string) error {
	c.client.Del(ctx, equipmentKey(id))

	roles, err := c.Store.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("invalidate role allowlists: %w", err)
	}
	for _, role := range roles {
		c.client.Del(ctx, roleEquipKey(role.ID))
	}
	return nil
}
