package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	platformpg "gearcheck/internal/platform/postgres"
	"gearcheck/pkg/platform/sentinel"
	txcontext "gearcheck/pkg/platform/tx"
)

// PostgresStore persists the equipment/role catalog.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbtx {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) GetEquipment(ctx context.Context, ids []string) (map[string]Equipment, error) {
	if len(ids) == 0 {
		return map[string]Equipment{}, nil
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, name, max_misses_before_notif
		from equipment
		where id = any($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	defer rows.Close()

	found := make(map[string]Equipment, len(ids))
	for rows.Next() {
		var eq Equipment
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.MaxMissesBeforeNotif); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		found[eq.ID] = eq
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) RoleEquipment(ctx context.Context, roleID string) ([]Equipment, error) {
	if _, err := s.FindRole(ctx, roleID); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select e.id, e.name, e.max_misses_before_notif
		from role_equipment re
		join equipment e on e.id = re.equipment_id
		where re.role_id = $1
		order by e.name asc`, roleID)
	if err != nil {
		return nil, fmt.Errorf("role equipment: %w", err)
	}
	defer rows.Close()

	var out []Equipment
	for rows.Next() {
		var eq Equipment
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.MaxMissesBeforeNotif); err != nil {
			return nil, fmt.Errorf("scan role equipment: %w", err)
		}
		out = append(out, eq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role equipment: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListEquipment(ctx context.Context) ([]Equipment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, name, max_misses_before_notif
		from equipment
		order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var out []Equipment
	for rows.Next() {
		var eq Equipment
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.MaxMissesBeforeNotif); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		out = append(out, eq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateEquipment(ctx context.Context, eq Equipment) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into equipment (id, name, max_misses_before_notif)
		values ($1, $2, $3)`, eq.ID, eq.Name, eq.MaxMissesBeforeNotif)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create equipment: %w", err)
	}
	return nil
}

func (s *PostgresStore) RenameEquipment(ctx context.Context, id, name string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update equipment set name = $2 where id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename equipment: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteEquipment(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `delete from equipment where id = $1`, id)
	if err != nil {
		if platformpg.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("delete equipment: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select id, label from roles order by label asc`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Label); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindRole(ctx context.Context, id string) (*Role, error) {
	var r Role
	err := s.conn(ctx).QueryRowContext(ctx,
		`select id, label from roles where id = $1`, id).Scan(&r.ID, &r.Label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) CreateRole(ctx context.Context, role Role) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`insert into roles (id, label) values ($1, $2)`, role.ID, role.Label)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

func (s *PostgresStore) RenameRole(ctx context.Context, id, label string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update roles set label = $2 where id = $1`, id, label)
	if err != nil {
		return fmt.Errorf("rename role: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteRole(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) AssignEquipment(ctx context.Context, roleID, equipmentID string) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into role_equipment (role_id, equipment_id)
		values ($1, $2)
		on conflict do nothing`, roleID, equipmentID)
	if err != nil {
		if platformpg.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("assign equipment: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnassignEquipment(ctx context.Context, roleID, equipmentID string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`delete from role_equipment where role_id = $1 and equipment_id = $2`,
		roleID, equipmentID)
	if err != nil {
		return fmt.Errorf("unassign equipment: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
