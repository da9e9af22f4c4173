package check

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	platformpg "gearcheck/internal/platform/postgres"
	"gearcheck/pkg/platform/sentinel"
	txcontext "gearcheck/pkg/platform/tx"
)

// PostgresStore persists checks and their items. The unique index on
// (worker_id, check_day) enforces the one-per-day rule at the database level.
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

func (s *PostgresStore) Create(ctx context.Context, c *Check, items []Item) error {
	conn := s.conn(ctx)

	_, err := conn.ExecContext(ctx, `
		insert into checks (id, worker_id, team_id, role, result, created_at, check_day)
		values ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.WorkerID, c.TeamID, c.Role, c.Result, c.CreatedAt, c.Day)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert check: %w", err)
	}

	for _, it := range items {
		_, err := conn.ExecContext(ctx, `
			insert into check_items (check_id, equipment_id, status)
			values ($1, $2, $3)`, c.ID, it.EquipmentID, it.Status)
		if err != nil {
			return fmt.Errorf("insert check item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*WithItems, error) {
	var c Check
	err := s.conn(ctx).QueryRowContext(ctx, `
		select id, worker_id, team_id, role, result, created_at, check_day::text
		from checks
		where id = $1`, id).
		Scan(&c.ID, &c.WorkerID, &c.TeamID, &c.Role, &c.Result, &c.CreatedAt, &c.Day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find check: %w", err)
	}

	items, err := s.itemsFor(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &WithItems{Check: c, Items: items}, nil
}

func (s *PostgresStore) FindByWorkerAndDay(ctx context.Context, workerID, day string) (*WithItems, error) {
	var id string
	err := s.conn(ctx).QueryRowContext(ctx,
		`select id from checks where worker_id = $1 and check_day = $2`,
		workerID, day).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find check by day: %w", err)
	}
	return s.FindByID(ctx, id)
}

func (s *PostgresStore) UpdateResult(ctx context.Context, checkID string, result Result) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update checks set result = $2 where id = $1`, checkID, result)
	if err != nil {
		return fmt.Errorf("update check result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ReplaceItems(ctx context.Context, checkID string, items []Item) error {
	conn := s.conn(ctx)

	var exists bool
	err := conn.QueryRowContext(ctx,
		`select exists(select 1 from checks where id = $1)`, checkID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}

	if _, err := conn.ExecContext(ctx,
		`delete from check_items where check_id = $1`, checkID); err != nil {
		return fmt.Errorf("delete check items: %w", err)
	}
	for _, it := range items {
		_, err := conn.ExecContext(ctx, `
			insert into check_items (check_id, equipment_id, status)
			values ($1, $2, $3)`, checkID, it.EquipmentID, it.Status)
		if err != nil {
			return fmt.Errorf("insert check item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListByWorkerSince(ctx context.Context, workerID string, since time.Time) ([]WithItems, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, worker_id, team_id, role, result, created_at, check_day::text
		from checks
		where worker_id = $1 and created_at >= $2
		order by created_at desc`, workerID, since)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var out []WithItems
	for rows.Next() {
		var c Check
		if err := rows.Scan(&c.ID, &c.WorkerID, &c.TeamID, &c.Role, &c.Result, &c.CreatedAt, &c.Day); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		out = append(out, WithItems{Check: c})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checks: %w", err)
	}

	for i := range out {
		items, err := s.itemsFor(ctx, out[i].Check.ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *PostgresStore) itemsFor(ctx context.Context, checkID string) ([]Item, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select equipment_id, status
		from check_items
		where check_id = $1
		order by equipment_id asc`, checkID)
	if err != nil {
		return nil, fmt.Errorf("list check items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.EquipmentID, &it.Status); err != nil {
			return nil, fmt.Errorf("scan check item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check items: %w", err)
	}
	return items, nil
}
