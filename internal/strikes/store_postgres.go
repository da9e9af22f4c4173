package strikes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gearcheck/pkg/platform/sentinel"
	txcontext "gearcheck/pkg/platform/tx"
)

// PostgresStore persists miss counters. Increment is a single upsert so the
// tally survives concurrent submissions without a read-modify-write race.
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

func (s *PostgresStore) Increment(ctx context.Context, workerID, equipmentID string, at time.Time) (*Counter, error) {
	c := Counter{WorkerID: workerID, EquipmentID: equipmentID}
	var notifiedAt sql.NullTime
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into worker_equipment_misses (worker_id, equipment_id, miss_count, last_miss_at)
		values ($1, $2, 1, $3)
		on conflict (worker_id, equipment_id)
		do update set miss_count = worker_equipment_misses.miss_count + 1, last_miss_at = $3
		returning miss_count, last_miss_at, notified_at`,
		workerID, equipmentID, at).
		Scan(&c.Count, &c.LastMissAt, &notifiedAt)
	if err != nil {
		return nil, fmt.Errorf("increment miss counter: %w", err)
	}
	if notifiedAt.Valid {
		c.NotifiedAt = &notifiedAt.Time
	}
	return &c, nil
}

func (s *PostgresStore) MarkNotified(ctx context.Context, workerID, equipmentID string, at time.Time) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update worker_equipment_misses
		set notified_at = $3
		where worker_id = $1 and equipment_id = $2`,
		workerID, equipmentID, at)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
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

func (s *PostgresStore) Get(ctx context.Context, workerID, equipmentID string) (*Counter, error) {
	c := Counter{WorkerID: workerID, EquipmentID: equipmentID}
	var notifiedAt sql.NullTime
	err := s.conn(ctx).QueryRowContext(ctx, `
		select miss_count, last_miss_at, notified_at
		from worker_equipment_misses
		where worker_id = $1 and equipment_id = $2`,
		workerID, equipmentID).
		Scan(&c.Count, &c.LastMissAt, &notifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get miss counter: %w", err)
	}
	if notifiedAt.Valid {
		c.NotifiedAt = &notifiedAt.Time
	}
	return &c, nil
}

func (s *PostgresStore) ListByWorker(ctx context.Context, workerID string) ([]Counter, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select worker_id, equipment_id, miss_count, last_miss_at, notified_at
		from worker_equipment_misses
		where worker_id = $1
		order by equipment_id asc`, workerID)
	if err != nil {
		return nil, fmt.Errorf("list miss counters: %w", err)
	}
	defer rows.Close()

	var out []Counter
	for rows.Next() {
		var c Counter
		var notifiedAt sql.NullTime
		if err := rows.Scan(&c.WorkerID, &c.EquipmentID, &c.Count, &c.LastMissAt, &notifiedAt); err != nil {
			return nil, fmt.Errorf("scan miss counter: %w", err)
		}
		if notifiedAt.Valid {
			c.NotifiedAt = &notifiedAt.Time
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate miss counters: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Reset(ctx context.Context, workerID, equipmentID string) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update worker_equipment_misses
		set miss_count = 0, notified_at = null
		where worker_id = $1 and equipment_id = $2`,
		workerID, equipmentID)
	if err != nil {
		return false, fmt.Errorf("reset miss counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ResetAll(ctx context.Context, workerID string) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update worker_equipment_misses
		set miss_count = 0, notified_at = null
		where worker_id = $1`, workerID)
	if err != nil {
		return 0, fmt.Errorf("reset miss counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
