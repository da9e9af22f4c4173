package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gearcheck/pkg/platform/sentinel"
	txcontext "gearcheck/pkg/platform/tx"
)

// PostgresStore reads the worker/team directory and writes back the
// compliance-derived worker fields. Mutations join the surrounding
// transaction when one is carried in context.
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

func (s *PostgresStore) FindWorker(ctx context.Context, id string) (*Worker, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		select id, name, coalesce(employee_number, ''), team_id, coalesce(role, ''),
		       attendance, coalesce(status, ''), controlled, last_check_at
		from workers
		where id = $1`, id)

	var w Worker
	var lastCheckAt sql.NullTime
	err := row.Scan(&w.ID, &w.Name, &w.EmployeeNumber, &w.TeamID, &w.Role,
		&w.Attendance, &w.Status, &w.Controlled, &lastCheckAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find worker: %w", err)
	}
	if lastCheckAt.Valid {
		w.LastCheckAt = &lastCheckAt.Time
	}
	return &w, nil
}

func (s *PostgresStore) FindTeam(ctx context.Context, id string) (*Team, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		select id, name, coalesce(chef_id, '')
		from teams
		where id = $1`, id)

	var t Team
	if err := row.Scan(&t.ID, &t.Name, &t.ChefID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTeams(ctx context.Context) ([]*Team, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, name, coalesce(chef_id, '')
		from teams
		order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.ChefID); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}

func (s *PostgresStore) ListTeamWorkers(ctx context.Context, teamID string) ([]*Worker, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, name, coalesce(employee_number, ''), team_id, coalesce(role, ''),
		       attendance, coalesce(status, ''), controlled, last_check_at
		from workers
		where team_id = $1
		order by name asc`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team workers: %w", err)
	}
	defer rows.Close()

	var workers []*Worker
	for rows.Next() {
		var w Worker
		var lastCheckAt sql.NullTime
		err := rows.Scan(&w.ID, &w.Name, &w.EmployeeNumber, &w.TeamID, &w.Role,
			&w.Attendance, &w.Status, &w.Controlled, &lastCheckAt)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		if lastCheckAt.Valid {
			w.LastCheckAt = &lastCheckAt.Time
		}
		workers = append(workers, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return workers, nil
}

func (s *PostgresStore) ApplyCheckOutcome(ctx context.Context, workerID string, status WorkerStatus, at time.Time) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update workers
		set status = $2,
		    controlled = true,
		    last_check_at = $3
		where id = $1`, workerID, string(status), at)
	if err != nil {
		return fmt.Errorf("apply check outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply check outcome: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
