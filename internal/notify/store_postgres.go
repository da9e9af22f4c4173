package notify

import (
	"context"
	"database/sql"
	"fmt"

	platformpg "gearcheck/internal/platform/postgres"
	"gearcheck/pkg/platform/sentinel"
	txcontext "gearcheck/pkg/platform/tx"
)

// PostgresStore persists the outbox.
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

func (s *PostgresStore) Append(ctx context.Context, n *Notification) error {
	var chefID any
	if n.ChefID != "" {
		chefID = n.ChefID
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into notifications (id, type, team_id, chef_id, worker_id, equipment_id, message, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.Type, n.TeamID, chefID, n.WorkerID, n.EquipmentID, n.Message, n.CreatedAt)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, type, team_id, coalesce(chef_id, ''), worker_id, equipment_id, message, created_at, published_at
		from notifications
		where published_at is null
		order by created_at asc
		limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished: %w", err)
	}
	return scanNotifications(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update notifications set published_at = now() where id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
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

func (s *PostgresStore) ListByTeam(ctx context.Context, teamID string) ([]Notification, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, type, team_id, coalesce(chef_id, ''), worker_id, equipment_id, message, created_at, published_at
		from notifications
		where team_id = $1
		order by created_at desc`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list by team: %w", err)
	}
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var publishedAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.Type, &n.TeamID, &n.ChefID, &n.WorkerID,
			&n.EquipmentID, &n.Message, &n.CreatedAt, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if publishedAt.Valid {
			n.PublishedAt = &publishedAt.Time
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
