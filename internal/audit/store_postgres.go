package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gearcheck/pkg/platform/sentinel"
	txcontext "gearcheck/pkg/platform/tx"
)

// PostgresStore persists audit rows with jsonb snapshots. The revision number
// is computed inside the insert, which is safe because Append always runs
// inside the submission transaction holding the check row.
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

func (s *PostgresStore) Append(ctx context.Context, rev *Revision) error {
	snapshot, err := json.Marshal(rev.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	var changedVia any
	if rev.ChangedVia != "" {
		changedVia = rev.ChangedVia
	}
	err = s.conn(ctx).QueryRowContext(ctx, `
		insert into check_audits (check_id, revision, action, changed_by, changed_via, changed_at, snapshot)
		select $1, coalesce(max(revision), 0) + 1, $2, $3, $4, $5, $6
		from check_audits
		where check_id = $1
		returning revision`,
		rev.CheckID, rev.Action, rev.ChangedBy, changedVia, rev.ChangedAt, snapshot).
		Scan(&rev.Revision)
	if err != nil {
		return fmt.Errorf("append audit revision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCheck(ctx context.Context, checkID string) ([]Revision, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select check_id, revision, action, changed_by, coalesce(changed_via, ''), changed_at, snapshot
		from check_audits
		where check_id = $1
		order by revision asc`, checkID)
	if err != nil {
		return nil, fmt.Errorf("list audit revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		rev, err := scanRevision(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit revisions: %w", err)
	}
	if len(out) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return out, nil
}

func (s *PostgresStore) FindRevision(ctx context.Context, checkID string, revision int) (*Revision, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		select check_id, revision, action, changed_by, coalesce(changed_via, ''), changed_at, snapshot
		from check_audits
		where check_id = $1 and revision = $2`, checkID, revision)

	rev, err := scanRevision(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return rev, nil
}

func scanRevision(scan func(dest ...any) error) (*Revision, error) {
	var rev Revision
	var snapshot []byte
	if err := scan(&rev.CheckID, &rev.Revision, &rev.Action, &rev.ChangedBy,
		&rev.ChangedVia, &rev.ChangedAt, &snapshot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan audit revision: %w", err)
	}
	if err := json.Unmarshal(snapshot, &rev.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &rev, nil
}
