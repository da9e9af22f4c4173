package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "gearcheck/pkg/domain-errors"
	txcontext "gearcheck/pkg/platform/tx"
)

const defaultCheckTxTimeout = 5 * time.Second

// checkPostgresTx runs a submission callback inside one database transaction.
// The transaction rides the context, where every postgres store picks it up.
type checkPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newCheckPostgresTx(db *sql.DB) *checkPostgresTx {
	return &checkPostgresTx{db: db}
}

func (t *checkPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultCheckTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
