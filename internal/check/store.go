package check

import (
	"context"
	"time"
)

// WithItems bundles a check with its current item set for read paths.
type WithItems struct {
	Check Check  `json:"check"`
	Items []Item `json:"items"`
}

// Store persists checks and their items. Mutations participate in the
// coordinator transaction when one is carried in context.
type Store interface {
	// Create inserts the check and its items. Returns sentinel.ErrConflict
	// when a check already exists for (worker, day) - this is the anchor of
	// the one-check-per-day invariant.
	Create(ctx context.Context, c *Check, items []Item) error

	FindByID(ctx context.Context, id string) (*WithItems, error)
	FindByWorkerAndDay(ctx context.Context, workerID, day string) (*WithItems, error)

	// UpdateResult rewrites the aggregate result of an existing check.
	UpdateResult(ctx context.Context, checkID string, result Result) error

	// ReplaceItems deletes the current item set and inserts the new one.
	// Corrections replace wholesale, never merge.
	ReplaceItems(ctx context.Context, checkID string, items []Item) error

	// ListByWorkerSince returns a worker's checks created at or after since,
	// newest first, with items.
	ListByWorkerSince(ctx context.Context, workerID string, since time.Time) ([]WithItems, error)
}
