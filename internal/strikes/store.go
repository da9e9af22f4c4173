package strikes

import (
	"context"
	"time"
)

// Store persists miss counters. Increment must be atomic so concurrent
// submissions for different equipment never lose a tally.
type Store interface {
	// Increment bumps the counter by one, creating it at one if absent, and
	// returns the post-increment state.
	Increment(ctx context.Context, workerID, equipmentID string, at time.Time) (*Counter, error)

	// MarkNotified sets the notification latch.
	MarkNotified(ctx context.Context, workerID, equipmentID string, at time.Time) error

	Get(ctx context.Context, workerID, equipmentID string) (*Counter, error)
	ListByWorker(ctx context.Context, workerID string) ([]Counter, error)

	// Reset zeroes one counter and clears its latch. Reports whether a
	// counter existed.
	Reset(ctx context.Context, workerID, equipmentID string) (bool, error)

	// ResetAll zeroes every counter for the worker and returns how many were
	// touched.
	ResetAll(ctx context.Context, workerID string) (int, error)
}
