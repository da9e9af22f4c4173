package directory

import (
	"context"
	"time"
)

// Store is interface-driven to keep domain logic testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.
type Store interface {
	FindWorker(ctx context.Context, id string) (*Worker, error)
	FindTeam(ctx context.Context, id string) (*Team, error)
	ListTeams(ctx context.Context) ([]*Team, error)
	ListTeamWorkers(ctx context.Context, teamID string) ([]*Worker, error)

	// ApplyCheckOutcome writes the compliance-derived worker fields after a
	// submission or correction. Runs inside the coordinator transaction.
	ApplyCheckOutcome(ctx context.Context, workerID string, status WorkerStatus, at time.Time) error
}
