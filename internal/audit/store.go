package audit

import "context"

// Store persists audit revisions. Append assigns the next revision number
// itself and runs inside the submission transaction, so revision numbering
// has no gaps.
type Store interface {
	Append(ctx context.Context, rev *Revision) error

	// ListByCheck returns all revisions of a check, oldest first.
	ListByCheck(ctx context.Context, checkID string) ([]Revision, error)

	// FindRevision returns one revision.
	FindRevision(ctx context.Context, checkID string, revision int) (*Revision, error)
}
