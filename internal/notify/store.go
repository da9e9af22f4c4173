package notify

import "context"

// Store persists the outbox. Append participates in the submission
// transaction; the publish path runs outside it.
type Store interface {
	Append(ctx context.Context, n *Notification) error

	// ListUnpublished returns pending rows, oldest first, up to limit.
	ListUnpublished(ctx context.Context, limit int) ([]Notification, error)

	MarkPublished(ctx context.Context, id string) error

	// ListByTeam returns a team's notifications, newest first.
	ListByTeam(ctx context.Context, teamID string) ([]Notification, error)
}
