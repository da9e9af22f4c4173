package notify

import (
	"context"
	"log/slog"
	"time"
)

const publishBatchSize = 100

// Worker drains the outbox on an interval: list pending rows, publish each,
// mark it published. A row that fails to publish stays pending and is retried
// on the next tick, so delivery is at-least-once.
type Worker struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
}

func NewWorker(store Store, publisher Publisher, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	pending, err := w.store.ListUnpublished(ctx, publishBatchSize)
	if err != nil {
		return err
	}
	for i := range pending {
		n := &pending[i]
		if err := w.publisher.Publish(ctx, n); err != nil {
			w.logger.Error("publish notification failed", "notification_id", n.ID, "error", err)
			continue
		}
		if err := w.store.MarkPublished(ctx, n.ID); err != nil {
			w.logger.Error("mark published failed", "notification_id", n.ID, "error", err)
			continue
		}
		w.logger.Info("notification published",
			"notification_id", n.ID, "team_id", n.TeamID, "worker_id", n.WorkerID)
	}
	return nil
}
