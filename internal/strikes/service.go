package strikes

import (
	"context"
	"errors"
	"log/slog"

	"gearcheck/internal/directory"
	"gearcheck/internal/platform/metrics"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/sentinel"
)

// Service exposes counter reads and the redressement reset. A reset is the
// follow-up to the chef meeting: it zeroes the tally and re-arms the
// notification latch.
type Service struct {
	counters  Store
	directory directory.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(counters Store, dir directory.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{counters: counters, directory: dir, metrics: m, logger: logger}
}

// WorkerCounters returns the worker's miss counters.
func (s *Service) WorkerCounters(ctx context.Context, workerID string) ([]Counter, error) {
	if _, err := s.directory.FindWorker(ctx, workerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "worker not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find worker")
	}
	counters, err := s.counters.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list counters")
	}
	return counters, nil
}

// ResetWorker zeroes every counter for the worker and returns how many were
// reset.
func (s *Service) ResetWorker(ctx context.Context, workerID, actorID string) (int, error) {
	if _, err := s.directory.FindWorker(ctx, workerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "worker not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "find worker")
	}

	n, err := s.counters.ResetAll(ctx, workerID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "reset counters")
	}
	s.metrics.LedgerResets.Inc()
	s.logger.Info("miss counters reset", "worker_id", workerID, "actor_id", actorID, "count", n)
	return n, nil
}

// ResetCounter zeroes one (worker, equipment) counter.
func (s *Service) ResetCounter(ctx context.Context, workerID, equipmentID, actorID string) error {
	if _, err := s.directory.FindWorker(ctx, workerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "worker not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find worker")
	}

	existed, err := s.counters.Reset(ctx, workerID, equipmentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset counter")
	}
	if !existed {
		return dErrors.New(dErrors.CodeNotFound, "no counter for this equipment")
	}
	s.metrics.LedgerResets.Inc()
	s.logger.Info("miss counter reset",
		"worker_id", workerID, "equipment_id", equipmentID, "actor_id", actorID)
	return nil
}
