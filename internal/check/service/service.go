// Package service coordinates check submissions: validation, the one-per-day
// rule, the strike ledger, worker status write-back, and the audit trail, all
// inside one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gearcheck/internal/audit"
	"gearcheck/internal/check"
	"gearcheck/internal/directory"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/strikes"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/sentinel"
)

// Range selects how far back a worker's check history goes.
const (
	RangeToday = "today"
	Range7d    = "7d"
	Range30d   = "30d"
	Range365d  = "365d"
)

// SubmitInput is one check submission.
type SubmitInput struct {
	WorkerID string
	TeamID   string
	Items    []check.Item
	Actor    string
	Via      string
}

// AmendInput is one correction of an existing check.
type AmendInput struct {
	CheckID string
	Items   []check.Item
	Actor   string
	Via     string
}

// Coordinator owns the submission and correction flows.
type Coordinator struct {
	tx        Tx
	checks    check.Store
	directory directory.Store
	validator *check.Validator
	ledger    *strikes.Ledger
	audits    audit.Store
	location  *time.Location
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewCoordinator(
	tx Tx,
	checks check.Store,
	dir directory.Store,
	validator *check.Validator,
	ledger *strikes.Ledger,
	audits audit.Store,
	location *time.Location,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		tx:        tx,
		checks:    checks,
		directory: dir,
		validator: validator,
		ledger:    ledger,
		audits:    audits,
		location:  location,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("gearcheck/check"),
		now:       time.Now,
	}
}

// Submit records one worker's daily check. Exactly one check per worker per
// reference day: a second submission for the same day is rejected with the
// existing check's id so the caller can fall back to a correction.
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (*check.WithItems, error) {
	ctx, span := c.tracer.Start(ctx, "check.submit",
		trace.WithAttributes(attribute.String("worker.id", in.WorkerID)))
	defer span.End()

	validated, err := c.validator.Validate(ctx, in.WorkerID, in.TeamID, in.Items)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	day := check.DayOf(now, c.location)
	newCheck := &check.Check{
		ID:        "chk_" + uuid.NewString(),
		WorkerID:  validated.Worker.ID,
		TeamID:    validated.Team.ID,
		Role:      validated.Worker.Role,
		Result:    check.Evaluate(in.Items),
		CreatedAt: now,
		Day:       day,
	}

	var notified int
	err = c.tx.RunInTx(withLockKey(ctx, in.WorkerID), func(ctx context.Context) error {
		if err := c.checks.Create(ctx, newCheck, in.Items); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return c.alreadyChecked(ctx, validated.Worker.ID, day)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create check")
		}

		for _, it := range in.Items {
			if !it.IsMiss() {
				continue
			}
			n, err := c.ledger.RegisterMiss(ctx, validated.Worker, validated.Team,
				validated.Equipment[it.EquipmentID], now)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "register miss")
			}
			if n != nil {
				notified++
			}
		}

		if err := c.directory.ApplyCheckOutcome(ctx, validated.Worker.ID,
			newCheck.Result.WorkerStatus(), now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "apply check outcome")
		}

		return c.appendAudit(ctx, newCheck, in.Items, audit.ActionCreate, in.Actor, in.Via, now)
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeAlreadyChecked) {
			c.metrics.CheckConflicts.Inc()
		}
		return nil, err
	}

	c.metrics.ChecksSubmitted.WithLabelValues(string(newCheck.Result)).Inc()
	if notified > 0 {
		c.metrics.StrikeNotifications.Add(float64(notified))
	}
	c.logger.Info("check submitted",
		"check_id", newCheck.ID,
		"worker_id", newCheck.WorkerID,
		"team_id", newCheck.TeamID,
		"result", newCheck.Result,
		"day", newCheck.Day,
		"notifications", notified,
	)

	return &check.WithItems{Check: *newCheck, Items: in.Items}, nil
}

// Amend replaces the items of an existing check and recomputes its result.
// The strike ledger is deliberately left alone: a correction rewrites what
// was observed, not how often the worker has slipped.
func (c *Coordinator) Amend(ctx context.Context, in AmendInput) (*check.WithItems, error) {
	ctx, span := c.tracer.Start(ctx, "check.amend",
		trace.WithAttributes(attribute.String("check.id", in.CheckID)))
	defer span.End()

	existing, err := c.checks.FindByID(ctx, in.CheckID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "check not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find check")
	}

	if _, err := c.validator.Validate(ctx, existing.Check.WorkerID, existing.Check.TeamID, in.Items); err != nil {
		// The worker may have gone absent since the original submission; an
		// absence today must not block correcting this morning's record.
		if !dErrors.Is(err, dErrors.CodeWorkerAbsent) {
			return nil, err
		}
	}

	now := c.now().UTC()
	amended := existing.Check
	amended.Result = check.Evaluate(in.Items)

	err = c.tx.RunInTx(withLockKey(ctx, existing.Check.WorkerID), func(ctx context.Context) error {
		if err := c.checks.ReplaceItems(ctx, in.CheckID, in.Items); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "replace items")
		}
		if err := c.checks.UpdateResult(ctx, in.CheckID, amended.Result); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update result")
		}
		if err := c.directory.ApplyCheckOutcome(ctx, amended.WorkerID,
			amended.Result.WorkerStatus(), now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "apply check outcome")
		}
		return c.appendAudit(ctx, &amended, in.Items, audit.ActionUpdate, in.Actor, in.Via, now)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.CheckAmendments.Inc()
	c.logger.Info("check amended",
		"check_id", amended.ID,
		"worker_id", amended.WorkerID,
		"result", amended.Result,
		"actor_id", in.Actor,
	)

	return &check.WithItems{Check: amended, Items: in.Items}, nil
}

// Get returns one check with its current items.
func (c *Coordinator) Get(ctx context.Context, checkID string) (*check.WithItems, error) {
	got, err := c.checks.FindByID(ctx, checkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "check not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find check")
	}
	return got, nil
}

// ListWorkerChecks returns a worker's history over a named range.
func (c *Coordinator) ListWorkerChecks(ctx context.Context, workerID, rng string) ([]check.WithItems, error) {
	if _, err := c.directory.FindWorker(ctx, workerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "worker not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find worker")
	}

	since, err := c.rangeStart(rng)
	if err != nil {
		return nil, err
	}
	out, err := c.checks.ListByWorkerSince(ctx, workerID, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list checks")
	}
	return out, nil
}

func (c *Coordinator) rangeStart(rng string) (time.Time, error) {
	now := c.now()
	switch rng {
	case "", RangeToday:
		local := now.In(c.location)
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.location)
		return start.UTC(), nil
	case Range7d:
		return now.UTC().AddDate(0, 0, -7), nil
	case Range30d:
		return now.UTC().AddDate(0, 0, -30), nil
	case Range365d:
		return now.UTC().AddDate(0, 0, -365), nil
	default:
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "unknown range, expected today, 7d, 30d or 365d")
	}
}

func (c *Coordinator) alreadyChecked(ctx context.Context, workerID, day string) error {
	e := dErrors.New(dErrors.CodeAlreadyChecked, "worker already has a check for this day")
	if existing, err := c.checks.FindByWorkerAndDay(ctx, workerID, day); err == nil {
		e.WithMeta("existingCheckId", existing.Check.ID)
	}
	return e
}

func (c *Coordinator) appendAudit(ctx context.Context, ch *check.Check, items []check.Item, action audit.Action, actor, via string, at time.Time) error {
	rev := &audit.Revision{
		CheckID:    ch.ID,
		Action:     action,
		ChangedBy:  actor,
		ChangedVia: via,
		ChangedAt:  at,
		Snapshot:   audit.SnapshotOf(ch, items),
	}
	if err := c.audits.Append(ctx, rev); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append audit revision")
	}
	return nil
}
