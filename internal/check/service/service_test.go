package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearcheck/internal/audit"
	"gearcheck/internal/catalog"
	"gearcheck/internal/check"
	"gearcheck/internal/directory"
	"gearcheck/internal/notify"
	"gearcheck/internal/platform/metrics"
	"gearcheck/internal/strikes"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/testutil"
)

type fixture struct {
	coord    *Coordinator
	checks   *check.InMemoryStore
	dir      *directory.InMemoryStore
	cat      *catalog.InMemoryStore
	counters *strikes.InMemoryStore
	outbox   *notify.InMemoryStore
	audits   *audit.InMemoryStore
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		checks:   check.NewInMemoryStore(),
		dir:      directory.NewInMemoryStore(),
		cat:      catalog.NewInMemoryStore(),
		counters: strikes.NewInMemoryStore(),
		outbox:   notify.NewInMemoryStore(),
		audits:   audit.NewInMemoryStore(),
		clock:    time.Date(2026, 5, 12, 7, 30, 0, 0, time.UTC),
	}

	f.dir.SeedTeam(&directory.Team{ID: "team-1", Name: "Quai Nord", ChefID: "chef-1"})
	f.dir.SeedWorker(&directory.Worker{
		ID: "w1", Name: "Karim Benali", TeamID: "team-1",
		Role: "role-cariste", Attendance: directory.AttendancePresent,
	})

	require.NoError(t, f.cat.CreateRole(ctx, catalog.Role{ID: "role-cariste", Label: "Cariste"}))
	require.NoError(t, f.cat.CreateEquipment(ctx, catalog.Equipment{ID: "helmet", Name: "Casque", MaxMissesBeforeNotif: 2}))
	require.NoError(t, f.cat.CreateEquipment(ctx, catalog.Equipment{ID: "boots", Name: "Chaussures", MaxMissesBeforeNotif: 3}))
	require.NoError(t, f.cat.AssignEquipment(ctx, "role-cariste", "helmet"))
	require.NoError(t, f.cat.AssignEquipment(ctx, "role-cariste", "boots"))

	f.coord = NewCoordinator(
		NewShardedTx(),
		f.checks,
		f.dir,
		check.NewValidator(f.dir, f.cat),
		strikes.NewLedger(f.counters, f.outbox),
		f.audits,
		time.UTC,
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.DiscardHandler),
	)
	f.coord.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advanceDays(n int) {
	f.clock = f.clock.AddDate(0, 0, n)
}

func (f *fixture) submit(t *testing.T, items ...check.Item) *check.WithItems {
	t.Helper()
	got, err := f.coord.Submit(context.Background(), SubmitInput{
		WorkerID: "w1", TeamID: "team-1", Items: items, Actor: "chef-1", Via: "mobile",
	})
	require.NoError(t, err)
	return got
}

func TestSubmitRecordsCheckAndOutcome(t *testing.T) {
	f := newFixture(t)

	got := f.submit(t,
		check.Item{EquipmentID: "helmet", Status: check.ItemOK},
		check.Item{EquipmentID: "boots", Status: check.ItemOK})

	assert.Equal(t, check.ResultConforme, got.Check.Result)
	assert.Equal(t, "2026-05-12", got.Check.Day)
	assert.NotEmpty(t, got.Check.ID)

	worker, err := f.dir.FindWorker(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, directory.WorkerStatusOK, worker.Status)
	assert.True(t, worker.Controlled)
	require.NotNil(t, worker.LastCheckAt)

	revs, err := f.audits.ListByCheck(context.Background(), got.Check.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, audit.ActionCreate, revs[0].Action)
	assert.Equal(t, "chef-1", revs[0].ChangedBy)
	assert.Equal(t, "mobile", revs[0].ChangedVia)
}

func TestSubmitRejectsSecondCheckSameDay(t *testing.T) {
	f := newFixture(t)

	first := f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemOK})

	_, err := f.coord.Submit(context.Background(), SubmitInput{
		WorkerID: "w1", TeamID: "team-1",
		Items: []check.Item{{EquipmentID: "helmet", Status: check.ItemMissing}},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeAlreadyChecked))

	de, ok := dErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, first.Check.ID, de.Meta["existingCheckId"])

	// The rejected submission must leave no trace in the strike ledger.
	_, err = f.counters.Get(context.Background(), "w1", "helmet")
	require.Error(t, err)

	// Next day the worker can submit again.
	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemOK})
}

func TestStrikeNotificationFiresExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Helmet threshold is 2. First miss: silent.
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})
	pending, err := f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Second miss crosses the threshold: exactly one notification.
	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemFailed})
	pending, err = f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, notify.TypeMissLimitReached, pending[0].Type)
	assert.Equal(t, "chef-1", pending[0].ChefID)
	assert.Contains(t, pending[0].Message, "Limite atteinte (2/2)")

	// Third miss: the latch keeps it silent even though the count climbs.
	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})
	pending, err = f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	c, err := f.counters.Get(ctx, "w1", "helmet")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count)
}

func TestResetRearmsNotificationLatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})
	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})

	// Redressement meeting happened; the ledger is wiped.
	_, err := f.counters.ResetAll(ctx, "w1")
	require.NoError(t, err)

	// The worker has to reach the threshold again from zero.
	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})
	pending, err := f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})
	pending, err = f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestAmendRecomputesResultAndAppendsRevision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.submit(t,
		check.Item{EquipmentID: "helmet", Status: check.ItemOK},
		check.Item{EquipmentID: "boots", Status: check.ItemFailed})
	assert.Equal(t, check.ResultKO, got.Check.Result)

	amended, err := f.coord.Amend(ctx, AmendInput{
		CheckID: got.Check.ID,
		Items: []check.Item{
			{EquipmentID: "helmet", Status: check.ItemOK},
			{EquipmentID: "boots", Status: check.ItemOK},
		},
		Actor: "direction-1", Via: "web",
	})
	require.NoError(t, err)
	assert.Equal(t, check.ResultConforme, amended.Check.Result)

	stored, err := f.checks.FindByID(ctx, got.Check.ID)
	require.NoError(t, err)
	assert.Equal(t, check.ResultConforme, stored.Check.Result)
	require.Len(t, stored.Items, 2)

	worker, err := f.dir.FindWorker(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, directory.WorkerStatusOK, worker.Status)

	revs, err := f.audits.ListByCheck(ctx, got.Check.ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, audit.ActionCreate, revs[0].Action)
	assert.Equal(t, audit.ActionUpdate, revs[1].Action)
	assert.Equal(t, "direction-1", revs[1].ChangedBy)
	assert.Equal(t, check.ResultKO, revs[0].Snapshot.Result)
	assert.Equal(t, check.ResultConforme, revs[1].Snapshot.Result)
}

func TestAmendDoesNotTouchStrikeLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemMissing})

	before, err := f.counters.Get(ctx, "w1", "helmet")
	require.NoError(t, err)
	require.Equal(t, 1, before.Count)

	// Correcting a miss into a worse miss still leaves the tally alone.
	_, err = f.coord.Amend(ctx, AmendInput{
		CheckID: got.Check.ID,
		Items:   []check.Item{{EquipmentID: "helmet", Status: check.ItemFailed}},
		Actor:   "chef-1",
	})
	require.NoError(t, err)

	after, err := f.counters.Get(ctx, "w1", "helmet")
	require.NoError(t, err)
	assert.Equal(t, 1, after.Count)

	// And correcting it into an OK does not decrement either.
	_, err = f.coord.Amend(ctx, AmendInput{
		CheckID: got.Check.ID,
		Items:   []check.Item{{EquipmentID: "helmet", Status: check.ItemOK}},
		Actor:   "chef-1",
	})
	require.NoError(t, err)

	after, err = f.counters.Get(ctx, "w1", "helmet")
	require.NoError(t, err)
	assert.Equal(t, 1, after.Count)

	pending, err := f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAmendAllowedWhenWorkerWentAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemOK})

	f.dir.SeedWorker(&directory.Worker{
		ID: "w1", Name: "Karim Benali", TeamID: "team-1",
		Role: "role-cariste", Attendance: directory.AttendanceAbsent,
	})

	_, err := f.coord.Amend(ctx, AmendInput{
		CheckID: got.Check.ID,
		Items:   []check.Item{{EquipmentID: "helmet", Status: check.ItemMissing}},
		Actor:   "chef-1",
	})
	require.NoError(t, err)
}

func TestAmendUnknownCheck(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Amend(context.Background(), AmendInput{
		CheckID: "chk_missing",
		Items:   []check.Item{{EquipmentID: "helmet", Status: check.ItemOK}},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestListWorkerChecksRanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemOK})
	f.advanceDays(1)
	f.submit(t, check.Item{EquipmentID: "helmet", Status: check.ItemOK})

	today, err := f.coord.ListWorkerChecks(ctx, "w1", RangeToday)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	week, err := f.coord.ListWorkerChecks(ctx, "w1", Range7d)
	require.NoError(t, err)
	assert.Len(t, week, 2)

	_, err = f.coord.ListWorkerChecks(ctx, "w1", "14d")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = f.coord.ListWorkerChecks(ctx, "ghost", RangeToday)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

// Full scenario: a KO morning check, a rejected duplicate, then a correction
// bringing the worker back to conforme with a two-revision trail.
func TestSubmissionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got *check.WithItems

	testutil.Given(t, "a KO check recorded for the day", func(t *testing.T) {
		got = f.submit(t,
			check.Item{EquipmentID: "helmet", Status: check.ItemOK},
			check.Item{EquipmentID: "boots", Status: check.ItemFailed})
		assert.Equal(t, check.ResultKO, got.Check.Result)

		_, err := f.coord.Submit(ctx, SubmitInput{
			WorkerID: "w1", TeamID: "team-1",
			Items: []check.Item{{EquipmentID: "helmet", Status: check.ItemOK}},
		})
		assert.True(t, dErrors.Is(err, dErrors.CodeAlreadyChecked))
	})

	testutil.When(t, "the chef corrects the failed equipment", func(t *testing.T) {
		amended, err := f.coord.Amend(ctx, AmendInput{
			CheckID: got.Check.ID,
			Items: []check.Item{
				{EquipmentID: "helmet", Status: check.ItemOK},
				{EquipmentID: "boots", Status: check.ItemOK},
			},
			Actor: "chef-1", Via: "web",
		})
		require.NoError(t, err)
		assert.Equal(t, check.ResultConforme, amended.Check.Result)
	})

	testutil.Then(t, "the baseline exposes the original and the correction", func(t *testing.T) {
		baseline, err := audit.NewService(f.audits).BaselineOf(ctx, got.Check.ID)
		require.NoError(t, err)
		assert.True(t, baseline.HasUpdate)
		assert.Equal(t, check.ResultKO, baseline.Diff.FromResult)
		assert.Equal(t, check.ResultConforme, baseline.Diff.ToResult)
		require.Len(t, baseline.Diff.ChangedItems, 1)
		assert.Equal(t, "boots", baseline.Diff.ChangedItems[0].EquipmentID)
	})
}
