//go:build integration

package check

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"gearcheck/internal/platform/postgres"
	"gearcheck/pkg/platform/sentinel"
	"gearcheck/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.EnsureSchema(s.ctx, s.pg.DB))
	s.store = NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pg.Terminate(s.T())
}

func (s *PostgresStoreSuite) SetupTest() {
	for _, table := range []string{"check_audits", "check_items", "checks", "worker_equipment_misses", "notifications", "role_equipment", "workers", "teams", "equipment", "roles"} {
		_, err := s.pg.DB.ExecContext(s.ctx, "delete from "+table)
		s.Require().NoError(err)
	}
	seedPostgresDirectory(s.T(), s.pg.DB)
}

func seedPostgresDirectory(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `insert into teams (id, name, chef_id) values ('team-1', 'Quai Nord', 'chef-1')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		insert into workers (id, name, team_id, role, attendance)
		values ('w1', 'Karim Benali', 'team-1', 'role-cariste', 'PRESENT'),
		       ('w2', 'Sonia Petit', 'team-1', 'role-cariste', 'PRESENT')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `insert into roles (id, label) values ('role-cariste', 'Cariste')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		insert into equipment (id, name, max_misses_before_notif)
		values ('helmet', 'Casque', 2), ('boots', 'Chaussures', 3)`)
	require.NoError(t, err)
}

func (s *PostgresStoreSuite) newCheck(id, workerID, day string, result Result) *Check {
	return &Check{
		ID:        id,
		WorkerID:  workerID,
		TeamID:    "team-1",
		Role:      "role-cariste",
		Result:    result,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Day:       day,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	c := s.newCheck("chk_1", "w1", "2026-05-12", ResultConforme)
	items := []Item{
		{EquipmentID: "boots", Status: ItemOK},
		{EquipmentID: "helmet", Status: ItemOK},
	}
	s.Require().NoError(s.store.Create(s.ctx, c, items))

	got, err := s.store.FindByID(s.ctx, "chk_1")
	s.Require().NoError(err)
	s.Equal("w1", got.Check.WorkerID)
	s.Equal("2026-05-12", got.Check.Day)
	s.Equal(ResultConforme, got.Check.Result)
	s.Require().Len(got.Items, 2)
	s.Equal("boots", got.Items[0].EquipmentID)

	byDay, err := s.store.FindByWorkerAndDay(s.ctx, "w1", "2026-05-12")
	s.Require().NoError(err)
	s.Equal("chk_1", byDay.Check.ID)
}

func (s *PostgresStoreSuite) TestUniqueWorkerDay() {
	s.Require().NoError(s.store.Create(s.ctx, s.newCheck("chk_1", "w1", "2026-05-12", ResultConforme), nil))

	err := s.store.Create(s.ctx, s.newCheck("chk_2", "w1", "2026-05-12", ResultKO), nil)
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.Create(s.ctx, s.newCheck("chk_3", "w1", "2026-05-13", ResultConforme), nil))
	s.Require().NoError(s.store.Create(s.ctx, s.newCheck("chk_4", "w2", "2026-05-12", ResultConforme), nil))
}

func (s *PostgresStoreSuite) TestReplaceItemsAndUpdateResult() {
	c := s.newCheck("chk_1", "w1", "2026-05-12", ResultKO)
	s.Require().NoError(s.store.Create(s.ctx, c, []Item{
		{EquipmentID: "helmet", Status: ItemOK},
		{EquipmentID: "boots", Status: ItemFailed},
	}))

	s.Require().NoError(s.store.ReplaceItems(s.ctx, "chk_1", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
		{EquipmentID: "boots", Status: ItemOK},
	}))
	s.Require().NoError(s.store.UpdateResult(s.ctx, "chk_1", ResultConforme))

	got, err := s.store.FindByID(s.ctx, "chk_1")
	s.Require().NoError(err)
	s.Equal(ResultConforme, got.Check.Result)
	s.Require().Len(got.Items, 2)
	for _, it := range got.Items {
		s.Equal(ItemOK, it.Status)
	}

	s.ErrorIs(s.store.ReplaceItems(s.ctx, "chk_missing", nil), sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdateResult(s.ctx, "chk_missing", ResultKO), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByWorkerSince() {
	base := time.Now().UTC().Truncate(time.Microsecond)

	old := s.newCheck("chk_old", "w1", "2026-04-01", ResultConforme)
	old.CreatedAt = base.AddDate(0, -2, 0)
	s.Require().NoError(s.store.Create(s.ctx, old, nil))

	recent := s.newCheck("chk_recent", "w1", "2026-05-12", ResultKO)
	recent.CreatedAt = base
	s.Require().NoError(s.store.Create(s.ctx, recent, []Item{{EquipmentID: "helmet", Status: ItemFailed}}))

	got, err := s.store.ListByWorkerSince(s.ctx, "w1", base.AddDate(0, -1, 0))
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("chk_recent", got[0].Check.ID)
	s.Require().Len(got[0].Items, 1)
}
