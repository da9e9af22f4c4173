package check

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearcheck/internal/catalog"
	"gearcheck/internal/directory"
	dErrors "gearcheck/pkg/domain-errors"
)

func validatorFixture(t *testing.T) (*Validator, *directory.InMemoryStore, *catalog.InMemoryStore) {
	t.Helper()
	dir := directory.NewInMemoryStore()
	cat := catalog.NewInMemoryStore()
	ctx := context.Background()

	dir.SeedTeam(&directory.Team{ID: "team-1", Name: "Quai Nord", ChefID: "chef-1"})
	dir.SeedWorker(&directory.Worker{
		ID: "w1", Name: "Karim Benali", TeamID: "team-1",
		Role: "role-cariste", Attendance: directory.AttendancePresent,
	})

	require.NoError(t, cat.CreateRole(ctx, catalog.Role{ID: "role-cariste", Label: "Cariste"}))
	require.NoError(t, cat.CreateEquipment(ctx, catalog.Equipment{ID: "helmet", Name: "Casque", MaxMissesBeforeNotif: 3}))
	require.NoError(t, cat.CreateEquipment(ctx, catalog.Equipment{ID: "boots", Name: "Chaussures", MaxMissesBeforeNotif: 3}))
	require.NoError(t, cat.AssignEquipment(ctx, "role-cariste", "helmet"))
	require.NoError(t, cat.AssignEquipment(ctx, "role-cariste", "boots"))

	return NewValidator(dir, cat), dir, cat
}

func TestValidatorAccepts(t *testing.T) {
	v, _, _ := validatorFixture(t)

	got, err := v.Validate(context.Background(), "w1", "team-1", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
		{EquipmentID: "boots", Status: ItemMissing},
	})
	require.NoError(t, err)
	assert.Equal(t, "w1", got.Worker.ID)
	assert.Equal(t, "team-1", got.Team.ID)
	assert.Len(t, got.Equipment, 2)
}

func TestValidatorEmptyTeamSkipsMismatchCheck(t *testing.T) {
	v, _, _ := validatorFixture(t)

	_, err := v.Validate(context.Background(), "w1", "", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
	})
	require.NoError(t, err)
}

func TestValidatorRejections(t *testing.T) {
	tests := []struct {
		name     string
		workerID string
		teamID   string
		items    []Item
		wantCode dErrors.Code
	}{
		{
			name:     "unknown worker",
			workerID: "ghost",
			teamID:   "team-1",
			items:    []Item{{EquipmentID: "helmet", Status: ItemOK}},
			wantCode: dErrors.CodeNotFound,
		},
		{
			name:     "team mismatch",
			workerID: "w1",
			teamID:   "team-2",
			items:    []Item{{EquipmentID: "helmet", Status: ItemOK}},
			wantCode: dErrors.CodeTeamMismatch,
		},
		{
			name:     "no items",
			workerID: "w1",
			teamID:   "team-1",
			items:    nil,
			wantCode: dErrors.CodeBadRequest,
		},
		{
			name:     "invalid status",
			workerID: "w1",
			teamID:   "team-1",
			items:    []Item{{EquipmentID: "helmet", Status: "MANQUANT"}},
			wantCode: dErrors.CodeBadRequest,
		},
		{
			name:     "duplicate equipment",
			workerID: "w1",
			teamID:   "team-1",
			items: []Item{
				{EquipmentID: "helmet", Status: ItemOK},
				{EquipmentID: "helmet", Status: ItemMissing},
			},
			wantCode: dErrors.CodeBadRequest,
		},
		{
			name:     "missing equipment id",
			workerID: "w1",
			teamID:   "team-1",
			items:    []Item{{EquipmentID: "", Status: ItemOK}},
			wantCode: dErrors.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, _ := validatorFixture(t)
			_, err := v.Validate(context.Background(), tt.workerID, tt.teamID, tt.items)
			require.Error(t, err)
			assert.True(t, dErrors.Is(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestValidatorRejectsAbsentWorker(t *testing.T) {
	v, dir, _ := validatorFixture(t)
	dir.SeedWorker(&directory.Worker{
		ID: "w2", Name: "Sonia Petit", TeamID: "team-1",
		Role: "role-cariste", Attendance: directory.AttendanceAbsent,
	})

	_, err := v.Validate(context.Background(), "w2", "team-1", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeWorkerAbsent))
}

func TestValidatorAcceptsRolelessWorker(t *testing.T) {
	v, dir, _ := validatorFixture(t)
	dir.SeedWorker(&directory.Worker{
		ID: "w3", Name: "Luc Morel", TeamID: "team-1",
		Attendance: directory.AttendancePresent,
	})

	got, err := v.Validate(context.Background(), "w3", "team-1", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
	})
	require.NoError(t, err)
	assert.Len(t, got.Equipment, 1)
}

func TestValidatorRejectsUnknownEquipmentBeforeAllowlist(t *testing.T) {
	v, _, _ := validatorFixture(t)

	_, err := v.Validate(context.Background(), "w1", "team-1", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
		{EquipmentID: "ghost-equipment", Status: ItemOK},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound), "got %v", err)
}

func TestValidatorRejectsUnknownEquipmentForRolelessWorker(t *testing.T) {
	v, dir, _ := validatorFixture(t)
	dir.SeedWorker(&directory.Worker{
		ID: "w3", Name: "Luc Morel", TeamID: "team-1",
		Attendance: directory.AttendancePresent,
	})

	_, err := v.Validate(context.Background(), "w3", "team-1", []Item{
		{EquipmentID: "ghost-equipment", Status: ItemOK},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound), "got %v", err)
}

func TestValidatorRejectsEquipmentOutsideRole(t *testing.T) {
	v, _, cat := validatorFixture(t)
	require.NoError(t, cat.CreateEquipment(context.Background(),
		catalog.Equipment{ID: "harness", Name: "Harnais", MaxMissesBeforeNotif: 2}))

	_, err := v.Validate(context.Background(), "w1", "team-1", []Item{
		{EquipmentID: "helmet", Status: ItemOK},
		{EquipmentID: "harness", Status: ItemOK},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeRoleNotAllowed))

	de, ok := dErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"harness"}, de.Meta["notAllowed"])
}
