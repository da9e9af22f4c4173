package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearcheck/internal/check"
	dErrors "gearcheck/pkg/domain-errors"
)

func appendRevision(t *testing.T, store Store, checkID string, action Action, result check.Result, items ...check.Item) *Revision {
	t.Helper()
	rev := &Revision{
		CheckID:   checkID,
		Action:    action,
		ChangedBy: "chef-1",
		ChangedAt: time.Now(),
		Snapshot: Snapshot{
			CheckID:  checkID,
			WorkerID: "w1",
			TeamID:   "team-1",
			Result:   result,
			Day:      "2026-05-12",
			Items:    items,
		},
	}
	require.NoError(t, store.Append(context.Background(), rev))
	return rev
}

func TestAppendNumbersRevisionsSequentially(t *testing.T) {
	store := NewInMemoryStore()

	r1 := appendRevision(t, store, "chk_1", ActionCreate, check.ResultKO)
	r2 := appendRevision(t, store, "chk_1", ActionUpdate, check.ResultConforme)
	other := appendRevision(t, store, "chk_2", ActionCreate, check.ResultConforme)

	assert.Equal(t, 1, r1.Revision)
	assert.Equal(t, 2, r2.Revision)
	assert.Equal(t, 1, other.Revision)
}

func TestHistoryReturnsOldestFirst(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)

	appendRevision(t, store, "chk_1", ActionCreate, check.ResultKO)
	appendRevision(t, store, "chk_1", ActionUpdate, check.ResultConforme)

	revs, err := svc.History(context.Background(), "chk_1")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, ActionCreate, revs[0].Action)
	assert.Equal(t, ActionUpdate, revs[1].Action)
}

func TestHistoryUnknownCheck(t *testing.T) {
	svc := NewService(NewInMemoryStore())

	_, err := svc.History(context.Background(), "chk_missing")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestBaselineWithoutCorrection(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)

	appendRevision(t, store, "chk_1", ActionCreate, check.ResultConforme,
		check.Item{EquipmentID: "helmet", Status: check.ItemOK})

	b, err := svc.BaselineOf(context.Background(), "chk_1")
	require.NoError(t, err)
	assert.False(t, b.HasUpdate)
	assert.Equal(t, 1, b.Original.Revision)
	assert.Equal(t, 1, b.Current.Revision)
	assert.False(t, b.Diff.ResultChanged)
	assert.Empty(t, b.Diff.ChangedItems)
}

func TestBaselineAfterCorrection(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)

	appendRevision(t, store, "chk_1", ActionCreate, check.ResultKO,
		check.Item{EquipmentID: "helmet", Status: check.ItemOK},
		check.Item{EquipmentID: "boots", Status: check.ItemFailed})
	appendRevision(t, store, "chk_1", ActionUpdate, check.ResultConforme,
		check.Item{EquipmentID: "helmet", Status: check.ItemOK},
		check.Item{EquipmentID: "boots", Status: check.ItemOK})

	b, err := svc.BaselineOf(context.Background(), "chk_1")
	require.NoError(t, err)
	assert.True(t, b.HasUpdate)
	assert.Equal(t, 1, b.Original.Revision)
	assert.Equal(t, 2, b.Current.Revision)

	assert.True(t, b.Diff.ResultChanged)
	assert.Equal(t, check.ResultKO, b.Diff.FromResult)
	assert.Equal(t, check.ResultConforme, b.Diff.ToResult)
	require.Len(t, b.Diff.ChangedItems, 1)
	assert.Equal(t, "boots", b.Diff.ChangedItems[0].EquipmentID)
	assert.Equal(t, check.ItemFailed, b.Diff.ChangedItems[0].From)
	assert.Equal(t, check.ItemOK, b.Diff.ChangedItems[0].To)
}

func TestDiffIgnoresEquipmentPresentOnOneSideOnly(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)

	appendRevision(t, store, "chk_1", ActionCreate, check.ResultNonConforme,
		check.Item{EquipmentID: "helmet", Status: check.ItemMissing})
	appendRevision(t, store, "chk_1", ActionUpdate, check.ResultConforme,
		check.Item{EquipmentID: "helmet", Status: check.ItemOK},
		check.Item{EquipmentID: "gloves", Status: check.ItemOK})

	d, err := svc.DiffRevisions(context.Background(), "chk_1", 1, 2)
	require.NoError(t, err)
	require.Len(t, d.ChangedItems, 1)
	assert.Equal(t, "helmet", d.ChangedItems[0].EquipmentID)
}

func TestDiffUnknownRevision(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store)
	appendRevision(t, store, "chk_1", ActionCreate, check.ResultConforme)

	_, err := svc.DiffRevisions(context.Background(), "chk_1", 1, 9)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
