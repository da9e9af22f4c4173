package audit

import (
	"context"
	"errors"

	"gearcheck/internal/check"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/sentinel"
)

// ItemChange is one equipment whose status differs between two snapshots.
type ItemChange struct {
	EquipmentID string           `json:"equipmentId"`
	From        check.ItemStatus `json:"from"`
	To          check.ItemStatus `json:"to"`
}

// Diff compares two revisions of the same check.
type Diff struct {
	CheckID       string       `json:"checkId"`
	FromRevision  int          `json:"fromRevision"`
	ToRevision    int          `json:"toRevision"`
	ResultChanged bool         `json:"resultChanged"`
	FromResult    check.Result `json:"fromResult"`
	ToResult      check.Result `json:"toResult"`
	ChangedItems  []ItemChange `json:"changedItems"`
}

// Baseline is the first revision of a check alongside what changed since.
type Baseline struct {
	Original  Revision `json:"original"`
	Current   Revision `json:"current"`
	HasUpdate bool     `json:"hasUpdate"`
	Diff      Diff     `json:"diff"`
}

// Service exposes the audit read paths.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// History returns every revision of a check, oldest first.
func (s *Service) History(ctx context.Context, checkID string) ([]Revision, error) {
	revs, err := s.store.ListByCheck(ctx, checkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no audit trail for this check")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit revisions")
	}
	return revs, nil
}

// BaselineOf returns the original submission, the latest revision, and the
// diff between them.
func (s *Service) BaselineOf(ctx context.Context, checkID string) (*Baseline, error) {
	revs, err := s.History(ctx, checkID)
	if err != nil {
		return nil, err
	}
	original := revs[0]
	current := revs[len(revs)-1]

	return &Baseline{
		Original:  original,
		Current:   current,
		HasUpdate: len(revs) > 1,
		Diff:      diffSnapshots(checkID, original, current),
	}, nil
}

// DiffRevisions compares two explicit revisions of a check.
func (s *Service) DiffRevisions(ctx context.Context, checkID string, from, to int) (*Diff, error) {
	fromRev, err := s.store.FindRevision(ctx, checkID, from)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "revision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find revision")
	}
	toRev, err := s.store.FindRevision(ctx, checkID, to)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "revision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find revision")
	}

	d := diffSnapshots(checkID, *fromRev, *toRev)
	return &d, nil
}

// diffSnapshots reports status changes for equipment present in both
// snapshots. Equipment appearing in only one snapshot is left out: with no
// status on the other side there is nothing meaningful to compare it against.
func diffSnapshots(checkID string, from, to Revision) Diff {
	d := Diff{
		CheckID:      checkID,
		FromRevision: from.Revision,
		ToRevision:   to.Revision,
		FromResult:   from.Snapshot.Result,
		ToResult:     to.Snapshot.Result,
	}
	d.ResultChanged = d.FromResult != d.ToResult

	before := make(map[string]check.ItemStatus, len(from.Snapshot.Items))
	for _, it := range from.Snapshot.Items {
		before[it.EquipmentID] = it.Status
	}
	for _, it := range to.Snapshot.Items {
		was, ok := before[it.EquipmentID]
		if !ok || was == it.Status {
			continue
		}
		d.ChangedItems = append(d.ChangedItems, ItemChange{
			EquipmentID: it.EquipmentID,
			From:        was,
			To:          it.Status,
		})
	}
	return d
}
