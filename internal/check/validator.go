package check

import (
	"context"
	"errors"
	"fmt"

	"gearcheck/internal/catalog"
	"gearcheck/internal/directory"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/sentinel"
)

// Validated carries the records resolved while validating a submission, so the
// coordinator does not have to re-fetch them inside the transaction.
type Validated struct {
	Worker    *directory.Worker
	Team      *directory.Team
	Equipment map[string]catalog.Equipment
}

// Validator checks the preconditions of a submission: the worker exists and is
// present, the claimed team matches, every item references existing equipment
// allowed for the worker's role (when one is assigned), and statuses are well
// formed.
type Validator struct {
	directory directory.Store
	catalog   catalog.Reader
}

func NewValidator(dir directory.Store, cat catalog.Reader) *Validator {
	return &Validator{directory: dir, catalog: cat}
}

func (v *Validator) Validate(ctx context.Context, workerID, teamID string, items []Item) (*Validated, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one item is required")
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.EquipmentID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "item equipment id is required")
		}
		if !ValidItemStatus(it.Status) {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("invalid item status %q", it.Status))
		}
		if _, dup := seen[it.EquipmentID]; dup {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("duplicate item for equipment %q", it.EquipmentID))
		}
		seen[it.EquipmentID] = struct{}{}
	}

	worker, err := v.directory.FindWorker(ctx, workerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "worker not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find worker")
	}
	if teamID != "" && worker.TeamID != teamID {
		return nil, dErrors.New(dErrors.CodeTeamMismatch, "worker does not belong to this team")
	}
	if worker.Attendance == directory.AttendanceAbsent {
		return nil, dErrors.New(dErrors.CodeWorkerAbsent, "worker is marked absent today")
	}

	team, err := v.directory.FindTeam(ctx, worker.TeamID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "team not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find team")
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.EquipmentID)
	}
	equipment, err := v.catalog.GetEquipment(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get equipment")
	}
	for _, id := range ids {
		if _, ok := equipment[id]; !ok {
			return nil, dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("equipment %q not found", id))
		}
	}

	// The allowlist only applies to workers with an assigned role. A
	// role-less worker may be checked against any existing equipment.
	if worker.Role != "" {
		allowed, err := v.catalog.RoleEquipment(ctx, worker.Role)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "worker role not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "role equipment")
		}
		allowedSet := make(map[string]struct{}, len(allowed))
		for _, eq := range allowed {
			allowedSet[eq.ID] = struct{}{}
		}

		var notAllowed []string
		for _, id := range ids {
			if _, ok := allowedSet[id]; !ok {
				notAllowed = append(notAllowed, id)
			}
		}
		if len(notAllowed) > 0 {
			return nil, dErrors.New(dErrors.CodeRoleNotAllowed,
				"equipment not allowed for this role").
				WithMeta("notAllowed", notAllowed)
		}
	}

	return &Validated{Worker: worker, Team: team, Equipment: equipment}, nil
}
