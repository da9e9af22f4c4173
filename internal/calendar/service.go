// Package calendar builds the day-by-day compliance views: team coverage for
// a date, one team's workers with their checks, and one worker's check for a
// date.
package calendar

import (
	"context"
	"errors"
	"regexp"

	"gearcheck/internal/audit"
	"gearcheck/internal/check"
	"gearcheck/internal/directory"
	dErrors "gearcheck/pkg/domain-errors"
	"gearcheck/pkg/platform/sentinel"
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// TeamDay is one team's coverage for a date.
type TeamDay struct {
	Team        *directory.Team `json:"team"`
	Workers     int             `json:"workers"`
	Checked     int             `json:"checked"`
	Conforme    int             `json:"conforme"`
	NonConforme int             `json:"nonConforme"`
	KO          int             `json:"ko"`
}

// WorkerDay is one worker's check status for a date.
type WorkerDay struct {
	Worker     *directory.Worker `json:"worker"`
	Check      *check.WithItems  `json:"check,omitempty"`
	Checked    bool              `json:"checked"`
	IsModified bool              `json:"isModified"`
}

// Service reads across the directory, the checks, and the audit trail.
type Service struct {
	directory directory.Store
	checks    check.Store
	audits    audit.Store
}

func NewService(dir directory.Store, checks check.Store, audits audit.Store) *Service {
	return &Service{directory: dir, checks: checks, audits: audits}
}

// TeamsForDay returns every team's coverage for the date.
func (s *Service) TeamsForDay(ctx context.Context, day string) ([]TeamDay, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}
	teams, err := s.directory.ListTeams(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list teams")
	}

	out := make([]TeamDay, 0, len(teams))
	for _, team := range teams {
		td := TeamDay{Team: team}
		workers, err := s.directory.ListTeamWorkers(ctx, team.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list team workers")
		}
		td.Workers = len(workers)

		for _, w := range workers {
			got, err := s.checks.FindByWorkerAndDay(ctx, w.ID, day)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find check")
			}
			td.Checked++
			switch got.Check.Result {
			case check.ResultConforme:
				td.Conforme++
			case check.ResultNonConforme:
				td.NonConforme++
			case check.ResultKO:
				td.KO++
			}
		}
		out = append(out, td)
	}
	return out, nil
}

// TeamWorkersForDay returns each worker of the team with their check for the
// date, including workers who have none yet.
func (s *Service) TeamWorkersForDay(ctx context.Context, teamID, day string) ([]WorkerDay, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}
	if _, err := s.directory.FindTeam(ctx, teamID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "team not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find team")
	}

	workers, err := s.directory.ListTeamWorkers(ctx, teamID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list team workers")
	}

	out := make([]WorkerDay, 0, len(workers))
	for _, w := range workers {
		wd, err := s.workerDay(ctx, w, day)
		if err != nil {
			return nil, err
		}
		out = append(out, *wd)
	}
	return out, nil
}

// WorkerForDay returns one worker's check for the date.
func (s *Service) WorkerForDay(ctx context.Context, workerID, day string) (*WorkerDay, error) {
	if err := validDay(day); err != nil {
		return nil, err
	}
	worker, err := s.directory.FindWorker(ctx, workerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "worker not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find worker")
	}
	return s.workerDay(ctx, worker, day)
}

func (s *Service) workerDay(ctx context.Context, worker *directory.Worker, day string) (*WorkerDay, error) {
	wd := &WorkerDay{Worker: worker}

	got, err := s.checks.FindByWorkerAndDay(ctx, worker.ID, day)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return wd, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find check")
	}
	wd.Check = got
	wd.Checked = true

	revs, err := s.audits.ListByCheck(ctx, got.Check.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit revisions")
	}
	wd.IsModified = len(revs) > 1
	return wd, nil
}

func validDay(day string) error {
	if !dayPattern.MatchString(day) {
		return dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD")
	}
	return nil
}
