// Package audit keeps the append-only revision trail of checks. Revision 1 is
// written at submission; every correction appends the next revision with a
// full snapshot. Rows are never updated or deleted.
package audit

import (
	"time"

	"gearcheck/internal/check"
)

// Action tags why a revision was written.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
)

// Snapshot is the full state of a check at one revision.
type Snapshot struct {
	CheckID  string       `json:"checkId"`
	WorkerID string       `json:"workerId"`
	TeamID   string       `json:"teamId"`
	Role     string       `json:"role,omitempty"`
	Result   check.Result `json:"result"`
	Day      string       `json:"day"`
	Items    []check.Item `json:"items"`
}

// Revision is one audit row.
type Revision struct {
	CheckID    string    `json:"checkId"`
	Revision   int       `json:"revision"`
	Action     Action    `json:"action"`
	ChangedBy  string    `json:"changedBy"`
	ChangedVia string    `json:"changedVia,omitempty"`
	ChangedAt  time.Time `json:"changedAt"`
	Snapshot   Snapshot  `json:"snapshot"`
}

// SnapshotOf captures a check and its items.
func SnapshotOf(c *check.Check, items []check.Item) Snapshot {
	return Snapshot{
		CheckID:  c.ID,
		WorkerID: c.WorkerID,
		TeamID:   c.TeamID,
		Role:     c.Role,
		Result:   c.Result,
		Day:      c.Day,
		Items:    append([]check.Item(nil), items...),
	}
}
