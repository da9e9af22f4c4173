// Package check holds the equipment-check domain model: the one-per-day check
// record, its per-equipment items, and the pure result evaluation.
package check

import (
	"time"

	"gearcheck/internal/directory"
)

// ItemStatus is the observed state of one piece of equipment during a check.
type ItemStatus string

const (
	ItemOK      ItemStatus = "OK"
	ItemMissing ItemStatus = "MISSING"
	ItemFailed  ItemStatus = "FAILED"
)

// ValidItemStatus reports whether s is one of the allowed item statuses.
func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemOK, ItemMissing, ItemFailed:
		return true
	}
	return false
}

// Result is the aggregate compliance result of a check.
type Result string

const (
	ResultConforme    Result = "CONFORME"
	ResultNonConforme Result = "NON_CONFORME"
	ResultKO          Result = "KO"
)

// Check is the single compliance record for one worker on one reference day.
type Check struct {
	ID        string    `json:"id"`
	WorkerID  string    `json:"workerId"`
	TeamID    string    `json:"teamId"`
	Role      string    `json:"role,omitempty"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
	Day       string    `json:"day"` // YYYY-MM-DD in the reference timezone
}

// Item is the status of one piece of equipment within a check.
type Item struct {
	EquipmentID string     `json:"equipmentId"`
	Status      ItemStatus `json:"status"`
}

// IsMiss reports whether the item counts as a strike (missing or failed
// equipment both do).
func (i Item) IsMiss() bool {
	return i.Status == ItemMissing || i.Status == ItemFailed
}

// Evaluate maps a set of item statuses to the aggregate result. Severity
// order, highest wins: equipment failure is strictly worse than a missing
// item.
func Evaluate(items []Item) Result {
	result := ResultConforme
	for _, it := range items {
		switch it.Status {
		case ItemFailed:
			return ResultKO
		case ItemMissing:
			result = ResultNonConforme
		}
	}
	return result
}

// WorkerStatus derives the worker-visible status from an aggregate result.
func (r Result) WorkerStatus() directory.WorkerStatus {
	switch r {
	case ResultConforme:
		return directory.WorkerStatusOK
	case ResultNonConforme:
		return directory.WorkerStatusNonConforme
	default:
		return directory.WorkerStatusKO
	}
}

// DayOf computes the reference calendar day that keys the
// one-check-per-worker-per-day rule.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
