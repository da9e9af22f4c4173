// Package directory exposes the worker/team directory. Worker and team
// lifecycle is owned elsewhere; the check engine only reads identity fields
// and writes back the compliance-derived ones (status, controlled,
// last_check_at).
package directory

import "time"

// Attendance is the worker's presence flag for the day.
type Attendance string

const (
	AttendancePresent Attendance = "PRESENT"
	AttendanceAbsent  Attendance = "ABSENT"
)

// WorkerStatus is the cached, worker-visible compliance status derived from
// the latest check.
type WorkerStatus string

const (
	WorkerStatusOK          WorkerStatus = "OK"
	WorkerStatusNonConforme WorkerStatus = "NON_CONFORME"
	WorkerStatusKO          WorkerStatus = "KO"
)

// Worker is one person subject to daily equipment checks.
type Worker struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	EmployeeNumber string       `json:"employeeNumber,omitempty"`
	TeamID         string       `json:"teamId"`
	Role           string       `json:"role,omitempty"`
	Attendance     Attendance   `json:"attendance"`
	Status         WorkerStatus `json:"status,omitempty"`
	Controlled     bool         `json:"controlled"`
	LastCheckAt    *time.Time   `json:"lastCheckAt,omitempty"`
}

// Team groups workers under a responsible chef.
type Team struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	ChefID string `json:"chefId,omitempty"`
}
