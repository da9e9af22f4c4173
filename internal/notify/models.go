// Package notify holds the notification outbox. Rows are appended inside the
// submission transaction and published to Kafka by a background worker, so a
// notification is only ever emitted for a committed check.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminates notification payloads.
type Type string

const (
	// TypeMissLimitReached fires when a worker's miss counter for one piece
	// of equipment crosses its threshold.
	TypeMissLimitReached Type = "EQUIPMENT_MISS_LIMIT_REACHED"
)

// Notification is one outbox row addressed to a team's chef.
type Notification struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	TeamID      string     `json:"teamId"`
	ChefID      string     `json:"chefId,omitempty"`
	WorkerID    string     `json:"workerId"`
	EquipmentID string     `json:"equipmentId"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// NewID mints an outbox row id.
func NewID() string {
	return "ntf_" + uuid.NewString()
}
