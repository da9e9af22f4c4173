// Package catalog holds the equipment and role reference data: which
// equipment exists, which roles exist, which equipment each role must wear,
// and the per-equipment strike threshold that arms escalation.
package catalog

// Equipment is one piece of safety equipment subject to checks.
type Equipment struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// MaxMissesBeforeNotif is the strike threshold for this equipment.
	// Zero or negative means no escalation policy is defined.
	MaxMissesBeforeNotif int `json:"maxMissesBeforeNotif"`
}

// Role labels a worker function and carries its equipment allowlist.
type Role struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
