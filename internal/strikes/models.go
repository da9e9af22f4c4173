// Package strikes tracks the per-worker, per-equipment miss counters and the
// one-shot notification latch that fires when a counter crosses its threshold.
package strikes

import "time"

// Counter is the running miss tally for one (worker, equipment) pair.
// NotifiedAt is the latch: once set, crossing the threshold again stays
// silent until a reset clears it.
type Counter struct {
	WorkerID    string
	EquipmentID string
	Count       int
	LastMissAt  time.Time
	NotifiedAt  *time.Time
}
