package strikes

import (
	"context"
	"fmt"
	"time"

	"gearcheck/internal/catalog"
	"gearcheck/internal/directory"
	"gearcheck/internal/notify"
)

// Ledger applies the strike rules for one submission: bump the counter for
// each missed piece of equipment and, when a counter reaches its threshold
// with the latch unarmed, append exactly one notification to the outbox.
// Runs inside the submission transaction.
type Ledger struct {
	counters Store
	outbox   notify.Store
}

func NewLedger(counters Store, outbox notify.Store) *Ledger {
	return &Ledger{counters: counters, outbox: outbox}
}

// RegisterMiss records one miss. Returns the notification appended, or nil
// when none fired.
func (l *Ledger) RegisterMiss(
	ctx context.Context,
	worker *directory.Worker,
	team *directory.Team,
	equipment catalog.Equipment,
	at time.Time,
) (*notify.Notification, error) {
	// Threshold zero or below means notifications are disabled for this
	// equipment; the counter is not even tracked.
	if equipment.MaxMissesBeforeNotif <= 0 {
		return nil, nil
	}

	counter, err := l.counters.Increment(ctx, worker.ID, equipment.ID, at)
	if err != nil {
		return nil, err
	}
	if counter.Count < equipment.MaxMissesBeforeNotif || counter.NotifiedAt != nil {
		return nil, nil
	}

	n := &notify.Notification{
		ID:          notify.NewID(),
		Type:        notify.TypeMissLimitReached,
		TeamID:      team.ID,
		ChefID:      team.ChefID,
		WorkerID:    worker.ID,
		EquipmentID: equipment.ID,
		Message: fmt.Sprintf("Limite atteinte (%d/%d) : %s a oublié / KO %q (équipe %s). RDV redressement.",
			counter.Count, equipment.MaxMissesBeforeNotif, worker.Name, equipment.Name, team.Name),
		CreatedAt: at,
	}
	if err := l.outbox.Append(ctx, n); err != nil {
		return nil, err
	}
	if err := l.counters.MarkNotified(ctx, worker.ID, equipment.ID, at); err != nil {
		return nil, err
	}
	return n, nil
}
