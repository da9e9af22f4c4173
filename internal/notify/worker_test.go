package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []string
	failIDs   map[string]bool
}

func (p *capturingPublisher) Publish(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[n.ID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, n.ID)
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func seedNotification(t *testing.T, store Store, id, teamID string, at time.Time) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), &Notification{
		ID:          id,
		Type:        TypeMissLimitReached,
		TeamID:      teamID,
		WorkerID:    "w1",
		EquipmentID: "helmet",
		Message:     "msg",
		CreatedAt:   at,
	}))
}

func TestWorkerDrainPublishesAndMarks(t *testing.T) {
	store := NewInMemoryStore()
	pub := &capturingPublisher{}
	w := NewWorker(store, pub, time.Second, testLogger())
	now := time.Now()

	seedNotification(t, store, "ntf_1", "team-1", now)
	seedNotification(t, store, "ntf_2", "team-1", now.Add(time.Second))

	require.NoError(t, w.drain(context.Background()))

	assert.Equal(t, []string{"ntf_1", "ntf_2"}, pub.ids())

	pending, err := store.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWorkerDrainRetriesFailedRows(t *testing.T) {
	store := NewInMemoryStore()
	pub := &capturingPublisher{failIDs: map[string]bool{"ntf_1": true}}
	w := NewWorker(store, pub, time.Second, testLogger())
	now := time.Now()

	seedNotification(t, store, "ntf_1", "team-1", now)
	seedNotification(t, store, "ntf_2", "team-1", now.Add(time.Second))

	require.NoError(t, w.drain(context.Background()))

	// The failed row stays pending; the one after it still went out.
	assert.Equal(t, []string{"ntf_2"}, pub.ids())
	pending, err := store.ListUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ntf_1", pending[0].ID)

	// Next tick, the broker is back.
	pub.mu.Lock()
	pub.failIDs = nil
	pub.mu.Unlock()
	require.NoError(t, w.drain(context.Background()))
	assert.Equal(t, []string{"ntf_2", "ntf_1"}, pub.ids())
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	store := NewInMemoryStore()
	w := NewWorker(store, &capturingPublisher{}, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
