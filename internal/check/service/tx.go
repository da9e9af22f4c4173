package service

import (
	"context"
	"sync"
	"time"

	dErrors "gearcheck/pkg/domain-errors"
)

// Tx is the transactional boundary around one submission or correction. The
// callback's context carries the transaction, which every store picks up, so
// the check row, its items, the strike counters, the outbox row, and the
// audit revision land together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout caps how long one submission transaction may run.
const defaultTxTimeout = 5 * time.Second

// shardedTx serializes in-memory mutations per worker using sharded mutexes.
// Operations are distributed across N shards based on a hash of the worker ID,
// so two workers' submissions rarely contend while one worker's concurrent
// submissions always do.
const numTxShards = 128

type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

// NewShardedTx builds the in-memory transaction runner. It provides the
// serialization half of the contract only: writes made before a mid-callback
// failure are not rolled back. The coordinator orders its writes so the
// uniqueness check runs first, which keeps dev mode honest for the tested
// invariants; full atomicity needs the postgres runner.
func NewShardedTx() Tx {
	return &shardedTx{}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

func (t *shardedTx) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(txLockKeyCtx).(string); ok && key != "" {
		return int(hashLockKey(key) % numTxShards)
	}
	return 0
}

// hashLockKey uses FNV-1a for even shard distribution.
func hashLockKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type txLockKey struct{}

var txLockKeyCtx = txLockKey{}

// withLockKey marks the context with the worker whose submission is being
// serialized.
func withLockKey(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, txLockKeyCtx, workerID)
}
