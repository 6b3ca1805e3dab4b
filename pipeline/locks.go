package pipeline

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockShards = 64

// sessionLock is owned by whoever holds the token in ch.
type sessionLock struct {
	ch   chan struct{}
	refs int
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLocks hands out one lock per session id. The shard only guards the
// map, so ids that hash to the same shard never wait on each other. Entries are
// dropped once no request holds or waits for them.
type sessionLocks struct {
	shards [lockShards]lockShard
}

// lock blocks until the session is free or ctx is done.
func (l *sessionLocks) lock(ctx context.Context, sessionID string) (func(), error) {
	sh := &l.shards[shardOf(sessionID)]

	sh.mu.Lock()
	if sh.locks == nil {
		sh.locks = make(map[string]*sessionLock)
	}
	sl, ok := sh.locks[sessionID]
	if !ok {
		sl = &sessionLock{ch: make(chan struct{}, 1)}
		sh.locks[sessionID] = sl
	}
	sl.refs++
	sh.mu.Unlock()

	if err := ctx.Err(); err != nil {
		sh.release(sessionID, sl)
		return nil, err
	}

	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			sh.release(sessionID, sl)
		}, nil
	case <-ctx.Done():
		sh.release(sessionID, sl)
		return nil, ctx.Err()
	}
}

func (sh *lockShard) release(sessionID string, sl *sessionLock) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(sh.locks, sessionID)
	}
}

// len returns the number of sessions currently locked or waited on.
func (l *sessionLocks) len() int {
	n := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		n += len(sh.locks)
		sh.mu.Unlock()
	}
	return n
}

// shardOf reports the shard index for sessionID.
func shardOf(sessionID string) uint64 {
	return xxhash.Sum64String(sessionID) % lockShards
}
