// Package sessionlock enforces the single-writer-per-session rule
// (spec.md §5): a recommend or feedback call for a given session must
// run to completion before the next one for that same session starts.
//
// It is a sharded map of per-session mutexes rather than a single global
// lock, so unrelated sessions never contend with each other.
package sessionlock

import (
	"context"
	"hash/fnv"
	"sync"
)

const shardCount = 64

// Locker grants exclusive, serialized access per session_id.
type Locker struct {
	shards [shardCount]*shard
}

type shard struct {
	mu  sync.Mutex
	m   map[string]*sync.Mutex
}

// New builds a Locker with shardCount independently-locked shards.
func New() *Locker {
	l := &Locker{}
	for i := range l.shards {
		l.shards[i] = &shard{m: make(map[string]*sync.Mutex)}
	}
	return l
}

func (l *Locker) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return l.shards[h.Sum32()%shardCount]
}

func (l *Locker) mutexFor(sessionID string) *sync.Mutex {
	sh := l.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	mu, ok := sh.m[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		sh.m[sessionID] = mu
	}
	return mu
}

// WithLock acquires the per-session mutex, runs fn, then releases it. It
// returns ctx.Err() without running fn if ctx is already canceled.
func WithLock(ctx context.Context, l *Locker, sessionID string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mu := l.mutexFor(sessionID)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
