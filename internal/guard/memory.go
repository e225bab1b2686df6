package guard

import (
	"context"
	"sync"
	"time"
)

// MemoryTables is an in-process Tables implementation for single-replica
// deployments. All three tables are plain mutex-guarded maps; Cleanup is
// the only place that ever shrinks them.
type MemoryTables struct {
	mu           sync.Mutex
	requestHash  map[string]time.Time
	feedbackKeys map[FeedbackKey]*FeedbackRecord
	idempotent   map[string]*IdempotencyRecord
}

// NewMemoryTables builds an empty MemoryTables.
func NewMemoryTables() *MemoryTables {
	return &MemoryTables{
		requestHash:  make(map[string]time.Time),
		feedbackKeys: make(map[FeedbackKey]*FeedbackRecord),
		idempotent:   make(map[string]*IdempotencyRecord),
	}
}

func (m *MemoryTables) GetRequestHash(_ context.Context, hash string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.requestHash[hash]
	return at, ok, nil
}

func (m *MemoryTables) PutRequestHash(_ context.Context, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHash[hash] = at
	return nil
}

func (m *MemoryTables) GetFeedbackKey(_ context.Context, key FeedbackKey) (*FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.feedbackKeys[key]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *MemoryTables) PutFeedbackKey(_ context.Context, key FeedbackKey, rec *FeedbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rec
	m.feedbackKeys[key] = &copied
	return nil
}

func (m *MemoryTables) MarkFeedbackProcessed(_ context.Context, key FeedbackKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.feedbackKeys[key]; ok {
		rec.Processed = true
	}
	return nil
}

func (m *MemoryTables) GetIdempotencyKey(_ context.Context, key string) (*IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.idempotent[key]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *MemoryTables) PutIdempotencyKey(_ context.Context, key string, rec *IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rec
	m.idempotent[key] = &copied
	return nil
}

func (m *MemoryTables) Cleanup(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h, at := range m.requestHash {
		if now.Sub(at) > WindowGeneral {
			delete(m.requestHash, h)
		}
	}
	for k, rec := range m.feedbackKeys {
		if now.Sub(rec.Timestamp) > WindowSame*CleanupGraceX2 {
			delete(m.feedbackKeys, k)
		}
	}
	for k, rec := range m.idempotent {
		if now.Sub(rec.Timestamp) > WindowIdem {
			delete(m.idempotent, k)
		}
	}
	return nil
}

func (m *MemoryTables) Stats(_ context.Context) (Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Counters{
		RequestHashes:  len(m.requestHash),
		FeedbackKeys:   len(m.feedbackKeys),
		IdempotentKeys: len(m.idempotent),
	}, nil
}

func (m *MemoryTables) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHash = make(map[string]time.Time)
	m.feedbackKeys = make(map[FeedbackKey]*FeedbackRecord)
	m.idempotent = make(map[string]*IdempotencyRecord)
	return nil
}
