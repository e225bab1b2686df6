// Package guard implements the idempotency-key cache, request
// fingerprint dedup, and feedback conflict windows of spec.md §4.7
// (component C7).
package guard

import (
	"context"
	"time"

	"github.com/fashion-reco/reco-engine/internal/model"

	"golang.org/x/sync/singleflight"
)

// Windows fixed by spec.md §3/§4.7.
const (
	WindowGeneral  = 30 * time.Second
	WindowSame     = 60 * time.Second
	WindowRapid    = 5 * time.Second
	WindowIdem     = 24 * time.Hour
	CleanupPeriod  = 60 * time.Second
	CleanupGraceX2 = 2 // feedback records get a ×2 grace tail
)

// FeedbackKey identifies the (session, product) guard tuple. A session
// reacting to the same product twice collides on this key regardless of
// which action either call carried; Action only ever distinguishes what
// happened, never whether two calls conflict (spec.md §4.7, scenarios
// S2/S3/S6: a "like" followed by a "love" on the same product is exactly
// the conflict the window exists to catch).
type FeedbackKey struct {
	SessionID string
	ProductID string
}

// FeedbackRecord is C7's entry for a (session, product) tuple. Action is
// the reaction that produced the record, kept for the status endpoint and
// for diagnostics; it plays no part in conflict-window lookups.
type FeedbackRecord struct {
	Timestamp      time.Time
	Action         model.Action
	IdempotencyKey string
	Processed      bool
}

// IdempotencyRecord is the cached response for a replayed idempotency key.
type IdempotencyRecord struct {
	StatusCode int
	Body       []byte
	Timestamp  time.Time
}

// Tables is the storage contract for the three guard tables (spec.md
// §3): request hashes, feedback keys, and idempotency keys. Both the
// in-memory and Redis-backed implementations satisfy it, so the
// guarding logic in Guard is backend-agnostic.
type Tables interface {
	GetRequestHash(ctx context.Context, hash string) (time.Time, bool, error)
	PutRequestHash(ctx context.Context, hash string, at time.Time) error

	GetFeedbackKey(ctx context.Context, key FeedbackKey) (*FeedbackRecord, error)
	PutFeedbackKey(ctx context.Context, key FeedbackKey, rec *FeedbackRecord) error
	MarkFeedbackProcessed(ctx context.Context, key FeedbackKey) error

	GetIdempotencyKey(ctx context.Context, key string) (*IdempotencyRecord, error)
	PutIdempotencyKey(ctx context.Context, key string, rec *IdempotencyRecord) error

	// Cleanup purges entries older than their window (feedback records
	// use window*CleanupGraceX2); called every CleanupPeriod.
	Cleanup(ctx context.Context, now time.Time) error

	// Stats reports table sizes for the duplicate-detection admin endpoint.
	Stats(ctx context.Context) (Counters, error)
	// Reset clears all three tables; dev-only endpoint.
	Reset(ctx context.Context) error
}

// Counters is the admin-facing snapshot of guard-table occupancy.
type Counters struct {
	RequestHashes int
	FeedbackKeys  int
	IdempotentKeys int
}

// Guard composes Tables with the decision logic of §4.7's precedence
// list, plus a singleflight group that collapses concurrent requests
// racing on the same idempotency key before they can both miss the
// table and double-process.
type Guard struct {
	tables Tables
	sf     singleflight.Group
}

// New wraps tables with the guarding decision logic.
func New(tables Tables) *Guard {
	return &Guard{tables: tables}
}

// Decision is the outcome of Check: exactly one of its non-zero fields
// describes what the caller should do.
type Decision struct {
	// Allow is true if the request may proceed.
	Allow bool

	// IdempotentReplay is set when Allow is false but the caller should
	// serve CachedResponse instead of rejecting.
	IdempotentReplay bool
	CachedResponse   *IdempotencyRecord

	// Kind and RetryAfter describe a rejection (spec.md §7's Kind table).
	Kind        string
	RetryAfter  time.Duration
}

// Check applies §4.7's precedence list for one request. fingerprint is
// the request's hash (see Fingerprint); feedbackKey is the zero value
// for non-feedback requests.
func (g *Guard) Check(ctx context.Context, fingerprint, idempotencyKey string, feedbackKey *FeedbackKey, now time.Time) (Decision, error) {
	if idempotencyKey != "" {
		v, err, _ := g.sf.Do("idem:"+idempotencyKey, func() (interface{}, error) {
			return g.tables.GetIdempotencyKey(ctx, idempotencyKey)
		})
		if err != nil {
			return Decision{}, err
		}
		if rec, _ := v.(*IdempotencyRecord); rec != nil && now.Sub(rec.Timestamp) <= WindowIdem {
			return Decision{IdempotentReplay: true, CachedResponse: rec, Kind: "idempotent_replay"}, nil
		}
	}

	if feedbackKey != nil {
		rec, err := g.tables.GetFeedbackKey(ctx, *feedbackKey)
		if err != nil {
			return Decision{}, err
		}
		if rec != nil {
			delta := now.Sub(rec.Timestamp)
			switch {
			case delta <= WindowRapid:
				return Decision{Kind: "rapid_feedback", RetryAfter: WindowRapid - delta}, nil
			case delta <= WindowSame:
				if rec.IdempotencyKey == "" || rec.IdempotencyKey != idempotencyKey {
					return Decision{Kind: "feedback_conflict", RetryAfter: WindowSame - delta}, nil
				}
				// same idempotency key: handled by the replay path above.
			}
		}
	} else {
		at, found, err := g.tables.GetRequestHash(ctx, fingerprint)
		if err != nil {
			return Decision{}, err
		}
		if found && now.Sub(at) <= WindowGeneral {
			return Decision{Kind: "duplicate_request"}, nil
		}
	}

	return Decision{Allow: true}, nil
}

// Record stores the fingerprint, feedback key (if any), and idempotency
// key (if provided) after a request has passed Check and is about to be
// processed. action is ignored when feedbackKey is nil.
func (g *Guard) Record(ctx context.Context, fingerprint, idempotencyKey string, feedbackKey *FeedbackKey, action model.Action, now time.Time) error {
	if err := g.tables.PutRequestHash(ctx, fingerprint, now); err != nil {
		return err
	}
	if feedbackKey != nil {
		rec := &FeedbackRecord{Timestamp: now, Action: action, IdempotencyKey: idempotencyKey, Processed: false}
		if err := g.tables.PutFeedbackKey(ctx, *feedbackKey, rec); err != nil {
			return err
		}
	}
	return nil
}

// MarkProcessed flips a feedback guard entry's processed flag once the
// feedback pipeline has committed.
func (g *Guard) MarkProcessed(ctx context.Context, key FeedbackKey) error {
	return g.tables.MarkFeedbackProcessed(ctx, key)
}

// CacheIdempotentResponse stores the response an idempotency key will
// replay on retry.
func (g *Guard) CacheIdempotentResponse(ctx context.Context, idempotencyKey string, statusCode int, body []byte, now time.Time) error {
	if idempotencyKey == "" {
		return nil
	}
	return g.tables.PutIdempotencyKey(ctx, idempotencyKey, &IdempotencyRecord{
		StatusCode: statusCode,
		Body:       body,
		Timestamp:  now,
	})
}

// Status looks up a feedback guard record for the status endpoint.
func (g *Guard) Status(ctx context.Context, key FeedbackKey) (*FeedbackRecord, error) {
	return g.tables.GetFeedbackKey(ctx, key)
}

// Stats and Reset proxy to the underlying Tables for the admin endpoints.
func (g *Guard) Stats(ctx context.Context) (Counters, error) { return g.tables.Stats(ctx) }
func (g *Guard) Reset(ctx context.Context) error             { return g.tables.Reset(ctx) }

// RunCleanup starts a goroutine that purges expired entries every
// CleanupPeriod until ctx is canceled.
func (g *Guard) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			_ = g.tables.Cleanup(ctx, now)
		}
	}
}

// IntraBatchDuplicates scans a batch of feedback keys for duplicates on
// (session, product), per spec.md §4.7's batch rule (S6: a differing
// action on the same product within a batch is still a conflict, not a
// second independent reaction). It returns the indexes of items that
// duplicate an earlier item in the same batch.
func IntraBatchDuplicates(keys []FeedbackKey) []int {
	seen := make(map[FeedbackKey]bool, len(keys))
	var dups []int
	for i, k := range keys {
		if seen[k] {
			dups = append(dups, i)
			continue
		}
		seen[k] = true
	}
	return dups
}
