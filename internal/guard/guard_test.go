package guard

import (
	"context"
	"testing"
	"time"

	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCheckDuplicateRequestWithinWindow(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()

	d, err := g.Check(ctx, "fp-1", "", nil, now)
	require.NoError(t, err)
	require.True(t, d.Allow)
	require.NoError(t, g.Record(ctx, "fp-1", "", nil, "", now))

	d, err = g.Check(ctx, "fp-1", "", nil, now.Add(WindowGeneral/2))
	require.NoError(t, err)
	require.False(t, d.Allow)
	require.Equal(t, "duplicate_request", d.Kind)

	d, err = g.Check(ctx, "fp-1", "", nil, now.Add(WindowGeneral+time.Second))
	require.NoError(t, err)
	require.True(t, d.Allow, "beyond W_gen the fingerprint no longer blocks")
}

func TestCheckRapidFeedbackConflict(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s1", ProductID: "p1"}

	require.NoError(t, g.Record(ctx, "fp-a", "", &key, model.ActionLove, now))

	d, err := g.Check(ctx, "fp-b", "", &key, now.Add(2*time.Second))
	require.NoError(t, err)
	require.False(t, d.Allow)
	require.Equal(t, "rapid_feedback", d.Kind)
	require.InDelta(t, 3*time.Second, d.RetryAfter, float64(time.Millisecond))
}

// TestCheckRapidFeedbackConflictDifferingAction is spec.md's S2: a "like"
// followed 1s later by a "love" on the same (session, product) must
// collide even though the two calls carry different actions.
func TestCheckRapidFeedbackConflictDifferingAction(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s", ProductID: "P1"}

	require.NoError(t, g.Record(ctx, "fp-like", "", &key, model.ActionLike, now))

	d, err := g.Check(ctx, "fp-love", "", &key, now.Add(time.Second))
	require.NoError(t, err)
	require.False(t, d.Allow)
	require.Equal(t, "rapid_feedback", d.Kind)
	require.True(t, d.RetryAfter >= time.Second && d.RetryAfter <= 4*time.Second)
}

func TestCheckFeedbackConflictAfterRapidWindow(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s1", ProductID: "p1"}

	require.NoError(t, g.Record(ctx, "fp-a", "", &key, model.ActionLove, now))

	d, err := g.Check(ctx, "fp-b", "", &key, now.Add(30*time.Second))
	require.NoError(t, err)
	require.False(t, d.Allow)
	require.Equal(t, "feedback_conflict", d.Kind)
}

// TestCheckFeedbackConflictDifferingAction is spec.md's S3: after the
// rapid-feedback rejection of S2, a third, differing action on the same
// product ~7s later must still 409 feedback_conflict with ~53s remaining.
func TestCheckFeedbackConflictDifferingAction(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s", ProductID: "P1"}

	require.NoError(t, g.Record(ctx, "fp-love", "", &key, model.ActionLove, now))

	d, err := g.Check(ctx, "fp-dislike", "", &key, now.Add(7*time.Second))
	require.NoError(t, err)
	require.False(t, d.Allow)
	require.Equal(t, "feedback_conflict", d.Kind)
	require.InDelta(t, 53*time.Second, d.RetryAfter, float64(2*time.Second))

	// 60s total after the recorded action, the same differing action is allowed.
	d, err = g.Check(ctx, "fp-dislike-2", "", &key, now.Add(WindowSame+time.Second))
	require.NoError(t, err)
	require.True(t, d.Allow, "the user is permitted to change their mind beyond W_same")
}

func TestCheckAllowedBeyondSameWindow(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s1", ProductID: "p1"}

	require.NoError(t, g.Record(ctx, "fp-a", "", &key, model.ActionLove, now))

	d, err := g.Check(ctx, "fp-b", "", &key, now.Add(WindowSame+time.Second))
	require.NoError(t, err)
	require.True(t, d.Allow, "the user is permitted to change their mind beyond W_same")
}

func TestCheckSameIdempotencyKeyBypassesConflictWindow(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s1", ProductID: "p1"}

	require.NoError(t, g.Record(ctx, "fp-a", "idem-1", &key, model.ActionLove, now))

	d, err := g.Check(ctx, "fp-b", "idem-1", &key, now.Add(10*time.Second))
	require.NoError(t, err)
	require.True(t, d.Allow, "same idempotency key past W_rapid but within W_same must not conflict")
}

func TestIdempotentReplayServesCachedResponse(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, g.CacheIdempotentResponse(ctx, "idem-1", 200, []byte(`{"ok":true}`), now))

	d, err := g.Check(ctx, "fp-x", "idem-1", nil, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, d.IdempotentReplay)
	require.Equal(t, "idempotent_replay", d.Kind)
	require.Equal(t, 200, d.CachedResponse.StatusCode)
}

func TestIdempotentReplayExpiresAfterWindow(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, g.CacheIdempotentResponse(ctx, "idem-1", 200, []byte(`{}`), now))

	d, err := g.Check(ctx, "fp-x", "idem-1", nil, now.Add(WindowIdem+time.Hour))
	require.NoError(t, err)
	require.False(t, d.IdempotentReplay)
}

func TestMarkProcessedAndStatus(t *testing.T) {
	g := New(NewMemoryTables())
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s1", ProductID: "p1"}

	require.NoError(t, g.Record(ctx, "fp-a", "", &key, model.ActionLike, now))
	rec, err := g.Status(ctx, key)
	require.NoError(t, err)
	require.False(t, rec.Processed)

	require.NoError(t, g.MarkProcessed(ctx, key))
	rec, err = g.Status(ctx, key)
	require.NoError(t, err)
	require.True(t, rec.Processed)
}

func TestIntraBatchDuplicates(t *testing.T) {
	keys := []FeedbackKey{
		{SessionID: "s1", ProductID: "p1"},
		{SessionID: "s1", ProductID: "p2"},
		{SessionID: "s1", ProductID: "p1"},
	}
	dups := IntraBatchDuplicates(keys)
	require.Equal(t, []int{2}, dups)
}

// TestIntraBatchDuplicatesDifferingAction is spec.md's S6: items 0 and 1
// target the same (session, product) but carry different actions
// ("like" then "love") and must still be reported as a duplicate.
func TestIntraBatchDuplicatesDifferingAction(t *testing.T) {
	keys := []FeedbackKey{
		{SessionID: "s", ProductID: "A"},
		{SessionID: "s", ProductID: "A"},
		{SessionID: "s", ProductID: "B"},
	}
	dups := IntraBatchDuplicates(keys)
	require.Equal(t, []int{1}, dups)
}

func TestCleanupPurgesExpiredEntries(t *testing.T) {
	tables := NewMemoryTables()
	g := New(tables)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, g.Record(ctx, "fp-a", "", nil, "", now))
	require.NoError(t, tables.Cleanup(ctx, now.Add(WindowGeneral+time.Second)))

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.RequestHashes)
}

func TestResetClearsAllTables(t *testing.T) {
	tables := NewMemoryTables()
	g := New(tables)
	ctx := context.Background()
	now := time.Now()
	key := FeedbackKey{SessionID: "s1", ProductID: "p1"}

	require.NoError(t, g.Record(ctx, "fp-a", "idem-1", &key, model.ActionLove, now))
	require.NoError(t, g.Reset(ctx))

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Counters{}, stats)
}
