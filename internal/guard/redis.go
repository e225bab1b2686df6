package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTables is the shared-backend implementation of Tables for
// multi-replica deployments (spec.md §9's "move to a shared key-value
// store"), grounded on the teacher's Redis cache store.
type RedisTables struct {
	client *redis.Client
	prefix string
}

// NewRedisTables wraps an existing client. prefix namespaces keys so the
// guard tables can share a Redis instance with C8/C9.
func NewRedisTables(client *redis.Client, prefix string) *RedisTables {
	return &RedisTables{client: client, prefix: prefix}
}

func (r *RedisTables) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (r *RedisTables) GetRequestHash(ctx context.Context, hash string) (time.Time, bool, error) {
	v, err := r.client.Get(ctx, r.key("req", hash)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := parseUnixNano(v)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

func (r *RedisTables) PutRequestHash(ctx context.Context, hash string, at time.Time) error {
	return r.client.Set(ctx, r.key("req", hash), formatUnixNano(at), WindowGeneral).Err()
}

func (r *RedisTables) feedbackKeyString(k FeedbackKey) string {
	return k.SessionID + "|" + k.ProductID
}

func (r *RedisTables) GetFeedbackKey(ctx context.Context, key FeedbackKey) (*FeedbackRecord, error) {
	v, err := r.client.Get(ctx, r.key("fb", r.feedbackKeyString(key))).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec FeedbackRecord
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RedisTables) PutFeedbackKey(ctx context.Context, key FeedbackKey, rec *FeedbackRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key("fb", r.feedbackKeyString(key)), data, WindowSame*CleanupGraceX2).Err()
}

func (r *RedisTables) MarkFeedbackProcessed(ctx context.Context, key FeedbackKey) error {
	rec, err := r.GetFeedbackKey(ctx, key)
	if err != nil || rec == nil {
		return err
	}
	rec.Processed = true
	return r.PutFeedbackKey(ctx, key, rec)
}

func (r *RedisTables) GetIdempotencyKey(ctx context.Context, key string) (*IdempotencyRecord, error) {
	v, err := r.client.Get(ctx, r.key("idem", key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RedisTables) PutIdempotencyKey(ctx context.Context, key string, rec *IdempotencyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key("idem", key), data, WindowIdem).Err()
}

// Cleanup is a no-op: Redis TTLs (set at PutX time) already expire every
// key, so there is nothing left for a sweep to do.
func (r *RedisTables) Cleanup(_ context.Context, _ time.Time) error { return nil }

func (r *RedisTables) Stats(ctx context.Context) (Counters, error) {
	req, err := r.countPattern(ctx, r.key("req", "*"))
	if err != nil {
		return Counters{}, err
	}
	fb, err := r.countPattern(ctx, r.key("fb", "*"))
	if err != nil {
		return Counters{}, err
	}
	idem, err := r.countPattern(ctx, r.key("idem", "*"))
	if err != nil {
		return Counters{}, err
	}
	return Counters{RequestHashes: req, FeedbackKeys: fb, IdempotentKeys: idem}, nil
}

func (r *RedisTables) countPattern(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

func (r *RedisTables) Reset(ctx context.Context) error {
	for _, pattern := range []string{r.key("req", "*"), r.key("fb", "*"), r.key("idem", "*")} {
		iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
		for iter.Next(ctx) {
			if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

func formatUnixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("guard: bad timestamp %q: %w", s, err)
	}
	return time.Unix(0, n), nil
}
