package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the shared-backend variant of Limiter for
// multi-replica deployments (spec.md §9), using a sorted set per
// (ip, class) bucket: ZADD the request timestamp, ZREMRANGEBYSCORE the
// stale tail, ZCARD for the current count — the standard Redis sliding-
// window recipe.
type RedisLimiter struct {
	client    *redis.Client
	rules     map[Class]Rule
	whitelist map[string]bool
	prefix    string
}

// NewRedisLimiter mirrors New but against a shared Redis client.
func NewRedisLimiter(client *redis.Client, rules map[Class]Rule, whitelist []string, prefix string) *RedisLimiter {
	if rules == nil {
		rules = DefaultRules()
	}
	wl := make(map[string]bool, len(whitelist))
	for _, ip := range whitelist {
		wl[ip] = true
	}
	return &RedisLimiter{client: client, rules: rules, whitelist: wl, prefix: prefix}
}

// Allow mirrors Limiter.Allow against the shared Redis backend.
func (l *RedisLimiter) Allow(ctx context.Context, ip string, class Class, now time.Time) (Result, error) {
	rule, ok := l.rules[class]
	if !ok {
		rule = l.rules[ClassGeneral]
	}

	if l.whitelist[ip] {
		return Result{Allowed: true, Limit: rule.Max, Remaining: rule.Max, ResetAt: now.Add(rule.Window)}, nil
	}

	key := l.prefix + ":" + string(class) + ":" + ip
	cutoff := now.Add(-rule.Window)

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", formatScore(scoreOf(cutoff))).Err(); err != nil {
		return Result{}, err
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return Result{}, err
	}

	if count >= int64(rule.Max) {
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err != nil {
			return Result{}, err
		}
		resetAt := now.Add(rule.Window)
		if len(oldest) == 1 {
			resetAt = timeFromScore(oldest[0].Score).Add(rule.Window)
		}
		return Result{Allowed: false, Limit: rule.Max, Remaining: 0, ResetAt: resetAt, RetryAfter: resetAt.Sub(now)}, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := l.client.ZAdd(ctx, key, redis.Z{Score: scoreOf(now), Member: member}).Err(); err != nil {
		return Result{}, err
	}
	_ = l.client.Expire(ctx, key, rule.Window)

	return Result{Allowed: true, Limit: rule.Max, Remaining: rule.Max - int(count) - 1, ResetAt: now.Add(rule.Window)}, nil
}

func scoreOf(t time.Time) float64 { return float64(t.UnixNano()) }

func formatScore(s float64) string { return strconv.FormatFloat(s, 'f', 0, 64) }

func timeFromScore(score float64) time.Time { return time.Unix(0, int64(score)) }
