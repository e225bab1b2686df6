package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(map[Class]Rule{ClassGeneral: {Window: time.Minute, Max: 3}}, nil)
	now := time.Now()

	for i := 0; i < 3; i++ {
		r := l.Allow("1.2.3.4", ClassGeneral, now)
		require.True(t, r.Allowed)
	}
	r := l.Allow("1.2.3.4", ClassGeneral, now)
	require.False(t, r.Allowed)
	require.Greater(t, r.RetryAfter, time.Duration(0))
}

func TestAllowSlidesWindowForward(t *testing.T) {
	l := New(map[Class]Rule{ClassGeneral: {Window: time.Minute, Max: 1}}, nil)
	now := time.Now()

	require.True(t, l.Allow("1.2.3.4", ClassGeneral, now).Allowed)
	require.False(t, l.Allow("1.2.3.4", ClassGeneral, now.Add(30*time.Second)).Allowed)
	require.True(t, l.Allow("1.2.3.4", ClassGeneral, now.Add(61*time.Second)).Allowed)
}

func TestAllowIsolatesIPsAndClasses(t *testing.T) {
	l := New(map[Class]Rule{ClassGeneral: {Window: time.Minute, Max: 1}}, nil)
	now := time.Now()

	require.True(t, l.Allow("1.1.1.1", ClassGeneral, now).Allowed)
	require.True(t, l.Allow("2.2.2.2", ClassGeneral, now).Allowed, "different IP has its own bucket")
	require.True(t, l.Allow("1.1.1.1", ClassFeedback, now).Allowed, "different class has its own bucket")
}

func TestWhitelistBypasses(t *testing.T) {
	l := New(map[Class]Rule{ClassGeneral: {Window: time.Minute, Max: 1}}, []string{"9.9.9.9"})
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("9.9.9.9", ClassGeneral, now).Allowed)
	}
}

func TestClassForRouting(t *testing.T) {
	require.Equal(t, ClassSession, ClassFor("/api/session"))
	require.Equal(t, ClassRecommend, ClassFor("/api/recommend/abc"))
	require.Equal(t, ClassBatch, ClassFor("/api/recommendations/batch"))
	require.Equal(t, ClassBatch, ClassFor("/api/feedback/batch"))
	require.Equal(t, ClassFeedback, ClassFor("/api/feedback"))
	require.Equal(t, ClassGeneral, ClassFor("/api/health"))
}

func TestLoadTuningEmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadTuning("")
	require.NoError(t, err)
	require.Equal(t, DefaultRules(), rules)
}
