package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// newTestLimiter connects to a local Redis. Tests using this helper require
// a running Redis on localhost:6379 and skip otherwise.
func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client)
}

func TestAllow_WithinLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:test:", Limit: 3, Window: time.Minute}
	id := "within_" + uuid.New().String()

	for i := 0; i < rule.Limit; i++ {
		allowed, err := limiter.Allow(ctx, id, rule)
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed (limit %d)", i+1, rule.Limit)
		}
	}
}

func TestAllow_OverLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:test:", Limit: 2, Window: time.Minute}
	id := "over_" + uuid.New().String()

	limiter.Allow(ctx, id, rule)
	limiter.Allow(ctx, id, rule)

	allowed, err := limiter.Allow(ctx, id, rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if allowed {
		t.Error("request over the limit should be denied")
	}
}

func TestAllow_IndependentIdentifiers(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:test:", Limit: 1, Window: time.Minute}
	a := "indep_a_" + uuid.New().String()
	b := "indep_b_" + uuid.New().String()

	limiter.Allow(ctx, a, rule)
	if allowed, _ := limiter.Allow(ctx, a, rule); allowed {
		t.Error("second request for a should be denied")
	}
	if allowed, _ := limiter.Allow(ctx, b, rule); !allowed {
		t.Error("b's first request must not be affected by a's counter")
	}
}

func TestAllow_WindowExpiry(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:test:", Limit: 1, Window: time.Second}
	id := "expiry_" + uuid.New().String()

	limiter.Allow(ctx, id, rule)
	if allowed, _ := limiter.Allow(ctx, id, rule); allowed {
		t.Fatal("second request inside the window should be denied")
	}

	time.Sleep(1100 * time.Millisecond)

	if allowed, _ := limiter.Allow(ctx, id, rule); !allowed {
		t.Error("request after the window expires should be allowed")
	}
}

func TestAllow_FailsOpenOnRedisError(t *testing.T) {
	// Point at a port nothing listens on; the limiter must not block traffic.
	client := redis.NewClient(&redis.Options{Addr: "localhost:1", DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	limiter := NewLimiter(client)

	allowed, err := limiter.Allow(context.Background(), "anyone", RuleJoinQueue)
	if err == nil {
		t.Fatal("expected a redis error")
	}
	if !allowed {
		t.Error("limiter must fail open when redis is unreachable")
	}
}
