package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewPerMinuteRateLimiter(2)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if ok, _ := rl.Allow(ctx, "1.2.3.4"); ok {
		t.Fatal("third request should be limited")
	}
	if ok, _ := rl.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := rl.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("one token should have refilled after 30s")
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	_, _ = rl.Allow(context.Background(), "idle")

	rl.evictBefore(now.Add(time.Second))

	if len(rl.buckets) != 0 {
		t.Fatalf("expected idle bucket to be evicted, have %d", len(rl.buckets))
	}
}

func TestRedisRateLimiterSharedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	a := NewRedisRateLimiter(client, "ratelimit:leads", 2, time.Minute)
	b := NewRedisRateLimiter(client, "ratelimit:leads", 2, time.Minute)
	a.now = func() time.Time { return now }
	b.now = a.now
	ctx := context.Background()

	if ok, err := a.Allow(ctx, "1.2.3.4"); err != nil || !ok {
		t.Fatalf("first request: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Allow(ctx, "1.2.3.4"); err != nil || !ok {
		t.Fatalf("second request on another replica: ok=%v err=%v", ok, err)
	}
	if ok, _ := a.Allow(ctx, "1.2.3.4"); ok {
		t.Fatal("third request in the window should be limited")
	}
	if ttl := mr.TTL("ratelimit:leads:1.2.3.4:" + slotString(now)); ttl <= 0 {
		t.Fatalf("expected counter to expire, ttl=%v", ttl)
	}

	now = now.Add(time.Minute)
	if ok, _ := a.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("next window should reset the counter")
	}
}

func TestRedisRateLimiterReportsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisRateLimiter(client, "", 1, time.Minute).Allow(context.Background(), "k")
	if err == nil {
		t.Fatal("expected error with redis down")
	}
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.ok, s.err }

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		limiter Limiter
		want    int
	}{
		{"allowed", stubLimiter{ok: true}, http.StatusOK},
		{"limited", stubLimiter{ok: false}, http.StatusTooManyRequests},
		{"limiter down fails open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RateLimit(tt.limiter, nil)(okHandler(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads", nil))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
				t.Fatal("expected Retry-After header")
			}
		})
	}
}

func slotString(now time.Time) string {
	return strconv.FormatInt(now.UnixNano()/int64(time.Minute), 10)
}
