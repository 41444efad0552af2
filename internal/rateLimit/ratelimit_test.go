package rateLimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robertarktes/table-reservations/internal/rateLimit"
)

type countingCounter struct {
	counts map[string]int64
	err    error
}

func (c *countingCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestRateLimiter_Allow(t *testing.T) {
	counter := &countingCounter{counts: map[string]int64{}}
	rl := rateLimit.NewRateLimiter(counter)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "user:7", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d should pass: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, "user:7", 3, time.Minute); ok {
		t.Error("fourth request should be limited")
	}
	if ok, _ := rl.Allow(ctx, "user:8", 3, time.Minute); !ok {
		t.Error("other keys must not share the window")
	}
	if _, seen := counter.counts["rl:user:7"]; !seen {
		t.Error("expected rl: key prefix")
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl := rateLimit.NewRateLimiter(&countingCounter{err: errors.New("redis down")})

	ok, err := rl.Allow(context.Background(), "ip:1.2.3.4", 1, time.Minute)
	if !ok || err == nil {
		t.Errorf("expected allow with error, got ok=%v err=%v", ok, err)
	}
}
