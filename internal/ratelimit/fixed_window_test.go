package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *FixedWindowLimiter {
	t.Helper()
	srv := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "test:ratelimit", limit, window)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return l
}

func TestAllowWithinLimit(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("user:1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("user:1") {
		t.Fatalf("request over the limit should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	if !l.Allow("user:1") {
		t.Fatalf("first request for user 1 should pass")
	}
	if !l.Allow("user:2") {
		t.Fatalf("user 2 has their own quota")
	}
	if l.Allow("user:1") {
		t.Fatalf("user 1 is out of quota")
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *FixedWindowLimiter
	if !l.Allow("anyone") {
		t.Fatalf("a nil limiter means no quota is configured")
	}
}

func TestRedisDownFailsClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "", 5, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv.Close()
	if l.Allow("user:1") {
		t.Fatalf("a dead redis should deny, not allow")
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Minute); err == nil {
		t.Fatalf("zero limit must be rejected")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 5, time.Minute); err == nil {
		t.Fatalf("empty addr must be rejected")
	}
}
