package extract

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"firestige.xyz/cobslog/internal/log"
)

func TestRateLimiter_NilWhenDisabled(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxPerWindow: 0})
	if l != nil {
		t.Error("expected nil when MaxPerWindow = 0")
	}
	if !l.Allow("missing", time.Now()) {
		t.Error("nil limiter should allow everything")
	}
	if l.Suppressed() != 0 {
		t.Error("nil limiter should report no suppressed lines")
	}
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxPerWindow: 3, Window: 10 * time.Second})
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow("size_mismatch", now) {
			t.Fatalf("line %d should be allowed (within limit)", i)
		}
	}
	if l.Allow("size_mismatch", now) {
		t.Error("4th line should be rejected")
	}
	if l.Suppressed() != 1 {
		t.Errorf("expected 1 suppressed, got %d", l.Suppressed())
	}
}

func TestRateLimiter_KindsIndependent(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxPerWindow: 1, Window: 10 * time.Second})
	now := time.Now()

	if !l.Allow("missing", now) || !l.Allow("size_mismatch", now) {
		t.Error("first line of each kind should be allowed")
	}
	if l.Allow("missing", now) {
		t.Error("second missing line should be rejected")
	}
}

func TestRateLimiter_WindowRotation(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxPerWindow: 1, Window: time.Second})
	now := time.Now()

	l.Allow("missing", now)
	if l.Allow("missing", now) {
		t.Error("should be rejected within window")
	}
	if !l.Allow("missing", now.Add(2*time.Second)) {
		t.Error("should be allowed after window rotates")
	}
}

func TestLogObserver_Limited(t *testing.T) {
	var buf bytes.Buffer
	logger, err := log.NewWithWriter(&buf, "debug")
	if err != nil {
		t.Fatal(err)
	}
	o := &LogObserver{
		Logger:  logger,
		Limiter: NewRateLimiter(RateLimiterConfig{MaxPerWindow: 2, Window: time.Hour}),
	}

	mismatch := &SizeMismatchError{Got: 3, Want: 8}
	for i := 0; i < 5; i++ {
		o.OnSizeMismatch(Frame{Index: i}, mismatch)
	}
	if got := bytes.Count(buf.Bytes(), []byte("invalid packet size")); got != 2 {
		t.Errorf("expected 2 logged mismatches, got %d", got)
	}
	if o.Limiter.Suppressed() != 3 {
		t.Errorf("expected 3 suppressed, got %d", o.Limiter.Suppressed())
	}
}

func TestRateLimiter_SharedAcrossRuns(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxPerWindow: 50, Window: time.Hour})
	now := time.Now()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if l.Allow("missing", now) {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 50 {
		t.Errorf("expected exactly 50 allowed, got %d", allowed.Load())
	}
	if l.Suppressed() != 750 {
		t.Errorf("expected 750 suppressed, got %d", l.Suppressed())
	}
}
