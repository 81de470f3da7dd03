package extract

import (
	"sync"
	"sync/atomic"
	"time"
)

// defaultLogWindow is the window used when RateLimiterConfig.Window is unset.
const defaultLogWindow = 10 * time.Second

// RateLimiter caps per-frame diagnostics. A line noise burst can fail
// thousands of frames a second, and each would log a line. Every kind of
// diagnostic ("missing", "size_mismatch") gets MaxPerWindow lines per window.
// All kinds restart together when the window rolls over. Dropped lines are
// only counted, so the caller can report the total once at the end of a run.
//
// A nil *RateLimiter allows everything.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	start  time.Time      // beginning of the current window
	counts map[string]int // lines emitted per kind in the current window

	// read by the pipeline after a run while the limiter may still be shared
	suppressed atomic.Int64
}

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	MaxPerWindow int           // Lines per kind per window; 0 disables limiting
	Window       time.Duration // Defaults to 10s
}

// NewRateLimiter returns nil when cfg.MaxPerWindow is not positive, which
// leaves diagnostics unlimited.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.MaxPerWindow <= 0 {
		return nil
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultLogWindow
	}
	return &RateLimiter{
		limit:  cfg.MaxPerWindow,
		window: cfg.Window,
		start:  time.Now(),
		counts: make(map[string]int),
	}
}

// Allow reports whether a diagnostic of kind may be logged at now, and
// counts it against the window if so.
//
// Observers are called from a single goroutine per run, so the lock is
// uncontended. It only guards against one limiter being shared by runs.
func (l *RateLimiter) Allow(kind string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.start) >= l.window {
		clear(l.counts)
		l.start = now
	}
	if l.counts[kind] >= l.limit {
		l.suppressed.Add(1)
		return false
	}
	l.counts[kind]++
	return true
}

// Suppressed returns how many diagnostics Allow has refused so far.
func (l *RateLimiter) Suppressed() int64 {
	if l == nil {
		return 0
	}
	return l.suppressed.Load()
}
