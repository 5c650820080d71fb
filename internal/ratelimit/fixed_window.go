package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type bucket struct {
	windowStart time.Time
	count       int
}

// FixedWindow is a per-key fixed-window request counter. Buckets are
// created lazily on first request from a key and swept once idle for a
// full window.
type FixedWindow struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewFixedWindow creates a limiter allowing limit requests per key per
// window and starts a background sweep of expired buckets.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	l := &FixedWindow{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go l.sweepLoop()

	return l
}

// Admit decides whether a request for key may proceed. Denials carry the
// time remaining until the key's window resets.
func (l *FixedWindow) Admit(key string) Decision {
	t := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || t.Sub(b.windowStart) >= l.window {
		l.buckets[key] = &bucket{windowStart: t, count: 1}
		return Decision{Allowed: true}
	}

	b.count++
	if b.count <= l.limit {
		return Decision{Allowed: true}
	}

	return Decision{Allowed: false, RetryAfter: l.window - t.Sub(b.windowStart)}
}

// Stop terminates the background sweep. The limiter remains usable.
func (l *FixedWindow) Stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *FixedWindow) sweepLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep evicts buckets whose window has fully elapsed. An evicted key is
// indistinguishable from a never-seen key, so eviction cannot grant
// requests the fixed window would have denied.
func (l *FixedWindow) sweep() {
	t := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if t.Sub(b.windowStart) >= l.window {
			delete(l.buckets, key)
		}
	}
}
