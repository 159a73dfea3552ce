package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyLimiter keeps one token bucket per key (the agent keys by event type)
// and forgets buckets that stayed idle longer than idleTTL.
type KeyLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu     sync.Mutex
	byKey  map[string]*bucket
	checks uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const sweepEvery = 512

// New returns nil when rps or burst is not positive; a nil *KeyLimiter
// allows everything.
func New(rps float64, burst int, idleTTL time.Duration) *KeyLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*bucket),
	}
}

func (l *KeyLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.checks++
	if l.checks%sweepEvery == 0 {
		l.sweepLocked(now)
	}
	return allowed
}

// Len reports how many keys currently hold a bucket.
func (l *KeyLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

func (l *KeyLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, b := range l.byKey {
		if b.lastSeen.Before(cutoff) {
			delete(l.byKey, k)
		}
	}
}
