package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneAge is how long an idle key's limiter survives before cleanup.
const pruneAge = 10 * time.Minute

// pruneEvery is how often the prune pass runs, counted in Allow calls.
const pruneEvery = 1024

// Decision is the outcome of one rate limit check, carrying what the
// middleware needs for the X-RateLimit-* and Retry-After headers.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the configured requests-per-window ceiling.
	Limit int

	// Remaining is how many requests the key has left in the current window.
	Remaining int

	// RetryAfter is how long the caller should wait before retrying,
	// zero when allowed.
	RetryAfter time.Duration
}

// keyedLimiter pairs a token bucket with its last use for pruning.
type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a per-key requests-per-minute limit.
type Limiter struct {
	mu      sync.Mutex
	keys    map[string]*keyedLimiter
	perMin  int
	limit   rate.Limit
	burst   int
	calls   int
	nowFunc func() time.Time
}

// NewLimiter creates a Limiter allowing perMinute requests per key per
// minute. The burst equals the per-minute limit so a quiet key can spend its
// full window at once, matching fixed-window expectations closely enough for
// abuse control.
func NewLimiter(perMinute int) *Limiter {
	return &Limiter{
		keys:    make(map[string]*keyedLimiter),
		perMin:  perMinute,
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		nowFunc: time.Now,
	}
}

// Allow checks and consumes one request for the key.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	l.calls++
	if l.calls%pruneEvery == 0 {
		l.prune(now)
	}

	kl, ok := l.keys[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.keys[key] = kl
	}
	kl.lastSeen = now

	reservation := kl.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		// Over the limit; give the token back and tell the caller to wait.
		reservation.CancelAt(now)
		return Decision{
			Allowed:    false,
			Limit:      l.perMin,
			Remaining:  0,
			RetryAfter: delay,
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     l.perMin,
		Remaining: int(kl.limiter.TokensAt(now)),
	}
}

// prune drops limiters idle longer than pruneAge. Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	for key, kl := range l.keys {
		if now.Sub(kl.lastSeen) > pruneAge {
			delete(l.keys, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
