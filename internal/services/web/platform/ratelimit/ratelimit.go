// Package ratelimit throttles requests per client key with token buckets.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	clock   func() time.Time
}

// New builds a limiter allowing every events per interval with burst.
func New(every time.Duration, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &Limiter{
		buckets: make(map[string]*entry),
		limit:   limit,
		burst:   burst,
		idleTTL: defaultIdleTTL,
		clock:   time.Now,
	}
}

// WithClock overrides the clock used for token accounting. Tests only.
func (l *Limiter) WithClock(clock func() time.Time) *Limiter {
	if clock != nil {
		l.clock = clock
	}
	return l
}

// Allow consumes one token for key and reports whether it was available.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.Reserve(key)
	return ok
}

// Reserve consumes one token for key. When none is available it reports
// how long the caller should wait before retrying.
func (l *Limiter) Reserve(key string) (time.Duration, bool) {
	now := l.clock()
	l.mu.Lock()
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	if e.limiter.AllowN(now, 1) {
		return 0, true
	}
	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay, false
}

// Sweep drops buckets idle for longer than the idle TTL and returns how
// many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.buckets {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Keys default to the client address.
func (l *Limiter) Middleware(key func(*http.Request) string) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientAddress
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait, ok := l.Reserve(key(r))
			if !ok {
				seconds := int(wait.Round(time.Second) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddress returns the request's remote host without its port.
func ClientAddress(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
