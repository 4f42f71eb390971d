package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"invostock/internal/pkg/errors"
	"invostock/internal/platform/config"
	"invostock/internal/platform/tenant"
)

const (
	LimitRead  = "api_read"
	LimitWrite = "api_write"
)

// RateLimiter keeps one token bucket per owner and limit type. Buckets
// refill continuously at limit tokens per minute.
type RateLimiter struct {
	store  sync.Map // map[string]*bucket
	limits map[string]int
	now    func() time.Time
	done   chan struct{}
	once   sync.Once
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		limits: map[string]int{
			LimitRead:  cfg.APIReadPerMinute,
			LimitWrite: cfg.APIWritePerMinute,
		},
		now:  time.Now,
		done: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}

		now := rl.now()
		rl.store.Range(func(key, value interface{}) bool {
			b := value.(*bucket)
			b.mu.Lock()
			if now.Sub(b.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			b.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	if limit <= 0 {
		return true
	}
	now := rl.now()

	val, _ := rl.store.LoadOrStore(key, &bucket{tokens: limit, lastRefill: now, lastAccess: now})
	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	refill := int(now.Sub(b.lastRefill).Seconds() * float64(limit) / 60.0)
	if refill > 0 {
		b.tokens = min(b.tokens+refill, limit)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Limit throttles by tenant owner when the scope is known and by client IP
// otherwise.
func (rl *RateLimiter) Limit(kind string) func(http.HandlerFunc) http.HandlerFunc {
	limit := rl.limits[kind]
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var key string
			if scope, ok := tenant.FromContext(r.Context()); ok {
				key = scope.OwnerCode() + ":" + kind
			} else {
				ip := r.RemoteAddr
				if host, _, err := net.SplitHostPort(ip); err == nil {
					ip = host
				}
				key = ip + ":" + kind
			}

			if !rl.Allow(key, limit) {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Previše zahtjeva, pokušajte ponovno za minutu", nil)
				return
			}
			next(w, r)
		}
	}
}
