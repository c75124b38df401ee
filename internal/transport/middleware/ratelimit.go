package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const bucketIdleEviction = 10 * time.Minute

// RateLimiter throttles requests per client address using token buckets.
// Buckets refill continuously, so a client that backs off regains capacity
// without waiting for a window boundary.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	stop    chan struct{}
}

type tokenBucket struct {
	mu       sync.Mutex
	level    float64
	capacity float64
	perSec   float64
	touched  time.Time
}

// NewRateLimiter creates a limiter whose idle buckets are evicted every
// cleanupInterval. Call Stop on shutdown.
func NewRateLimiter(cleanupInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	go rl.evictIdle(cleanupInterval)
	return rl
}

// Stop terminates the eviction goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

// Limit returns middleware capping each client at maxPerMinute requests.
// Rejected requests get 429 with a Retry-After hint.
func (rl *RateLimiter) Limit(maxPerMinute int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.bucketFor(r.RemoteAddr, maxPerMinute).take() {
				secondsPerToken := 60.0 / float64(maxPerMinute)
				w.Header().Set("Retry-After", strconv.Itoa(int(secondsPerToken)+1))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) bucketFor(addr string, maxPerMinute int) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[addr]
	if !ok {
		capacity := float64(maxPerMinute)
		b = &tokenBucket{
			level:    capacity,
			capacity: capacity,
			perSec:   capacity / 60.0,
			touched:  time.Now(),
		}
		rl.clients[addr] = b
	}
	return b
}

func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.level = min(b.capacity, b.level+now.Sub(b.touched).Seconds()*b.perSec)
	b.touched = now

	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

func (rl *RateLimiter) evictIdle(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-bucketIdleEviction)
			rl.mu.Lock()
			for addr, b := range rl.clients {
				b.mu.Lock()
				stale := b.touched.Before(cutoff)
				b.mu.Unlock()
				if stale {
					delete(rl.clients, addr)
				}
			}
			rl.mu.Unlock()
		}
	}
}
