package http

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimiter is a per-client token bucket. Buckets live in an LRU, so the table stays
// bounded without a cleanup goroutine; an evicted client simply starts a fresh bucket.
type RateLimiter struct {
	mu        sync.Mutex
	capacity  int
	refillDur time.Duration
	clients   *lru.Cache[string, *clientBucket]
	now       func() time.Time
}

func NewRateLimiter(capacity int, refillDur time.Duration, maxClients int) (*RateLimiter, error) {
	if capacity <= 0 || refillDur <= 0 {
		return nil, fmt.Errorf("rate limiter needs positive capacity and refill, got %d/%s", capacity, refillDur)
	}
	clients, err := lru.New[string, *clientBucket](maxClients)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return &RateLimiter{
		capacity:  capacity,
		refillDur: refillDur,
		clients:   clients,
		now:       time.Now,
	}, nil
}

func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, exists := r.clients.Get(ip)

	if !exists {
		r.clients.Add(ip, &clientBucket{
			tokens:     r.capacity - 1,
			lastRefill: now,
		})
		return true
	}

	if now.Sub(bucket.lastRefill) >= r.refillDur {
		bucket.tokens = r.capacity
		bucket.lastRefill = now
	}

	if bucket.tokens <= 0 {
		return false
	}

	bucket.tokens--
	return true
}

// Clients reports how many buckets are tracked.
func (r *RateLimiter) Clients() int {
	return r.clients.Len()
}
