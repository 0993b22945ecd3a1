package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle limits login attempts per client and username using a Redis
// counter with a rolling window. It protects the password hash from online
// brute force; the global per-IP rate limit sits in front of it.
type Throttle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewThrottle constructs a Throttle. A nil client disables throttling.
func NewThrottle(client *redis.Client, limit int, window time.Duration) *Throttle {
	return &Throttle{client: client, limit: int64(limit), window: window}
}

// Allow records one attempt for the (ip, username) pair and reports whether
// it is within the limit. Redis being unreachable fails open: login
// availability wins over throttling.
func (t *Throttle) Allow(ctx context.Context, ip, username string) bool {
	if t == nil || t.client == nil || t.limit <= 0 {
		return true
	}
	key := fmt.Sprintf("login_attempts:%s:%s", ip, strings.ToLower(username))
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		t.client.Expire(ctx, key, t.window)
	}
	return count <= t.limit
}

// Reset clears the counter after a successful login.
func (t *Throttle) Reset(ctx context.Context, ip, username string) {
	if t == nil || t.client == nil {
		return
	}
	key := fmt.Sprintf("login_attempts:%s:%s", ip, strings.ToLower(username))
	t.client.Del(ctx, key)
}
