package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and the last time we saw this IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	every time.Duration
	burst int
	msg   string

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(every time.Duration, burst int, msg string) *RateLimiter {
	return &RateLimiter{
		every:    every,
		burst:    burst,
		msg:      msg,
		visitors: make(map[string]*visitor),
	}
}

// NewAPIRateLimiter is the general limit: 1 request/second average, burst of 100.
func NewAPIRateLimiter() *RateLimiter {
	return NewRateLimiter(time.Second, 100, "Too many requests. Please slow down.")
}

// NewSessionRateLimiter guards bracket creation: 1 every 10 seconds, burst of 10.
func NewSessionRateLimiter() *RateLimiter {
	return NewRateLimiter(10*time.Second, 10, "Too many new sessions. Please wait and try again.")
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Every(rl.every), rl.burst)
		rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Prune forgets visitors idle for longer than maxIdle.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Middleware applies the per-IP limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rl.msg})
			return
		}
		c.Next()
	}
}
