package middleware

import (
	"strconv"
	"sync"
	"time"

	"ContentStudio-server/apperr"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// UserRateLimiter keeps one token bucket per user.
type UserRateLimiter struct {
	mu        sync.Mutex
	limiters  map[uint]*limiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter allows perMinute requests per user with the given burst.
// perMinute <= 0 returns nil, which Middleware treats as unlimited.
func NewUserRateLimiter(perMinute, burst int) *UserRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limiters:  make(map[uint]*limiterEntry),
		rate:      rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		cleanupAt: time.Now().Add(5 * time.Minute),
	}
}

// Allow takes a token for userID, or reports how long until one is available.
func (l *UserRateLimiter) Allow(userID uint) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		for id, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.limiters, id)
			}
		}
		l.cleanupAt = now.Add(5 * time.Minute)
	}

	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects over-limit requests with 429 and Retry-After.
// Must run after RequireAuth.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		u := CurrentUser(c)
		if u == nil {
			c.Next()
			return
		}
		ok, wait := l.Allow(u.ID)
		if !ok {
			secs := int(wait.Seconds() + 0.999)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			apperr.Respond(c, apperr.RateLimited("muitas requisições, tente novamente em instantes"))
			return
		}
		c.Next()
	}
}
