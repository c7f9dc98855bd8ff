package middleware

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"igress/internal/common"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimiter throttles per client IP. Idle entries are swept until ctx ends.
type RateLimiter struct {
	visitors *xsync.MapOf[string, *visitor]
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter allows maxRequests per window for each IP.
func NewRateLimiter(ctx context.Context, maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	idle := window * 3
	if idle < time.Minute {
		idle = time.Minute
	}
	rl := &RateLimiter{
		visitors: xsync.NewMapOf[string, *visitor](),
		limit:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		idle:     idle,
		now:      time.Now,
	}
	go rl.sweep(ctx)
	return rl
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.idle)
			rl.visitors.Range(func(ip string, v *visitor) bool {
				if v.lastSeen.Load() < cutoff.UnixNano() {
					rl.visitors.Delete(ip)
				}
				return true
			})
		}
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	v, _ := rl.visitors.LoadOrCompute(ip, func() *visitor {
		return &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
	})
	v.lastSeen.Store(rl.now().UnixNano())
	return v.limiter.Allow()
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !rl.allow(ip) {
			common.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
