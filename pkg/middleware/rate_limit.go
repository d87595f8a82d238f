package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/pinboard/pkg/configs"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimitMiddleware 按配置限流. 未启用时直接放行.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))

	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}

			c.Next()
		}
	}

	limiters := newLimiterSet(cfg, time.Now)

	return func(c *gin.Context) {
		key := clientIP(c)

		if h, ok := strings.CutPrefix(keyMode, "header:"); ok {
			if v := c.GetHeader(h); v != "" {
				key = v
			}
		}

		if !limiters.get(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "rate limit exceeded, please try again later"})

			return
		}

		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 每个 key 一个 limiter，超过 limiterIdleTTL 未使用的在下次访问时清理.
type limiterSet struct {
	mu        sync.Mutex
	cfg       configs.RateLimitConfig
	entries   map[string]*limiterEntry
	now       func() time.Time
	lastSweep time.Time
}

func newLimiterSet(cfg configs.RateLimitConfig, now func() time.Time) *limiterSet {
	return &limiterSet{cfg: cfg, entries: map[string]*limiterEntry{}, now: now, lastSweep: now()}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.entries, k)
			}
		}

		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.entries[key] = e
	}

	e.lastSeen = now

	return e.limiter
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}

	if c.Request.RemoteAddr != "" {
		return c.Request.RemoteAddr
	}

	return "unknown"
}
