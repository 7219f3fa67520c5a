package mw

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/muster/internal/utils"
)

type RateLimitConfig struct {
	Burst             int           // requests allowed at once per IP
	RefillPerIPPerMin int           // tokens regained per minute
	MaxEntries        int           // tracked IPs before idle ones are swept (0 = no limit)
	SweepInterval     time.Duration // how often idle IPs are forgotten
	IdleTTL           time.Duration // idle time after which an IP is forgotten
	TrustProxy        bool          // resolve the IP from proxy headers
}

type bucket struct {
	tokens float64
	last   time.Time
}

// limiter is a per-IP token bucket.
type limiter struct {
	cfg       RateLimitConfig
	perSecond float64

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerIPPerMin < 1 {
		cfg.RefillPerIPPerMin = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	return &limiter{
		cfg:       cfg,
		perSecond: float64(cfg.RefillPerIPPerMin) / 60,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// take consumes one token for key. When none is left it returns how many
// seconds until the next one.
func (l *limiter) take(key string, now time.Time) (ok bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	full := now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries)
	if full {
		for k, b := range l.buckets {
			if now.Sub(b.last) > l.cfg.IdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, found := l.buckets[key]
	if !found {
		b = &bucket{tokens: float64(l.cfg.Burst), last: now}
		l.buckets[key] = b
	}

	b.tokens = min(float64(l.cfg.Burst), b.tokens+now.Sub(b.last).Seconds()*l.perSecond)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, max(1, int((1-b.tokens)/l.perSecond+0.999))
}

// RateLimit rejects callers that exceed cfg with 429 and a Retry-After header.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.take(utils.ClientIP(r, l.cfg.TrustProxy), time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
