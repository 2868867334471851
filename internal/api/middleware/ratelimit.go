package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
	"github.com/Togather-Foundation/eventdesk/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	TierAdmin  RateLimitTier = "admin"
	TierLogin  RateLimitTier = "login"
)

const (
	limiterIdleTTL   = 15 * time.Minute
	limiterSweepEach = 5 * time.Minute
)

type rateLimitKey string

const rateLimitTierKey rateLimitKey = "rateLimitTier"

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

// WithRateLimitTierHandler tags requests with tier for a RateLimit further
// down the chain.
func WithRateLimitTierHandler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithRateLimitTier(r.Context(), tier)))
		})
	}
}

func tierFrom(ctx context.Context) RateLimitTier {
	if tier, ok := ctx.Value(rateLimitTierKey).(RateLimitTier); ok {
		return tier
	}
	return TierPublic
}

// tierPolicy allows burst requests per window, refilled evenly.
type tierPolicy struct {
	burst  int
	window time.Duration
}

func (p tierPolicy) enabled() bool { return p.burst > 0 }

func (p tierPolicy) interval() time.Duration {
	return p.window / time.Duration(p.burst)
}

func (p tierPolicy) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(p.interval().Seconds())))
}

// RateLimit throttles each client per tier. A tier configured with a zero
// limit is not throttled.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	store := newLimiterStore(map[RateLimitTier]tierPolicy{
		TierPublic: {burst: cfg.PublicPerMinute, window: time.Minute},
		TierAdmin:  {burst: cfg.AdminPerMinute, window: time.Minute},
		TierLogin:  {burst: cfg.LoginPer15Minutes, window: 15 * time.Minute},
	})
	proxies := parseProxyCIDRs(cfg.TrustedProxyCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := tierFrom(r.Context())
			policy := store.policies[tier]
			if !policy.enabled() {
				next.ServeHTTP(w, r)
				return
			}

			if !store.allow(tier, clientKey(r, proxies), time.Now()) {
				w.Header().Set("Retry-After", policy.retryAfter())
				envelope.Error(w, r, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one limiter per tier and client. Idle entries are
// swept during calls to allow.
type limiterStore struct {
	policies map[RateLimitTier]tierPolicy

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterStore(policies map[RateLimitTier]tierPolicy) *limiterStore {
	return &limiterStore{
		policies:  policies,
		entries:   make(map[string]*limiterEntry),
		lastSweep: time.Now(),
	}
}

func (s *limiterStore) allow(tier RateLimitTier, client string, now time.Time) bool {
	key := string(tier) + "|" + client

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= limiterSweepEach {
		s.sweep(now)
	}

	entry, ok := s.entries[key]
	if !ok {
		policy := s.policies[tier]
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(policy.interval()), policy.burst)}
		s.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *limiterStore) sweep(now time.Time) {
	for key, entry := range s.entries {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}

func parseProxyCIDRs(cidrs []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, raw := range cidrs {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes
}

// clientKey identifies the caller. Forwarding headers are only honoured when
// the connection comes from a trusted proxy.
func clientKey(r *http.Request, trusted []netip.Prefix) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	if !fromTrustedProxy(remote, trusted) {
		return remote
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remote
}

func fromTrustedProxy(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
