package rpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

// IPLimiter keeps one token bucket per client IP.
type IPLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewIPLimiter returns a limiter allowing rps requests per second per IP with
// the given burst. A zero rps disables limiting.
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	return &IPLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether ip may make another request now.
func (l *IPLimiter) Allow(ip string) bool {
	if l == nil || l.rate <= 0 {
		return true
	}
	return l.get(ip).Allow()
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[ip]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limiters[ip]; ok {
		return lim
	}
	if len(l.limiters) >= maxTrackedClients {
		l.limiters = make(map[string]*rate.Limiter)
	}
	lim = rate.NewLimiter(l.rate, l.burst)
	l.limiters[ip] = lim
	return lim
}

// RateLimit throttles a procedure per client IP.
func RateLimit(l *IPLimiter) Middleware {
	return func(ctx context.Context, c *Call) (context.Context, error) {
		if c.Request != nil && !l.Allow(ClientIP(c.Request)) {
			logger.Warn("rate limit exceeded", "path", c.Path, "ip", ClientIP(c.Request))
			return ctx, Errorf(CodeTooManyRequests, "Too many requests. Please wait a moment and try again.")
		}
		return ctx, nil
	}
}

var trustedProxies atomic.Pointer[[]*net.IPNet]

// SetTrustedProxies sets the networks whose forwarding headers ClientIP
// honours. With none configured the headers are ignored.
func SetTrustedProxies(cidrs []string) error {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			if ip := net.ParseIP(c); ip != nil && ip.To4() != nil {
				c += "/32"
			} else {
				c += "/128"
			}
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", c, err)
		}
		nets = append(nets, n)
	}
	trustedProxies.Store(&nets)
	return nil
}

func trusted(ip string) bool {
	nets := trustedProxies.Load()
	if nets == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range *nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the remote address host. When the peer is a trusted
// proxy, the right-most X-Forwarded-For hop that is not itself a trusted
// proxy is used instead, then X-Real-IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !trusted(host) {
		return host
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" || net.ParseIP(hop) == nil {
				break
			}
			if !trusted(hop) {
				return hop
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	return host
}
