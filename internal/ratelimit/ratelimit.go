// Package ratelimit restricts the number of requests a single client may send
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client IP. A client may send the configured number of requests in a burst; the
// bucket refills evenly over the window.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	// Proxies whose X-Forwarded-For header is believed
	proxies []*net.IPNet
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing requests per window for each client. Returns nil if requests is not positive.
func New(requests int, window time.Duration) *Limiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{
		limiters: map[string]*entry{},
		rate:     rate.Every(window / time.Duration(requests)),
		burst:    requests,
		ttl:      window,
		now:      time.Now,
	}
}

// Allow checks if the client may send another request now
func (l *Limiter) Allow(client string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.limiters[client]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[client] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Cleanup forgets clients that have not been seen for a whole window - their buckets are full again anyway
func (l *Limiter) Cleanup() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.ttl)
	for client, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, client)
		}
	}
}

// Clients returns the number of clients currently tracked
func (l *Limiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// TrustProxies sets the proxies allowed to name the client in the X-Forwarded-For header. Entries are IP addresses
// or CIDR networks. Without trusted proxies the header is ignored.
func (l *Limiter) TrustProxies(proxies []string) error {
	if l == nil {
		return nil
	}
	nets := make([]*net.IPNet, 0, len(proxies))
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return errors.Errorf("TrustProxies: illegal proxy address '%s'", p)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return errors.Wrapf(err, "TrustProxies: illegal proxy network '%s'", p)
		}
		nets = append(nets, n)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proxies = nets
	return nil
}

func (l *Limiter) trusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the IP address of the client sending the request. The X-Forwarded-For header is only followed
// while the request passed trusted proxies: the rightmost entry not being a trusted proxy is the client.
func (l *Limiter) ClientIP(r *http.Request) string {
	client := remoteHost(r)
	if l == nil || !l.trusted(client) {
		return client
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			break
		}
		client = hop
		if !l.trusted(hop) {
			break
		}
	}
	return client
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
