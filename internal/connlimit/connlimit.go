// Package connlimit guards a listener's accept loop against connection
// floods from a single source address. It is an admission check, not a
// protocol feature: it runs before a Session is constructed and has no
// interaction with any IRC command.
package connlimit

import (
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter tracks one token-bucket rate limiter per remote IP, evicting
// idle entries after ttl so long-lived servers don't accumulate an
// unbounded number of buckets for IPs that connected once and left.
type Limiter struct {
	buckets *cache.Cache
	rate    rate.Limit
	burst   int
}

// New creates a Limiter allowing ratePerSecond sustained connections per IP
// with burst allowed immediately, forgetting an IP's bucket after it has
// been idle for ttl.
func New(ratePerSecond float64, burst int, ttl time.Duration) *Limiter {
	return &Limiter{
		buckets: cache.New(ttl, 2*ttl),
		rate:    rate.Limit(ratePerSecond),
		burst:   burst,
	}
}

// Allow reports whether a new connection from ip should be admitted. It
// creates ip's bucket on first use.
func (l *Limiter) Allow(ip string) bool {
	return l.bucketFor(ip).Allow()
}

func (l *Limiter) bucketFor(ip string) *rate.Limiter {
	if v, ok := l.buckets.Get(ip); ok {
		l.buckets.SetDefault(ip, v) // restart the idle ttl on every use
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.rate, l.burst)
	l.buckets.SetDefault(ip, limiter)
	return limiter
}
