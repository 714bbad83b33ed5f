package httpapi

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles inbound webhook events per user, per channel and
// globally. A scope with a zero budget is skipped entirely.
type RateLimiter struct {
	user    *scopedLimiter
	channel *scopedLimiter
	global  *rate.Limiter
}

type scopedLimiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

func newScopedLimiter(perMinute int) *scopedLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &scopedLimiter{
		m:     make(map[string]*rate.Limiter),
		rate:  rate.Limit(float64(perMinute) / 60.0),
		burst: perMinute,
	}
}

func (s *scopedLimiter) allow(key string) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.m[key]
	if !ok {
		lim = rate.NewLimiter(s.rate, s.burst)
		s.m[key] = lim
	}
	return lim.Allow()
}

// NewRateLimiter constructs a composite limiter with per-user, per-channel
// and global budgets in events per minute. Returns nil when every budget is
// zero so callers can skip the check.
func NewRateLimiter(userPerMinute, channelPerMinute, globalPerMinute int) *RateLimiter {
	if userPerMinute <= 0 && channelPerMinute <= 0 && globalPerMinute <= 0 {
		return nil
	}
	r := &RateLimiter{
		user:    newScopedLimiter(userPerMinute),
		channel: newScopedLimiter(channelPerMinute),
	}
	if globalPerMinute > 0 {
		r.global = rate.NewLimiter(rate.Limit(float64(globalPerMinute)/60.0), globalPerMinute)
	}
	return r
}

// Allow reports whether an event from the given user and channel fits in
// every configured budget.
func (r *RateLimiter) Allow(userID, channelID string) bool {
	if r.global != nil && !r.global.Allow() {
		return false
	}
	if !r.user.allow(userID) {
		return false
	}
	return r.channel.allow(channelID)
}
