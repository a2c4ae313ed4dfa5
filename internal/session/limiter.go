package session

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterMaxEntries = 10000
	limiterEntryTTL   = time.Hour
)

// loginLimiter throttles sign-in attempts per email address. Exhausted
// budgets surface as the provider's too-many-requests code.
type loginLimiter struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newLoginLimiter allows burst attempts immediately, refilled at r per second.
func newLoginLimiter(r rate.Limit, burst int) *loginLimiter {
	return &loginLimiter{
		rate:    r,
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow reports whether another attempt for the email may proceed.
func (l *loginLimiter) Allow(email string) bool {
	key := strings.ToLower(strings.TrimSpace(email))

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= limiterMaxEntries {
			l.prune()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// prune drops entries idle past the TTL. Caller holds the lock.
func (l *loginLimiter) prune() {
	cutoff := time.Now().Add(-limiterEntryTTL)
	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
