package signal

import (
	"sync"
	"time"

	"github.com/dkeye/carecall/internal/domain"
)

// RateLimiter caps call-requests per user within a sliding window.
// A non-positive limit disables it.
type RateLimiter struct {
	mu     sync.Mutex
	calls  map[domain.UserID][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		calls:  make(map[domain.UserID][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records an attempt by uid and reports whether it fits the window.
// Rejected attempts are not recorded.
func (rl *RateLimiter) Allow(uid domain.UserID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	kept := rl.calls[uid][:0]
	for _, at := range rl.calls[uid] {
		if now.Sub(at) < rl.window {
			kept = append(kept, at)
		}
	}
	if len(kept) >= rl.limit {
		rl.calls[uid] = kept
		return false
	}
	rl.calls[uid] = append(kept, now)
	return true
}

// Forget drops the history of uid once it leaves the relay.
func (rl *RateLimiter) Forget(uid domain.UserID) {
	rl.mu.Lock()
	delete(rl.calls, uid)
	rl.mu.Unlock()
}
