package bot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle decides whether a chat may be served right now.
type Throttle interface {
	Allow(ctx context.Context, chatID int64) bool
}

const maxTrackedChats = 10000

// MemoryThrottle is a per-process token bucket per chat.
type MemoryThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	limiters map[int64]*chatLimiter
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryThrottle allows perMinute messages per chat with the same burst.
// A non-positive perMinute disables throttling.
func NewMemoryThrottle(perMinute int) *MemoryThrottle {
	t := &MemoryThrottle{
		idle:     10 * time.Minute,
		now:      time.Now,
		limiters: make(map[int64]*chatLimiter),
	}
	if perMinute > 0 {
		t.limit = rate.Limit(float64(perMinute) / 60)
		t.burst = perMinute
	}
	return t
}

func (t *MemoryThrottle) Allow(_ context.Context, chatID int64) bool {
	if t.burst == 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.limiters[chatID]
	if !ok {
		if len(t.limiters) >= maxTrackedChats {
			t.evictIdle(now)
		}
		entry = &chatLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[chatID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (t *MemoryThrottle) evictIdle(now time.Time) {
	for id, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > t.idle {
			delete(t.limiters, id)
		}
	}
}
