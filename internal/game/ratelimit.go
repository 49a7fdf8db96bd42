package game

import (
	"sync"
	"time"
)

// Limit is one action type's sliding-window budget: at most Max actions per
// Interval.
type Limit struct {
	Interval time.Duration
	Max      int
}

// DefaultLimits are the per-action budgets. Placement actions get tight
// windows since they are the spammable ones; meta actions get looser ones.
var DefaultLimits = map[ActionType]Limit{
	ActionTowerPlace:          {Interval: 200 * time.Millisecond, Max: 10},
	ActionTowerUpgrade:        {Interval: 100 * time.Millisecond, Max: 20},
	ActionTowerSell:           {Interval: 100 * time.Millisecond, Max: 20},
	ActionMazePlace:           {Interval: 50 * time.Millisecond, Max: 20},
	ActionMazeRemove:          {Interval: 50 * time.Millisecond, Max: 20},
	ActionGameReady:           {Interval: time.Second, Max: 5},
	ActionGamePhaseTransition: {Interval: time.Second, Max: 5},
}

// RetentionHorizon bounds how long rate-limit history is kept, independent of
// the per-type windows. Prune discards anything older.
const RetentionHorizon = 10 * time.Second

type limiterKey struct {
	playerID string
	action   ActionType
}

// RateLimiter tracks recent action timestamps per (player, action type).
// Records are created lazily on first action and dropped by Prune or when a
// player is forgotten.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[ActionType]Limit
	history map[limiterKey][]time.Time
	now     func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock injects a clock, letting tests advance virtual time instead of
// sleeping.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// WithLimits overrides the per-action budgets.
func WithLimits(limits map[ActionType]Limit) RateLimiterOption {
	return func(r *RateLimiter) {
		r.limits = limits
	}
}

// NewRateLimiter creates a limiter with the default budgets and wall clock.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limits:  DefaultLimits,
		history: make(map[limiterKey][]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow reports whether the player may perform the action right now: true
// when the count of recorded timestamps inside the action's window is below
// its Max. Allow does not record; the processor records separately so that
// even actions failing later validation still count against the budget.
func (r *RateLimiter) Allow(playerID string, action ActionType) bool {
	limit, ok := r.limits[action]
	if !ok {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-limit.Interval)
	key := limiterKey{playerID: playerID, action: action}

	count := 0
	for _, ts := range r.history[key] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count < limit.Max
}

// Record appends the current timestamp to the player's history for the
// action, pruning entries that have aged past the action's own window on the
// way.
func (r *RateLimiter) Record(playerID string, action ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := limiterKey{playerID: playerID, action: action}

	kept := r.history[key]
	if limit, ok := r.limits[action]; ok {
		cutoff := now.Add(-limit.Interval)
		kept = kept[:0]
		for _, ts := range r.history[key] {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
	}
	r.history[key] = append(kept, now)
}

// Prune drops all history older than the retention horizon. It is the coarse
// housekeeping pass that bounds memory regardless of per-type windows.
func (r *RateLimiter) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-RetentionHorizon)
	for key, times := range r.history {
		kept := times[:0]
		for _, ts := range times {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(r.history, key)
		} else {
			r.history[key] = kept
		}
	}
}

// Forget drops all history for a player, e.g. on disconnect.
func (r *RateLimiter) Forget(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.history {
		if key.playerID == playerID {
			delete(r.history, key)
		}
	}
}
