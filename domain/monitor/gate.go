package monitor

import (
	"sync"
	"time"
)

// FireDecision is the outcome of asking the gate about one actionable detection.
type FireDecision int

const (
	Fire FireDecision = iota
	SuppressDuplicate
)

func (d FireDecision) String() string {
	if d == Fire {
		return "fire"
	}
	return "suppress-duplicate"
}

// DefaultCooldown rate-limits notifications to roughly one per several
// capture intervals when a phone stays in view.
const DefaultCooldown = 8 * time.Second

// NotificationGate rate-limits user-facing notifications by time. It keeps no
// spatial identity across frames: once the cooldown elapses any actionable
// detection fires again, even if it is the same phone.
type NotificationGate struct {
	mu        sync.Mutex
	cooldown  time.Duration
	lastFired time.Time
}

// NewNotificationGate returns a gate with the given cooldown. A non-positive
// cooldown falls back to DefaultCooldown.
func NewNotificationGate(cooldown time.Duration) *NotificationGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &NotificationGate{cooldown: cooldown}
}

// Consider decides whether a notification at time now should fire. The first
// call of a session always fires; later calls fire only after the cooldown
// has elapsed since the last fired notification.
func (g *NotificationGate) Consider(now time.Time) FireDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lastFired.IsZero() && now.Sub(g.lastFired) < g.cooldown {
		return SuppressDuplicate
	}
	g.lastFired = now
	return Fire
}

// Reset clears the fired-notification memory. Called at session start.
func (g *NotificationGate) Reset() {
	g.mu.Lock()
	g.lastFired = time.Time{}
	g.mu.Unlock()
}
