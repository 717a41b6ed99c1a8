package quote

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

const (
	// offlineAfter is the consecutive timeout/unavailable count that
	// transitions a venue offline.
	offlineAfter = 3

	// probeCooldown is the minimum gap between recovery probes against an
	// offline venue.
	probeCooldown = 5 * time.Second

	// latencyAlpha is the EWMA smoothing factor for rolling latency.
	latencyAlpha = 0.2
)

// TransitionFunc is invoked after a venue changes status. Called outside
// the tracker lock.
type TransitionFunc func(health types.VenueHealth)

// Tracker maintains per-venue health state. A venue is healthy until a
// timeout or unavailable error degrades it; offlineAfter consecutive such
// failures take it offline. Any successful call restores it to healthy.
// Offline venues are only called again through cool-down probes.
type Tracker struct {
	mu       sync.RWMutex
	venues   map[string]*venueState
	onChange TransitionFunc
	logger   *logrus.Entry
	now      func() time.Time
}

type venueState struct {
	health    types.VenueHealth
	lastProbe time.Time
}

// NewTracker creates a tracker with all venues starting healthy.
func NewTracker(venues []string) *Tracker {
	t := &Tracker{
		venues: make(map[string]*venueState, len(venues)),
		logger: logrus.WithField("component", "health"),
		now:    time.Now,
	}
	for _, name := range venues {
		t.venues[name] = &venueState{
			health: types.VenueHealth{
				Venue:          name,
				Status:         types.VenueStatusHealthy,
				LastTransition: t.now(),
			},
		}
	}
	return t
}

// OnTransition registers a callback fired on every status change.
func (t *Tracker) OnTransition(fn TransitionFunc) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// MarkSuccess records a successful call and restores the venue to healthy.
func (t *Tracker) MarkSuccess(venue string, latency time.Duration) {
	t.mu.Lock()
	st := t.state(venue)
	st.health.ConsecutiveFailures = 0
	st.health.LastSuccess = t.now()
	if st.health.RollingLatency == 0 {
		st.health.RollingLatency = latency
	} else {
		st.health.RollingLatency = time.Duration(
			latencyAlpha*float64(latency) + (1-latencyAlpha)*float64(st.health.RollingLatency))
	}
	changed := t.transition(st, types.VenueStatusHealthy)
	fn, snap := t.onChange, st.health
	t.mu.Unlock()

	if changed && fn != nil {
		fn(snap)
	}
}

// MarkFailure records a failed call. Deterministic failures (rejections,
// invalid symbols) do not count toward the offline threshold.
func (t *Tracker) MarkFailure(venue string, kind types.VenueErrorKind) {
	if !types.CountsTowardOffline(kind) {
		return
	}

	t.mu.Lock()
	st := t.state(venue)
	st.health.ConsecutiveFailures++

	next := types.VenueStatusDegraded
	if st.health.ConsecutiveFailures >= offlineAfter {
		next = types.VenueStatusOffline
	}
	changed := t.transition(st, next)
	fn, snap := t.onChange, st.health
	t.mu.Unlock()

	if changed && fn != nil {
		fn(snap)
	}
}

// Status returns the current status of a venue. Unknown venues report
// offline so callers never route to an untracked name.
func (t *Tracker) Status(venue string) types.VenueStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.venues[venue]
	if !ok {
		return types.VenueStatusOffline
	}
	return st.health.Status
}

// Health returns the full health record for a venue.
func (t *Tracker) Health(venue string) (types.VenueHealth, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.venues[venue]
	if !ok {
		return types.VenueHealth{}, false
	}
	return st.health, true
}

// Snapshot returns the health of every tracked venue.
func (t *Tracker) Snapshot() []types.VenueHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.VenueHealth, 0, len(t.venues))
	for _, st := range t.venues {
		out = append(out, st.health)
	}
	return out
}

// ShouldProbe reports whether an offline venue is due a recovery probe,
// and if so claims the probe slot. Healthy and degraded venues are polled
// normally and never probed.
func (t *Tracker) ShouldProbe(venue string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.venues[venue]
	if !ok || st.health.Status != types.VenueStatusOffline {
		return false
	}
	now := t.now()
	if now.Sub(st.lastProbe) < probeCooldown {
		return false
	}
	st.lastProbe = now
	return true
}

// state fetches or lazily creates a venue record. Callers hold the lock.
func (t *Tracker) state(venue string) *venueState {
	st, ok := t.venues[venue]
	if !ok {
		st = &venueState{
			health: types.VenueHealth{
				Venue:          venue,
				Status:         types.VenueStatusHealthy,
				LastTransition: t.now(),
			},
		}
		t.venues[venue] = st
	}
	return st
}

// transition applies a status change. Callers hold the lock.
func (t *Tracker) transition(st *venueState, next types.VenueStatus) bool {
	if st.health.Status == next {
		return false
	}
	prev := st.health.Status
	st.health.Status = next
	st.health.LastTransition = t.now()

	t.logger.WithFields(logrus.Fields{
		"venue": st.health.Venue,
		"from":  string(prev),
		"to":    string(next),
	}).Info("venue status changed")
	return true
}
