package quote

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// DefaultQuoteTTL is how long a cached snapshot stays routable.
const DefaultQuoteTTL = 2 * time.Second

// Cache holds the latest accepted snapshot per (venue, symbol). Updates
// enforce sequence monotonicity: a snapshot whose sequence is not greater
// than the cached one is dropped. Snapshots from offline venues are also
// dropped unless they arrive through a recovery probe.
type Cache struct {
	mu      sync.RWMutex
	quotes  map[string]map[string]*types.VenueQuote // symbol -> venue -> quote
	ttl     time.Duration
	tracker *Tracker
	logger  *logrus.Entry
	now     func() time.Time
}

// NewCache creates a cache bound to a health tracker.
func NewCache(tracker *Tracker, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &Cache{
		quotes:  make(map[string]map[string]*types.VenueQuote),
		ttl:     ttl,
		tracker: tracker,
		logger:  logrus.WithField("component", "quote-cache"),
		now:     time.Now,
	}
}

// Update stores a snapshot if it passes the sequence and liveness checks.
// probe marks a quote fetched through an offline-venue recovery probe,
// which is admitted so the venue can rejoin routing. Returns whether the
// snapshot was accepted.
func (c *Cache) Update(q *types.VenueQuote, probe bool) bool {
	if q == nil || q.Symbol == "" || q.Venue == "" {
		return false
	}
	if !probe && c.tracker.Status(q.Venue) == types.VenueStatusOffline {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byVenue, ok := c.quotes[q.Symbol]
	if !ok {
		byVenue = make(map[string]*types.VenueQuote)
		c.quotes[q.Symbol] = byVenue
	}

	if prev, ok := byVenue[q.Venue]; ok && q.Sequence <= prev.Sequence {
		c.logger.WithFields(logrus.Fields{
			"venue":  q.Venue,
			"symbol": q.Symbol,
			"seq":    q.Sequence,
			"cached": prev.Sequence,
		}).Debug("dropped out-of-order snapshot")
		return false
	}

	byVenue[q.Venue] = q
	return true
}

// Get returns the routable snapshots for a symbol: fresh, from venues
// that are not offline. The caller owns the returned slice.
func (c *Cache) Get(symbol string) []*types.VenueQuote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byVenue, ok := c.quotes[symbol]
	if !ok {
		return nil
	}

	cutoff := c.now().Add(-c.ttl)
	out := make([]*types.VenueQuote, 0, len(byVenue))
	for venue, q := range byVenue {
		if q.CapturedAt.Before(cutoff) {
			continue
		}
		if c.tracker.Status(venue) == types.VenueStatusOffline {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Venue returns the cached snapshot for one (venue, symbol), regardless
// of freshness.
func (c *Cache) Venue(venue, symbol string) (*types.VenueQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byVenue, ok := c.quotes[symbol]
	if !ok {
		return nil, false
	}
	q, ok := byVenue[venue]
	return q, ok
}

// Purge drops all snapshots for a venue, across symbols.
func (c *Cache) Purge(venue string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, byVenue := range c.quotes {
		delete(byVenue, venue)
	}
}
