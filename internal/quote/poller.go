package quote

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/venue"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// DefaultRefreshInterval is the default per-tick polling cadence.
const DefaultRefreshInterval = 500 * time.Millisecond

// PublishFunc receives every accepted snapshot, typically to fan it out
// on the message bus.
type PublishFunc func(q *types.VenueQuote)

// Poller refreshes venue snapshots on a fixed cadence. Each (venue,
// symbol) fetch runs in its own goroutine per tick; a slow venue delays
// only itself. Offline venues are skipped except for cool-down probes.
type Poller struct {
	registry *venue.Registry
	cache    *Cache
	tracker  *Tracker
	symbols  []string
	interval time.Duration
	publish  PublishFunc
	logger   *logrus.Entry

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPoller creates a poller over the registered venues.
func NewPoller(registry *venue.Registry, cache *Cache, tracker *Tracker, symbols []string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Poller{
		registry: registry,
		cache:    cache,
		tracker:  tracker,
		symbols:  symbols,
		interval: interval,
		logger:   logrus.WithField("component", "quote-poller"),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// OnQuote registers a sink for accepted snapshots. Must be called before
// Start.
func (p *Poller) OnQuote(fn PublishFunc) {
	p.publish = fn
}

// Start runs the polling loop until Stop is called or ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop terminates the loop and waits for in-flight fetches to finish.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	<-p.doneChan
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.WithFields(logrus.Fields{
		"interval": p.interval.String(),
		"symbols":  p.symbols,
	}).Info("quote poller started")

	// Prime the cache immediately instead of waiting one interval.
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range p.registry.Names() {
		probe := false
		if p.tracker.Status(name) == types.VenueStatusOffline {
			if !p.tracker.ShouldProbe(name) {
				continue
			}
			probe = true
		}

		adapter, err := p.registry.Get(name)
		if err != nil {
			continue
		}

		for _, symbol := range p.symbols {
			wg.Add(1)
			go func(a venue.Adapter, symbol string, probe bool) {
				defer wg.Done()
				p.fetch(ctx, a, symbol, probe)
			}(adapter, symbol, probe)
		}
	}
	wg.Wait()
}

func (p *Poller) fetch(ctx context.Context, a venue.Adapter, symbol string, probe bool) {
	q, err := a.FetchQuote(ctx, symbol)
	if err != nil {
		// Failures already reached the health tracker through the adapter.
		p.logger.WithFields(logrus.Fields{
			"venue":  a.Name(),
			"symbol": symbol,
		}).WithError(err).Debug("snapshot fetch failed")
		return
	}

	if !p.cache.Update(q, probe) {
		return
	}
	if p.publish != nil {
		p.publish(q)
	}
}
