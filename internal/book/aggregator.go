package book

import (
	"container/heap"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/quote"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// PriorityFunc resolves a venue's routing priority. Lower wins the
// equal-price tie-break.
type PriorityFunc func(venue string) int

// Engine merges per-venue snapshots into a single attributed book. The
// merge is a k-way heap walk over already-sorted venue levels, so output
// order is deterministic for a fixed set of inputs: price first, then
// venue priority, then venue name.
type Engine struct {
	cache    *quote.Cache
	priority PriorityFunc
	logger   *logrus.Entry
}

// NewEngine creates an aggregation engine over the quote cache.
func NewEngine(cache *quote.Cache, priority PriorityFunc) *Engine {
	if priority == nil {
		priority = func(string) int { return 0 }
	}
	return &Engine{
		cache:    cache,
		priority: priority,
		logger:   logrus.WithField("component", "book"),
	}
}

// Build merges the routable snapshots for a symbol into one side of the
// aggregated book. Venues in exclude are left out. An empty book is a
// valid result, not an error.
func (e *Engine) Build(symbol string, side types.Side, exclude map[string]bool) *Book {
	quotes := e.cache.Get(symbol)

	h := make(mergeHeap, 0, len(quotes))
	venues := make([]string, 0, len(quotes))
	for _, q := range quotes {
		if exclude[q.Venue] {
			continue
		}
		levels := q.Levels(side)
		if len(levels) == 0 {
			continue
		}
		venues = append(venues, q.Venue)
		h = append(h, &mergeSource{
			venue:    q.Venue,
			priority: e.priority(q.Venue),
			buy:      side == types.SideBuy,
			levels:   levels,
		})
	}
	sort.Strings(venues)
	heap.Init(&h)

	book := &Book{
		Symbol:  symbol,
		Side:    side,
		Venues:  venues,
		BuiltAt: time.Now(),
	}
	for h.Len() > 0 {
		src := h[0]
		lvl := src.levels[src.idx]
		if lvl.Quantity.IsPositive() {
			book.Levels = append(book.Levels, Level{
				Venue:    src.venue,
				Price:    lvl.Price,
				Quantity: lvl.Quantity,
			})
		}
		src.idx++
		if src.idx < len(src.levels) {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	return book
}

// Summarize builds both sides and derives the liquidity summary.
func (e *Engine) Summarize(symbol string) *Summary {
	bids := e.Build(symbol, types.SideSell, nil)
	asks := e.Build(symbol, types.SideBuy, nil)
	return Summarize(bids, asks)
}

// mergeSource is one venue's sorted level stream inside the merge heap.
type mergeSource struct {
	venue    string
	priority int
	buy      bool
	levels   []types.PriceLevel
	idx      int
}

type mergeHeap []*mergeSource

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].levels[h[i].idx], h[j].levels[h[j].idx]
	if !a.Price.Equal(b.Price) {
		if h[i].buy {
			return a.Price.LessThan(b.Price)
		}
		return a.Price.GreaterThan(b.Price)
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].venue < h[j].venue
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*mergeSource)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	src := old[n-1]
	*h = old[:n-1]
	return src
}
