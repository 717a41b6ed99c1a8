package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/quote"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func level(price, qty string) types.PriceLevel {
	return types.PriceLevel{Price: d(price), Quantity: d(qty)}
}

func seedCache(t *testing.T, quotes ...*types.VenueQuote) *quote.Cache {
	t.Helper()
	venues := make([]string, 0, len(quotes))
	for _, q := range quotes {
		venues = append(venues, q.Venue)
	}
	tracker := quote.NewTracker(venues)
	cache := quote.NewCache(tracker, time.Minute)
	for _, q := range quotes {
		assert.True(t, cache.Update(q, false))
	}
	return cache
}

func askQuote(venue string, levels ...types.PriceLevel) *types.VenueQuote {
	return &types.VenueQuote{
		Venue:      venue,
		Symbol:     "BTC/USDT",
		Asks:       levels,
		Sequence:   1,
		CapturedAt: time.Now(),
	}
}

func TestBuildMergesBestFirst(t *testing.T) {
	cache := seedCache(t,
		askQuote("venue-a", level("10.00", "100"), level("10.05", "200")),
		askQuote("venue-b", level("10.01", "50")),
	)
	engine := NewEngine(cache, nil)

	book := engine.Build("BTC/USDT", types.SideBuy, nil)

	assert.Len(t, book.Levels, 3)
	assert.Equal(t, Level{Venue: "venue-a", Price: d("10.00"), Quantity: d("100")}, book.Levels[0])
	assert.Equal(t, Level{Venue: "venue-b", Price: d("10.01"), Quantity: d("50")}, book.Levels[1])
	assert.Equal(t, Level{Venue: "venue-a", Price: d("10.05"), Quantity: d("200")}, book.Levels[2])
	assert.True(t, book.TotalDepth().Equal(d("350")))
}

func TestBuildKeepsSamePriceLevelsDistinct(t *testing.T) {
	cache := seedCache(t,
		askQuote("venue-a", level("10.00", "100")),
		askQuote("venue-b", level("10.00", "40")),
	)
	engine := NewEngine(cache, nil)

	book := engine.Build("BTC/USDT", types.SideBuy, nil)

	// Equal-price depth is never summed across venues.
	assert.Len(t, book.Levels, 2)
	assert.Equal(t, "venue-a", book.Levels[0].Venue)
	assert.Equal(t, "venue-b", book.Levels[1].Venue)
	assert.True(t, book.Levels[0].Quantity.Equal(d("100")))
	assert.True(t, book.Levels[1].Quantity.Equal(d("40")))
}

func TestBuildTieBreakPriorityThenName(t *testing.T) {
	cache := seedCache(t,
		askQuote("venue-a", level("10.00", "10")),
		askQuote("venue-b", level("10.00", "20")),
		askQuote("venue-c", level("10.00", "30")),
	)
	priorities := map[string]int{"venue-a": 2, "venue-b": 1, "venue-c": 1}
	engine := NewEngine(cache, func(v string) int { return priorities[v] })

	book := engine.Build("BTC/USDT", types.SideBuy, nil)

	got := []string{book.Levels[0].Venue, book.Levels[1].Venue, book.Levels[2].Venue}
	assert.Equal(t, []string{"venue-b", "venue-c", "venue-a"}, got)
}

func TestBuildSellSideDescending(t *testing.T) {
	cache := seedCache(t,
		&types.VenueQuote{
			Venue: "venue-a", Symbol: "BTC/USDT", Sequence: 1, CapturedAt: time.Now(),
			Bids: []types.PriceLevel{level("9.99", "100"), level("9.95", "50")},
		},
		&types.VenueQuote{
			Venue: "venue-b", Symbol: "BTC/USDT", Sequence: 1, CapturedAt: time.Now(),
			Bids: []types.PriceLevel{level("9.97", "70")},
		},
	)
	engine := NewEngine(cache, nil)

	book := engine.Build("BTC/USDT", types.SideSell, nil)

	assert.Len(t, book.Levels, 3)
	assert.True(t, book.Levels[0].Price.Equal(d("9.99")))
	assert.True(t, book.Levels[1].Price.Equal(d("9.97")))
	assert.True(t, book.Levels[2].Price.Equal(d("9.95")))
}

func TestBuildExcludesVenues(t *testing.T) {
	cache := seedCache(t,
		askQuote("venue-a", level("10.00", "100")),
		askQuote("venue-b", level("10.01", "50")),
	)
	engine := NewEngine(cache, nil)

	book := engine.Build("BTC/USDT", types.SideBuy, map[string]bool{"venue-a": true})

	assert.Len(t, book.Levels, 1)
	assert.Equal(t, "venue-b", book.Levels[0].Venue)
	assert.Equal(t, []string{"venue-b"}, book.Venues)
}

func TestBuildSkipsZeroQuantityLevels(t *testing.T) {
	cache := seedCache(t,
		askQuote("venue-a", level("10.00", "0"), level("10.02", "30")),
	)
	engine := NewEngine(cache, nil)

	book := engine.Build("BTC/USDT", types.SideBuy, nil)

	assert.Len(t, book.Levels, 1)
	assert.True(t, book.Levels[0].Price.Equal(d("10.02")))
}

func TestBuildEmptyBook(t *testing.T) {
	tracker := quote.NewTracker(nil)
	cache := quote.NewCache(tracker, time.Minute)
	engine := NewEngine(cache, nil)

	book := engine.Build("BTC/USDT", types.SideBuy, nil)

	assert.Empty(t, book.Levels)
	assert.True(t, book.TotalDepth().IsZero())
	_, ok := book.BestPrice()
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	cache := seedCache(t,
		&types.VenueQuote{
			Venue: "venue-a", Symbol: "BTC/USDT", Sequence: 1, CapturedAt: time.Now(),
			Bids: []types.PriceLevel{level("9.99", "60")},
			Asks: []types.PriceLevel{level("10.01", "90")},
		},
		&types.VenueQuote{
			Venue: "venue-b", Symbol: "BTC/USDT", Sequence: 1, CapturedAt: time.Now(),
			Bids: []types.PriceLevel{level("9.98", "50")},
		},
	)
	engine := NewEngine(cache, nil)

	s := engine.Summarize("BTC/USDT")

	assert.True(t, s.BestBid.Equal(d("9.99")))
	assert.True(t, s.BestAsk.Equal(d("10.01")))
	assert.True(t, s.Spread.Equal(d("0.02")))
	assert.True(t, s.MidPrice.Equal(d("10.00")))
	assert.True(t, s.BidDepth.Equal(d("110")))
	assert.True(t, s.AskDepth.Equal(d("90")))
	assert.True(t, s.Distribution["venue-a"].Equal(d("0.75")))
	assert.True(t, s.Distribution["venue-b"].Equal(d("0.25")))
}

func TestDepthWithin(t *testing.T) {
	book := &Book{
		Symbol: "BTC/USDT",
		Side:   types.SideBuy,
		Levels: []Level{
			{Venue: "venue-a", Price: d("10.00"), Quantity: d("100")},
			{Venue: "venue-b", Price: d("10.01"), Quantity: d("50")},
			{Venue: "venue-a", Price: d("10.05"), Quantity: d("200")},
		},
	}

	assert.True(t, book.DepthWithin(d("10.01")).Equal(d("150")))
	assert.True(t, book.DepthWithin(d("9.99")).IsZero())
	assert.True(t, book.DepthWithin(d("10.05")).Equal(d("350")))
}
