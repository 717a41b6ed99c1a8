package book

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// Level is one price level of the aggregated book, attributed to the
// venue that posted it. Same-price levels from different venues stay
// distinct so the allocator can split across them.
type Level struct {
	Venue    string          `json:"venue"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Book is an immutable merged view of one side of a symbol's liquidity
// across venues, ordered best-first.
type Book struct {
	Symbol  string     `json:"symbol"`
	Side    types.Side `json:"side"`
	Levels  []Level    `json:"levels"`
	Venues  []string   `json:"venues"`
	BuiltAt time.Time  `json:"built_at"`
}

// TotalDepth sums the quantity across all levels.
func (b *Book) TotalDepth() decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range b.Levels {
		total = total.Add(lvl.Quantity)
	}
	return total
}

// BestPrice returns the top-of-book price, or false on an empty book.
func (b *Book) BestPrice() (decimal.Decimal, bool) {
	if len(b.Levels) == 0 {
		return decimal.Zero, false
	}
	return b.Levels[0].Price, true
}

// DepthWithin returns the quantity available at or better than the given
// price for this book's side.
func (b *Book) DepthWithin(limit decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range b.Levels {
		if b.Side == types.SideBuy && lvl.Price.GreaterThan(limit) {
			break
		}
		if b.Side == types.SideSell && lvl.Price.LessThan(limit) {
			break
		}
		total = total.Add(lvl.Quantity)
	}
	return total
}

// Summary describes the merged liquidity picture for a symbol: top of
// book, spread and the per-venue share of total depth.
type Summary struct {
	Symbol       string                     `json:"symbol"`
	BestBid      decimal.Decimal            `json:"best_bid"`
	BestAsk      decimal.Decimal            `json:"best_ask"`
	Spread       decimal.Decimal            `json:"spread"`
	MidPrice     decimal.Decimal            `json:"mid_price"`
	BidDepth     decimal.Decimal            `json:"bid_depth"`
	AskDepth     decimal.Decimal            `json:"ask_depth"`
	Distribution map[string]decimal.Decimal `json:"distribution"` // venue -> share of total depth
	BuiltAt      time.Time                  `json:"built_at"`
}

// Summarize derives metrics from a bid book and an ask book for the same
// symbol.
func Summarize(bids, asks *Book) *Summary {
	s := &Summary{
		Symbol:       bids.Symbol,
		BidDepth:     bids.TotalDepth(),
		AskDepth:     asks.TotalDepth(),
		Distribution: make(map[string]decimal.Decimal),
		BuiltAt:      time.Now(),
	}

	bestBid, hasBid := bids.BestPrice()
	bestAsk, hasAsk := asks.BestPrice()
	if hasBid {
		s.BestBid = bestBid
	}
	if hasAsk {
		s.BestAsk = bestAsk
	}
	if hasBid && hasAsk {
		s.Spread = bestAsk.Sub(bestBid)
		s.MidPrice = bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))
	}

	total := s.BidDepth.Add(s.AskDepth)
	if total.IsZero() {
		return s
	}
	perVenue := make(map[string]decimal.Decimal)
	for _, lvl := range bids.Levels {
		perVenue[lvl.Venue] = perVenue[lvl.Venue].Add(lvl.Quantity)
	}
	for _, lvl := range asks.Levels {
		perVenue[lvl.Venue] = perVenue[lvl.Venue].Add(lvl.Quantity)
	}
	for venue, depth := range perVenue {
		s.Distribution[venue] = depth.Div(total)
	}
	return s
}
