package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// HTTPTransport speaks a generic JSON depth/order API. Venues exposing a
// different wire format get their own Transport; pacing, retries and
// health are handled by BaseAdapter either way.
type HTTPTransport struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPTransport builds a transport for one venue endpoint.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	return &HTTPTransport{
		name:     cfg.Name,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{}, // per-call deadlines come from the caller's context
	}
}

type depthResponse struct {
	Symbol   string      `json:"symbol"`
	Bids     [][2]string `json:"bids"` // [price, quantity]
	Asks     [][2]string `json:"asks"`
	Sequence uint64      `json:"sequence"`
	Ts       int64       `json:"ts"` // unix millis
}

type orderResponse struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	FilledQty    string `json:"filled_qty"`
	AvgPrice     string `json:"avg_price"`
	Fee          string `json:"fee"`
	TransactTime int64  `json:"transact_time"`
}

// FetchQuote retrieves the venue's current book snapshot for a symbol.
func (t *HTTPTransport) FetchQuote(ctx context.Context, symbol string) (*types.VenueQuote, error) {
	u := fmt.Sprintf("%s/api/v1/depth?symbol=%s", t.endpoint, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}
	t.sign(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := t.checkStatus(resp); err != nil {
		return nil, err
	}

	var body depthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}

	bids, err := parseLevels(body.Bids)
	if err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}
	asks, err := parseLevels(body.Asks)
	if err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}

	captured := time.Now()
	if body.Ts > 0 {
		captured = time.UnixMilli(body.Ts)
	}

	return &types.VenueQuote{
		Venue:      t.name,
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		Sequence:   body.Sequence,
		CapturedAt: captured,
	}, nil
}

// PlaceOrder submits an IOC limit order carrying the idempotency token as
// the client order id, which the venue uses for replay deduplication.
func (t *HTTPTransport) PlaceOrder(ctx context.Context, order *OrderRequest) (*types.FillReport, error) {
	payload, err := json.Marshal(map[string]string{
		"symbol":          order.Symbol,
		"side":            order.Side,
		"type":            "LIMIT",
		"time_in_force":   "IOC",
		"price":           order.Price.String(),
		"quantity":        order.Quantity.String(),
		"client_order_id": order.IdempotencyToken,
	})
	if err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrRejected, err)
	}

	u := fmt.Sprintf("%s/api/v1/order", t.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	t.sign(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := t.checkStatus(resp); err != nil {
		return nil, err
	}

	var body orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}

	filled, err := decimal.NewFromString(body.FilledQty)
	if err != nil {
		return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
	}
	avg := decimal.Zero
	if body.AvgPrice != "" {
		if avg, err = decimal.NewFromString(body.AvgPrice); err != nil {
			return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
		}
	}
	fee := decimal.Zero
	if body.Fee != "" {
		if fee, err = decimal.NewFromString(body.Fee); err != nil {
			return nil, types.NewVenueError(t.name, types.VenueErrUnavailable, err)
		}
	}

	report := &types.FillReport{
		Venue:          t.name,
		Symbol:         order.Symbol,
		OrderID:        body.OrderID,
		Status:         body.Status,
		FilledQuantity: filled,
		AvgFillPrice:   avg,
		Fee:            fee,
		TransactTime:   time.UnixMilli(body.TransactTime),
	}

	if body.Status == types.FillStatusRejected {
		return nil, types.NewVenueError(t.name, types.VenueErrRejected, fmt.Errorf("order rejected"))
	}
	return report, nil
}

func (t *HTTPTransport) sign(req *http.Request) {
	if t.apiKey != "" {
		req.Header.Set("X-API-Key", t.apiKey)
	}
}

func (t *HTTPTransport) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewVenueError(t.name, types.VenueErrRateLimited, fmt.Errorf("http %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return types.NewVenueError(t.name, types.VenueErrInvalidSymbol, fmt.Errorf("http %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return types.NewVenueError(t.name, types.VenueErrUnavailable, fmt.Errorf("http %d", resp.StatusCode))
	default:
		return types.NewVenueError(t.name, types.VenueErrRejected, fmt.Errorf("http %d", resp.StatusCode))
	}
}

func (t *HTTPTransport) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return types.NewVenueError(t.name, types.VenueErrTimeout, err)
	}
	return types.NewVenueError(t.name, types.VenueErrUnavailable, err)
}

func parseLevels(raw [][2]string) ([]types.PriceLevel, error) {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("bad price %q: %w", pair[0], err)
		}
		qty, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("bad quantity %q: %w", pair[1], err)
		}
		levels = append(levels, types.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}
