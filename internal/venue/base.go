package venue

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// BaseAdapter wraps a Transport with the per-venue concerns every adapter
// shares: a token-bucket rate limiter, a bounded retry policy, per-call
// timeouts and health reporting. Each instance owns its limiter and
// connection state; nothing here is shared across venues.
type BaseAdapter struct {
	name      string
	transport Transport
	limiter   *rate.Limiter
	retry     RetryPolicy
	timeout   time.Duration
	health    HealthSink
	logger    *logrus.Entry
}

// NewBaseAdapter builds an adapter for one venue.
func NewBaseAdapter(cfg Config, transport Transport, health HealthSink) *BaseAdapter {
	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &BaseAdapter{
		name:      cfg.Name,
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		retry:     cfg.Retry,
		timeout:   timeout,
		health:    health,
		logger:    logrus.WithField("venue", cfg.Name),
	}
}

// Name returns the venue id.
func (a *BaseAdapter) Name() string {
	return a.name
}

// FetchQuote performs a single bounded round trip for a symbol snapshot.
// Transient transport failures come back as typed venue errors, never as
// raw network errors.
func (a *BaseAdapter) FetchQuote(ctx context.Context, symbol string) (*types.VenueQuote, error) {
	var quote *types.VenueQuote
	err := a.call(ctx, func(callCtx context.Context) error {
		q, err := a.transport.FetchQuote(callCtx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// PlaceOrder submits an allocation-sized order. The idempotency token is
// fixed before the first attempt so every retry replays the same client
// order id on the venue.
func (a *BaseAdapter) PlaceOrder(ctx context.Context, req *OrderRequest) (*types.FillReport, error) {
	if req.IdempotencyToken == "" {
		req.IdempotencyToken = uuid.NewString()
	}
	var report *types.FillReport
	err := a.call(ctx, func(callCtx context.Context) error {
		r, err := a.transport.PlaceOrder(callCtx, req)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// call runs one transport operation under the rate limiter, per-call
// timeout and retry policy, reporting every outcome to the health sink.
func (a *BaseAdapter) call(ctx context.Context, op func(context.Context) error) error {
	bo := backoff.WithContext(a.retry.newBackOff(), ctx)
	return backoff.Retry(func() error {
		if err := a.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(types.NewVenueError(a.name, types.VenueErrTimeout, err))
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		start := time.Now()
		err := op(callCtx)
		latency := time.Since(start)
		cancel()

		if err == nil {
			a.health.MarkSuccess(a.name, latency)
			return nil
		}

		verr := a.classify(err)
		a.health.MarkFailure(a.name, verr.Kind)
		a.logger.WithFields(logrus.Fields{
			"kind":       string(verr.Kind),
			"latency_ms": latency.Milliseconds(),
		}).Warn("venue call failed")

		if !types.IsRetryable(verr) {
			return backoff.Permanent(verr)
		}
		return verr
	}, bo)
}

// classify normalizes raw transport errors into typed venue errors.
func (a *BaseAdapter) classify(err error) *types.VenueError {
	var ve *types.VenueError
	if errors.As(err, &ve) {
		return ve
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewVenueError(a.name, types.VenueErrTimeout, err)
	}
	return types.NewVenueError(a.name, types.VenueErrUnavailable, err)
}
