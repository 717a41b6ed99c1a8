package venue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// Config holds one venue's configuration.
type Config struct {
	Name        string
	Endpoint    string
	APIKey      string
	APISecret   string
	CallTimeout time.Duration
	RateLimit   types.RateLimitConfig
	Retry       RetryPolicy

	// Routing parameters
	TakerFeeRate decimal.Decimal // e.g. 0.001 = 10 bps
	MaxOrderSize decimal.Decimal // fat-finger cap per single order
	MinOrderSize decimal.Decimal
	Priority     int // lower is preferred on equal-price tie-break
}

// LoadConfig reads a venue block from viper under venues.<name>.*,
// mirroring the exchanges.<name>.* layout used elsewhere in the platform.
func LoadConfig(name string) (Config, error) {
	key := func(field string) string { return fmt.Sprintf("venues.%s.%s", name, field) }

	endpoint := viper.GetString(key("endpoint"))
	if endpoint == "" {
		return Config{}, fmt.Errorf("venue %s: endpoint not configured", name)
	}

	cfg := Config{
		Name:        name,
		Endpoint:    endpoint,
		APIKey:      viper.GetString(key("api_key")),
		APISecret:   viper.GetString(key("api_secret")),
		CallTimeout: viper.GetDuration(key("call_timeout")),
		RateLimit: types.RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64(key("rate_limit.requests_per_second")),
			Burst:             viper.GetInt(key("rate_limit.burst")),
		},
		Retry:    DefaultRetryPolicy(),
		Priority: viper.GetInt(key("priority")),
	}

	if attempts := viper.GetInt(key("retry.max_attempts")); attempts > 0 {
		cfg.Retry.MaxAttempts = attempts
	}
	if interval := viper.GetDuration(key("retry.initial_interval")); interval > 0 {
		cfg.Retry.InitialInterval = interval
	}

	cfg.TakerFeeRate = decimalFromConfig(key("taker_fee_rate"), "0.001")
	cfg.MaxOrderSize = decimalFromConfig(key("max_order_size"), "0")
	cfg.MinOrderSize = decimalFromConfig(key("min_order_size"), "0")

	return cfg, nil
}

func decimalFromConfig(key, fallback string) decimal.Decimal {
	raw := viper.GetString(key)
	if raw == "" {
		raw = fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}
