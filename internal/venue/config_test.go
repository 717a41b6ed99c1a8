package venue

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("venues.alpha.endpoint", "http://localhost:9001")
	viper.Set("venues.alpha.api_key", "key")
	viper.Set("venues.alpha.call_timeout", "2s")
	viper.Set("venues.alpha.rate_limit.requests_per_second", 5.0)
	viper.Set("venues.alpha.rate_limit.burst", 2)
	viper.Set("venues.alpha.retry.max_attempts", 5)
	viper.Set("venues.alpha.taker_fee_rate", "0.0008")
	viper.Set("venues.alpha.max_order_size", "500")
	viper.Set("venues.alpha.priority", 2)

	cfg, err := LoadConfig("alpha")
	require.NoError(t, err)

	assert.Equal(t, "alpha", cfg.Name)
	assert.Equal(t, "http://localhost:9001", cfg.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.CallTimeout)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.TakerFeeRate.Equal(decimal.RequireFromString("0.0008")))
	assert.True(t, cfg.MaxOrderSize.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, 2, cfg.Priority)
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("venues.beta.endpoint", "http://localhost:9002")

	cfg, err := LoadConfig("beta")
	require.NoError(t, err)

	assert.Equal(t, DefaultRetryPolicy().MaxAttempts, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.TakerFeeRate.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, cfg.MaxOrderSize.IsZero())
}

func TestLoadConfigRequiresEndpoint(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	_, err := LoadConfig("missing")
	assert.Error(t, err)
}
