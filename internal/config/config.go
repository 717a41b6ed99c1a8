package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service-level configuration. Per-venue blocks live under
// venues.<name>.* and are read by the venue package.
type Config struct {
	ListenAddr      string
	NATSURL         string
	DataDir         string
	LogLevel        string
	Symbols         []string
	VenueNames      []string
	RefreshInterval time.Duration
	QuoteTTL        time.Duration
	PlanTTL         time.Duration
	MaxReplans      int
	OrderTimeout    time.Duration
	WorkerPoolSize  int
}

// Load reads configuration from the given file (or the default search
// paths when path is empty), with ROUTER_* environment overrides.
func Load(path string) (*Config, error) {
	setDefaults()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("ROUTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine; defaults and env cover everything.
	}

	cfg := &Config{
		ListenAddr:      viper.GetString("server.listen_addr"),
		NATSURL:         viper.GetString("nats.url"),
		DataDir:         viper.GetString("storage.data_dir"),
		LogLevel:        viper.GetString("log.level"),
		Symbols:         viper.GetStringSlice("router.symbols"),
		VenueNames:      viper.GetStringSlice("router.venues"),
		RefreshInterval: viper.GetDuration("router.refresh_interval"),
		QuoteTTL:        viper.GetDuration("router.quote_ttl"),
		PlanTTL:         viper.GetDuration("router.plan_ttl"),
		MaxReplans:      viper.GetInt("router.max_replans"),
		OrderTimeout:    viper.GetDuration("router.order_timeout"),
		WorkerPoolSize:  viper.GetInt("router.worker_pool_size"),
	}

	if len(cfg.VenueNames) == 0 {
		return nil, fmt.Errorf("no venues configured under router.venues")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured under router.symbols")
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.listen_addr", ":8080")
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("router.refresh_interval", "500ms")
	viper.SetDefault("router.quote_ttl", "2s")
	viper.SetDefault("router.plan_ttl", "1500ms")
	viper.SetDefault("router.max_replans", 2)
	viper.SetDefault("router.order_timeout", "5s")
	viper.SetDefault("router.worker_pool_size", 8)
}
