package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "HUNGERWOOD"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "HUNGERWOOD_APP_ENV"
	EnvPort       = "HUNGERWOOD_APP_PORT"
	EnvBackendURL = "HUNGERWOOD_BACKEND_BASE_URL"
	EnvRedisURL   = "HUNGERWOOD_REDIS_URL"
	EnvDBPath     = "HUNGERWOOD_DB_PATH"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	DB      DBConfig
	Redis   RedisConfig
	Billing BillingConfig
	Wallet  WalletConfig
	Sync    SyncConfig
	Payment PaymentConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HUNGERWOOD_APP_ENV" required:"true"`
	Port         string `envconfig:"HUNGERWOOD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HUNGERWOOD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HUNGERWOOD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points at the remote ordering backend that owns all
// authoritative order state.
type BackendConfig struct {
	BaseURL        string        `envconfig:"HUNGERWOOD_BACKEND_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"HUNGERWOOD_BACKEND_REQUEST_TIMEOUT" default:"10s"`
	StreamBackoff  time.Duration `envconfig:"HUNGERWOOD_BACKEND_STREAM_BACKOFF" default:"5s"`
}

// DBConfig locates the local sqlite file used to keep carts across restarts.
type DBConfig struct {
	Path string `envconfig:"HUNGERWOOD_DB_PATH" default:"hungerwood.db"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HUNGERWOOD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HUNGERWOOD_REDIS_ADDR"`
	Password     string        `envconfig:"HUNGERWOOD_REDIS_PASSWORD"`
	DB           int           `envconfig:"HUNGERWOOD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HUNGERWOOD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HUNGERWOOD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HUNGERWOOD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HUNGERWOOD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HUNGERWOOD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BillingConfig holds the storefront pricing constants. Immutable for the
// duration of a checkout session.
type BillingConfig struct {
	TaxRate               float64 `envconfig:"HUNGERWOOD_BILLING_TAX_RATE" default:"0.05"`
	PackagingFee          int64   `envconfig:"HUNGERWOOD_BILLING_PACKAGING_FEE" default:"20"`
	DeliveryFee           int64   `envconfig:"HUNGERWOOD_BILLING_DELIVERY_FEE" default:"40"`
	MaxWalletUsagePercent int     `envconfig:"HUNGERWOOD_BILLING_MAX_WALLET_PERCENT" default:"50"`
}

func (b BillingConfig) validate() error {
	if b.TaxRate < 0 || b.TaxRate >= 1 {
		return fmt.Errorf("tax rate must be a fraction in [0,1), got %v", b.TaxRate)
	}
	if b.MaxWalletUsagePercent < 0 || b.MaxWalletUsagePercent > 100 {
		return fmt.Errorf("max wallet usage percent must be within [0,100], got %d", b.MaxWalletUsagePercent)
	}
	return nil
}

// WalletConfig carries the business constants for wallet adjustments. These
// are configuration, not protocol.
type WalletConfig struct {
	StepAmount    int64 `envconfig:"HUNGERWOOD_WALLET_STEP_AMOUNT" default:"10"`
	DefaultEnable int64 `envconfig:"HUNGERWOOD_WALLET_DEFAULT_ENABLE" default:"50"`
}

type SyncConfig struct {
	PollInterval     time.Duration `envconfig:"HUNGERWOOD_SYNC_POLL_INTERVAL" default:"30s"`
	InitialPollDelay time.Duration `envconfig:"HUNGERWOOD_SYNC_INITIAL_POLL_DELAY" default:"2s"`
}

type PaymentConfig struct {
	DebounceWindow time.Duration `envconfig:"HUNGERWOOD_PAYMENT_DEBOUNCE_WINDOW" default:"3s"`
}
