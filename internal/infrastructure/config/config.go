package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"
)

// devJWTSecret signs tokens in development when JWT_SECRET is unset.
const devJWTSecret = "development-only-secret"

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	Mongo  MongoConfig
	SQLite SQLiteConfig
	Redis  RedisConfig
	Ledger LedgerConfig
	Lock   LockConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=ledger"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=ledger.db"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED,  default=false"`
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// LedgerConfig tunes the balance operations.
type LedgerConfig struct {
	TxTimeout      time.Duration   `env:"LEDGER_TX_TIMEOUT, default=5s"`
	ExposurePolicy string          `env:"EXPOSURE_POLICY,   default=all_contracts"`
	ReserveRatio   decimal.Decimal `env:"RESERVE_RATIO,     default=0.25"`
	IdempotencyTTL time.Duration   `env:"IDEMPOTENCY_TTL,   default=24h"`
}

// LockConfig configures the Redis account lock.
type LockConfig struct {
	Expiry     time.Duration `env:"LOCK_EXPIRY,      default=10s"`
	Tries      int           `env:"LOCK_TRIES,       default=32"`
	RetryDelay time.Duration `env:"LOCK_RETRY_DELAY, default=50ms"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("config: JWT_SECRET is required outside development")
	}
	if !c.Ledger.ReserveRatio.IsPositive() || c.Ledger.ReserveRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("config: RESERVE_RATIO must be in (0, 1], got %s", c.Ledger.ReserveRatio)
	}
	if c.Ledger.TxTimeout <= 0 {
		return fmt.Errorf("config: LEDGER_TX_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment reports whether ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
