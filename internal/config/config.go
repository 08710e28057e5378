package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

type Config struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	BoltPath     string `env:"BOLT_PATH" envDefault:"splitledger.db"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv    string `env:"APP_ENV" envDefault:"production"`

	DefaultCurrency domain.Currency `env:"DEFAULT_CURRENCY" envDefault:"USD"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"splitledger.expenses"`

	IdempotencyCleanInterval time.Duration `env:"IDEMPOTENCY_CLEAN_INTERVAL" envDefault:"1h"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"1m"`
	DBConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	case BackendBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required when STORE_BACKEND=%s", BackendBolt)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendBolt, c.StoreBackend)
	}
	if !c.DefaultCurrency.IsValid() {
		return fmt.Errorf("DEFAULT_CURRENCY %q is not supported", c.DefaultCurrency)
	}
	if c.IdempotencyCleanInterval <= 0 {
		return fmt.Errorf("IDEMPOTENCY_CLEAN_INTERVAL must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
