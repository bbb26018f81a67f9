package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Order       OrderConfig
	Idempotency IdempotencyConfig
	Stats       StatsConfig
	Client      ClientConfig
	Cart        CartConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	EnsureSchema    bool
}

type RedisConfig struct {
	URL          string
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type OrderConfig struct {
	TxTimeout        time.Duration
	MaxRetryAttempts int
}

type IdempotencyConfig struct {
	TTL time.Duration
}

type StatsConfig struct {
	ProfitMargin decimal.Decimal
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CartConfig selects where carts are persisted: "memory", "file" or "redis".
type CartConfig struct {
	Backend string
	Dir     string
	TTL     time.Duration
}

// Load reads defaults, then the optional YAML file at path, then environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	margin, err := decimal.NewFromString(v.GetString("STATS_PROFIT_MARGIN"))
	if err != nil {
		return nil, fmt.Errorf("parsing STATS_PROFIT_MARGIN: %w", err)
	}
	if margin.IsNegative() || margin.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("STATS_PROFIT_MARGIN must be between 0 and 1, got %s", margin)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			EnsureSchema:    v.GetBool("DB_ENSURE_SCHEMA"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			Address:      v.GetString("REDIS_ADDRESS"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Order: OrderConfig{
			TxTimeout:        v.GetDuration("ORDER_TX_TIMEOUT"),
			MaxRetryAttempts: v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
		},
		Idempotency: IdempotencyConfig{
			TTL: v.GetDuration("IDEMPOTENCY_TTL"),
		},
		Stats: StatsConfig{
			ProfitMargin: margin,
		},
		Client: ClientConfig{
			BaseURL: v.GetString("CLIENT_BASE_URL"),
			Timeout: v.GetDuration("CLIENT_TIMEOUT"),
		},
		Cart: CartConfig{
			Backend: v.GetString("CART_BACKEND"),
			Dir:     v.GetString("CART_DIR"),
			TTL:     v.GetDuration("CART_TTL"),
		},
	}

	if cfg.Order.MaxRetryAttempts < 1 {
		cfg.Order.MaxRetryAttempts = 1
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "storefront")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "storefront")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_ENSURE_SCHEMA", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ORDER_TX_TIMEOUT", "5s")
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("STATS_PROFIT_MARGIN", "0.30")
	v.SetDefault("CLIENT_BASE_URL", "http://localhost:8080")
	v.SetDefault("CLIENT_TIMEOUT", "10s")
	v.SetDefault("CART_BACKEND", "file")
	v.SetDefault("CART_DIR", ".storefront/carts")
	v.SetDefault("CART_TTL", "0s")
}
