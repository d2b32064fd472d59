// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string        `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Server
	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitWrite   int `env:"RATE_LIMIT_WRITE" envDefault:"30"`

	// Articles
	ListMaxLimit int `env:"LIST_MAX_LIMIT" envDefault:"100"`

	// Worker
	TagSweepInterval     time.Duration `env:"TAG_SWEEP_INTERVAL" envDefault:"1h"`
	SessionRetentionDays int           `env:"SESSION_RETENTION_DAYS" envDefault:"30"`
	// WorkerMetricsPort が空の場合、ワーカーは /metrics を公開しない
	WorkerMetricsPort string `env:"WORKER_METRICS_PORT" envDefault:"9091"`

	// Logging
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.RateLimitGeneral <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_GENERAL must be positive: %d", c.RateLimitGeneral))
	}
	if c.RateLimitWrite <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WRITE must be positive: %d", c.RateLimitWrite))
	}
	if c.ListMaxLimit <= 0 {
		errs = append(errs, fmt.Errorf("LIST_MAX_LIMIT must be positive: %d", c.ListMaxLimit))
	}
	if c.TagSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("TAG_SWEEP_INTERVAL must be positive: %s", c.TagSweepInterval))
	}
	if c.SessionRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("SESSION_RETENTION_DAYS must not be negative: %d", c.SessionRetentionDays))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// SessionRetention はセッションを期限切れ後に保持する期間を返す。
func (c Config) SessionRetention() time.Duration {
	return time.Duration(c.SessionRetentionDays) * 24 * time.Hour
}
