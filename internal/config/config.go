// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

const (
	StorageFile  = "file"
	StorageRedis = "redis"

	WalletRedis     = "redis"
	WalletStatistic = "statistic"
)

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
//
// Season pass tuning (XP curve, premium mode, reset defaults, tiers) lives
// in the YAML file at ConfigPath, see pkg/passconfig.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ExtendSeasonPass"`

	// ============================================================
	// AccelByte configuration
	// ============================================================
	// When disabled the premium item is not fulfilled and the wallet
	// must be Redis-backed.
	ABEnabled      bool   `env:"AB_ENABLED" envDefault:"false"`
	ABNamespace    string `env:"AB_NAMESPACE"`
	ABBaseURL      string `env:"AB_BASE_URL"`
	ABClientID     string `env:"AB_CLIENT_ID"`
	ABClientSecret string `env:"AB_CLIENT_SECRET"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// ============================================================
	// Storage configuration
	// ============================================================
	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"file"`
	DataDir         string `env:"DATA_DIR" envDefault:"data"`
	BackupDir       string `env:"BACKUP_DIR" envDefault:"backups"`
	BackupCompress  bool   `env:"BACKUP_COMPRESS" envDefault:"false"`
	BackupIndex     bool   `env:"BACKUP_INDEX_ENABLED" envDefault:"true"`
	BackupMinFreeMB int    `env:"BACKUP_MIN_FREE_MB" envDefault:"100"`
	ErrorLogDir     string `env:"ERROR_LOG_DIR" envDefault:"error_logs"`

	// ============================================================
	// Premium configuration
	// ============================================================
	WalletBackend    string `env:"WALLET_BACKEND" envDefault:"redis"`
	CurrencyStatCode string `env:"CURRENCY_STAT_CODE" envDefault:"season-pass-currency"`

	// ============================================================
	// Season pass configuration
	// ============================================================
	ConfigPath    string        `env:"CONFIG_PATH" envDefault:"config/season_pass.yaml"`
	WatchInterval time.Duration `env:"SEASON_WATCH_INTERVAL" envDefault:"1m"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled bool `env:"OTEL_ENABLED" envDefault:"true"`
}
