// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT: %d (must be 1-65535)", c.GRPCPort)
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT: %d (must be 1-65535)", c.MetricsPort)
	}

	switch c.StorageBackend {
	case StorageFile, StorageRedis:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %q (must be %s or %s)", c.StorageBackend, StorageFile, StorageRedis)
	}

	switch c.WalletBackend {
	case WalletRedis:
	case WalletStatistic:
		if !c.ABEnabled {
			return fmt.Errorf("WALLET_BACKEND=%s requires AB_ENABLED", WalletStatistic)
		}
	default:
		return fmt.Errorf("invalid WALLET_BACKEND: %q (must be %s or %s)", c.WalletBackend, WalletRedis, WalletStatistic)
	}

	if c.ABEnabled {
		if c.ABNamespace == "" {
			return fmt.Errorf("AB_NAMESPACE is required when AB_ENABLED is set")
		}
		if c.ABClientID == "" || c.ABClientSecret == "" {
			return fmt.Errorf("AB_CLIENT_ID and AB_CLIENT_SECRET are required when AB_ENABLED is set")
		}
	}

	if c.WatchInterval <= 0 {
		return fmt.Errorf("invalid SEASON_WATCH_INTERVAL: %s", c.WatchInterval)
	}

	if c.BackupMinFreeMB <= 0 {
		return fmt.Errorf("invalid BACKUP_MIN_FREE_MB: %d (must be greater than 0)", c.BackupMinFreeMB)
	}

	return nil
}

// NeedsRedis reports whether any component active under premiumMode is
// Redis-backed. The permission source of the external mode is always Redis.
func (c *Config) NeedsRedis(premiumMode entitlement.Mode) bool {
	switch {
	case c.StorageBackend == StorageRedis:
		return true
	case premiumMode == entitlement.ModeExternal:
		return true
	case premiumMode == entitlement.ModePurchase:
		return c.WalletBackend == WalletRedis
	default:
		return false
	}
}

// PlayersDir holds one progress file per player in file storage.
func (c *Config) PlayersDir() string {
	return filepath.Join(c.DataDir, "players")
}

// SeasonFile holds the persisted season state in file storage.
func (c *Config) SeasonFile() string {
	return filepath.Join(c.DataDir, "season.json")
}

// SnapshotFile holds the preserved premium set in file storage.
func (c *Config) SnapshotFile() string {
	return filepath.Join(c.DataDir, "premium_snapshot.json")
}

// BackupIndexFile is the SQLite catalog of backups.
func (c *Config) BackupIndexFile() string {
	return filepath.Join(c.BackupDir, "index.db")
}

// BackupMinFreeBytes is the free space a backup must leave on disk.
func (c *Config) BackupMinFreeBytes() uint64 {
	return uint64(c.BackupMinFreeMB) << 20
}
