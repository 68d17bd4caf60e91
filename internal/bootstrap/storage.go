// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/internal/config"
	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/AccelByte/extend-season-pass/pkg/season"
	"github.com/AccelByte/extend-season-pass/pkg/state"
)

const (
	seasonDocument   = "season"
	snapshotDocument = "premium_snapshot"
)

// Storage groups the persisted state of the season pass.
type Storage struct {
	Progress  progress.Store
	Seasons   *season.StateStore
	Snapshots state.Document
	Archive   *backup.Archive
	Health    *state.HealthChecker

	index *backup.SQLiteIndex
}

// InitStorage opens the progress store and documents on the configured
// backend. redisClient may be nil with file storage.
//
// ============================================================
// DEVELOPER: Storage backends
// ============================================================
// STORAGE_BACKEND=file keeps one JSON file per player under DATA_DIR.
// STORAGE_BACKEND=redis keeps every record and document in Redis.
// Backups are always written to BACKUP_DIR on local disk.
// ============================================================
func InitStorage(cfg *config.Config, redisClient *redis.Client) (*Storage, error) {
	s := &Storage{}
	healthDirs := []string{cfg.BackupDir, cfg.ErrorLogDir}

	switch cfg.StorageBackend {
	case config.StorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage requires a redis client")
		}
		s.Progress = progress.NewRedisStore(redisClient, progress.RedisStoreConfig{})
		s.Seasons = season.NewStateStore(state.NewRedisDocument(redisClient, seasonDocument))
		s.Snapshots = state.NewRedisDocument(redisClient, snapshotDocument)
		s.Health = state.NewHealthChecker(redisClient, healthDirs...)
	default:
		store, err := progress.NewFileStore(cfg.PlayersDir(), progress.FileStoreConfig{})
		if err != nil {
			return nil, err
		}
		s.Progress = store
		s.Seasons = season.NewStateStore(state.NewFileDocument(cfg.SeasonFile()))
		s.Snapshots = state.NewFileDocument(cfg.SnapshotFile())
		s.Health = state.NewHealthChecker(redisClient, append(healthDirs, cfg.PlayersDir())...)
	}
	logrus.Infof("using %s storage", cfg.StorageBackend)

	var index backup.Index
	if cfg.BackupIndex {
		idx, err := backup.OpenSQLiteIndex(cfg.BackupIndexFile())
		if err != nil {
			return nil, fmt.Errorf("failed to open backup index: %w", err)
		}
		s.index = idx
		index = idx
	}

	archive, err := backup.NewArchive(cfg.BackupDir, s.Progress, s.Seasons, index, backup.Config{
		Compress:     cfg.BackupCompress,
		MinFreeBytes: cfg.BackupMinFreeBytes(),
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Archive = archive

	return s, nil
}

// Close releases the backup index.
func (s *Storage) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}
