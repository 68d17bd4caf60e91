// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	fileStoreExt            = ".json"
	fileStoreDefaultWorkers = 8
)

// FileStore keeps one JSON file per player under a directory.
type FileStore struct {
	dir   string
	cfg   FileStoreConfig
	locks *keyedMutex
}

type FileStoreConfig struct {
	// Workers bounds parallel file IO in ListAll and DeleteAll.
	Workers int
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = fileStoreDefaultWorkers
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create progress directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:   dir,
		cfg:   cfg,
		locks: newKeyedMutex(),
	}, nil
}

// Dir returns the directory holding the player files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(playerID string) string {
	return filepath.Join(s.dir, playerID+fileStoreExt)
}

// Get returns the stored record or a default one.
func (s *FileStore) Get(ctx context.Context, playerID string) (*PlayerProgress, error) {
	if err := ValidatePlayerID(playerID); err != nil {
		return nil, err
	}
	p, err := s.read(playerID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *FileStore) read(playerID string) (*PlayerProgress, error) {
	data, err := os.ReadFile(s.path(playerID))
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		logrus.Errorf("failed to read progress for player %s: %v", playerID, err)
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}

	var p PlayerProgress
	if err := json.Unmarshal(data, &p); err != nil {
		logrus.Warnf("corrupt progress for player %s, starting from defaults: %v", playerID, err)
		return New(), nil
	}
	p.normalize()
	return &p, nil
}

// Put overwrites the record through a temp file and rename.
func (s *FileStore) Put(ctx context.Context, playerID string, p *PlayerProgress) error {
	if err := ValidatePlayerID(playerID); err != nil {
		return err
	}
	unlock := s.locks.Lock(playerID)
	defer unlock()
	return s.write(playerID, p)
}

func (s *FileStore) write(playerID string, p *PlayerProgress) error {
	p.normalize()
	p.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := writeFileAtomic(s.path(playerID), data); err != nil {
		logrus.Errorf("failed to write progress for player %s: %v", playerID, err)
		return fmt.Errorf("failed to write progress: %w", err)
	}
	return nil
}

// Update applies fn to the current record while holding the player's lock.
func (s *FileStore) Update(ctx context.Context, playerID string, fn func(p *PlayerProgress) error) (*PlayerProgress, error) {
	if err := ValidatePlayerID(playerID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(playerID)
	defer unlock()

	p, err := s.read(playerID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.write(playerID, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *FileStore) playerIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress directory: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileStoreExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileStoreExt))
	}
	return ids, nil
}

// ListAll reads every record. Corrupt files are skipped with a warning.
func (s *FileStore) ListAll(ctx context.Context) ([]Record, error) {
	ids, err := s.playerIDs()
	if err != nil {
		return nil, err
	}

	records := make([]*Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(s.path(id))
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read progress for %s: %w", id, err)
			}
			var p PlayerProgress
			if err := json.Unmarshal(data, &p); err != nil {
				logrus.Warnf("skipping corrupt progress file for player %s: %v", id, err)
				return nil
			}
			p.normalize()
			records[i] = &Record{PlayerID: id, Progress: &p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// DeleteAll removes every player file and returns how many were removed.
func (s *FileStore) DeleteAll(ctx context.Context) (int, error) {
	ids, err := s.playerIDs()
	if err != nil {
		return 0, err
	}

	var deleted int64
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			unlock := s.locks.Lock(id)
			defer unlock()
			if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to delete progress for %s: %w", id, err)
			}
			atomic.AddInt64(&deleted, 1)
			return nil
		})
	}
	err = g.Wait()

	logrus.Infof("deleted %d progress records from %s", deleted, s.dir)
	return int(deleted), err
}

// Inspect sizes the directory and reports corrupt files.
func (s *FileStore) Inspect(ctx context.Context) (*Stats, error) {
	ids, err := s.playerIDs()
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			data, err := os.ReadFile(s.path(id))
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read progress for %s: %w", id, err)
			}
			var p PlayerProgress
			corrupt := json.Unmarshal(data, &p) != nil

			mu.Lock()
			defer mu.Unlock()
			stats.Bytes += int64(len(data))
			if corrupt {
				stats.Corrupt = append(stats.Corrupt, id)
				return nil
			}
			stats.Players++
			if p.Entitled {
				stats.Entitled++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
