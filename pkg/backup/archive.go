// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package backup snapshots player progress and season data to
// timestamped directories and restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/sirupsen/logrus"
)

const (
	// MinBackupSpace is the free space floor for creating a backup.
	MinBackupSpace uint64 = 100 << 20
	// MinOperationSpace is the free space floor for any season operation.
	MinOperationSpace uint64 = 50 << 20

	// DefaultReason is recorded for backups taken by a season reset.
	DefaultReason = "Season Reset"

	dirPrefix    = "season_reset_"
	dirTimestamp = "2006-01-02_15-04-05"
	playersDir   = "players"
	seasonDir    = "season_data"
	metadataFile = "backup_metadata.json"
	seasonFile   = "season.json"
	playerExt    = ".json"
)

var (
	// ErrInsufficientSpace is returned before any file is written.
	ErrInsufficientSpace = errors.New("insufficient disk space for backup")
	// ErrNotFound is returned for a path that holds no backup.
	ErrNotFound = errors.New("backup not found")
	// ErrCorrupt is returned when a backup cannot be read back.
	ErrCorrupt = errors.New("backup is corrupt")
)

// Record describes one completed backup. It is immutable once created.
type Record struct {
	ID           string
	Path         string
	CreatedAt    time.Time
	SeasonNumber int
	PlayerCount  int
	FileCount    int
	Reason       string
	Compressed   bool
}

type metadata struct {
	Timestamp    int64  `json:"timestamp"`
	SeasonNumber int    `json:"seasonNumber"`
	PlayerCount  int    `json:"playerCount"`
	BackupReason string `json:"backupReason"`
	ID           string `json:"id"`
	FileCount    int    `json:"fileCount"`
	Compressed   bool   `json:"compressed"`
}

// SeasonSource exports and imports the serialized season state kept
// alongside player progress.
type SeasonSource interface {
	ExportSeason(ctx context.Context) ([]byte, error)
	ImportSeason(ctx context.Context, data []byte) error
}

type Config struct {
	// MinFreeBytes is the space floor; defaults to MinBackupSpace.
	MinFreeBytes uint64
	// Compress writes every file through zstd.
	Compress bool
	// FreeSpace reports available bytes; defaults to FreeSpace.
	FreeSpace func(path string) (uint64, error)
}

// SpaceReport compares available and required space.
type SpaceReport struct {
	Free     uint64
	Required uint64
	// Tight is set when free space is under 1.5x the requirement.
	Tight bool
}

// Archive creates and restores backups under a root directory.
type Archive struct {
	root   string
	store  progress.Store
	season SeasonSource
	index  Index
	cfg    Config
	now    func() time.Time
}

// NewArchive creates the root directory if needed. season and index may be nil.
func NewArchive(root string, store progress.Store, season SeasonSource, index Index, cfg Config) (*Archive, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if cfg.MinFreeBytes == 0 {
		cfg.MinFreeBytes = MinBackupSpace
	}
	if cfg.FreeSpace == nil {
		cfg.FreeSpace = FreeSpace
	}
	return &Archive{
		root:   root,
		store:  store,
		season: season,
		index:  index,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// Root returns the directory holding all backups.
func (a *Archive) Root() string { return a.root }

// Free reports the bytes available on the backup volume.
func (a *Archive) Free() (uint64, error) {
	return a.cfg.FreeSpace(a.root)
}

// CheckSpace reports whether size bytes of data can be backed up. The
// requirement is twice the data size, never less than the configured floor.
func (a *Archive) CheckSpace(size uint64) (SpaceReport, error) {
	required := 2 * size
	if required < a.cfg.MinFreeBytes {
		required = a.cfg.MinFreeBytes
	}
	free, err := a.cfg.FreeSpace(a.root)
	if err != nil {
		return SpaceReport{Required: required}, fmt.Errorf("failed to check free space: %w", err)
	}
	report := SpaceReport{
		Free:     free,
		Required: required,
		Tight:    free < required+required/2,
	}
	if free < required {
		return report, fmt.Errorf("%w: %d MB free, %d MB required", ErrInsufficientSpace, free>>20, required>>20)
	}
	return report, nil
}

// Create writes a complete backup or nothing at all: files go to a
// temporary directory that is renamed into place only once complete.
func (a *Archive) Create(ctx context.Context, seasonNumber int, reason string) (*Record, error) {
	if reason == "" {
		reason = DefaultReason
	}

	records, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read player progress: %w", err)
	}

	payloads := make(map[string][]byte, len(records))
	var size uint64
	for _, r := range records {
		data, err := json.Marshal(r.Progress)
		if err != nil {
			return nil, fmt.Errorf("failed to encode progress for player %s: %w", r.PlayerID, err)
		}
		payloads[r.PlayerID] = data
		size += uint64(len(data))
	}

	var seasonData []byte
	if a.season != nil {
		seasonData, err = a.season.ExportSeason(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to export season data: %w", err)
		}
		size += uint64(len(seasonData))
	}

	report, err := a.CheckSpace(size)
	if err != nil {
		if errors.Is(err, ErrInsufficientSpace) {
			return nil, err
		}
		logrus.Warnf("skipping free space check: %v", err)
	} else if report.Tight {
		logrus.Warnf("backup disk space is low: %d MB free, %d MB required", report.Free>>20, report.Required>>20)
	}

	createdAt := a.now().UTC().Truncate(time.Millisecond)
	id := a.uniqueID(createdAt)
	final := filepath.Join(a.root, id)
	tmp := filepath.Join(a.root, ".tmp-"+id)

	rec, err := a.write(tmp, id, createdAt, seasonNumber, reason, payloads, seasonData)
	if err != nil {
		if rmErr := os.RemoveAll(tmp); rmErr != nil {
			logrus.Errorf("failed to remove partial backup %s: %v", tmp, rmErr)
		}
		return nil, err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("failed to finalize backup: %w", err)
	}
	rec.Path = final

	if a.index != nil {
		if err := a.index.Add(ctx, *rec); err != nil {
			logrus.Warnf("backup %s created but not indexed: %v", id, err)
		}
	}

	logrus.Infof("created backup %s with %d players for season %d", id, rec.PlayerCount, seasonNumber)
	return rec, nil
}

func (a *Archive) write(dir, id string, createdAt time.Time, seasonNumber int, reason string, payloads map[string][]byte, seasonData []byte) (*Record, error) {
	if err := os.MkdirAll(filepath.Join(dir, playersDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, seasonDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	files := 0
	for playerID, data := range payloads {
		path := filepath.Join(dir, playersDir, blobName(playerID+playerExt, a.cfg.Compress))
		if err := writeBlob(path, data, a.cfg.Compress); err != nil {
			return nil, fmt.Errorf("failed to back up player %s: %w", playerID, err)
		}
		files++
	}

	if seasonData != nil {
		path := filepath.Join(dir, seasonDir, blobName(seasonFile, a.cfg.Compress))
		if err := writeBlob(path, seasonData, a.cfg.Compress); err != nil {
			return nil, fmt.Errorf("failed to back up season data: %w", err)
		}
		files++
	}

	meta := metadata{
		Timestamp:    createdAt.UnixMilli(),
		SeasonNumber: seasonNumber,
		PlayerCount:  len(payloads),
		BackupReason: reason,
		ID:           id,
		FileCount:    files,
		Compressed:   a.cfg.Compress,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeBlob(filepath.Join(dir, metadataFile), data, false); err != nil {
		return nil, fmt.Errorf("failed to write backup metadata: %w", err)
	}

	return recordFromMetadata(meta, dir), nil
}

func (a *Archive) uniqueID(t time.Time) string {
	base := dirPrefix + t.Local().Format(dirTimestamp)
	id := base
	for n := 2; ; n++ {
		_, errFinal := os.Stat(filepath.Join(a.root, id))
		_, errTmp := os.Stat(filepath.Join(a.root, ".tmp-"+id))
		if os.IsNotExist(errFinal) && os.IsNotExist(errTmp) {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func recordFromMetadata(meta metadata, path string) *Record {
	return &Record{
		ID:           meta.ID,
		Path:         path,
		CreatedAt:    time.UnixMilli(meta.Timestamp).UTC(),
		SeasonNumber: meta.SeasonNumber,
		PlayerCount:  meta.PlayerCount,
		FileCount:    meta.FileCount,
		Reason:       meta.BackupReason,
		Compressed:   meta.Compressed,
	}
}

// Open reads the backup stored at path.
func (a *Archive) Open(path string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(path, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if meta.ID == "" {
		meta.ID = filepath.Base(path)
	}
	return recordFromMetadata(meta, path), nil
}

// Restore replaces live player progress and season data with the backup.
// Every file is read and decoded before anything live is touched.
func (a *Archive) Restore(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrNotFound)
	}
	if _, err := a.Open(rec.Path); err != nil {
		return err
	}

	players, err := readPlayers(filepath.Join(rec.Path, playersDir))
	if err != nil {
		return err
	}

	var seasonData []byte
	for _, name := range []string{seasonFile + zstdExt, seasonFile} {
		path := filepath.Join(rec.Path, seasonDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		seasonData, err = readBlob(path)
		if err != nil {
			return fmt.Errorf("%w: season data: %v", ErrCorrupt, err)
		}
		break
	}

	if _, err := a.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear live progress before restore: %w", err)
	}
	for _, r := range players {
		if err := a.store.Put(ctx, r.PlayerID, r.Progress); err != nil {
			return fmt.Errorf("failed to restore player %s: %w", r.PlayerID, err)
		}
	}
	if seasonData != nil && a.season != nil {
		if err := a.season.ImportSeason(ctx, seasonData); err != nil {
			return fmt.Errorf("failed to restore season data: %w", err)
		}
	}

	logrus.Infof("restored %d players from backup %s", len(players), rec.ID)
	return nil
}

func readPlayers(dir string) ([]progress.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup players: %w", err)
	}

	var out []progress.Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		playerID := strings.TrimSuffix(strings.TrimSuffix(name, zstdExt), playerExt)
		if playerID == name {
			continue
		}
		data, err := readBlob(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: player %s: %v", ErrCorrupt, playerID, err)
		}
		p := progress.New()
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("%w: player %s: %v", ErrCorrupt, playerID, err)
		}
		out = append(out, progress.Record{PlayerID: playerID, Progress: p})
	}
	return out, nil
}

// List returns all backups newest first, from the index when one is set.
func (a *Archive) List(ctx context.Context) ([]Record, error) {
	if a.index != nil {
		recs, err := a.index.List(ctx)
		if err == nil {
			return recs, nil
		}
		logrus.Warnf("backup index unavailable, scanning %s: %v", a.root, err)
	}
	return a.scan()
}

func (a *Archive) scan() ([]Record, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	var out []Record
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		rec, err := a.Open(filepath.Join(a.root, e.Name()))
		if err != nil {
			logrus.Warnf("skipping unreadable backup %s: %v", e.Name(), err)
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Prune deletes backups older than retention and returns how many were removed.
func (a *Archive) Prune(ctx context.Context, retention time.Duration) (int, error) {
	recs, err := a.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := a.now().Add(-retention)
	removed := 0
	for _, rec := range recs {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(rec.Path); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", rec.ID, err)
		}
		if a.index != nil {
			if err := a.index.Remove(ctx, rec.ID); err != nil {
				logrus.Warnf("removed backup %s but not its index entry: %v", rec.ID, err)
			}
		}
		removed++
	}
	if removed > 0 {
		logrus.Infof("pruned %d backups older than %s", removed, retention)
	}
	return removed, nil
}
