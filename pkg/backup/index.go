// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a catalog of backups. The backup directories stay the source
// of truth; the index makes listing cheap.
type Index interface {
	Add(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Remove(ctx context.Context, id string) error
	Close() error
}

// SQLiteIndex keeps the catalog in a local SQLite database.
type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS backups (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		season_number INTEGER NOT NULL,
		player_count INTEGER NOT NULL,
		file_count INTEGER NOT NULL,
		reason TEXT NOT NULL,
		compressed INTEGER NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Add(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO backups(id,path,created_at,season_number,player_count,file_count,reason,compressed) VALUES(?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Path, rec.CreatedAt.UnixMilli(), rec.SeasonNumber, rec.PlayerCount, rec.FileCount, rec.Reason, rec.Compressed,
	)
	if err != nil {
		return fmt.Errorf("failed to index backup %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the catalog newest first.
func (s *SQLiteIndex) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,path,created_at,season_number,player_count,file_count,reason,compressed FROM backups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup index: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Path, &createdAt, &rec.SeasonNumber, &rec.PlayerCount, &rec.FileCount, &rec.Reason, &rec.Compressed); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to remove backup %s from index: %w", id, err)
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
