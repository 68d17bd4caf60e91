// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileDocument implements Document as a JSON file.
type FileDocument struct {
	path string
	mu   sync.Mutex
}

// NewFileDocument stores the document at path, creating parent directories on save.
func NewFileDocument(path string) *FileDocument {
	return &FileDocument{path: path}
}

func (d *FileDocument) Name() string {
	return filepath.Base(d.path)
}

// Path returns the file backing the document.
func (d *FileDocument) Path() string {
	return d.path
}

func (d *FileDocument) Load(ctx context.Context, v interface{}) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read document %s: %w", d.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		logrus.Errorf("failed to unmarshal document %s: %v", d.path, err)
		return false, fmt.Errorf("failed to unmarshal document %s: %w", d.path, err)
	}
	return true, nil
}

func (d *FileDocument) Save(ctx context.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", d.path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", d.path, err)
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", d.path, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace document %s: %w", d.path, err)
	}
	return nil
}

func (d *FileDocument) Delete(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete document %s: %w", d.path, err)
	}
	return nil
}
