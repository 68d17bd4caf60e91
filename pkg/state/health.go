// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// HealthChecker verifies that the storage the season pass writes to is usable.
type HealthChecker struct {
	client *redis.Client
	dirs   []string
}

// NewHealthChecker creates a new health checker. client may be nil when
// Redis is not in use; dirs are checked for writability.
func NewHealthChecker(client *redis.Client, dirs ...string) *HealthChecker {
	return &HealthChecker{client: client, dirs: dirs}
}

// Check pings Redis and test-writes each directory.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.client != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if _, err := h.client.Ping(ctx).Result(); err != nil {
			logrus.Errorf("Redis health check failed: %v", err)
			return err
		}
	}

	for _, dir := range h.dirs {
		if err := checkWritable(dir); err != nil {
			logrus.Errorf("storage health check failed for %s: %v", dir, err)
			return err
		}
	}

	logrus.Debugf("storage health check passed")
	return nil
}

// IsHealthy returns true if every check passes
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
