// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// KeyPrefix is the prefix for all season pass document keys
const KeyPrefix = "season_pass:doc:"

// RedisDocument implements Document using a Redis string key.
type RedisDocument struct {
	client *redis.Client
	name   string
}

// NewRedisDocument creates a document stored under KeyPrefix+name.
func NewRedisDocument(client *redis.Client, name string) *RedisDocument {
	return &RedisDocument{
		client: client,
		name:   name,
	}
}

// makeKey creates a Redis key for a document
func makeKey(name string) string {
	return fmt.Sprintf("%s%s", KeyPrefix, name)
}

func (d *RedisDocument) Name() string {
	return d.name
}

// Load retrieves the document from Redis
func (d *RedisDocument) Load(ctx context.Context, v interface{}) (bool, error) {
	data, err := d.client.Get(ctx, makeKey(d.name)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logrus.Errorf("failed to get document %s: %v", d.name, err)
		return false, fmt.Errorf("failed to get document %s: %w", d.name, err)
	}

	if err := json.Unmarshal([]byte(data), v); err != nil {
		logrus.Errorf("failed to unmarshal document %s: %v", d.name, err)
		return false, fmt.Errorf("failed to unmarshal document %s: %w", d.name, err)
	}
	return true, nil
}

// Save stores the document in Redis without expiry
func (d *RedisDocument) Save(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", d.name, err)
	}

	if err := d.client.Set(ctx, makeKey(d.name), data, 0).Err(); err != nil {
		logrus.Errorf("failed to set document %s: %v", d.name, err)
		return fmt.Errorf("failed to set document %s: %w", d.name, err)
	}

	logrus.Debugf("saved document %s", d.name)
	return nil
}

// Delete removes the document from Redis
func (d *RedisDocument) Delete(ctx context.Context) error {
	if err := d.client.Del(ctx, makeKey(d.name)).Err(); err != nil {
		logrus.Errorf("failed to delete document %s: %v", d.name, err)
		return fmt.Errorf("failed to delete document %s: %w", d.name, err)
	}

	logrus.Infof("deleted document %s", d.name)
	return nil
}
