// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// redisStoreKeyPrefix is the prefix for all player progress keys
	redisStoreKeyPrefix = "season_pass:progress:"
	// redisStoreIndexKey is the set of every player id with a stored record
	redisStoreIndexKey = "season_pass:progress_index"

	redisStoreBatchSize  = 200
	redisStoreMaxRetries = 10
)

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
	cfg    RedisStoreConfig
	locks  *keyedMutex
}

type RedisStoreConfig struct {
	// TTL applied to each record on write. Zero keeps records forever.
	TTL time.Duration
}

// NewRedisStore creates a new Redis-backed progress store.
func NewRedisStore(
	client *redis.Client,
	cfg RedisStoreConfig,
) *RedisStore {
	return &RedisStore{
		client: client,
		cfg:    cfg,
		locks:  newKeyedMutex(),
	}
}

// makeRedisStoreKey creates a Redis key for a player
func makeRedisStoreKey(playerID string) string {
	return fmt.Sprintf("%s%s", redisStoreKeyPrefix, playerID)
}

// Get retrieves the progress for a player from Redis
func (r *RedisStore) Get(ctx context.Context, playerID string) (*PlayerProgress, error) {
	if err := ValidatePlayerID(playerID); err != nil {
		return nil, err
	}
	return r.get(ctx, r.client, playerID)
}

func (r *RedisStore) get(ctx context.Context, c stringGetter, playerID string) (*PlayerProgress, error) {
	data, err := c.Get(ctx, makeRedisStoreKey(playerID)).Result()
	if err == redis.Nil {
		return New(), nil
	}
	if err != nil {
		logrus.Errorf("failed to get progress for player %s: %v", playerID, err)
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	var p PlayerProgress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		logrus.Warnf("corrupt progress for player %s, starting from defaults: %v", playerID, err)
		return New(), nil
	}
	p.normalize()
	return &p, nil
}

func (r *RedisStore) marshal(p *PlayerProgress) ([]byte, error) {
	p.normalize()
	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return data, nil
}

// Put stores the progress for a player in Redis
func (r *RedisStore) Put(ctx context.Context, playerID string, p *PlayerProgress) error {
	if err := ValidatePlayerID(playerID); err != nil {
		return err
	}
	data, err := r.marshal(p)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(playerID)
	defer unlock()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, makeRedisStoreKey(playerID), data, r.cfg.TTL)
		pipe.SAdd(ctx, redisStoreIndexKey, playerID)
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to set progress for player %s: %v", playerID, err)
		return fmt.Errorf("failed to set progress: %w", err)
	}
	return nil
}

// Update reads, mutates and writes the record under WATCH so that a
// concurrent writer from another process forces a retry.
func (r *RedisStore) Update(ctx context.Context, playerID string, fn func(p *PlayerProgress) error) (*PlayerProgress, error) {
	if err := ValidatePlayerID(playerID); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(playerID)
	defer unlock()

	key := makeRedisStoreKey(playerID)
	var result *PlayerProgress

	txf := func(tx *redis.Tx) error {
		p, err := r.get(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		data, err := r.marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.cfg.TTL)
			pipe.SAdd(ctx, redisStoreIndexKey, playerID)
			return nil
		})
		if err == nil {
			result = p
		}
		return err
	}

	for i := 0; i < redisStoreMaxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logrus.Debugf("progress for player %s changed during update, retrying", playerID)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to update progress for player %s: too many concurrent writers", playerID)
}

func (r *RedisStore) scan(ctx context.Context, visit func(playerID string, data string)) error {
	ids, err := r.client.SMembers(ctx, redisStoreIndexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list player index: %w", err)
	}

	for start := 0; start < len(ids); start += redisStoreBatchSize {
		end := start + redisStoreBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = makeRedisStoreKey(id)
		}
		values, err := r.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("failed to read progress batch: %w", err)
		}
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				// expired or deleted behind the index
				continue
			}
			visit(batch[i], s)
		}
	}
	return nil
}

// ListAll returns every indexed record. Corrupt values are skipped.
func (r *RedisStore) ListAll(ctx context.Context) ([]Record, error) {
	var records []Record
	err := r.scan(ctx, func(playerID, data string) {
		var p PlayerProgress
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			logrus.Warnf("skipping corrupt progress for player %s: %v", playerID, err)
			return
		}
		p.normalize()
		records = append(records, Record{PlayerID: playerID, Progress: &p})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteAll removes every indexed record and the index itself.
func (r *RedisStore) DeleteAll(ctx context.Context) (int, error) {
	ids, err := r.client.SMembers(ctx, redisStoreIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list player index: %w", err)
	}

	deleted := 0
	for start := 0; start < len(ids); start += redisStoreBatchSize {
		end := start + redisStoreBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		keys := make([]string, len(batch))
		members := make([]interface{}, len(batch))
		for i, id := range batch {
			keys[i] = makeRedisStoreKey(id)
			members[i] = id
		}
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			pipe.SRem(ctx, redisStoreIndexKey, members...)
			return nil
		})
		if err != nil {
			logrus.Errorf("failed to delete progress batch after %d records: %v", deleted, err)
			return deleted, fmt.Errorf("failed to delete progress: %w", err)
		}
		deleted += len(batch)
	}

	logrus.Infof("deleted %d progress records from redis", deleted)
	return deleted, nil
}

// Inspect sizes the stored values and reports corrupt ones.
func (r *RedisStore) Inspect(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := r.scan(ctx, func(playerID, data string) {
		stats.Bytes += int64(len(data))
		var p PlayerProgress
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			stats.Corrupt = append(stats.Corrupt, playerID)
			return
		}
		stats.Players++
		if p.Entitled {
			stats.Entitled++
		}
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
