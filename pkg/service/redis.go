// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
)

const (
	// walletKey is the hash of player id to currency balance
	walletKey = "season_pass:wallet"
	// permissionKeyPrefix prefixes the set of player ids holding a permission node
	permissionKeyPrefix = "season_pass:perm:"

	walletMaxRetries = 10
)

// RedisWallet keeps the season currency in a Redis hash. It serves
// deployments without a statistic service and local development.
type RedisWallet struct {
	client *redis.Client
}

func NewRedisWallet(client *redis.Client) *RedisWallet {
	return &RedisWallet{client: client}
}

// Balance returns the player's balance, zero when unknown.
func (w *RedisWallet) Balance(ctx context.Context, playerID string) (int, error) {
	v, err := w.client.HGet(ctx, walletKey, playerID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance for player %s: %w", playerID, err)
	}
	return v, nil
}

// Deposit adds amount to the player's balance.
func (w *RedisWallet) Deposit(ctx context.Context, playerID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("invalid deposit amount %d", amount)
	}
	v, err := w.client.HIncrBy(ctx, walletKey, playerID, int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to deposit for player %s: %w", playerID, err)
	}
	return int(v), nil
}

// Withdraw debits amount if the balance covers it. The read and the
// write happen under WATCH so concurrent debits cannot overdraw.
func (w *RedisWallet) Withdraw(ctx context.Context, playerID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("invalid withdrawal amount %d", amount)
	}

	txf := func(tx *redis.Tx) error {
		balance, err := tx.HGet(ctx, walletKey, playerID).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if balance < amount {
			return entitlement.ErrInsufficientFunds
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, walletKey, playerID, strconv.Itoa(balance-amount))
			return nil
		})
		return err
	}

	for i := 0; i < walletMaxRetries; i++ {
		err := w.client.Watch(ctx, txf, walletKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, entitlement.ErrInsufficientFunds) {
			return err
		}
		return fmt.Errorf("failed to withdraw for player %s: %w", playerID, err)
	}
	return fmt.Errorf("failed to withdraw for player %s: too many concurrent writers", playerID)
}

// RedisPermissionChecker answers permission checks from one Redis set per
// node, maintained by the game's permission system.
type RedisPermissionChecker struct {
	client *redis.Client
	cfg    RedisPermissionCheckerConfig
}

type RedisPermissionCheckerConfig struct {
	// MaxRetries bounds retries of a failed lookup. Zero uses 3.
	MaxRetries uint64
	// MaxElapsed bounds the total time spent retrying. Zero uses 2s.
	MaxElapsed time.Duration
}

func NewRedisPermissionChecker(client *redis.Client, cfg RedisPermissionCheckerConfig) *RedisPermissionChecker {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = 2 * time.Second
	}
	return &RedisPermissionChecker{client: client, cfg: cfg}
}

func makePermissionKey(node string) string {
	return permissionKeyPrefix + node
}

func (c *RedisPermissionChecker) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = c.cfg.MaxElapsed
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx))
}

// HasPermission reports whether playerID holds node.
func (c *RedisPermissionChecker) HasPermission(ctx context.Context, playerID, node string) (bool, error) {
	var ok bool
	err := c.retry(ctx, func() error {
		var err error
		ok, err = c.client.SIsMember(ctx, makePermissionKey(node), playerID).Result()
		return err
	})
	if err != nil {
		logrus.Warnf("permission lookup for player %s failed: %v", playerID, err)
		return false, fmt.Errorf("failed to check permission %s: %w", node, err)
	}
	return ok, nil
}

// ListHolders returns every player holding node.
func (c *RedisPermissionChecker) ListHolders(ctx context.Context, node string) ([]string, error) {
	var ids []string
	err := c.retry(ctx, func() error {
		var err error
		ids, err = c.client.SMembers(ctx, makePermissionKey(node)).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list holders of %s: %w", node, err)
	}
	return ids, nil
}

// SetPermission adds or removes playerID from node.
func (c *RedisPermissionChecker) SetPermission(ctx context.Context, playerID, node string, granted bool) error {
	var err error
	if granted {
		err = c.client.SAdd(ctx, makePermissionKey(node), playerID).Err()
	} else {
		err = c.client.SRem(ctx, makePermissionKey(node), playerID).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to update permission %s for player %s: %w", node, playerID, err)
	}
	return nil
}
