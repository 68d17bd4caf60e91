// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidPlayerID is returned for ids that cannot be used as a storage key.
	ErrInvalidPlayerID = errors.New("invalid player id")
)

// Store persists player progress records.
//
// Get never reports absence as an error: an unknown player gets a fresh
// default record that is only persisted on its first mutation. Writes are
// last-write-wins for Put; Update serializes writers of the same player.
type Store interface {
	Get(ctx context.Context, playerID string) (*PlayerProgress, error)
	Put(ctx context.Context, playerID string, p *PlayerProgress) error
	Update(ctx context.Context, playerID string, fn func(p *PlayerProgress) error) (*PlayerProgress, error)
	ListAll(ctx context.Context) ([]Record, error)
	DeleteAll(ctx context.Context) (int, error)
	Inspect(ctx context.Context) (*Stats, error)
}

// Stats describes the stored data as a whole.
type Stats struct {
	Players  int
	Entitled int
	Bytes    int64
	Corrupt  []string
}

// ValidatePlayerID rejects ids that are empty or could escape a key namespace.
func ValidatePlayerID(playerID string) error {
	if strings.TrimSpace(playerID) == "" {
		return ErrInvalidPlayerID
	}
	if strings.ContainsAny(playerID, `/\:`) || playerID == "." || playerID == ".." {
		return ErrInvalidPlayerID
	}
	return nil
}

// keyedMutex hands out one mutex per key and frees it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
