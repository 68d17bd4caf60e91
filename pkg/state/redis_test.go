// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

type testDoc struct {
	Season int       `json:"season"`
	IDs    []string  `json:"ids"`
	At     time.Time `json:"at"`
}

func documents(t *testing.T) map[string]Document {
	client, mr := setupTestRedis(t)
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return map[string]Document{
		"redis": NewRedisDocument(client, "test"),
		"file":  NewFileDocument(filepath.Join(t.TempDir(), "nested", "test.json")),
	}
}

func TestDocument_LoadMissing(t *testing.T) {
	for name, doc := range documents(t) {
		t.Run(name, func(t *testing.T) {
			var v testDoc
			found, err := doc.Load(context.Background(), &v)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if found {
				t.Error("expected found=false for missing document")
			}
		})
	}
}

func TestDocument_SaveLoadDelete(t *testing.T) {
	for name, doc := range documents(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := testDoc{Season: 3, IDs: []string{"a", "b"}, At: time.Now().UTC().Truncate(time.Second)}

			if err := doc.Save(ctx, in); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			var out testDoc
			found, err := doc.Load(ctx, &out)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !found {
				t.Fatal("expected found=true after Save")
			}
			if out.Season != 3 || len(out.IDs) != 2 || !out.At.Equal(in.At) {
				t.Errorf("unexpected document: %+v", out)
			}

			if err := doc.Delete(ctx); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			found, err = doc.Load(ctx, &out)
			if err != nil || found {
				t.Errorf("expected missing after Delete, found=%v err=%v", found, err)
			}

			if err := doc.Delete(ctx); err != nil {
				t.Errorf("deleting a missing document should not fail: %v", err)
			}
		})
	}
}

func TestRedisDocument_Key(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	doc := NewRedisDocument(client, "season_state")
	if err := doc.Save(context.Background(), testDoc{Season: 1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !mr.Exists(KeyPrefix + "season_state") {
		t.Errorf("expected key %s to exist", KeyPrefix+"season_state")
	}
	if ttl := mr.TTL(KeyPrefix + "season_state"); ttl != 0 {
		t.Errorf("documents must not expire, TTL = %v", ttl)
	}
}

func TestRedisDocument_Unavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	doc := NewRedisDocument(client, "x")
	mr.SetError("server down")

	var v testDoc
	if _, err := doc.Load(context.Background(), &v); err == nil {
		t.Error("expected error while redis is failing")
	}
}

func TestHealthChecker(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	checker := NewHealthChecker(client, t.TempDir())
	if !checker.IsHealthy(context.Background()) {
		t.Error("expected healthy storage")
	}

	mr.SetError("server down")
	if checker.IsHealthy(context.Background()) {
		t.Error("expected unhealthy when redis fails")
	}
}
