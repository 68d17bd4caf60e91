// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"context"
	"testing"
)

type mapCatalog map[int]Tier

func (c mapCatalog) TierForLevel(level int) (Tier, bool) {
	t, ok := c[level]
	return t, ok
}

type fixedEntitlement bool

func (f fixedEntitlement) HasEntitlement(ctx context.Context, playerID string) bool {
	return bool(f)
}

type fixedSeason bool

func (f fixedSeason) IsActive(ctx context.Context) bool {
	return bool(f)
}

// cappedSeason is an active season with its own max level.
type cappedSeason int

func (c cappedSeason) IsActive(ctx context.Context) bool { return true }

func (c cappedSeason) MaxLevel(ctx context.Context) int { return int(c) }

func newTestTracker(t *testing.T, entitled, active bool) (*Tracker, Store) {
	store, err := NewFileStore(t.TempDir(), FileStoreConfig{})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	catalog := mapCatalog{
		1: {Level: 1, FreeReward: "coins_100"},
		2: {Level: 2, FreeReward: "coins_200", PremiumReward: "skin_gold"},
	}
	return NewTracker(store, DefaultCurve(10), catalog, fixedEntitlement(entitled), fixedSeason(active)), store
}

func TestTracker_AddPoints(t *testing.T) {
	tracker, _ := newTestTracker(t, false, true)

	p, gained, err := tracker.AddPoints(context.Background(), "p1", 1200)
	if err != nil {
		t.Fatalf("AddPoints() error = %v", err)
	}
	if gained != 1 || p.Level != 2 || p.Points != 200 {
		t.Errorf("got gained=%d level=%d points=%d, expected 1/2/200", gained, p.Level, p.Points)
	}

	if _, _, err := tracker.AddPoints(context.Background(), "p1", 0); err != ErrInvalidAmount {
		t.Errorf("AddPoints(0) error = %v, expected ErrInvalidAmount", err)
	}
}

func TestTracker_AddPoints_InactiveSeason(t *testing.T) {
	tracker, _ := newTestTracker(t, false, false)

	if _, _, err := tracker.AddPoints(context.Background(), "p1", 10); err != ErrSeasonNotRunning {
		t.Errorf("error = %v, expected ErrSeasonNotRunning", err)
	}
}

func TestTracker_ClaimFree(t *testing.T) {
	tracker, _ := newTestTracker(t, false, true)
	ctx := context.Background()

	if _, err := tracker.ClaimFree(ctx, "p1", 2); err != ErrLevelNotReached {
		t.Errorf("claim above level error = %v, expected ErrLevelNotReached", err)
	}

	ref, err := tracker.ClaimFree(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("ClaimFree() error = %v", err)
	}
	if ref != "coins_100" {
		t.Errorf("reward = %s, expected coins_100", ref)
	}

	if _, err := tracker.ClaimFree(ctx, "p1", 1); err != ErrAlreadyClaimed {
		t.Errorf("second claim error = %v, expected ErrAlreadyClaimed", err)
	}
	if _, err := tracker.ClaimFree(ctx, "p1", 7); err != ErrNoReward {
		t.Errorf("claim without tier error = %v, expected ErrNoReward", err)
	}
}

func TestTracker_ClaimPremiumRequiresEntitlement(t *testing.T) {
	ctx := context.Background()

	tracker, _ := newTestTracker(t, false, true)
	if _, err := tracker.AddLevels(ctx, "p1", 1); err != nil {
		t.Fatalf("AddLevels() error = %v", err)
	}
	if _, err := tracker.ClaimPremium(ctx, "p1", 2); err != ErrNotEntitled {
		t.Errorf("error = %v, expected ErrNotEntitled", err)
	}

	premium, store := newTestTracker(t, true, true)
	if _, err := premium.AddLevels(ctx, "p2", 1); err != nil {
		t.Fatalf("AddLevels() error = %v", err)
	}
	if _, err := premium.ClaimPremium(ctx, "p2", 1); err != ErrNoReward {
		t.Errorf("tier without premium reward error = %v, expected ErrNoReward", err)
	}
	ref, err := premium.ClaimPremium(ctx, "p2", 2)
	if err != nil {
		t.Fatalf("ClaimPremium() error = %v", err)
	}
	if ref != "skin_gold" {
		t.Errorf("reward = %s, expected skin_gold", ref)
	}

	p, _ := store.Get(ctx, "p2")
	if !p.ClaimedPremium.Has(2) {
		t.Error("premium claim not persisted")
	}
}

func TestTracker_SeasonMaxLevelCapsProgress(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), FileStoreConfig{})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	tracker := NewTracker(store, DefaultCurve(100), mapCatalog{}, fixedEntitlement(false), cappedSeason(5))

	p, _, err := tracker.AddPoints(ctx, "p1", 1_000_000)
	if err != nil {
		t.Fatalf("AddPoints() error = %v", err)
	}
	if p.Level != 5 || p.Points != 0 {
		t.Errorf("got level=%d points=%d, expected capped at 5/0", p.Level, p.Points)
	}

	p, err = tracker.AddLevels(ctx, "p2", 50)
	if err != nil {
		t.Fatalf("AddLevels() error = %v", err)
	}
	if p.Level != 5 {
		t.Errorf("AddLevels() level = %d, expected capped at 5", p.Level)
	}
	if got := tracker.Curve(ctx).MaxLevel; got != 5 {
		t.Errorf("Curve().MaxLevel = %d, expected 5", got)
	}

	unknown := NewTracker(store, DefaultCurve(100), mapCatalog{}, fixedEntitlement(false), cappedSeason(0))
	if got := unknown.Curve(ctx).MaxLevel; got != 100 {
		t.Errorf("Curve().MaxLevel without a season cap = %d, expected 100", got)
	}
}

func TestTracker_AddLevels_InactiveSeason(t *testing.T) {
	tracker, store := newTestTracker(t, false, false)
	ctx := context.Background()

	if _, err := tracker.AddLevels(ctx, "p1", 2); err != ErrSeasonNotRunning {
		t.Errorf("error = %v, expected ErrSeasonNotRunning", err)
	}
	if p, _ := store.Get(ctx, "p1"); p.Level != 1 {
		t.Errorf("level = %d after rejected AddLevels, expected 1", p.Level)
	}
}
