// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrLevelNotReached  = errors.New("level not reached yet")
	ErrAlreadyClaimed   = errors.New("reward already claimed")
	ErrNoReward         = errors.New("no reward at this level")
	ErrNotEntitled      = errors.New("premium entitlement required")
	ErrSeasonNotRunning = errors.New("no active season")
)

// Tier is the catalog entry for one level.
type Tier struct {
	Level         int
	FreeReward    string
	PremiumReward string
}

// HasPremium reports whether the tier carries a premium reward.
func (t Tier) HasPremium() bool {
	return t.PremiumReward != ""
}

// TierCatalog looks up the rewards of a level.
type TierCatalog interface {
	TierForLevel(level int) (Tier, bool)
}

// EntitlementChecker answers whether a player currently holds premium.
type EntitlementChecker interface {
	HasEntitlement(ctx context.Context, playerID string) bool
}

// SeasonGate reports whether gameplay progress is currently accepted.
type SeasonGate interface {
	IsActive(ctx context.Context) bool
}

// LevelCap is implemented by season gates that know the running season's
// max level. Zero means unknown.
type LevelCap interface {
	MaxLevel(ctx context.Context) int
}

// Tracker applies gameplay mutations to player progress.
type Tracker struct {
	store        Store
	curve        Curve
	catalog      TierCatalog
	entitlements EntitlementChecker
	season       SeasonGate
}

// NewTracker creates a tracker. entitlements and season may be nil.
func NewTracker(store Store, curve Curve, catalog TierCatalog, entitlements EntitlementChecker, season SeasonGate) *Tracker {
	return &Tracker{
		store:        store,
		curve:        curve,
		catalog:      catalog,
		entitlements: entitlements,
		season:       season,
	}
}

func (t *Tracker) checkSeason(ctx context.Context) error {
	if t.season != nil && !t.season.IsActive(ctx) {
		return ErrSeasonNotRunning
	}
	return nil
}

// curveFor caps the configured curve at the running season's max level.
func (t *Tracker) curveFor(ctx context.Context) Curve {
	c := t.curve
	if lc, ok := t.season.(LevelCap); ok {
		if limit := lc.MaxLevel(ctx); limit > 0 {
			c.MaxLevel = limit
		}
	}
	return c
}

// AddPoints awards points and returns the updated record and levels gained.
func (t *Tracker) AddPoints(ctx context.Context, playerID string, points int) (*PlayerProgress, int, error) {
	if points <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	if err := t.checkSeason(ctx); err != nil {
		return nil, 0, err
	}

	curve := t.curveFor(ctx)
	var gained int
	p, err := t.store.Update(ctx, playerID, func(p *PlayerProgress) error {
		gained = curve.AddPoints(p, points)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to add points: %w", err)
	}

	if gained > 0 {
		logrus.Infof("player %s gained %d level(s), now level %d", playerID, gained, p.Level)
	}
	return p, gained, nil
}

// AddLevels raises a player's level directly.
func (t *Tracker) AddLevels(ctx context.Context, playerID string, levels int) (*PlayerProgress, error) {
	if levels <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := t.checkSeason(ctx); err != nil {
		return nil, err
	}
	curve := t.curveFor(ctx)
	p, err := t.store.Update(ctx, playerID, func(p *PlayerProgress) error {
		curve.AddLevels(p, levels)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add levels: %w", err)
	}
	return p, nil
}

// ClaimFree marks the free reward of level as claimed and returns its reference.
func (t *Tracker) ClaimFree(ctx context.Context, playerID string, level int) (string, error) {
	if err := t.checkSeason(ctx); err != nil {
		return "", err
	}
	tier, ok := t.catalog.TierForLevel(level)
	if !ok || tier.FreeReward == "" {
		return "", ErrNoReward
	}

	_, err := t.store.Update(ctx, playerID, func(p *PlayerProgress) error {
		if p.Level < level {
			return ErrLevelNotReached
		}
		if p.ClaimedFree.Has(level) {
			return ErrAlreadyClaimed
		}
		p.ClaimedFree.Add(level)
		return nil
	})
	if err != nil {
		return "", err
	}

	logrus.Infof("player %s claimed free reward %s at level %d", playerID, tier.FreeReward, level)
	return tier.FreeReward, nil
}

// ClaimPremium marks the premium reward of level as claimed. The player must
// hold the entitlement at claim time.
func (t *Tracker) ClaimPremium(ctx context.Context, playerID string, level int) (string, error) {
	if err := t.checkSeason(ctx); err != nil {
		return "", err
	}
	tier, ok := t.catalog.TierForLevel(level)
	if !ok || !tier.HasPremium() {
		return "", ErrNoReward
	}
	if t.entitlements == nil || !t.entitlements.HasEntitlement(ctx, playerID) {
		return "", ErrNotEntitled
	}

	_, err := t.store.Update(ctx, playerID, func(p *PlayerProgress) error {
		if p.Level < level {
			return ErrLevelNotReached
		}
		if p.ClaimedPremium.Has(level) {
			return ErrAlreadyClaimed
		}
		p.ClaimedPremium.Add(level)
		return nil
	})
	if err != nil {
		return "", err
	}

	logrus.Infof("player %s claimed premium reward %s at level %d", playerID, tier.PremiumReward, level)
	return tier.PremiumReward, nil
}

// View returns the current record of a player.
func (t *Tracker) View(ctx context.Context, playerID string) (*PlayerProgress, error) {
	return t.store.Get(ctx, playerID)
}

// Curve returns the curve in effect for the running season.
func (t *Tracker) Curve(ctx context.Context) Curve {
	return t.curveFor(ctx)
}
