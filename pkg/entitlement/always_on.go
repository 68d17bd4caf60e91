// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package entitlement

import (
	"context"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
)

// AlwaysOnProvider gives premium to every player while a season is active.
type AlwaysOnProvider struct {
	store  progress.Store
	season progress.SeasonGate
}

func NewAlwaysOnProvider(store progress.Store, season progress.SeasonGate) *AlwaysOnProvider {
	return &AlwaysOnProvider{store: store, season: season}
}

func (p *AlwaysOnProvider) Mode() Mode { return ModeAlwaysOn }

func (p *AlwaysOnProvider) Initialize(ctx context.Context) error { return nil }

func (p *AlwaysOnProvider) Shutdown(ctx context.Context) error { return nil }

func (p *AlwaysOnProvider) HasEntitlement(ctx context.Context, playerID string) bool {
	return seasonActive(ctx, p.season)
}

func (p *AlwaysOnProvider) Grant(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	return true, nil
}

func (p *AlwaysOnProvider) Revoke(ctx context.Context, playerID string) (bool, error) {
	return false, ErrRevokeNotSupported
}

// Reinstate keeps the stored flag so the set survives a later switch to
// another mode.
func (p *AlwaysOnProvider) Reinstate(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	if err := setFlag(ctx, p.store, playerID, true); err != nil {
		return false, err
	}
	return true, nil
}

func (p *AlwaysOnProvider) StatusMessage(ctx context.Context, playerID string) string {
	if !seasonActive(ctx, p.season) {
		return "No active season"
	}
	return "Premium active for everyone this season"
}
