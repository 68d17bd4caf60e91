// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package entitlement decides who holds the premium season pass and carries
// that set across season resets.
package entitlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
)

// Mode names the source of premium status.
type Mode string

const (
	// ModePurchase: premium is bought with an in-game balance.
	ModePurchase Mode = "economy"
	// ModeExternal: premium is granted by an external permission system.
	ModeExternal Mode = "permission"
	// ModeAlwaysOn: everyone has premium while a season runs.
	ModeAlwaysOn Mode = "disabled"
)

// ParseMode accepts the config values and their descriptive aliases.
// Anything unrecognised falls back to ModePurchase.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "permission", "external":
		return ModeExternal
	case "disabled", "always_on", "alwayson":
		return ModeAlwaysOn
	default:
		return ModePurchase
	}
}

// DisplayName is shown to operators.
func (m Mode) DisplayName() string {
	switch m {
	case ModeExternal:
		return "Permission-based"
	case ModeAlwaysOn:
		return "Free for everyone"
	default:
		return "Economy purchase"
	}
}

// Provider answers and changes premium status for one Mode.
//
// Every method reports false or a failure while no season is active.
type Provider interface {
	Mode() Mode

	// Initialize prepares the provider before it becomes active.
	Initialize(ctx context.Context) error
	// Shutdown is called when the provider stops being active.
	Shutdown(ctx context.Context) error

	HasEntitlement(ctx context.Context, playerID string) bool
	// Grant is the player-facing acquisition path (purchase, admin grant).
	Grant(ctx context.Context, playerID string) (bool, error)
	Revoke(ctx context.Context, playerID string) (bool, error)
	// Reinstate restores premium carried over from a previous season
	// without charging the player again.
	Reinstate(ctx context.Context, playerID string) (bool, error)

	StatusMessage(ctx context.Context, playerID string) string
}

// ExternalChecker is implemented by providers that can ask the
// authoritative source directly. Unlike HasEntitlement it reports an
// unavailable source as an error wrapping ErrSourceUnavailable.
type ExternalChecker interface {
	CheckExternal(ctx context.Context, playerID string) (bool, error)
}

// ExternalLister is implemented by providers whose source can enumerate
// every entitled player.
type ExternalLister interface {
	ListExternal(ctx context.Context) ([]string, error)
}

func seasonActive(ctx context.Context, season progress.SeasonGate) bool {
	return season != nil && season.IsActive(ctx)
}

// setFlag persists the local entitlement flag.
func setFlag(ctx context.Context, store progress.Store, playerID string, entitled bool) error {
	_, err := store.Update(ctx, playerID, func(p *progress.PlayerProgress) error {
		p.Entitled = entitled
		if !entitled {
			p.EntitlementExpiry = nil
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist premium flag: %w", err)
	}
	return nil
}

func localFlag(ctx context.Context, store progress.Store, playerID string) (bool, error) {
	p, err := store.Get(ctx, playerID)
	if err != nil {
		return false, err
	}
	return p.Entitled, nil
}
