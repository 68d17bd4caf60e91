// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/sirupsen/logrus"
)

// DefaultPremiumCost is charged when no cost is configured.
const DefaultPremiumCost = 1000

// BalanceService deducts the premium price from a player's balance.
// Implementations return ErrInsufficientFunds when the player cannot pay
// and wrap ErrSourceUnavailable when the balance system cannot be reached.
type BalanceService interface {
	Withdraw(ctx context.Context, playerID string, amount int) error
}

// ItemGranter records the purchase on the platform side.
type ItemGranter interface {
	GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error
}

type PurchaseConfig struct {
	Cost int
	// ItemID, when set, is fulfilled through the ItemGranter after payment.
	ItemID string
}

// PurchaseProvider stores premium in the player's progress record and
// charges for it on Grant. Revoke never refunds.
type PurchaseProvider struct {
	store   progress.Store
	season  progress.SeasonGate
	balance BalanceService
	items   ItemGranter
	cfg     PurchaseConfig
}

// NewPurchaseProvider creates a purchase-based provider. items may be nil.
func NewPurchaseProvider(store progress.Store, season progress.SeasonGate, balance BalanceService, items ItemGranter, cfg PurchaseConfig) *PurchaseProvider {
	if cfg.Cost <= 0 {
		cfg.Cost = DefaultPremiumCost
	}
	return &PurchaseProvider{
		store:   store,
		season:  season,
		balance: balance,
		items:   items,
		cfg:     cfg,
	}
}

func (p *PurchaseProvider) Mode() Mode { return ModePurchase }

func (p *PurchaseProvider) Initialize(ctx context.Context) error {
	if p.balance == nil {
		return fmt.Errorf("purchase mode requires a balance service")
	}
	logrus.Infof("premium purchase mode ready, cost %d", p.cfg.Cost)
	return nil
}

func (p *PurchaseProvider) Shutdown(ctx context.Context) error { return nil }

// Cost returns the premium price.
func (p *PurchaseProvider) Cost() int { return p.cfg.Cost }

func (p *PurchaseProvider) HasEntitlement(ctx context.Context, playerID string) bool {
	if !seasonActive(ctx, p.season) {
		return false
	}
	entitled, err := localFlag(ctx, p.store, playerID)
	if err != nil {
		logrus.Errorf("failed to read premium flag for player %s: %v", playerID, err)
		return false
	}
	return entitled
}

// Grant charges the premium cost and then marks the player premium.
func (p *PurchaseProvider) Grant(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	entitled, err := localFlag(ctx, p.store, playerID)
	if err != nil {
		return false, err
	}
	if entitled {
		return false, ErrAlreadyEntitled
	}

	if err := p.balance.Withdraw(ctx, playerID, p.cfg.Cost); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			logrus.Infof("player %s cannot afford premium (cost %d)", playerID, p.cfg.Cost)
		} else {
			logrus.Errorf("premium payment failed for player %s: %v", playerID, err)
		}
		return false, fmt.Errorf("failed to charge premium: %w", err)
	}

	if err := setFlag(ctx, p.store, playerID, true); err != nil {
		logrus.Errorf("player %s was charged %d but premium could not be saved: %v", playerID, p.cfg.Cost, err)
		return false, err
	}

	if p.items != nil && p.cfg.ItemID != "" {
		if err := p.items.GrantEntitlement(ctx, playerID, p.cfg.ItemID, 1); err != nil {
			logrus.Errorf("failed to fulfill premium item %s for player %s: %v", p.cfg.ItemID, playerID, err)
		}
	}

	logrus.Infof("player %s purchased premium for %d", playerID, p.cfg.Cost)
	return true, nil
}

// Revoke clears the flag without touching the balance.
func (p *PurchaseProvider) Revoke(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	entitled, err := localFlag(ctx, p.store, playerID)
	if err != nil {
		return false, err
	}
	if !entitled {
		return false, ErrNotEntitled
	}
	if err := setFlag(ctx, p.store, playerID, false); err != nil {
		return false, err
	}
	logrus.Infof("revoked premium from player %s", playerID)
	return true, nil
}

func (p *PurchaseProvider) Reinstate(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	if err := setFlag(ctx, p.store, playerID, true); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PurchaseProvider) StatusMessage(ctx context.Context, playerID string) string {
	if !seasonActive(ctx, p.season) {
		return "No active season"
	}
	if p.HasEntitlement(ctx, playerID) {
		return "Premium active (purchased)"
	}
	return fmt.Sprintf("Premium available for %d", p.cfg.Cost)
}
