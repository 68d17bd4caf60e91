// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/internal/config"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/service"
)

// Platform holds the AccelByte services. Both are nil when AB_ENABLED is off.
type Platform struct {
	Items  *service.EntitlementService
	Wallet *service.StatWallet
}

// Entitlements groups the premium components.
type Entitlements struct {
	Manager      *entitlement.Manager
	Preservation *entitlement.PreservationService
	External     *entitlement.ExternalGrantProvider
	Permissions  *service.RedisPermissionChecker
	Wallet       *service.RedisWallet
}

// InitEntitlements registers every premium provider and activates the
// configured mode.
//
// ============================================================
// DEVELOPER: Premium modes
// ============================================================
// purchase   - premium is bought with season currency (WALLET_BACKEND)
// permission - premium follows the Redis permission set of the node
// always_on  - every player is premium, also the fallback when the
//              configured mode fails to initialize
// ============================================================
func InitEntitlements(
	ctx context.Context,
	cfg *config.Config,
	pass *passconfig.Config,
	storage *Storage,
	redisClient *redis.Client,
	platform *Platform,
) (*Entitlements, error) {
	e := &Entitlements{}

	var balance entitlement.BalanceService
	var items entitlement.ItemGranter
	if platform != nil && platform.Items != nil {
		items = platform.Items
	}
	switch cfg.WalletBackend {
	case config.WalletStatistic:
		if platform == nil || platform.Wallet == nil {
			return nil, fmt.Errorf("statistic wallet requires the AccelByte platform")
		}
		balance = platform.Wallet
	default:
		if redisClient != nil {
			e.Wallet = service.NewRedisWallet(redisClient)
			balance = e.Wallet
		}
	}

	var source entitlement.PermissionSource
	if redisClient != nil {
		e.Permissions = service.NewRedisPermissionChecker(redisClient, service.RedisPermissionCheckerConfig{})
		source = e.Permissions
	}

	purchase := entitlement.NewPurchaseProvider(storage.Progress, storage.Seasons, balance, items, entitlement.PurchaseConfig{
		Cost:   pass.Premium.Cost,
		ItemID: pass.Premium.ItemID,
	})
	e.External = entitlement.NewExternalGrantProvider(storage.Progress, storage.Seasons, source, entitlement.ExternalConfig{
		Node: pass.Premium.PermissionNode,
	})
	alwaysOn := entitlement.NewAlwaysOnProvider(storage.Progress, storage.Seasons)

	e.Manager = entitlement.NewManager(purchase, e.External, alwaysOn)
	if err := e.Manager.Start(ctx, pass.PremiumMode()); err != nil {
		// The manager already fell back to always_on.
		logrus.Warnf("premium mode %s unavailable, running %s: %v", pass.PremiumMode(), e.Manager.Mode(), err)
	}
	logrus.Infof("premium mode: %s", e.Manager.Mode().DisplayName())

	e.Preservation = entitlement.NewPreservationService(storage.Progress, e.Manager, storage.Snapshots, entitlement.PreservationConfig{})

	return e, nil
}
