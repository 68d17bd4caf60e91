// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclient/fulfillment"
	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclientmodels"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclient/user_statistic"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclientmodels"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
)

// EntitlementService fulfills the premium pass item in the platform store
// after a purchase.
type EntitlementService struct {
	fulfillmentClient *platform.FulfillmentService
	cfg               EntitlementServiceConfig
}

type EntitlementServiceConfig struct {
	Namespace string
}

func NewEntitlementService(
	fulfillmentClient *platform.FulfillmentService,
	cfg EntitlementServiceConfig,
) *EntitlementService {
	return &EntitlementService{
		fulfillmentClient: fulfillmentClient,
		cfg:               cfg,
	}
}

// GrantEntitlement fulfills quantity of itemID to userID.
func (s *EntitlementService) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("invalid fulfillment quantity %d", quantity)
	}
	qty := int32(quantity)

	resp, err := s.fulfillmentClient.FulfillItemShort(&fulfillment.FulfillItemParams{
		Namespace: s.cfg.Namespace,
		UserID:    userID,
		Body: &platformclientmodels.FulfillmentRequest{
			ItemID:   itemID,
			Quantity: &qty,
			Source:   platformclientmodels.FulfillmentRequestSourceREWARD,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to fulfill premium item %s: %w", itemID, err)
	}
	if resp == nil {
		return fmt.Errorf("could not fulfill premium item %s: empty response", itemID)
	}

	logrus.Infof("fulfilled premium item %s x%d for user %s", itemID, quantity, userID)
	return nil
}

// StatWallet keeps the season currency in a user statistic. The stat must
// be configured with a minimum of 0 so an overdraft is rejected by the
// statistic service itself.
type StatWallet struct {
	statisticsService *social.UserStatisticService
	cfg               StatWalletConfig
}

type StatWalletConfig struct {
	Namespace string
	StatCode  string
}

const DefaultCurrencyStatCode = "season-pass-currency"

func NewStatWallet(statisticsService *social.UserStatisticService, cfg StatWalletConfig) *StatWallet {
	if cfg.StatCode == "" {
		cfg.StatCode = DefaultCurrencyStatCode
	}
	return &StatWallet{
		statisticsService: statisticsService,
		cfg:               cfg,
	}
}

// Withdraw decrements the currency stat by amount.
func (w *StatWallet) Withdraw(ctx context.Context, userID string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("invalid withdrawal amount %d", amount)
	}
	if amount == 0 {
		return nil
	}

	_, err := w.statisticsService.IncUserStatItemValueShort(&user_statistic.IncUserStatItemValueParams{
		Namespace: w.cfg.Namespace,
		UserID:    userID,
		StatCode:  w.cfg.StatCode,
		Body: &socialclientmodels.StatItemInc{
			Inc: float64(-amount),
		},
	})
	if err != nil {
		if isOutOfRange(err) {
			return fmt.Errorf("%w: user %s", entitlement.ErrInsufficientFunds, userID)
		}
		return fmt.Errorf("failed to decrement user %s statistic %s: %w", userID, w.cfg.StatCode, err)
	}
	return nil
}

// isOutOfRange recognizes the statistic service rejecting a value below
// the stat minimum.
func isOutOfRange(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := strings.ToLower(e.Error())
		if strings.Contains(msg, "out of range") || strings.Contains(msg, "12275") {
			return true
		}
	}
	return false
}
