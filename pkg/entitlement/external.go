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

// DefaultPermissionNode is checked when no node is configured.
const DefaultPermissionNode = "seasonpass.premium"

// PermissionSource is the authoritative external permission system.
// Any error means the source could not answer.
type PermissionSource interface {
	HasPermission(ctx context.Context, playerID, node string) (bool, error)
}

// PermissionLister is implemented by sources that can enumerate holders.
type PermissionLister interface {
	ListHolders(ctx context.Context, node string) ([]string, error)
}

type ExternalConfig struct {
	Node string
}

// ExternalGrantProvider trusts only the external permission source.
// When the source is down HasEntitlement fails closed. Grant and Revoke
// only maintain the local fallback flag kept in the progress record.
type ExternalGrantProvider struct {
	store  progress.Store
	season progress.SeasonGate
	source PermissionSource
	cfg    ExternalConfig
}

// NewExternalGrantProvider creates a permission-backed provider.
func NewExternalGrantProvider(store progress.Store, season progress.SeasonGate, source PermissionSource, cfg ExternalConfig) *ExternalGrantProvider {
	if cfg.Node == "" {
		cfg.Node = DefaultPermissionNode
	}
	return &ExternalGrantProvider{
		store:  store,
		season: season,
		source: source,
		cfg:    cfg,
	}
}

func (p *ExternalGrantProvider) Mode() Mode { return ModeExternal }

func (p *ExternalGrantProvider) Initialize(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("permission mode requires a permission source")
	}
	logrus.Infof("premium permission mode ready, node %s", p.cfg.Node)
	return nil
}

func (p *ExternalGrantProvider) Shutdown(ctx context.Context) error { return nil }

// Node returns the permission node checked.
func (p *ExternalGrantProvider) Node() string { return p.cfg.Node }

// CheckExternal asks the permission source and keeps "unavailable" distinct
// from "not entitled".
func (p *ExternalGrantProvider) CheckExternal(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	ok, err := p.source.HasPermission(ctx, playerID, p.cfg.Node)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return ok, nil
}

// HasEntitlement never falls back to the local flag.
func (p *ExternalGrantProvider) HasEntitlement(ctx context.Context, playerID string) bool {
	ok, err := p.CheckExternal(ctx, playerID)
	if err != nil {
		if !errors.Is(err, ErrNoActiveSeason) {
			logrus.Warnf("permission check failed for player %s, denying premium: %v", playerID, err)
		}
		return false
	}
	return ok
}

func (p *ExternalGrantProvider) Grant(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	if err := setFlag(ctx, p.store, playerID, true); err != nil {
		return false, err
	}
	logrus.Infof("set local premium fallback for player %s; grant node %s in the permission system to make it effective", playerID, p.cfg.Node)
	return true, nil
}

func (p *ExternalGrantProvider) Revoke(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	if err := setFlag(ctx, p.store, playerID, false); err != nil {
		return false, err
	}
	logrus.Infof("cleared local premium fallback for player %s", playerID)
	return true, nil
}

func (p *ExternalGrantProvider) Reinstate(ctx context.Context, playerID string) (bool, error) {
	if !seasonActive(ctx, p.season) {
		return false, ErrNoActiveSeason
	}
	if err := setFlag(ctx, p.store, playerID, true); err != nil {
		return false, err
	}
	return true, nil
}

// ListExternal enumerates permission holders when the source supports it.
func (p *ExternalGrantProvider) ListExternal(ctx context.Context) ([]string, error) {
	lister, ok := p.source.(PermissionLister)
	if !ok {
		return nil, nil
	}
	ids, err := lister.ListHolders(ctx, p.cfg.Node)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return ids, nil
}

// SyncPlayer copies the external answer into the local fallback flag.
func (p *ExternalGrantProvider) SyncPlayer(ctx context.Context, playerID string) (bool, error) {
	ok, err := p.CheckExternal(ctx, playerID)
	if err != nil {
		return false, err
	}
	if err := setFlag(ctx, p.store, playerID, ok); err != nil {
		return false, err
	}
	return ok, nil
}

// SyncAll runs SyncPlayer for every stored player. It stops at the first
// unavailable answer since the remaining checks would fail the same way.
func (p *ExternalGrantProvider) SyncAll(ctx context.Context) (int, error) {
	records, err := p.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, r := range records {
		if _, err := p.SyncPlayer(ctx, r.PlayerID); err != nil {
			return synced, fmt.Errorf("sync stopped after %d players: %w", synced, err)
		}
		synced++
	}
	logrus.Infof("synced premium flag for %d players from node %s", synced, p.cfg.Node)
	return synced, nil
}

func (p *ExternalGrantProvider) StatusMessage(ctx context.Context, playerID string) string {
	ok, err := p.CheckExternal(ctx, playerID)
	switch {
	case errors.Is(err, ErrNoActiveSeason):
		return "No active season"
	case err != nil:
		return "Permission service unavailable, premium temporarily denied"
	case ok:
		return "Premium active (permission)"
	default:
		return "Premium requires the " + p.cfg.Node + " permission"
	}
}
