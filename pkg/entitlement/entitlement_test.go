// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package entitlement

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
)

type fakeSeason struct {
	mu     sync.Mutex
	active bool
}

func (f *fakeSeason) IsActive(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSeason) set(active bool) {
	f.mu.Lock()
	f.active = active
	f.mu.Unlock()
}

type fakeWallet struct {
	mu       sync.Mutex
	balances map[string]int
	err      error
}

func (w *fakeWallet) Withdraw(ctx context.Context, playerID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.balances[playerID] < amount {
		return ErrInsufficientFunds
	}
	w.balances[playerID] -= amount
	return nil
}

type fakeItems struct {
	granted []string
	err     error
}

func (f *fakeItems) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	f.granted = append(f.granted, userID+":"+itemID)
	return f.err
}

type fakePermissions struct {
	mu      sync.Mutex
	holders map[string]bool
	down    bool
}

func (f *fakePermissions) HasPermission(ctx context.Context, playerID, node string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return false, errors.New("connection refused")
	}
	return f.holders[playerID], nil
}

func (f *fakePermissions) ListHolders(ctx context.Context, node string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errors.New("connection refused")
	}
	var ids []string
	for id, ok := range f.holders {
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakePermissions) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func newTestStore(t *testing.T) progress.Store {
	t.Helper()
	store, err := progress.NewFileStore(filepath.Join(t.TempDir(), "players"), progress.FileStoreConfig{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func setEntitled(t *testing.T, store progress.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		p := progress.New()
		p.Entitled = true
		if err := store.Put(context.Background(), id, p); err != nil {
			t.Fatalf("failed to seed player %s: %v", id, err)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"economy":    ModePurchase,
		"":           ModePurchase,
		"bogus":      ModePurchase,
		"permission": ModeExternal,
		"EXTERNAL":   ModeExternal,
		"disabled":   ModeAlwaysOn,
		"always_on":  ModeAlwaysOn,
	}
	for in, want := range tests {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPurchaseProvider_Grant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	season := &fakeSeason{active: true}
	wallet := &fakeWallet{balances: map[string]int{"rich": 5000, "poor": 10}}
	items := &fakeItems{}
	p := NewPurchaseProvider(store, season, wallet, items, PurchaseConfig{ItemID: "pass-item"})

	if p.Cost() != DefaultPremiumCost {
		t.Fatalf("expected default cost %d, got %d", DefaultPremiumCost, p.Cost())
	}

	ok, err := p.Grant(ctx, "rich")
	if err != nil || !ok {
		t.Fatalf("expected purchase to succeed, got %v, %v", ok, err)
	}
	if wallet.balances["rich"] != 4000 {
		t.Errorf("expected balance 4000, got %d", wallet.balances["rich"])
	}
	if !p.HasEntitlement(ctx, "rich") {
		t.Error("expected player to be premium after purchase")
	}
	if len(items.granted) != 1 || items.granted[0] != "rich:pass-item" {
		t.Errorf("expected item fulfillment, got %v", items.granted)
	}

	if _, err := p.Grant(ctx, "rich"); !errors.Is(err, ErrAlreadyEntitled) {
		t.Errorf("expected ErrAlreadyEntitled, got %v", err)
	}

	if _, err := p.Grant(ctx, "poor"); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if p.HasEntitlement(ctx, "poor") {
		t.Error("expected failed purchase to leave player without premium")
	}
}

func TestPurchaseProvider_ItemFailureDoesNotUndoPurchase(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	wallet := &fakeWallet{balances: map[string]int{"p1": 1000}}
	p := NewPurchaseProvider(store, &fakeSeason{active: true}, wallet, &fakeItems{err: errors.New("platform down")}, PurchaseConfig{ItemID: "x"})

	if ok, err := p.Grant(ctx, "p1"); err != nil || !ok {
		t.Fatalf("expected purchase to succeed, got %v, %v", ok, err)
	}
	if !p.HasEntitlement(ctx, "p1") {
		t.Error("expected premium despite fulfillment failure")
	}
}

func TestPurchaseProvider_Revoke(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	setEntitled(t, store, "p1")
	wallet := &fakeWallet{balances: map[string]int{}}
	p := NewPurchaseProvider(store, &fakeSeason{active: true}, wallet, nil, PurchaseConfig{})

	if ok, err := p.Revoke(ctx, "p1"); err != nil || !ok {
		t.Fatalf("expected revoke to succeed, got %v, %v", ok, err)
	}
	if wallet.balances["p1"] != 0 {
		t.Error("revoke must not refund")
	}
	if _, err := p.Revoke(ctx, "p1"); !errors.Is(err, ErrNotEntitled) {
		t.Errorf("expected ErrNotEntitled, got %v", err)
	}
}

func TestProviders_InactiveSeason(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	setEntitled(t, store, "p1")
	season := &fakeSeason{active: false}
	providers := []Provider{
		NewPurchaseProvider(store, season, &fakeWallet{balances: map[string]int{"p1": 9999}}, nil, PurchaseConfig{}),
		NewExternalGrantProvider(store, season, &fakePermissions{holders: map[string]bool{"p1": true}}, ExternalConfig{}),
		NewAlwaysOnProvider(store, season),
	}

	for _, p := range providers {
		t.Run(string(p.Mode()), func(t *testing.T) {
			if p.HasEntitlement(ctx, "p1") {
				t.Error("expected no entitlement without an active season")
			}
			if ok, _ := p.Grant(ctx, "p1"); ok {
				t.Error("expected grant to fail without an active season")
			}
			if ok, _ := p.Reinstate(ctx, "p1"); ok {
				t.Error("expected reinstate to fail without an active season")
			}
			if msg := p.StatusMessage(ctx, "p1"); msg != "No active season" {
				t.Errorf("unexpected status message %q", msg)
			}
		})
	}
}

func TestExternalGrantProvider_FailsClosed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	setEntitled(t, store, "p1")
	source := &fakePermissions{holders: map[string]bool{"p1": true}}
	p := NewExternalGrantProvider(store, &fakeSeason{active: true}, source, ExternalConfig{})

	if !p.HasEntitlement(ctx, "p1") {
		t.Fatal("expected entitlement while source confirms")
	}

	source.setDown(true)
	if p.HasEntitlement(ctx, "p1") {
		t.Error("expected fail-closed while source is unavailable, even with local flag set")
	}
	if _, err := p.CheckExternal(ctx, "p1"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestExternalGrantProvider_SyncAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	setEntitled(t, store, "stale")
	if err := store.Put(ctx, "fresh", progress.New()); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	source := &fakePermissions{holders: map[string]bool{"fresh": true}}
	p := NewExternalGrantProvider(store, &fakeSeason{active: true}, source, ExternalConfig{Node: "vip"})

	n, err := p.SyncAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 synced, got %d, %v", n, err)
	}
	stale, _ := store.Get(ctx, "stale")
	fresh, _ := store.Get(ctx, "fresh")
	if stale.Entitled || !fresh.Entitled {
		t.Errorf("expected flags to follow source, got stale=%v fresh=%v", stale.Entitled, fresh.Entitled)
	}
}

func TestAlwaysOnProvider(t *testing.T) {
	ctx := context.Background()
	p := NewAlwaysOnProvider(newTestStore(t), &fakeSeason{active: true})
	if !p.HasEntitlement(ctx, "anyone") {
		t.Error("expected everyone to be premium")
	}
	if _, err := p.Revoke(ctx, "anyone"); !errors.Is(err, ErrRevokeNotSupported) {
		t.Errorf("expected ErrRevokeNotSupported, got %v", err)
	}
}

func TestManager_SwitchModeFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	season := &fakeSeason{active: true}
	m := NewManager(
		NewPurchaseProvider(store, season, nil, nil, PurchaseConfig{}),
		NewAlwaysOnProvider(store, season),
	)

	if m.Initialized() {
		t.Fatal("expected manager to start uninitialized")
	}
	err := m.Start(ctx, ModePurchase)
	if err == nil {
		t.Fatal("expected purchase mode without balance service to fail")
	}
	if !m.Initialized() || m.Mode() != ModeAlwaysOn {
		t.Errorf("expected fallback to always-on, got %s", m.Mode())
	}
	if !m.HasEntitlement(ctx, "p1") {
		t.Error("expected delegation to always-on provider")
	}

	if err := m.SwitchMode(ctx, ModeExternal); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestManager_DelegatesExternalCheck(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	source := &fakePermissions{holders: map[string]bool{}, down: true}
	m := NewManager(NewExternalGrantProvider(store, &fakeSeason{active: true}, source, ExternalConfig{}))
	if err := m.Start(ctx, ModeExternal); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if _, err := m.CheckExternal(ctx, "p1"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable through manager, got %v", err)
	}
}
