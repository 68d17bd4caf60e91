// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager is the single indirection point for premium checks. It holds
// one provider per Mode and delegates to whichever is active, so callers
// never see a mode switch.
type Manager struct {
	mu          sync.RWMutex
	providers   map[Mode]Provider
	active      Provider
	initialized bool
}

// NewManager registers the given providers. An AlwaysOn provider should
// be among them since it is the fallback when initialization fails.
func NewManager(providers ...Provider) *Manager {
	m := &Manager{providers: make(map[Mode]Provider, len(providers))}
	for _, p := range providers {
		m.providers[p.Mode()] = p
	}
	return m
}

// Start activates the provider for mode.
func (m *Manager) Start(ctx context.Context, mode Mode) error {
	return m.SwitchMode(ctx, mode)
}

// SwitchMode initializes the provider for mode and makes it active. When
// initialization fails the manager falls back to AlwaysOn and returns the
// original failure.
func (m *Manager) SwitchMode(ctx context.Context, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := m.providers[mode]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if m.active != nil && m.active.Mode() == mode && m.initialized {
		return nil
	}

	initErr := next.Initialize(ctx)
	if initErr != nil {
		logrus.Errorf("failed to initialize premium mode %s, falling back to %s: %v", mode, ModeAlwaysOn, initErr)
		fallback, ok := m.providers[ModeAlwaysOn]
		if !ok || mode == ModeAlwaysOn {
			m.initialized = m.active != nil
			return fmt.Errorf("failed to initialize premium mode %s: %w", mode, initErr)
		}
		if err := fallback.Initialize(ctx); err != nil {
			m.initialized = m.active != nil
			return errors.Join(initErr, err)
		}
		next = fallback
	}

	if m.active != nil && m.active != next {
		if err := m.active.Shutdown(ctx); err != nil {
			logrus.Warnf("failed to shut down premium mode %s: %v", m.active.Mode(), err)
		}
	}
	m.active = next
	m.initialized = true
	logrus.Infof("premium mode active: %s", next.Mode().DisplayName())

	if initErr != nil {
		return fmt.Errorf("failed to initialize premium mode %s: %w", mode, initErr)
	}
	return nil
}

// Initialized reports whether a provider is active.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Active returns the current provider, or nil before Start.
func (m *Manager) Active() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Provider returns the registered provider for mode.
func (m *Manager) Provider(mode Mode) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[mode]
	return p, ok
}

func (m *Manager) current() (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, errors.New("premium manager not started")
	}
	return m.active, nil
}

func (m *Manager) Mode() Mode {
	p, err := m.current()
	if err != nil {
		return ""
	}
	return p.Mode()
}

func (m *Manager) Initialize(ctx context.Context) error {
	p, err := m.current()
	if err != nil {
		return err
	}
	return p.Initialize(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	m.initialized = false
	return m.active.Shutdown(ctx)
}

func (m *Manager) HasEntitlement(ctx context.Context, playerID string) bool {
	p, err := m.current()
	if err != nil {
		return false
	}
	return p.HasEntitlement(ctx, playerID)
}

func (m *Manager) Grant(ctx context.Context, playerID string) (bool, error) {
	p, err := m.current()
	if err != nil {
		return false, err
	}
	return p.Grant(ctx, playerID)
}

func (m *Manager) Revoke(ctx context.Context, playerID string) (bool, error) {
	p, err := m.current()
	if err != nil {
		return false, err
	}
	return p.Revoke(ctx, playerID)
}

func (m *Manager) Reinstate(ctx context.Context, playerID string) (bool, error) {
	p, err := m.current()
	if err != nil {
		return false, err
	}
	return p.Reinstate(ctx, playerID)
}

func (m *Manager) StatusMessage(ctx context.Context, playerID string) string {
	p, err := m.current()
	if err != nil {
		return "Premium system not initialized"
	}
	return p.StatusMessage(ctx, playerID)
}

// CheckExternal asks the active provider's authoritative source. Providers
// without one answer from HasEntitlement.
func (m *Manager) CheckExternal(ctx context.Context, playerID string) (bool, error) {
	p, err := m.current()
	if err != nil {
		return false, err
	}
	if checker, ok := p.(ExternalChecker); ok {
		return checker.CheckExternal(ctx, playerID)
	}
	return p.HasEntitlement(ctx, playerID), nil
}

// ListExternal enumerates entitled players when the active provider can.
func (m *Manager) ListExternal(ctx context.Context) ([]string, error) {
	p, err := m.current()
	if err != nil {
		return nil, err
	}
	if lister, ok := p.(ExternalLister); ok {
		return lister.ListExternal(ctx)
	}
	return nil, nil
}
