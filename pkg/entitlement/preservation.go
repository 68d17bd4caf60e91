// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/AccelByte/extend-season-pass/pkg/state"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Policy selects how premium status is carried into a new season.
type Policy string

const (
	// PolicyPreserveAll re-grants every preserved player.
	PolicyPreserveAll Policy = "PRESERVE_ALL"
	// PolicySyncExternal re-grants preserved players the external source still confirms.
	PolicySyncExternal Policy = "SYNC_EXTERNAL"
	// PolicyPreserveAndSync re-grants preserved players plus anyone the source confirms.
	PolicyPreserveAndSync Policy = "PRESERVE_AND_SYNC"
	// PolicyNone discards the snapshot.
	PolicyNone Policy = "NONE"
)

// ParsePolicy accepts policy names case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PolicyPreserveAll, PolicySyncExternal, PolicyPreserveAndSync, PolicyNone:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// UsesExternal reports whether the policy consults the external source.
func (p Policy) UsesExternal() bool {
	return p == PolicySyncExternal || p == PolicyPreserveAndSync
}

// Snapshot is the persisted set of players who held premium when a
// season ended, plus restorations still waiting for the source to return.
type Snapshot struct {
	PreservedPlayerIDs []string  `json:"preservedPlayerIds"`
	CapturedAt         time.Time `json:"capturedAt"`
	SeasonNumber       int       `json:"sourceSeasonNumber"`
	Mode               Mode      `json:"providerMode"`
	Pending            []string  `json:"pendingRestorations,omitempty"`
}

// RestoreReport describes one Restore call.
type RestoreReport struct {
	Policy        Policy
	SnapshotFound bool
	SourceSeason  int
	Candidates    int
	Restored      []string
	Failed        []string
	// Pending players could not be checked or granted because the
	// external source was unavailable. They are retried on join.
	Pending []string

	// Stale is set when the snapshot was not captured from the season
	// right before the one being started. It is discarded unapplied.
	Stale bool
}

// RestorationCheck compares the snapshot with current premium flags.
type RestorationCheck struct {
	Expected int
	Restored []string
	Missing  []string
}

type PreservationConfig struct {
	// Workers bounds concurrent grants during Restore.
	Workers int
}

// PreservationService captures the premium set before a reset and
// re-applies it after the next season starts.
type PreservationService struct {
	store     progress.Store
	provider  Provider
	snapshots state.Document
	workers   int
	now       func() time.Time

	mu sync.Mutex
}

func NewPreservationService(store progress.Store, provider Provider, snapshots state.Document, cfg PreservationConfig) *PreservationService {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &PreservationService{
		store:     store,
		provider:  provider,
		snapshots: snapshots,
		workers:   cfg.Workers,
		now:       time.Now,
	}
}

// Preserve records every player whose stored flag is set and returns how
// many were captured. It replaces any previous snapshot.
func (s *PreservationService) Preserve(ctx context.Context, seasonNumber int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list players for preservation: %w", err)
	}

	ids := make([]string, 0)
	for _, r := range records {
		if r.Progress != nil && r.Progress.Entitled {
			ids = append(ids, r.PlayerID)
		}
	}
	sort.Strings(ids)

	snap := Snapshot{
		PreservedPlayerIDs: ids,
		CapturedAt:         s.now().UTC(),
		SeasonNumber:       seasonNumber,
		Mode:               s.provider.Mode(),
	}
	if err := s.snapshots.Save(ctx, &snap); err != nil {
		return 0, fmt.Errorf("failed to save entitlement snapshot: %w", err)
	}

	logrus.Infof("preserved premium status for %d players from season %d", len(ids), seasonNumber)
	return len(ids), nil
}

// Snapshot returns the stored snapshot, or false when there is none.
func (s *PreservationService) Snapshot(ctx context.Context) (*Snapshot, bool, error) {
	var snap Snapshot
	found, err := s.snapshots.Load(ctx, &snap)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load entitlement snapshot: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &snap, true, nil
}

// Clear discards the snapshot and any pending restorations.
func (s *PreservationService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.snapshots.Delete(ctx); err != nil {
		return fmt.Errorf("failed to clear entitlement snapshot: %w", err)
	}
	return nil
}

// Consume drops the preserved set once it has been applied. Pending
// restorations stay queued; the snapshot is deleted when none are left.
func (s *PreservationService) Consume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap Snapshot
	found, err := s.snapshots.Load(ctx, &snap)
	if err != nil {
		return fmt.Errorf("failed to load entitlement snapshot: %w", err)
	}
	if !found {
		return nil
	}
	if len(snap.Pending) == 0 {
		if err := s.snapshots.Delete(ctx); err != nil {
			return fmt.Errorf("failed to clear entitlement snapshot: %w", err)
		}
		return nil
	}
	snap.PreservedPlayerIDs = []string{}
	if err := s.snapshots.Save(ctx, &snap); err != nil {
		return fmt.Errorf("failed to save entitlement snapshot: %w", err)
	}
	return nil
}

// Restore applies the snapshot under policy to seasonNumber, the season
// being started. Only a snapshot captured from seasonNumber-1 is applied.
// Individual failures are reported, never returned; only snapshot IO
// errors are.
func (s *PreservationService) Restore(ctx context.Context, policy Policy, seasonNumber int) (*RestoreReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &RestoreReport{Policy: policy}

	var snap Snapshot
	found, err := s.snapshots.Load(ctx, &snap)
	if err != nil {
		return report, fmt.Errorf("failed to load entitlement snapshot: %w", err)
	}
	if !found {
		logrus.Infof("no entitlement snapshot to restore")
		return report, nil
	}
	report.SnapshotFound = true
	report.SourceSeason = snap.SeasonNumber

	if snap.SeasonNumber != seasonNumber-1 {
		report.Stale = true
		logrus.Warnf("discarding premium snapshot from season %d, season %d is starting",
			snap.SeasonNumber, seasonNumber)
		if err := s.snapshots.Delete(ctx); err != nil {
			return report, fmt.Errorf("failed to discard stale entitlement snapshot: %w", err)
		}
		return report, nil
	}

	if policy == PolicyNone {
		logrus.Infof("premium restoration disabled, discarding %d preserved players", len(snap.PreservedPlayerIDs))
		return report, nil
	}

	candidates, pending, err := s.candidates(ctx, policy, &snap)
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	restored, failed, unavailable := s.grantAll(ctx, candidates)
	report.Restored = restored
	report.Failed = failed
	report.Pending = mergeIDs(pending, unavailable)

	if len(report.Pending) > 0 {
		snap.Pending = mergeIDs(snap.Pending, report.Pending)
		if err := s.snapshots.Save(ctx, &snap); err != nil {
			logrus.Errorf("failed to queue %d pending restorations: %v", len(report.Pending), err)
		}
	}

	logrus.Infof("restored premium for %d of %d players under %s (%d failed, %d pending)",
		len(restored), len(candidates), policy, len(failed), len(report.Pending))
	return report, nil
}

// candidates works out who should be granted. Players whose external
// check could not be answered go to pending.
func (s *PreservationService) candidates(ctx context.Context, policy Policy, snap *Snapshot) ([]string, []string, error) {
	switch policy {
	case PolicyPreserveAll:
		return append([]string(nil), snap.PreservedPlayerIDs...), nil, nil

	case PolicySyncExternal:
		confirmed, pending := s.checkAll(ctx, snap.PreservedPlayerIDs)
		return confirmed, pending, nil

	case PolicyPreserveAndSync:
		extra, err := s.externalCandidates(ctx)
		if err != nil {
			logrus.Warnf("failed to enumerate external premium holders, restoring preserved players only: %v", err)
		}
		return mergeIDs(snap.PreservedPlayerIDs, extra), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
}

// externalCandidates lists every player the external source confirms,
// falling back to checking each stored player. Providers without an
// external source add nobody.
func (s *PreservationService) externalCandidates(ctx context.Context) ([]string, error) {
	if s.provider.Mode() != ModeExternal {
		logrus.Infof("premium mode %s has no external source, restoring preserved players only", s.provider.Mode())
		return nil, nil
	}
	if lister, ok := s.provider.(ExternalLister); ok {
		ids, err := lister.ListExternal(ctx)
		if err != nil {
			return nil, err
		}
		if ids != nil {
			return ids, nil
		}
	}
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.PlayerID)
	}
	confirmed, _ := s.checkAll(ctx, ids)
	return confirmed, nil
}

func (s *PreservationService) check(ctx context.Context, playerID string) (bool, error) {
	if checker, ok := s.provider.(ExternalChecker); ok {
		return checker.CheckExternal(ctx, playerID)
	}
	return s.provider.HasEntitlement(ctx, playerID), nil
}

func (s *PreservationService) checkAll(ctx context.Context, ids []string) (confirmed, pending []string) {
	for _, id := range ids {
		ok, err := s.check(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSourceUnavailable) {
				pending = append(pending, id)
				continue
			}
			logrus.Warnf("premium check failed for player %s: %v", id, err)
			continue
		}
		if ok {
			confirmed = append(confirmed, id)
		}
	}
	return confirmed, pending
}

// grantAll reinstates ids in parallel and sorts each outcome list.
func (s *PreservationService) grantAll(ctx context.Context, ids []string) (restored, failed, unavailable []string) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			ok, err := s.provider.Reinstate(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && errors.Is(err, ErrSourceUnavailable):
				unavailable = append(unavailable, id)
			case err != nil || !ok:
				logrus.Warnf("failed to restore premium for player %s: %v", id, err)
				failed = append(failed, id)
			default:
				restored = append(restored, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(restored)
	sort.Strings(failed)
	sort.Strings(unavailable)
	return restored, failed, unavailable
}

// Pending lists restorations waiting for the player to join.
func (s *PreservationService) Pending(ctx context.Context) ([]string, error) {
	snap, found, err := s.Snapshot(ctx)
	if err != nil || !found {
		return nil, err
	}
	return snap.Pending, nil
}

// HandlePlayerJoin applies a queued restoration for playerID, if any.
func (s *PreservationService) HandlePlayerJoin(ctx context.Context, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap Snapshot
	found, err := s.snapshots.Load(ctx, &snap)
	if err != nil {
		return false, fmt.Errorf("failed to load entitlement snapshot: %w", err)
	}
	if !found || !containsID(snap.Pending, playerID) {
		return false, nil
	}

	ok, err := s.provider.Reinstate(ctx, playerID)
	if err != nil || !ok {
		return false, fmt.Errorf("failed to apply pending restoration for player %s: %w", playerID, err)
	}

	snap.Pending = removeID(snap.Pending, playerID)
	if err := s.snapshots.Save(ctx, &snap); err != nil {
		return true, fmt.Errorf("failed to dequeue pending restoration: %w", err)
	}
	logrus.Infof("applied pending premium restoration for player %s", playerID)
	return true, nil
}

// ForceRestore reinstates one player regardless of policy.
func (s *PreservationService) ForceRestore(ctx context.Context, playerID string) (bool, error) {
	if err := progress.ValidatePlayerID(playerID); err != nil {
		return false, err
	}
	ok, err := s.provider.Reinstate(ctx, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to force restore premium for player %s: %w", playerID, err)
	}
	logrus.Infof("force restored premium for player %s", playerID)
	return ok, nil
}

// ValidateRestoration reports which preserved players do not hold premium now.
func (s *PreservationService) ValidateRestoration(ctx context.Context) (*RestorationCheck, error) {
	snap, found, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	check := &RestorationCheck{}
	if !found {
		return check, nil
	}
	check.Expected = len(snap.PreservedPlayerIDs)
	for _, id := range snap.PreservedPlayerIDs {
		p, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Entitled {
			check.Restored = append(check.Restored, id)
		} else {
			check.Missing = append(check.Missing, id)
		}
	}
	return check, nil
}

func mergeIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
