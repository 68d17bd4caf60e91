// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/fault"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/AccelByte/extend-season-pass/pkg/recovery"
	"github.com/AccelByte/extend-season-pass/pkg/state"
)

type freeWallet struct{}

func (freeWallet) Withdraw(ctx context.Context, playerID string, amount int) error { return nil }

// flakyStore clears the first clearAfter records to defaults and then
// fails once, the way a crash halfway through a bulk delete would.
type flakyStore struct {
	progress.Store
	clearAfter int
	failClear  bool
}

func (s *flakyStore) DeleteAll(ctx context.Context) (int, error) {
	if !s.failClear {
		return s.Store.DeleteAll(ctx)
	}
	records, err := s.Store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range records {
		if n == s.clearAfter {
			break
		}
		if err := s.Store.Put(ctx, r.PlayerID, progress.New()); err != nil {
			return n, err
		}
		n++
	}
	s.failClear = false
	return n, errors.New("disk write failed")
}

type failingArchive struct{ err error }

func (f failingArchive) Create(ctx context.Context, seasonNumber int, reason string) (*backup.Record, error) {
	return nil, f.err
}

// blockingArchive holds Create until release is closed.
type blockingArchive struct {
	*backup.Archive
	entered chan struct{}
	release chan struct{}
}

func (b *blockingArchive) Create(ctx context.Context, seasonNumber int, reason string) (*backup.Record, error) {
	close(b.entered)
	<-b.release
	return b.Archive.Create(ctx, seasonNumber, reason)
}

type failingPreserver struct{ calls int }

func (f *failingPreserver) Preserve(ctx context.Context, seasonNumber int) (int, error) {
	f.calls++
	return 0, errors.New("snapshot store unavailable")
}

func (f *failingPreserver) Clear(ctx context.Context) error { return nil }

type harness struct {
	cfg          *passconfig.Config
	store        *flakyStore
	seasons      *StateStore
	archive      *backup.Archive
	manager      *entitlement.Manager
	preservation *entitlement.PreservationService
	validator    *Validator
	advisor      *recovery.Advisor
	engine       *ResetEngine
	coord        *Coordinator
	auditDir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	fs, err := progress.NewFileStore(filepath.Join(root, "players"), progress.FileStoreConfig{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	h := &harness{cfg: passconfig.Default(), store: &flakyStore{Store: fs}}
	h.seasons = NewStateStore(state.NewFileDocument(filepath.Join(root, "season.json")))

	h.archive, err = backup.NewArchive(filepath.Join(root, "backups"), h.store, h.seasons, nil, backup.Config{
		FreeSpace: func(string) (uint64, error) { return 10 << 30, nil },
	})
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	h.manager = entitlement.NewManager(
		entitlement.NewPurchaseProvider(h.store, h.seasons, freeWallet{}, nil, entitlement.PurchaseConfig{}),
		entitlement.NewAlwaysOnProvider(h.store, h.seasons),
	)
	if err := h.manager.Start(ctx, entitlement.ModePurchase); err != nil {
		t.Fatalf("failed to start premium manager: %v", err)
	}
	h.preservation = entitlement.NewPreservationService(h.store, h.manager,
		state.NewFileDocument(filepath.Join(root, "premium_snapshot.json")), entitlement.PreservationConfig{})

	h.auditDir = filepath.Join(root, "error_logs")
	h.advisor = recovery.NewAdvisor(h.archive, h.preservation, h.auditDir)
	health := state.NewHealthChecker(nil, filepath.Join(root, "players"), filepath.Join(root, "backups"))
	h.validator = NewValidator(h.cfg, h.seasons, h.store, health, h.archive, h.manager, h.preservation)
	h.engine = NewResetEngine(h.store, h.seasons, h.archive, h.preservation, h.validator, h.advisor, nil)
	h.coord = NewCoordinator(h.engine, h.seasons, h.preservation, h.validator, h.advisor, nil)
	return h
}

// seed starts season 1 and writes players; entitled ids hold premium.
func (h *harness) seed(t *testing.T, players map[string]bool) {
	t.Helper()
	ctx := context.Background()
	start := time.Now().Add(-time.Hour).UTC()
	end := start.Add(30 * 24 * time.Hour)
	if err := h.seasons.Save(ctx, State{SeasonNumber: 1, SeasonID: "season-1", SeasonName: "Season 1", MaxLevel: 100, StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("failed to save season: %v", err)
	}
	level := 2
	for id, entitled := range players {
		p := progress.New()
		p.Level = level
		p.Points = 40 * level
		p.Entitled = entitled
		p.ClaimedFree.Add(1)
		level++
		if err := h.store.Put(ctx, id, p); err != nil {
			t.Fatalf("failed to seed %s: %v", id, err)
		}
	}
}

func containsText(lines []string, text string) bool {
	for _, l := range lines {
		if strings.Contains(l, text) {
			return true
		}
	}
	return false
}

func (h *harness) levels(t *testing.T) map[string]int {
	t.Helper()
	records, err := h.store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	out := make(map[string]int, len(records))
	for _, r := range records {
		out[r.PlayerID] = r.Progress.Level
	}
	return out
}

func TestEndThenStart_PreserveAll(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false, "C": true})

	res, err := h.coord.EndSeason(ctx, DefaultResetOptions(h.cfg))
	if err != nil {
		t.Fatalf("end season failed: %v (%+v)", err, res)
	}
	if !res.Success || res.Phase != PhaseCompleted {
		t.Fatalf("expected completed reset, got %s: %s", res.Phase, res.Message)
	}
	if res.Summary.PremiumPreserved != 2 || res.Summary.PlayersReset != 3 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
	if res.Summary.BackupPath == "" || res.Summary.PreviousSeason != 1 || res.Summary.NewSeason != 2 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}

	for _, id := range []string{"A", "B", "C"} {
		p, err := h.store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if p.Level != 1 || p.Points != 0 || p.Entitled {
			t.Errorf("expected %s at defaults after reset, got %+v", id, p)
		}
	}

	st, _ := h.seasons.Load(ctx)
	if st.SeasonNumber != 2 || st.Started() || st.LastResetAt == nil {
		t.Errorf("expected inactive season 2 after reset, got %+v", st)
	}

	started, err := h.coord.StartSeason(ctx, DefaultStartOptions(h.cfg, st.SeasonNumber))
	if err != nil {
		t.Fatalf("start season failed: %v", err)
	}
	if !started.Success || started.Restored() != 2 {
		t.Fatalf("expected 2 restored, got %+v", started)
	}

	want := map[string]bool{"A": true, "B": false, "C": true}
	for id, entitled := range want {
		p, _ := h.store.Get(ctx, id)
		if p.Entitled != entitled {
			t.Errorf("player %s entitled=%t, want %t", id, p.Entitled, entitled)
		}
	}
	if _, found, _ := h.preservation.Snapshot(ctx); found {
		t.Error("expected snapshot to be consumed after a successful start")
	}
	if !h.seasons.IsActive(ctx) {
		t.Error("expected new season to be active")
	}
}

func TestEndSeason_BackupFailureLeavesDataUntouched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false, "C": true})
	before := h.levels(t)

	engine := NewResetEngine(h.store, h.seasons, failingArchive{err: errors.New("write players/B.json: input/output error")},
		h.preservation, h.validator, h.advisor, nil)
	coord := NewCoordinator(engine, h.seasons, h.preservation, h.validator, h.advisor, nil)

	res, err := coord.EndSeason(ctx, DefaultResetOptions(h.cfg))
	if err == nil || res.Success {
		t.Fatalf("expected backup failure, got %+v", res)
	}
	if res.Kind() != "BackupError" || res.Phase != PhaseFailed || res.Rollback != nil {
		t.Errorf("expected Failed with BackupError and no rollback, got %s/%s", res.Phase, res.Kind())
	}

	after := h.levels(t)
	if len(after) != 3 {
		t.Fatalf("expected 3 records, got %d", len(after))
	}
	for id, lvl := range before {
		if after[id] != lvl {
			t.Errorf("player %s level changed from %d to %d", id, lvl, after[id])
		}
	}
	if _, found, _ := h.preservation.Snapshot(ctx); found {
		t.Error("preservation must not run after a failed backup")
	}
	st, _ := h.seasons.Load(ctx)
	if st.SeasonNumber != 1 || !st.Started() {
		t.Errorf("season state must be untouched, got %+v", st)
	}
}

func TestEndSeason_ClearFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false, "C": true})
	before := h.levels(t)
	h.store.failClear = true
	h.store.clearAfter = 2

	res, err := h.coord.EndSeason(ctx, DefaultResetOptions(h.cfg))
	if err == nil || res.Success {
		t.Fatalf("expected reset failure, got %+v", res)
	}
	if res.Rollback == nil || !res.Rollback.Success || res.Phase != PhaseRolledBack {
		t.Fatalf("expected successful rollback, got phase %s rollback %+v", res.Phase, res.Rollback)
	}
	if res.NeedsIntervention() {
		t.Error("rolled back reset must not need intervention")
	}

	after := h.levels(t)
	for id, lvl := range before {
		if after[id] != lvl {
			t.Errorf("player %s level %d after rollback, want %d", id, after[id], lvl)
		}
	}
	p, _ := h.store.Get(ctx, "A")
	if !p.Entitled || !p.ClaimedFree.Has(1) {
		t.Errorf("expected A restored with premium and claims, got %+v", p)
	}
	st, _ := h.seasons.Load(ctx)
	if st.SeasonNumber != 1 {
		t.Errorf("season number must be unchanged after rollback, got %d", st.SeasonNumber)
	}

	wantPhases := []Phase{PhaseValidating, PhaseBackingUp, PhasePreservingEntitlements,
		PhaseClearingProgress, PhaseFailed, PhaseRollingBack, PhaseRolledBack}
	if len(res.Phases) != len(wantPhases) {
		t.Fatalf("phases = %v, want %v", res.Phases, wantPhases)
	}
	for i := range wantPhases {
		if res.Phases[i] != wantPhases[i] {
			t.Errorf("phase[%d] = %s, want %s", i, res.Phases[i], wantPhases[i])
		}
	}

	audit, err := recovery.ReadAudit(h.auditDir)
	if err != nil || len(audit) == 0 {
		t.Fatalf("expected an audit record, got %v, %v", audit, err)
	}
}

func TestEndSeason_ClearFailureWithoutBackupNeedsIntervention(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false, "C": true})
	h.store.failClear = true
	h.store.clearAfter = 2

	opts := DefaultResetOptions(h.cfg)
	opts.CreateBackup = false
	res, _ := h.coord.EndSeason(ctx, opts)
	if res == nil || res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.Phase != PhaseFailed || !res.NeedsIntervention() {
		t.Errorf("expected Failed needing intervention, got %s", res.Phase)
	}
	if res.Kind() != fault.KindProgressReset {
		t.Errorf("expected ProgressResetError, got %s", res.Kind())
	}
	if res.Rollback == nil || res.Rollback.Attempted || res.Rollback.Success {
		t.Errorf("unexpected rollback %+v", res.Rollback)
	}
	for _, p := range res.Phases {
		if p == PhaseRollingBack || p == PhaseRollbackFailed {
			t.Errorf("no rollback should be entered without a backup, got phases %v", res.Phases)
		}
	}
}

func TestEndThenStart_SkippedPreservationDropsOlderSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false})

	if res, err := h.coord.EndSeason(ctx, DefaultResetOptions(h.cfg)); err != nil || !res.Success {
		t.Fatalf("end of season 1 failed: %v", err)
	}
	start := DefaultStartOptions(h.cfg, 2)
	start.RestorePremium = false
	if res, err := h.coord.StartSeason(ctx, start); err != nil || !res.Success {
		t.Fatalf("start of season 2 failed: %v", err)
	}
	if p, _ := h.store.Get(ctx, "A"); p.Entitled {
		t.Fatal("A must not hold premium in season 2")
	}

	reset := DefaultResetOptions(h.cfg)
	reset.PreservePremium = false
	res, err := h.coord.EndSeason(ctx, reset)
	if err != nil || !res.Success {
		t.Fatalf("end of season 2 failed: %v", err)
	}
	if _, found, _ := h.preservation.Snapshot(ctx); found {
		t.Error("expected the season 1 snapshot to be discarded when preservation is skipped")
	}

	started, err := h.coord.StartSeason(ctx, DefaultStartOptions(h.cfg, 3))
	if err != nil || !started.Success {
		t.Fatalf("start of season 3 failed: %v", err)
	}
	if started.Restored() != 0 {
		t.Errorf("expected nothing restored, got %d", started.Restored())
	}
	if p, _ := h.store.Get(ctx, "A"); p.Entitled {
		t.Error("A must not regain premium in season 3")
	}
}

func TestStartSeason_DiscardsSnapshotFromOlderSeason(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true})

	if _, err := h.preservation.Preserve(ctx, 1); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	if err := h.seasons.Save(ctx, State{SeasonNumber: 3}); err != nil {
		t.Fatalf("save season: %v", err)
	}
	if err := h.store.Put(ctx, "A", progress.New()); err != nil {
		t.Fatalf("wipe A: %v", err)
	}

	v := h.coord.ValidateStart(ctx, DefaultStartOptions(h.cfg, 3))
	if !containsText(v.Warnings, "from season 1 and will be discarded") {
		t.Errorf("expected stale snapshot warning, got %v", v.Warnings)
	}

	res, err := h.coord.StartSeason(ctx, DefaultStartOptions(h.cfg, 3))
	if err != nil || !res.Success {
		t.Fatalf("start failed: %v", err)
	}
	if res.Restoration == nil || !res.Restoration.Stale || res.Restored() != 0 {
		t.Errorf("expected stale snapshot discarded, got %+v", res.Restoration)
	}
	if p, _ := h.store.Get(ctx, "A"); p.Entitled {
		t.Error("A must not regain premium from an older season")
	}
	if _, found, _ := h.preservation.Snapshot(ctx); found {
		t.Error("expected stale snapshot deleted")
	}
}

func TestStartSeason_MaxLevelCapsTracker(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	start := DefaultStartOptions(h.cfg, 1)
	start.MaxLevel = 5
	if res, err := h.coord.StartSeason(ctx, start); err != nil || !res.Success {
		t.Fatalf("start failed: %v", err)
	}

	tracker := progress.NewTracker(h.store, h.cfg.Curve(), h.cfg.Catalog(), h.manager, h.seasons)
	p, _, err := tracker.AddPoints(ctx, "A", 1_000_000)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if p.Level != 5 {
		t.Errorf("expected level capped at 5, got %d", p.Level)
	}
}

func TestEndSeason_PreservationFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false})

	bad := &failingPreserver{}
	advisor := recovery.NewAdvisor(h.archive, bad, h.auditDir)
	engine := NewResetEngine(h.store, h.seasons, h.archive, bad, h.validator, advisor, nil)
	coord := NewCoordinator(engine, h.seasons, h.preservation, h.validator, advisor, nil)

	res, err := coord.EndSeason(ctx, DefaultResetOptions(h.cfg))
	if err != nil || !res.Success {
		t.Fatalf("expected reset to complete despite preservation failure, got %v (%+v)", err, res)
	}
	if bad.calls != 2 {
		t.Errorf("expected one automatic retry, got %d calls", bad.calls)
	}
	if res.Summary.PremiumPreserved != 0 || len(res.Warnings) == 0 {
		t.Errorf("expected warning and zero preserved, got %+v", res)
	}
}

func TestEndSeason_ValidationBlocks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := progress.New()
	p.Level = 5
	if err := h.store.Put(ctx, "A", p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := h.coord.EndSeason(ctx, DefaultResetOptions(h.cfg))
	if err == nil || res.Success || res.Kind() != "ValidationError" {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if res.Message != "Validation failed: No active season to reset" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if got, _ := h.store.Get(ctx, "A"); got.Level != 5 {
		t.Error("validation failure must not touch data")
	}
	if len(res.Phases) != 2 || res.Phases[1] != PhaseFailed {
		t.Errorf("unexpected phases %v", res.Phases)
	}
}

func TestEndSeason_PartialScopeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true})

	opts := DefaultResetOptions(h.cfg)
	opts.ResetClaimedRewards = false
	opts.CreateBackup = false
	res, err := h.coord.EndSeason(ctx, opts)
	if err != nil || !res.Success {
		t.Fatalf("reset failed: %v", err)
	}
	p, _ := h.store.Get(ctx, "A")
	if p.Level != 1 || p.Points != 0 || !p.ClaimedFree.Has(1) {
		t.Errorf("expected levels and points reset with claims kept, got %+v", p)
	}
}

func TestTransition_Exclusive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": true, "B": false, "C": true})

	blocker := &blockingArchive{Archive: h.archive, entered: make(chan struct{}), release: make(chan struct{})}
	engine := NewResetEngine(h.store, h.seasons, blocker, h.preservation, h.validator, h.advisor, nil)
	coord := NewCoordinator(engine, h.seasons, h.preservation, h.validator, h.advisor, nil)

	reset := DefaultResetOptions(h.cfg)
	start := DefaultStartOptions(h.cfg, 2)

	first, err := coord.TransitionAsync(ctx, reset, start)
	if err != nil {
		t.Fatalf("first transition rejected: %v", err)
	}
	<-blocker.entered

	if !coord.InProgress() {
		t.Error("expected operation in progress")
	}
	status, err := coord.Status(ctx)
	if err != nil || status.Operation != OperationTransition {
		t.Errorf("expected status to show the running transition, got %+v, %v", status, err)
	}
	if v := coord.ValidateReset(ctx, reset); v.Valid() {
		t.Error("expected dry run to report the running operation")
	}

	second, err := coord.Transition(ctx, reset, start)
	if second != nil || !errors.Is(err, fault.ErrOperationInProgress) {
		t.Fatalf("expected immediate concurrency error, got %+v, %v", second, err)
	}
	if fault.KindOf(err) != fault.KindConcurrency {
		t.Errorf("expected ConcurrencyError, got %s", fault.KindOf(err))
	}

	close(blocker.release)
	res := <-first
	if !res.Success || res.Start == nil || !res.Start.Success {
		t.Fatalf("expected first transition to complete, got %+v", res)
	}
	if coord.InProgress() {
		t.Error("expected flag released")
	}
	st, _ := h.seasons.Load(ctx)
	if st.SeasonNumber != 2 || !st.Active(time.Now()) {
		t.Errorf("expected active season 2, got %+v", st)
	}
}

func TestTransition_StopsWhenEndFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.coord.Transition(ctx, DefaultResetOptions(h.cfg), DefaultStartOptions(h.cfg, 1))
	if err == nil || res.Success || res.Start != nil {
		t.Fatalf("expected transition to stop after failed end, got %+v", res)
	}
}

func TestStartSeason_FirstSeasonAndAlreadyActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.coord.StartSeason(ctx, DefaultStartOptions(h.cfg, 0))
	if err != nil || !res.Success {
		t.Fatalf("start failed: %v", err)
	}
	if res.Season.SeasonNumber != 1 || res.Season.EndTime == nil {
		t.Errorf("unexpected season %+v", res.Season)
	}
	if got := res.Season.EndTime.Sub(*res.Season.StartTime); got != 30*24*time.Hour {
		t.Errorf("season length = %s", got)
	}

	res, err = h.coord.StartSeason(ctx, DefaultStartOptions(h.cfg, 1))
	if err == nil || res.Success {
		t.Fatal("expected starting an active season to fail validation")
	}
}

func TestStartSeason_ValidationMessages(t *testing.T) {
	h := newHarness(t)
	v := h.coord.ValidateStart(context.Background(), StartOptions{RestorePremium: true, Policy: entitlement.PolicyPreserveAll})
	want := []string{
		"Season ID cannot be empty",
		"Season name cannot be empty",
		"Max level must be greater than 0",
		"Season duration must be greater than 0 days",
	}
	for _, msg := range want {
		if !contains(v.Errors, msg) {
			t.Errorf("missing error %q in %v", msg, v.Errors)
		}
	}
	if !contains(v.Warnings, "Premium restoration is enabled but no preserved premium players found") {
		t.Errorf("expected empty snapshot warning, got %v", v.Warnings)
	}
}

func TestValidateReset_Warnings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, map[string]bool{"A": false})

	opts := DefaultResetOptions(h.cfg)
	opts.ValidateBeforeReset = false
	opts.Policy = entitlement.PolicySyncExternal
	v := h.coord.ValidateReset(ctx, opts)
	if !v.Valid() {
		t.Fatalf("unexpected errors %v", v.Errors)
	}
	if !contains(v.Warnings, "Backup is enabled but validation is disabled - this may cause backup failures") {
		t.Errorf("missing backup warning in %v", v.Warnings)
	}
	if len(v.Warnings) != 2 {
		t.Errorf("expected policy compatibility warning too, got %v", v.Warnings)
	}
	if !contains(v.Info, "Player data validation: 1 valid files, 0 corrupt files") {
		t.Errorf("unexpected info %v", v.Info)
	}

	opts.Policy = ""
	if v := h.coord.ValidateReset(ctx, opts); !contains(v.Errors, "Premium preservation mode must be specified") {
		t.Errorf("expected missing policy error, got %v", v.Errors)
	}
}

func TestResetSummaryText(t *testing.T) {
	s := ResetSummary{
		PlayersReset:       3,
		PremiumPreserved:   2,
		BackupPath:         "backups/season_reset_2025-05-01_10-00-00",
		BackupFilesCreated: 5,
		PreviousSeason:     1,
		NewSeason:          2,
	}
	s.detail("Preserved premium status for %d players", 2)

	want := "Season Reset Summary:\n" +
		"- Players reset: 3\n" +
		"- Premium players preserved: 2\n" +
		"- Backup files created: 5\n" +
		"- Backup path: backups/season_reset_2025-05-01_10-00-00\n" +
		"- Previous season: 1\n" +
		"- New season: 2\n" +
		"Operation Details:\n" +
		"- Preserved premium status for 2 players\n"
	if got := s.Text(); got != want {
		t.Errorf("summary text mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseValidating, true},
		{PhaseIdle, PhaseClearingProgress, false},
		{PhaseValidating, PhaseClearingProgress, true},
		{PhaseBackingUp, PhasePreservingEntitlements, true},
		{PhasePreservingEntitlements, PhaseFailed, true},
		{PhaseClearingProgress, PhaseCompleted, false},
		{PhaseFailed, PhaseRollingBack, true},
		{PhaseFailed, PhaseCompleted, false},
		{PhaseRollingBack, PhaseRollbackFailed, true},
		{PhaseCompleted, PhaseFailed, false},
		{PhaseRolledBack, PhaseIdle, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %t, want %t", tt.from, tt.to, got, tt.ok)
		}
	}
	if !PhaseRollbackFailed.Terminal() || PhaseFailed.Terminal() {
		t.Error("unexpected terminal phases")
	}
}

func TestWatcher_ReportsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	start := time.Now().Add(-48 * time.Hour).UTC()
	end := start.Add(24 * time.Hour)
	if err := h.seasons.Save(ctx, State{SeasonNumber: 4, StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var expired []int
	w := NewWatcher(h.seasons, time.Hour, func(ctx context.Context, st State) {
		expired = append(expired, st.SeasonNumber)
	})
	if !w.Check(ctx) || w.Check(ctx) {
		t.Error("expected exactly one expiry report")
	}
	if len(expired) != 1 || expired[0] != 4 {
		t.Errorf("unexpected callbacks %v", expired)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
