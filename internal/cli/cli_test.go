// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AccelByte/extend-season-pass/internal/app"
	"github.com/AccelByte/extend-season-pass/internal/config"
)

const testPassConfig = `
season:
  maxLevel: 20
  durationDays: 30
premium:
  mode: disabled
reset:
  defaultPreservationMode: PRESERVE_ALL
  requireConfirmation: true
  validateBeforeReset: true
  autoBackupOnReset: true
tiers:
  - level: 2
    freeReward: "coins:100"
    premiumReward: "skin:gold"
`

// openTestApp opens the file-backed components under a temp directory.
func openTestApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	passPath := filepath.Join(dir, "season_pass.yaml")
	if err := os.WriteFile(passPath, []byte(testPassConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("STORAGE_BACKEND", config.StorageFile)
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("BACKUP_DIR", filepath.Join(dir, "backups"))
	t.Setenv("ERROR_LOG_DIR", filepath.Join(dir, "error_logs"))
	t.Setenv("CONFIG_PATH", passPath)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	a, err := app.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("app.Open() error = %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestSeasonCommands_EndToEnd(t *testing.T) {
	a := openTestApp(t)
	ctx := context.Background()
	var out bytes.Buffer

	// Start season 1.
	if err := runSeasonStart(ctx, &out, a, startFlags{}, true, false); err != nil {
		t.Fatalf("season start error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Season season-1 (#1) started successfully") {
		t.Errorf("unexpected start output:\n%s", out.String())
	}

	if _, err := a.Lifecycle().Tracker.AddLevels(ctx, "p1", 3); err != nil {
		t.Fatalf("AddLevels() error = %v", err)
	}
	if _, err := a.Entitlements().Preservation.ForceRestore(ctx, "p1"); err != nil {
		t.Fatalf("ForceRestore() error = %v", err)
	}
	if _, err := a.Lifecycle().Tracker.AddLevels(ctx, "p2", 1); err != nil {
		t.Fatalf("AddLevels() error = %v", err)
	}

	// Confirmation gate: validation is shown and nothing changes.
	out.Reset()
	err := runSeasonEnd(ctx, &out, a, resetFlags{})
	if !errors.Is(err, errConfirmationRequired) {
		t.Fatalf("season end without --confirm error = %v", err)
	}
	if !strings.Contains(out.String(), "Validation passed") {
		t.Errorf("expected validation report, got:\n%s", out.String())
	}
	if p, _ := a.Storage().Progress.Get(ctx, "p1"); p.Level != 4 {
		t.Errorf("unconfirmed end changed progress, level %d", p.Level)
	}

	out.Reset()
	if err := runSeasonEnd(ctx, &out, a, resetFlags{confirm: true}); err != nil {
		t.Fatalf("season end error = %v\n%s", err, out.String())
	}
	for _, want := range []string{"Season reset completed successfully", "- Players reset: 2", "- Premium players preserved: 1", "- New season: 2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("end output missing %q:\n%s", want, out.String())
		}
	}

	backups, err := a.Storage().Archive.List(ctx)
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %d (%v)", len(backups), err)
	}

	// Start season 2 and restore premium.
	out.Reset()
	if err := runSeasonStart(ctx, &out, a, startFlags{}, true, false); err != nil {
		t.Fatalf("season 2 start error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "premium restored: 1, failed: 0, pending: 0") {
		t.Errorf("unexpected restore output:\n%s", out.String())
	}
	p1, _ := a.Storage().Progress.Get(ctx, "p1")
	if p1.Level != 1 || !p1.Entitled {
		t.Errorf("p1 after transition = level %d premium %t, expected level 1 premium", p1.Level, p1.Entitled)
	}
	p2, _ := a.Storage().Progress.Get(ctx, "p2")
	if p2.Level != 1 || p2.Entitled {
		t.Errorf("p2 after transition = level %d premium %t, expected level 1 free", p2.Level, p2.Entitled)
	}

	st, err := a.Lifecycle().Coordinator.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	out.Reset()
	printStatus(&out, st)
	if !strings.Contains(out.String(), `Season season-2 (#2) "Season 2": active`) {
		t.Errorf("unexpected status:\n%s", out.String())
	}
}

func TestSeasonEnd_DryRunAndValidationFailure(t *testing.T) {
	a := openTestApp(t)
	ctx := context.Background()
	var out bytes.Buffer

	// No season has started, so the dry run reports the blocking error.
	err := runSeasonEnd(ctx, &out, a, resetFlags{dryRun: true})
	if err == nil || !strings.Contains(err.Error(), "No active season to reset") {
		t.Fatalf("dry run error = %v", err)
	}
	if !strings.Contains(out.String(), "Validation failed") {
		t.Errorf("expected failed validation report:\n%s", out.String())
	}

	if _, err := (resetFlags{policy: "bogus"}).options(a.Pass()); err == nil {
		t.Error("expected an unknown policy to be rejected")
	}
}

func TestStartFlags_Options(t *testing.T) {
	a := openTestApp(t)

	opts, err := startFlags{}.options(a.Pass(), 3)
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if opts.SeasonID != "season-3" || opts.SeasonName != "Season 3" || opts.MaxLevel != 20 || opts.DurationDays != 30 || !opts.RestorePremium {
		t.Errorf("unexpected defaults %+v", opts)
	}

	opts, err = startFlags{id: "winter", maxLevel: 50, startAt: "2026-01-01T00:00:00Z", noRestore: true}.options(a.Pass(), 3)
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if opts.SeasonID != "winter" || opts.MaxLevel != 50 || opts.StartTime.Year() != 2026 || opts.RestorePremium {
		t.Errorf("flags not applied %+v", opts)
	}

	if _, err := (startFlags{startAt: "tomorrow"}).options(a.Pass(), 3); err == nil {
		t.Error("expected an invalid start time to be rejected")
	}
}
