// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package passconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seasonpass.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
season:
  maxLevel: 50
  durationDays: 60
xp:
  mode: MANUAL
  manual:
    2: 500
    3: 800
premium:
  mode: permission
  permissionNode: vip.pass
reset:
  defaultPreservationMode: sync_external
  backupRetentionDays: 14
  requireConfirmation: false
tiers:
  - level: 1
    freeReward: "coins:100"
  - level: 2
    freeReward: "coins:200"
    premiumReward: "skin:gold"
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Season.MaxLevel != 50 || config.Season.DurationDays != 60 {
		t.Errorf("unexpected season section %+v", config.Season)
	}
	if config.PremiumMode() != entitlement.ModeExternal {
		t.Errorf("expected permission mode, got %s", config.PremiumMode())
	}
	if config.DefaultPolicy() != entitlement.PolicySyncExternal {
		t.Errorf("expected SYNC_EXTERNAL, got %s", config.DefaultPolicy())
	}
	if config.Reset.RequireConfirmation {
		t.Error("expected requireConfirmation override to apply")
	}
	if !config.Reset.AutoBackupOnReset {
		t.Error("expected unset autoBackupOnReset to keep its default")
	}

	curve := config.Curve()
	if curve.Mode != progress.CurveManual || curve.PointsRequiredForLevel(3) != 800 {
		t.Errorf("unexpected curve %+v", curve)
	}
	if curve.PointsRequiredForLevel(4) != progress.Unreachable {
		t.Error("expected missing manual level to be unreachable")
	}

	tier, ok := config.Catalog().TierForLevel(2)
	if !ok || !tier.HasPremium() || tier.PremiumReward != "skin:gold" {
		t.Errorf("unexpected tier %+v", tier)
	}
	if levels := config.Catalog().Levels(); len(levels) != 2 || levels[0] != 1 {
		t.Errorf("unexpected levels %v", levels)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("PASS_COST", "2500")
	path := writeConfig(t, `
premium:
  cost: ${PASS_COST}
  itemId: ${PASS_ITEM:premium-pass}
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Premium.Cost != 2500 {
		t.Errorf("expected cost 2500, got %d", config.Premium.Cost)
	}
	if config.Premium.ItemID != "premium-pass" {
		t.Errorf("expected default item id, got %q", config.Premium.ItemID)
	}
}

func TestLoadConfig_ClampsRetention(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 1},
		{in: -5, want: 1},
		{in: 400, want: 365},
		{in: 90, want: 90},
	}
	for _, tt := range tests {
		path := writeConfig(t, "reset:\n  backupRetentionDays: "+strconv.Itoa(tt.in)+"\n")
		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if config.Reset.BackupRetentionDays != tt.want {
			t.Errorf("retention %d: expected %d, got %d", tt.in, tt.want, config.Reset.BackupRetentionDays)
		}
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad policy":     "reset:\n  defaultPreservationMode: KEEP_SOME\n",
		"duplicate tier": "tiers:\n  - level: 2\n  - level: 2\n",
		"tier over max":  "season:\n  maxLevel: 5\ntiers:\n  - level: 6\n",
		"zero max level": "season:\n  maxLevel: 0\n",
		"bad multiplier": "xp:\n  multiplier: 0.5\n",
		"negative cost":  "premium:\n  cost: -1\n",
		"zero duration":  "season:\n  durationDays: 0\n",
		"malformed yaml": "season: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Error("expected LoadConfig to fail")
			}
		})
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	config, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got %v", err)
	}
	if config.Season.MaxLevel != 100 || config.Premium.Cost != entitlement.DefaultPremiumCost {
		t.Errorf("unexpected defaults %+v", config)
	}
	if !strings.EqualFold(config.Reset.DefaultPreservationMode, string(entitlement.PolicyPreserveAll)) {
		t.Errorf("unexpected default policy %s", config.Reset.DefaultPreservationMode)
	}
}
