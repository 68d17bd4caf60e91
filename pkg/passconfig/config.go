// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package passconfig loads the season pass tuning file: the XP curve,
// premium mode, reset defaults and the reward tiers.
package passconfig

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	MinRetentionDays = 1
	MaxRetentionDays = 365
)

// Config represents the complete season pass configuration.
type Config struct {
	Season  SeasonConfig  `yaml:"season"`
	XP      XPConfig      `yaml:"xp"`
	Premium PremiumConfig `yaml:"premium"`
	Reset   ResetConfig   `yaml:"reset"`
	Tiers   []TierConfig  `yaml:"tiers"`
}

type SeasonConfig struct {
	MaxLevel     int `yaml:"maxLevel"`
	DurationDays int `yaml:"durationDays"`
}

// XPConfig describes the level curve. Manual maps a level to the points
// needed to reach it from the level below.
type XPConfig struct {
	Mode       string      `yaml:"mode"`
	XPPerLevel int         `yaml:"xpPerLevel"`
	Multiplier float64     `yaml:"multiplier"`
	Manual     map[int]int `yaml:"manual,omitempty"`
}

type PremiumConfig struct {
	Mode           string `yaml:"mode"`
	Cost           int    `yaml:"cost"`
	PermissionNode string `yaml:"permissionNode"`
	ItemID         string `yaml:"itemId,omitempty"`
}

// ResetConfig holds the defaults applied to reset options that leave a
// field unset.
type ResetConfig struct {
	AutoBackupOnReset       bool   `yaml:"autoBackupOnReset"`
	DefaultPreservationMode string `yaml:"defaultPreservationMode"`
	BroadcastMessages       bool   `yaml:"broadcastMessages"`
	BackupRetentionDays     int    `yaml:"backupRetentionDays"`
	RequireConfirmation     bool   `yaml:"requireConfirmation"`
	ValidateBeforeReset     bool   `yaml:"validateBeforeReset"`
}

type TierConfig struct {
	Level         int    `yaml:"level"`
	FreeReward    string `yaml:"freeReward,omitempty"`
	PremiumReward string `yaml:"premiumReward,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Season: SeasonConfig{MaxLevel: 100, DurationDays: 30},
		XP: XPConfig{
			Mode:       string(progress.CurveFormula),
			XPPerLevel: 1000,
			Multiplier: 1.1,
		},
		Premium: PremiumConfig{
			Mode:           string(entitlement.ModePurchase),
			Cost:           entitlement.DefaultPremiumCost,
			PermissionNode: entitlement.DefaultPermissionNode,
		},
		Reset: ResetConfig{
			AutoBackupOnReset:       true,
			DefaultPreservationMode: string(entitlement.PolicyPreserveAll),
			BroadcastMessages:       true,
			BackupRetentionDays:     30,
			RequireConfirmation:     true,
			ValidateBeforeReset:     true,
		},
	}
}

// LoadConfig loads the configuration from a YAML file on top of Default.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	config := Default()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.clamp()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logrus.Warnf("season pass config %s not found, using defaults", path)
		return Default(), nil
	}
	return LoadConfig(path)
}

func (c *Config) clamp() {
	days := c.Reset.BackupRetentionDays
	if days < MinRetentionDays {
		c.Reset.BackupRetentionDays = MinRetentionDays
	} else if days > MaxRetentionDays {
		c.Reset.BackupRetentionDays = MaxRetentionDays
	}
	if days != c.Reset.BackupRetentionDays {
		logrus.Warnf("backupRetentionDays %d out of range, using %d", days, c.Reset.BackupRetentionDays)
	}
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	if c.Season.DurationDays <= 0 {
		return fmt.Errorf("season durationDays must be positive, got %d", c.Season.DurationDays)
	}

	if err := c.Curve().Validate(); err != nil {
		return err
	}

	if _, err := entitlement.ParsePolicy(c.Reset.DefaultPreservationMode); err != nil {
		return fmt.Errorf("reset defaultPreservationMode: %w", err)
	}

	if c.Premium.Cost < 0 {
		return fmt.Errorf("premium cost must not be negative, got %d", c.Premium.Cost)
	}

	levels := make(map[int]bool)
	for _, tier := range c.Tiers {
		if tier.Level < 1 || tier.Level > c.Season.MaxLevel {
			return fmt.Errorf("tier level %d outside 1..%d", tier.Level, c.Season.MaxLevel)
		}
		if levels[tier.Level] {
			return fmt.Errorf("duplicate tier level: %d", tier.Level)
		}
		levels[tier.Level] = true
	}

	return nil
}

// Curve builds the level curve.
func (c *Config) Curve() progress.Curve {
	manual := make(map[int]int, len(c.XP.Manual))
	for level, xp := range c.XP.Manual {
		manual[level] = xp
	}
	return progress.Curve{
		Mode:       progress.ParseCurveMode(c.XP.Mode),
		XPPerLevel: c.XP.XPPerLevel,
		Multiplier: c.XP.Multiplier,
		Manual:     manual,
		MaxLevel:   c.Season.MaxLevel,
	}
}

// PremiumMode returns the configured premium mode.
func (c *Config) PremiumMode() entitlement.Mode {
	return entitlement.ParseMode(c.Premium.Mode)
}

// DefaultPolicy returns the configured preservation policy. Validate has
// already rejected unknown names.
func (c *Config) DefaultPolicy() entitlement.Policy {
	p, err := entitlement.ParsePolicy(c.Reset.DefaultPreservationMode)
	if err != nil {
		return entitlement.PolicyPreserveAll
	}
	return p
}

// Catalog returns the tier lookup.
func (c *Config) Catalog() *Catalog {
	cat := &Catalog{tiers: make(map[int]progress.Tier, len(c.Tiers))}
	for _, t := range c.Tiers {
		cat.tiers[t.Level] = progress.Tier{
			Level:         t.Level,
			FreeReward:    t.FreeReward,
			PremiumReward: t.PremiumReward,
		}
	}
	return cat
}

// Catalog implements progress.TierCatalog over the configured tiers.
type Catalog struct {
	tiers map[int]progress.Tier
}

func (c *Catalog) TierForLevel(level int) (progress.Tier, bool) {
	t, ok := c.tiers[level]
	return t, ok
}

// Levels returns the configured tier levels in order.
func (c *Catalog) Levels() []int {
	levels := make([]int, 0, len(c.tiers))
	for l := range c.tiers {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
