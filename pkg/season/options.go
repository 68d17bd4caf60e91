// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
)

// ResetOptions controls an end-of-season reset.
type ResetOptions struct {
	ResetLevels         bool
	ResetPoints         bool
	ResetClaimedRewards bool

	CreateBackup        bool
	ValidateBeforeReset bool
	PreservePremium     bool
	Broadcast           bool

	Policy entitlement.Policy
	Reason string
}

// DefaultResetOptions resets everything, with the switches taken from cfg.
func DefaultResetOptions(cfg *passconfig.Config) ResetOptions {
	return ResetOptions{
		ResetLevels:         true,
		ResetPoints:         true,
		ResetClaimedRewards: true,
		CreateBackup:        cfg.Reset.AutoBackupOnReset,
		ValidateBeforeReset: cfg.Reset.ValidateBeforeReset,
		PreservePremium:     true,
		Broadcast:           cfg.Reset.BroadcastMessages,
		Policy:              cfg.DefaultPolicy(),
		Reason:              backup.DefaultReason,
	}
}

// Scope returns the parts of each record the reset wipes.
func (o ResetOptions) Scope() progress.ResetScope {
	return progress.ResetScope{
		Levels:         o.ResetLevels,
		Points:         o.ResetPoints,
		ClaimedRewards: o.ResetClaimedRewards,
	}
}

// StartOptions controls the start of a new season.
type StartOptions struct {
	SeasonID     string
	SeasonName   string
	MaxLevel     int
	DurationDays int
	// StartTime defaults to the time the season is started.
	StartTime time.Time

	RestorePremium bool
	Policy         entitlement.Policy
	Broadcast      bool
}

// DefaultStartOptions names the season after its number and takes the
// rest from cfg.
func DefaultStartOptions(cfg *passconfig.Config, seasonNumber int) StartOptions {
	if seasonNumber < 1 {
		seasonNumber = 1
	}
	return StartOptions{
		SeasonID:       fmt.Sprintf("season-%d", seasonNumber),
		SeasonName:     fmt.Sprintf("Season %d", seasonNumber),
		MaxLevel:       cfg.Season.MaxLevel,
		DurationDays:   cfg.Season.DurationDays,
		RestorePremium: true,
		Policy:         cfg.DefaultPolicy(),
		Broadcast:      cfg.Reset.BroadcastMessages,
	}
}
