// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
)

// ValidationResult collects the findings of a pre-flight check. Only
// errors block an operation.
type ValidationResult struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Info     []string `json:"info,omitempty"`
}

func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addInfo(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// Err joins the errors into one, nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return errors.New("Validation failed: " + strings.Join(r.Errors, ", "))
}

// HealthCheck verifies that storage is reachable and writable.
type HealthCheck interface {
	Check(ctx context.Context) error
}

// SpaceChecker is the part of the backup archive validation needs.
type SpaceChecker interface {
	CheckSpace(size uint64) (backup.SpaceReport, error)
	Free() (uint64, error)
}

// EntitlementStatus reports the premium manager's readiness.
type EntitlementStatus interface {
	Initialized() bool
	Mode() entitlement.Mode
}

// SnapshotReader reads the preserved premium set.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (*entitlement.Snapshot, bool, error)
}

// Validator runs the pre-flight checks for season operations.
type Validator struct {
	cfg          *passconfig.Config
	seasons      *StateStore
	store        progress.Store
	health       HealthCheck
	space        SpaceChecker
	entitlements EntitlementStatus
	snapshots    SnapshotReader
	now          func() time.Time
}

func NewValidator(
	cfg *passconfig.Config,
	seasons *StateStore,
	store progress.Store,
	health HealthCheck,
	space SpaceChecker,
	entitlements EntitlementStatus,
	snapshots SnapshotReader,
) *Validator {
	return &Validator{
		cfg:          cfg,
		seasons:      seasons,
		store:        store,
		health:       health,
		space:        space,
		entitlements: entitlements,
		snapshots:    snapshots,
		now:          time.Now,
	}
}

// ValidateReset checks an end-of-season reset. busy is set when another
// operation already holds the coordinator.
func (v *Validator) ValidateReset(ctx context.Context, opts ResetOptions, busy bool) *ValidationResult {
	r := &ValidationResult{}

	v.checkSeasonActive(ctx, r)
	if busy {
		r.addError("Another season transition is already in progress")
	}
	v.checkStorage(ctx, r)

	stats, err := v.store.Inspect(ctx)
	if err != nil {
		r.addWarning("Player data validation failed: %v", err)
	} else {
		r.addInfo("Player data validation: %d valid files, %d corrupt files", stats.Players, len(stats.Corrupt))
		if len(stats.Corrupt) > 0 {
			r.addWarning("%d player data files appear to be corrupt", len(stats.Corrupt))
		}
	}
	v.checkSpace(opts.CreateBackup, stats, r)

	if err := v.cfg.Validate(); err != nil {
		r.addError("Configuration validation failed: %v", err)
	}

	if opts.Policy == "" {
		r.addError("Premium preservation mode must be specified")
	}
	if opts.CreateBackup && !opts.ValidateBeforeReset {
		r.addWarning("Backup is enabled but validation is disabled - this may cause backup failures")
	}

	v.checkEntitlements(r)
	if v.entitlements != nil && v.entitlements.Initialized() && opts.Policy.UsesExternal() &&
		v.entitlements.Mode() != entitlement.ModeExternal {
		r.addWarning("Premium preservation mode %s requires the %s premium mode, current mode is %s",
			opts.Policy, entitlement.ModeExternal, v.entitlements.Mode())
	}
	return r
}

// ValidateStart checks the start of a new season.
func (v *Validator) ValidateStart(ctx context.Context, opts StartOptions, busy bool) *ValidationResult {
	r := &ValidationResult{}

	if strings.TrimSpace(opts.SeasonID) == "" {
		r.addError("Season ID cannot be empty")
	}
	if strings.TrimSpace(opts.SeasonName) == "" {
		r.addError("Season name cannot be empty")
	}
	if opts.MaxLevel <= 0 {
		r.addError("Max level must be greater than 0")
	}
	if opts.DurationDays <= 0 {
		r.addError("Season duration must be greater than 0 days")
	}
	if busy {
		r.addError("Another season transition is already in progress")
	}

	st, err := v.seasons.Load(ctx)
	switch {
	case err != nil:
		r.addError("Could not read season state: %v", err)
	case st.Active(v.now()):
		r.addError("Season %s is already active", st.Label())
	}
	starting := st.SeasonNumber
	if starting == 0 {
		starting = 1
	}

	v.checkStorage(ctx, r)

	if opts.RestorePremium {
		v.checkEntitlements(r)
		if opts.Policy == "" {
			r.addError("Premium restoration mode must be specified")
		}
		if opts.Policy != entitlement.PolicyNone && v.snapshots != nil {
			snap, found, err := v.snapshots.Snapshot(ctx)
			switch {
			case err != nil:
				r.addWarning("Premium restoration validation failed: %v", err)
			case !found || len(snap.PreservedPlayerIDs) == 0:
				r.addWarning("Premium restoration is enabled but no preserved premium players found")
			case snap.SeasonNumber != starting-1:
				r.addWarning("Preserved premium snapshot is from season %d and will be discarded", snap.SeasonNumber)
			default:
				r.addInfo("%d preserved premium players will be restored", len(snap.PreservedPlayerIDs))
			}
		}
	}
	return r
}

// checkSeasonActive fails a season that was never started. An expired
// but unreset season is still a valid reset target.
func (v *Validator) checkSeasonActive(ctx context.Context, r *ValidationResult) {
	st, err := v.seasons.Load(ctx)
	if err != nil {
		r.addError("Could not read season state: %v", err)
		return
	}
	if !st.Started() {
		r.addError("No active season to reset")
		return
	}
	if !st.Active(v.now()) {
		r.addWarning("Season %s has already ended", st.Label())
	}
}

func (v *Validator) checkStorage(ctx context.Context, r *ValidationResult) {
	if v.health == nil {
		return
	}
	if err := v.health.Check(ctx); err != nil {
		r.addError("File system validation failed: %v", err)
	}
}

func (v *Validator) checkSpace(createBackup bool, stats *progress.Stats, r *ValidationResult) {
	if v.space == nil {
		return
	}
	if !createBackup {
		free, err := v.space.Free()
		if err != nil {
			r.addWarning("Could not check disk space: %v", err)
			return
		}
		if free < backup.MinOperationSpace {
			r.addWarning("Very low disk space available")
		}
		return
	}

	var size uint64
	if stats != nil && stats.Bytes > 0 {
		size = uint64(stats.Bytes)
	}
	report, err := v.space.CheckSpace(size)
	switch {
	case errors.Is(err, backup.ErrInsufficientSpace):
		r.addError("Insufficient disk space. Required: %d MB, Available: %d MB", report.Required>>20, report.Free>>20)
	case err != nil:
		r.addWarning("Could not check disk space: %v", err)
	case report.Tight:
		r.addWarning("Low disk space. Required: %d MB, Available: %d MB", report.Required>>20, report.Free>>20)
	}
}

func (v *Validator) checkEntitlements(r *ValidationResult) {
	if v.entitlements == nil || !v.entitlements.Initialized() {
		r.addError("Premium manager not initialized")
	}
}
