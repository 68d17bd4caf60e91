// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/AccelByte/extend-season-pass/pkg/common"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/fault"
	"github.com/AccelByte/extend-season-pass/pkg/metrics"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/AccelByte/extend-season-pass/pkg/recovery"
)

// Archiver creates the pre-reset backup.
type Archiver interface {
	Create(ctx context.Context, seasonNumber int, reason string) (*backup.Record, error)
}

// Preserver snapshots the premium set.
type Preserver interface {
	Preserve(ctx context.Context, seasonNumber int) (int, error)
	Clear(ctx context.Context) error
}

// ResetEngine ends a season: validate, back up, preserve premium, clear
// progress and advance the season number, rolling back from the backup
// when a destructive step fails.
type ResetEngine struct {
	store     progress.Store
	seasons   *StateStore
	archive   Archiver
	preserver Preserver
	validator *Validator
	advisor   *recovery.Advisor
	announcer Announcer
	now       func() time.Time
}

// NewResetEngine wires the engine. announcer may be nil.
func NewResetEngine(
	store progress.Store,
	seasons *StateStore,
	archive Archiver,
	preserver Preserver,
	validator *Validator,
	advisor *recovery.Advisor,
	announcer Announcer,
) *ResetEngine {
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	return &ResetEngine{
		store:     store,
		seasons:   seasons,
		archive:   archive,
		preserver: preserver,
		validator: validator,
		advisor:   advisor,
		announcer: announcer,
		now:       time.Now,
	}
}

// resetRun carries one reset through its phases.
type resetRun struct {
	op     *Operation
	opts   ResetOptions
	res    *ResetResult
	scope  *common.Scope
	season State
}

// enter moves the run to phase to.
func (r *resetRun) enter(to Phase) error {
	from := r.res.Phase
	if !CanTransition(from, to) {
		return &ErrIllegalTransition{From: from, To: to}
	}
	r.res.Phase = to
	r.res.Phases = append(r.res.Phases, to)
	metrics.PhaseTransitions.WithLabelValues(to.String()).Inc()
	r.scope.TraceEvent(to.String())
	r.scope.Log.Debugf("season reset phase %s -> %s", from, to)
	return nil
}

// Run executes a reset to a terminal phase. Once validation passes the
// caller's context no longer cancels the run.
func (e *ResetEngine) Run(ctx context.Context, op *Operation, opts ResetOptions) *ResetResult {
	scope := common.NewOperationScope(ctx, "season.reset", op.ID)
	defer scope.Finish()

	started := e.now()
	run := &resetRun{
		op:    op,
		opts:  opts,
		scope: scope,
		res:   &ResetResult{OperationID: op.ID, Phase: PhaseIdle},
	}
	op.Reset = &opts
	defer func() {
		run.res.Duration = e.now().Sub(started)
		outcome := "failure"
		if run.res.Success {
			outcome = "success"
		}
		metrics.OperationsTotal.WithLabelValues(string(OperationEnd), outcome).Inc()
		metrics.OperationDuration.WithLabelValues(string(OperationEnd)).Observe(run.res.Duration.Seconds())
	}()

	scope.Log.Infof("starting season reset (backup=%t, policy=%s)", opts.CreateBackup, opts.Policy)

	if err := e.validate(scope.Ctx, run); err != nil {
		return e.fail(run, err)
	}

	ctx = context.WithoutCancel(scope.Ctx)

	if opts.Broadcast {
		e.announcer.ResetStarting(ctx, run.season.SeasonNumber)
	}

	if opts.CreateBackup {
		if err := e.backup(ctx, run); err != nil {
			return e.fail(run, err)
		}
	}

	if opts.PreservePremium && opts.Policy != entitlement.PolicyNone {
		if err := e.preserve(ctx, run); err != nil {
			return e.fail(run, err)
		}
	} else {
		e.skipPreserve(ctx, run)
	}

	if err := e.clear(ctx, run); err != nil {
		return e.rollback(ctx, run, err)
	}

	if err := e.advance(ctx, run); err != nil {
		return e.rollback(ctx, run, err)
	}

	if err := run.enter(PhaseCompleted); err != nil {
		return e.fail(run, err)
	}
	run.res.Success = true
	run.res.Message = "Season reset completed successfully"
	scope.SetAttributes("season.players_reset", run.res.Summary.PlayersReset)
	scope.SetAttributes("season.premium_preserved", run.res.Summary.PremiumPreserved)
	scope.Log.Infof("season reset completed: %d players reset, %d premium preserved",
		run.res.Summary.PlayersReset, run.res.Summary.PremiumPreserved)

	if opts.Broadcast {
		e.announcer.ResetCompleted(ctx, &run.res.Summary)
	}
	return run.res
}

func (e *ResetEngine) validate(ctx context.Context, run *resetRun) error {
	if err := run.enter(PhaseValidating); err != nil {
		return err
	}

	st, err := e.seasons.Load(ctx)
	if err != nil {
		return fault.New(fault.KindValidation, "load season state", err)
	}
	run.season = st
	run.res.Summary.PreviousSeason = st.SeasonNumber
	run.res.Summary.NewSeason = st.SeasonNumber

	if !run.opts.ValidateBeforeReset || e.validator == nil {
		return nil
	}
	result := e.validator.ValidateReset(ctx, run.opts, false)
	run.res.Validation = result
	run.res.Warnings = append(run.res.Warnings, result.Warnings...)
	if !result.Valid() {
		return fault.New(fault.KindValidation, "validate reset", result.Err())
	}
	return nil
}

func (e *ResetEngine) backup(ctx context.Context, run *resetRun) error {
	if err := run.enter(PhaseBackingUp); err != nil {
		return err
	}
	child := run.scope.NewChildScope("season.reset.backup")
	defer child.Finish()

	rec, err := e.archive.Create(child.Ctx, run.season.SeasonNumber, run.opts.Reason)
	if err != nil {
		child.TraceError(err)
		ferr := fault.New(fault.KindBackup, "create backup", err)
		run.res.Recoveries = append(run.res.Recoveries, e.handle(ctx, run, ferr))
		return ferr
	}
	run.op.Backup = rec
	run.res.Summary.BackupPath = rec.Path
	run.res.Summary.BackupFilesCreated = rec.FileCount
	run.res.Summary.detail("Backup created at %s", rec.Path)
	metrics.BackupsCreated.Inc()
	return nil
}

// preserve never fails the reset on its own; only an illegal phase
// transition does.
func (e *ResetEngine) preserve(ctx context.Context, run *resetRun) error {
	if err := run.enter(PhasePreservingEntitlements); err != nil {
		return err
	}
	n, err := e.preserver.Preserve(ctx, run.season.SeasonNumber)
	if err != nil {
		ferr := fault.New(fault.KindPreservation, "preserve entitlements", err)
		att := e.handle(ctx, run, ferr)
		run.res.Recoveries = append(run.res.Recoveries, att)
		if !att.Recovered {
			run.res.warn("Premium preservation failed, premium status must be restored manually: %v", err)
			run.res.Summary.detail("Premium preservation failed")
			return nil
		}
		n = att.Preserved
	}
	run.res.Summary.PremiumPreserved = n
	run.res.Summary.detail("Preserved premium status for %d players", n)
	metrics.EntitlementsPreserved.Add(float64(n))
	return nil
}

// skipPreserve drops any older snapshot so a later season start cannot
// restore premium from a season before this one.
func (e *ResetEngine) skipPreserve(ctx context.Context, run *resetRun) {
	run.res.Summary.detail("Premium preservation skipped")
	if err := e.preserver.Clear(ctx); err != nil {
		run.res.warn("Failed to discard previous premium snapshot: %v", err)
		run.scope.Log.Warnf("failed to discard previous premium snapshot: %v", err)
	}
}

func (e *ResetEngine) clear(ctx context.Context, run *resetRun) error {
	if err := run.enter(PhaseClearingProgress); err != nil {
		return err
	}
	scope := run.opts.Scope()

	if scope.Full() {
		n, err := e.store.DeleteAll(ctx)
		run.res.Summary.PlayersReset = n
		if err != nil {
			return fault.New(fault.KindProgressReset, "clear progress", err)
		}
		return nil
	}

	records, err := e.store.ListAll(ctx)
	if err != nil {
		return fault.New(fault.KindProgressReset, "list progress", err)
	}
	for _, r := range records {
		if _, err := e.store.Update(ctx, r.PlayerID, func(p *progress.PlayerProgress) error {
			p.Reset(scope)
			return nil
		}); err != nil {
			return fault.New(fault.KindProgressReset, "reset progress", fmt.Errorf("player %s: %w", r.PlayerID, err))
		}
		run.res.Summary.PlayersReset++
	}
	return nil
}

// advance closes the season: the number moves on and the new season
// stays inactive until started.
func (e *ResetEngine) advance(ctx context.Context, run *resetRun) error {
	if err := run.enter(PhaseUpdatingSeasonState); err != nil {
		return err
	}
	now := e.now().UTC()
	next := State{
		SeasonNumber: run.season.SeasonNumber + 1,
		MaxLevel:     run.season.MaxLevel,
		LastResetAt:  &now,
	}
	if err := e.seasons.Save(ctx, next); err != nil {
		return fault.New(fault.KindProgressReset, "update season state", err)
	}
	run.res.Summary.NewSeason = next.SeasonNumber
	run.res.Summary.ResetAt = now
	return nil
}

// fail ends the run in Failed without touching data.
func (e *ResetEngine) fail(run *resetRun, err error) *ResetResult {
	if run.res.Phase != PhaseFailed {
		if terr := run.enter(PhaseFailed); terr != nil {
			run.scope.Log.Errorf("failed to record failure: %v", terr)
		}
	}
	run.res.Err = err
	run.res.Success = false
	switch fault.KindOf(err) {
	case fault.KindValidation:
		run.res.Message = err.Error()
		if run.res.Validation != nil {
			run.res.Message = run.res.Validation.Err().Error()
		}
	case fault.KindBackup:
		run.res.Message = "Backup failed: " + err.Error()
	default:
		run.res.Message = "Season reset failed: " + err.Error()
	}
	run.scope.TraceError(err)
	run.scope.Log.Errorf("season reset failed: %v", err)
	return run.res
}

// rollback handles a failure after data was touched. Without a backup
// there is nothing to roll back to and the run stays in Failed.
func (e *ResetEngine) rollback(ctx context.Context, run *resetRun, err error) *ResetResult {
	var ferr *fault.Error
	if errors.As(err, &ferr) && run.op.Backup != nil {
		ferr.WithBackup(run.op.Backup.Path)
	}
	e.fail(run, err)

	if run.op.Backup == nil {
		run.res.Recoveries = append(run.res.Recoveries, e.handle(ctx, run, err))
		run.res.Rollback = &RollbackResult{Message: "No backup available - manual intervention required"}
		run.res.ManualIntervention = true
		run.res.warn("%s", run.res.Rollback.Message)
		run.scope.Log.Errorf("CRITICAL: season reset left data inconsistent: %s", run.res.Rollback.Message)
		return run.res
	}

	if terr := run.enter(PhaseRollingBack); terr != nil {
		run.scope.Log.Errorf("failed to enter rollback: %v", terr)
		return run.res
	}
	rb := &RollbackResult{Attempted: true}
	run.res.Rollback = rb

	att := e.handle(ctx, run, err)
	run.res.Recoveries = append(run.res.Recoveries, att)
	rb.Success = att.Recovered
	rb.BackupPath = att.BackupPath

	if att.Recovered {
		rb.Message = "Reset failed, but rollback was successful"
		_ = run.enter(PhaseRolledBack)
		run.res.warn("%s", rb.Message)
		return run.res
	}

	rb.Message = "Reset failed and rollback also failed"
	if att.RollbackError != "" {
		rb.Message += ": " + att.RollbackError
	}
	run.res.Err = fault.New(fault.KindRollback, "rollback", err).WithBackup(run.op.Backup.Path)
	_ = run.enter(PhaseRollbackFailed)
	run.res.warn("%s", rb.Message)
	run.scope.Log.Errorf("CRITICAL: season reset left data inconsistent: %s", rb.Message)
	return run.res
}

func (e *ResetEngine) handle(ctx context.Context, run *resetRun, err error) *recovery.Attempt {
	return e.advisor.Handle(ctx, recovery.Incident{
		Operation:    string(run.op.Type),
		OperationID:  run.op.ID,
		Err:          err,
		Backup:       run.op.Backup,
		SeasonNumber: run.season.SeasonNumber,
	})
}
