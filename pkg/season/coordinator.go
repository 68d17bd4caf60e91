// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/common"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/fault"
	"github.com/AccelByte/extend-season-pass/pkg/metrics"
	"github.com/AccelByte/extend-season-pass/pkg/recovery"
)

// Restorer applies and consumes the preserved premium set.
type Restorer interface {
	Restore(ctx context.Context, policy entitlement.Policy, seasonNumber int) (*entitlement.RestoreReport, error)
	Consume(ctx context.Context) error
	Snapshot(ctx context.Context) (*entitlement.Snapshot, bool, error)
}

// Status is a point-in-time view of the lifecycle.
type Status struct {
	Season              State         `json:"season"`
	Active              bool          `json:"active"`
	Remaining           time.Duration `json:"remaining"`
	InProgress          bool          `json:"inProgress"`
	Operation           OperationType `json:"operation,omitempty"`
	OperationID         string        `json:"operationId,omitempty"`
	OperationStartedAt  *time.Time    `json:"operationStartedAt,omitempty"`
	PreservedPlayers    int           `json:"preservedPlayers"`
	PendingRestorations int           `json:"pendingRestorations"`
}

// Coordinator is the single entry point for season operations. At most
// one operation runs at a time; a concurrent caller fails immediately.
type Coordinator struct {
	engine    *ResetEngine
	seasons   *StateStore
	restorer  Restorer
	validator *Validator
	advisor   *recovery.Advisor
	announcer Announcer
	now       func() time.Time

	busy    atomic.Bool
	mu      sync.RWMutex
	current *Operation
	wg      sync.WaitGroup
}

// NewCoordinator wires the coordinator. restorer and announcer may be nil.
func NewCoordinator(
	engine *ResetEngine,
	seasons *StateStore,
	restorer Restorer,
	validator *Validator,
	advisor *recovery.Advisor,
	announcer Announcer,
) *Coordinator {
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	return &Coordinator{
		engine:    engine,
		seasons:   seasons,
		restorer:  restorer,
		validator: validator,
		advisor:   advisor,
		announcer: announcer,
		now:       time.Now,
	}
}

func (c *Coordinator) acquire(typ OperationType) (*Operation, error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.mu.RLock()
		running := c.current
		c.mu.RUnlock()
		if running != nil {
			running.Logger().Warnf("rejected concurrent %s", typ)
		}
		return nil, fault.New(fault.KindConcurrency, string(typ), fault.ErrOperationInProgress)
	}
	op := newOperation(typ, c.now())
	c.mu.Lock()
	c.current = op
	c.mu.Unlock()
	c.wg.Add(1)
	return op, nil
}

func (c *Coordinator) release() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.busy.Store(false)
	c.wg.Done()
}

// InProgress reports whether an operation currently holds the coordinator.
func (c *Coordinator) InProgress() bool {
	return c.busy.Load()
}

// Wait blocks until the running operation, if any, reaches a terminal state.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EndSeasonAsync starts a reset in the background. The returned channel
// receives exactly one result, after the coordinator has been released.
func (c *Coordinator) EndSeasonAsync(ctx context.Context, opts ResetOptions) (<-chan *ResetResult, error) {
	op, err := c.acquire(OperationEnd)
	if err != nil {
		return nil, err
	}
	out := make(chan *ResetResult, 1)
	go func() {
		res := c.engine.Run(ctx, op, opts)
		c.release()
		out <- res
	}()
	return out, nil
}

// EndSeason runs a reset and waits for it. A cancelled ctx stops the
// wait, not the reset.
func (c *Coordinator) EndSeason(ctx context.Context, opts ResetOptions) (*ResetResult, error) {
	ch, err := c.EndSeasonAsync(ctx, opts)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StartSeasonAsync activates a season in the background.
func (c *Coordinator) StartSeasonAsync(ctx context.Context, opts StartOptions) (<-chan *StartResult, error) {
	op, err := c.acquire(OperationStart)
	if err != nil {
		return nil, err
	}
	out := make(chan *StartResult, 1)
	go func() {
		res := c.start(ctx, op, opts)
		c.release()
		out <- res
	}()
	return out, nil
}

// StartSeason activates a season and waits for it.
func (c *Coordinator) StartSeason(ctx context.Context, opts StartOptions) (*StartResult, error) {
	ch, err := c.StartSeasonAsync(ctx, opts)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TransitionAsync ends the current season and starts the next under one
// hold of the coordinator.
func (c *Coordinator) TransitionAsync(ctx context.Context, reset ResetOptions, start StartOptions) (<-chan *TransitionResult, error) {
	op, err := c.acquire(OperationTransition)
	if err != nil {
		return nil, err
	}
	out := make(chan *TransitionResult, 1)
	go func() {
		res := c.transition(ctx, op, reset, start)
		c.release()
		out <- res
	}()
	return out, nil
}

// Transition ends then starts, stopping after a failed end.
func (c *Coordinator) Transition(ctx context.Context, reset ResetOptions, start StartOptions) (*TransitionResult, error) {
	ch, err := c.TransitionAsync(ctx, reset, start)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) transition(ctx context.Context, op *Operation, reset ResetOptions, start StartOptions) *TransitionResult {
	started := c.now()
	res := &TransitionResult{OperationID: op.ID}
	defer func() {
		res.Duration = c.now().Sub(started)
	}()

	res.End = c.engine.Run(ctx, op, reset)
	if !res.End.Success {
		res.Err = res.End.Err
		res.Message = "Season transition stopped: " + res.End.Message
		return res
	}

	// The end succeeded, so the start runs even if the caller gave up.
	res.Start = c.start(context.WithoutCancel(ctx), op, start)
	res.Err = res.Start.Err
	res.Success = res.Start.Success
	if res.Success {
		res.Message = "Season transition completed successfully"
	} else {
		res.Message = "Season ended but the new season failed to start: " + res.Start.Message
	}
	return res
}

func (c *Coordinator) start(ctx context.Context, op *Operation, opts StartOptions) *StartResult {
	scope := common.NewOperationScope(ctx, "season.start", op.ID)
	defer scope.Finish()

	started := c.now()
	op.Start = &opts
	res := &StartResult{OperationID: op.ID}
	defer func() {
		res.Duration = c.now().Sub(started)
		outcome := "failure"
		if res.Success {
			outcome = "success"
		}
		metrics.OperationsTotal.WithLabelValues(string(OperationStart), outcome).Inc()
		metrics.OperationDuration.WithLabelValues(string(OperationStart)).Observe(res.Duration.Seconds())
	}()

	fail := func(err error, msg string) *StartResult {
		res.Err = err
		res.Message = msg
		scope.TraceError(err)
		scope.Log.Errorf("season start failed: %v", err)
		return res
	}

	if c.validator != nil {
		v := c.validator.ValidateStart(scope.Ctx, opts, false)
		res.Validation = v
		res.Warnings = append(res.Warnings, v.Warnings...)
		if !v.Valid() {
			return fail(fault.New(fault.KindValidation, "validate start", v.Err()), v.Err().Error())
		}
	}

	ctx = context.WithoutCancel(scope.Ctx)

	st, err := c.seasons.Load(ctx)
	if err != nil {
		return fail(fault.New(fault.KindGeneric, "load season state", err), "Failed to read season state")
	}
	if st.SeasonNumber == 0 {
		st.SeasonNumber = 1
	}

	begin := opts.StartTime
	if begin.IsZero() {
		begin = c.now()
	}
	begin = begin.UTC()
	end := begin.Add(time.Duration(opts.DurationDays) * 24 * time.Hour)
	st.SeasonID = opts.SeasonID
	st.SeasonName = opts.SeasonName
	st.MaxLevel = opts.MaxLevel
	st.StartTime = &begin
	st.EndTime = &end

	if err := c.seasons.Save(ctx, st); err != nil {
		return fail(fault.New(fault.KindGeneric, "save season state", err), "Failed to activate season")
	}
	res.Season = st
	res.Success = true
	res.Message = "Season " + st.Label() + " started successfully"
	scope.SetAttributes("season.number", st.SeasonNumber)
	scope.Log.Infof("season %s started, ends %s", st.Label(), end.Format(time.RFC3339))

	if opts.RestorePremium && c.restorer != nil {
		c.restore(ctx, scope, op, opts.Policy, res)
	}

	if opts.Broadcast {
		c.announcer.SeasonStarted(ctx, st, res.Restored())
	}
	return res
}

// restore re-applies preserved premium status. Failures here never undo
// the season start.
func (c *Coordinator) restore(ctx context.Context, scope *common.Scope, op *Operation, policy entitlement.Policy, res *StartResult) {
	report, err := c.restorer.Restore(ctx, policy, res.Season.SeasonNumber)
	res.Restoration = report
	if err != nil {
		ferr := fault.New(fault.KindRestoration, "restore entitlements", err)
		if c.advisor != nil {
			res.Recoveries = append(res.Recoveries, c.advisor.Handle(ctx, recovery.Incident{
				Operation:    string(op.Type),
				OperationID:  op.ID,
				Err:          ferr,
				SeasonNumber: res.Season.SeasonNumber,
			}))
		}
		res.warn("Season started but premium restoration failed - manual restoration required: %v", err)
		return
	}
	if report.Stale {
		res.warn("Discarded premium snapshot from season %d", report.SourceSeason)
		scope.Log.Warnf("premium snapshot from season %d discarded unapplied", report.SourceSeason)
		return
	}

	metrics.EntitlementsRestored.Add(float64(len(report.Restored)))
	if len(report.Failed) > 0 {
		res.warn("Premium restoration failed for %d players", len(report.Failed))
	}
	if len(report.Pending) > 0 {
		res.warn("%d premium restorations are pending until the players join", len(report.Pending))
	}
	scope.Log.Infof("restored premium for %d players under %s", len(report.Restored), policy)

	if err := c.restorer.Consume(ctx); err != nil {
		res.warn("Failed to clear premium snapshot: %v", err)
	}
}

// Status reports the season and any running operation.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	st, err := c.seasons.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now()
	out := &Status{
		Season:     st,
		Active:     st.Active(now),
		Remaining:  st.Remaining(now),
		InProgress: c.InProgress(),
	}

	c.mu.RLock()
	if op := c.current; op != nil {
		started := op.StartedAt
		out.Operation = op.Type
		out.OperationID = op.ID
		out.OperationStartedAt = &started
	}
	c.mu.RUnlock()

	if c.restorer != nil {
		snap, found, err := c.restorer.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			out.PreservedPlayers = len(snap.PreservedPlayerIDs)
			out.PendingRestorations = len(snap.Pending)
		}
	}
	return out, nil
}

// ValidateReset is the dry run offered to operators before EndSeason.
func (c *Coordinator) ValidateReset(ctx context.Context, opts ResetOptions) *ValidationResult {
	if c.validator == nil {
		return &ValidationResult{}
	}
	return c.validator.ValidateReset(ctx, opts, c.InProgress())
}

// ValidateStart is the dry run offered to operators before StartSeason.
func (c *Coordinator) ValidateStart(ctx context.Context, opts StartOptions) *ValidationResult {
	if c.validator == nil {
		return &ValidationResult{}
	}
	return c.validator.ValidateStart(ctx, opts, c.InProgress())
}
