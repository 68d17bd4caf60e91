// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import "fmt"

// Phase is a state of the reset engine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseBackingUp
	PhasePreservingEntitlements
	PhaseClearingProgress
	PhaseUpdatingSeasonState
	PhaseCompleted
	PhaseFailed
	PhaseRollingBack
	PhaseRolledBack
	PhaseRollbackFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:                   "Idle",
	PhaseValidating:             "Validating",
	PhaseBackingUp:              "BackingUp",
	PhasePreservingEntitlements: "PreservingEntitlements",
	PhaseClearingProgress:       "ClearingProgress",
	PhaseUpdatingSeasonState:    "UpdatingSeasonState",
	PhaseCompleted:              "Completed",
	PhaseFailed:                 "Failed",
	PhaseRollingBack:            "RollingBack",
	PhaseRolledBack:             "RolledBack",
	PhaseRollbackFailed:         "RollbackFailed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// transitions lists every legal move. Skipped steps (no backup, no
// preservation) are direct edges.
var transitions = map[Phase][]Phase{
	PhaseIdle:                   {PhaseValidating},
	PhaseValidating:             {PhaseBackingUp, PhasePreservingEntitlements, PhaseClearingProgress, PhaseFailed},
	PhaseBackingUp:              {PhasePreservingEntitlements, PhaseClearingProgress, PhaseFailed},
	PhasePreservingEntitlements: {PhaseClearingProgress, PhaseFailed},
	PhaseClearingProgress:       {PhaseUpdatingSeasonState, PhaseFailed},
	PhaseUpdatingSeasonState:    {PhaseCompleted, PhaseFailed},
	PhaseFailed:                 {PhaseRollingBack},
	PhaseRollingBack:            {PhaseRolledBack, PhaseRollbackFailed},
	PhaseCompleted:              nil,
	PhaseRolledBack:             nil,
	PhaseRollbackFailed:         nil,
}

// CanTransition reports whether from -> to is legal.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further phase follows. Failed is terminal
// only when no rollback is attempted, so it is not listed here.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseRolledBack, PhaseRollbackFailed:
		return true
	}
	return false
}

// ErrIllegalTransition is a programming error in the engine.
type ErrIllegalTransition struct {
	From, To Phase
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal season phase transition %s -> %s", e.From, e.To)
}
