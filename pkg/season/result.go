// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/fault"
	"github.com/AccelByte/extend-season-pass/pkg/recovery"
)

// ResetSummary accumulates counts across the phases of a reset,
// whatever the outcome.
type ResetSummary struct {
	PlayersReset       int       `json:"playersReset"`
	PremiumPreserved   int       `json:"premiumPreserved"`
	BackupPath         string    `json:"backupPath,omitempty"`
	BackupFilesCreated int       `json:"backupFilesCreated"`
	PreviousSeason     int       `json:"previousSeason"`
	NewSeason          int       `json:"newSeason"`
	ResetAt            time.Time `json:"resetAt"`
	Details            []string  `json:"details,omitempty"`
}

func (s *ResetSummary) detail(format string, args ...interface{}) {
	s.Details = append(s.Details, fmt.Sprintf(format, args...))
}

// Text renders the summary for operators.
func (s *ResetSummary) Text() string {
	var b strings.Builder
	b.WriteString("Season Reset Summary:\n")
	fmt.Fprintf(&b, "- Players reset: %d\n", s.PlayersReset)
	fmt.Fprintf(&b, "- Premium players preserved: %d\n", s.PremiumPreserved)
	fmt.Fprintf(&b, "- Backup files created: %d\n", s.BackupFilesCreated)
	fmt.Fprintf(&b, "- Backup path: %s\n", s.BackupPath)
	fmt.Fprintf(&b, "- Previous season: %d\n", s.PreviousSeason)
	fmt.Fprintf(&b, "- New season: %d\n", s.NewSeason)
	if len(s.Details) > 0 {
		b.WriteString("Operation Details:\n")
		for _, d := range s.Details {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	return b.String()
}

// RollbackResult is the outcome of restoring from a backup after a
// failed reset.
type RollbackResult struct {
	Attempted  bool   `json:"attempted"`
	Success    bool   `json:"success"`
	BackupPath string `json:"backupPath,omitempty"`
	Message    string `json:"message"`
}

// ResetResult is returned by every reset, successful or not.
type ResetResult struct {
	OperationID string              `json:"operationId"`
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Phase       Phase               `json:"-"`
	Phases      []Phase             `json:"-"`
	Summary     ResetSummary        `json:"summary"`
	Validation  *ValidationResult   `json:"validation,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Rollback    *RollbackResult     `json:"rollback,omitempty"`
	Recoveries  []*recovery.Attempt `json:"recoveries,omitempty"`
	Err         error               `json:"-"`
	Duration    time.Duration       `json:"duration"`

	// ManualIntervention is set when data was touched and there was no
	// backup to roll back to.
	ManualIntervention bool `json:"manualIntervention,omitempty"`
}

// Kind classifies the failure, empty on success.
func (r *ResetResult) Kind() fault.Kind {
	if r.Err == nil {
		return ""
	}
	return fault.KindOf(r.Err)
}

// NeedsIntervention is set when live data may be inconsistent.
func (r *ResetResult) NeedsIntervention() bool {
	return r.Phase == PhaseRollbackFailed || r.ManualIntervention
}

func (r *ResetResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// StartResult is returned by StartSeason.
type StartResult struct {
	OperationID string                     `json:"operationId"`
	Success     bool                       `json:"success"`
	Message     string                     `json:"message"`
	Season      State                      `json:"season"`
	Validation  *ValidationResult          `json:"validation,omitempty"`
	Restoration *entitlement.RestoreReport `json:"restoration,omitempty"`
	Warnings    []string                   `json:"warnings,omitempty"`
	Recoveries  []*recovery.Attempt        `json:"recoveries,omitempty"`
	Err         error                      `json:"-"`
	Duration    time.Duration              `json:"duration"`
}

// Restored is the number of players whose premium status came back.
func (r *StartResult) Restored() int {
	if r.Restoration == nil {
		return 0
	}
	return len(r.Restoration.Restored)
}

func (r *StartResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// TransitionResult pairs the end and start of a transition. Start is
// nil when the end failed.
type TransitionResult struct {
	OperationID string        `json:"operationId"`
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	End         *ResetResult  `json:"end"`
	Start       *StartResult  `json:"start,omitempty"`
	Err         error         `json:"-"`
	Duration    time.Duration `json:"duration"`
}
