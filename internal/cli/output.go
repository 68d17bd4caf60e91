// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/AccelByte/extend-season-pass/pkg/season"
)

func printValidation(w io.Writer, v *season.ValidationResult) {
	if v.Valid() {
		fmt.Fprintln(w, "Validation passed")
	} else {
		fmt.Fprintln(w, "Validation failed")
	}
	for _, e := range v.Errors {
		fmt.Fprintf(w, "  error:   %s\n", e)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	for _, i := range v.Info {
		fmt.Fprintf(w, "  info:    %s\n", i)
	}
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func printReset(w io.Writer, res *season.ResetResult) {
	fmt.Fprintf(w, "%s (operation %s, phase %s, %s)\n", res.Message, res.OperationID, res.Phase, res.Duration.Round(time.Millisecond))
	printWarnings(w, res.Warnings)
	if res.Rollback != nil {
		fmt.Fprintf(w, "rollback: %s\n", res.Rollback.Message)
	}
	if res.NeedsIntervention() {
		fmt.Fprintln(w, "MANUAL INTERVENTION REQUIRED: live data may be inconsistent")
		if res.Summary.BackupPath != "" {
			fmt.Fprintf(w, "restore with: season-pass backup restore %s --confirm\n", res.Summary.BackupPath)
		}
	}
	for _, att := range res.Recoveries {
		for _, s := range att.Suggestions {
			fmt.Fprintf(w, "suggestion: %s\n", s)
		}
	}
	if res.Success {
		fmt.Fprint(w, res.Summary.Text())
	}
}

func printStart(w io.Writer, res *season.StartResult) {
	fmt.Fprintf(w, "%s (operation %s)\n", res.Message, res.OperationID)
	if res.Restoration != nil {
		fmt.Fprintf(w, "premium restored: %d, failed: %d, pending: %d\n",
			len(res.Restoration.Restored), len(res.Restoration.Failed), len(res.Restoration.Pending))
	}
	printWarnings(w, res.Warnings)
}

func printStatus(w io.Writer, st *season.Status) {
	if !st.Season.Started() {
		fmt.Fprintf(w, "No season started (next season #%d)\n", max(st.Season.SeasonNumber, 1))
	} else {
		state := "ended"
		if st.Active {
			state = "active"
		}
		fmt.Fprintf(w, "Season %s %q: %s\n", st.Season.Label(), st.Season.SeasonName, state)
		fmt.Fprintf(w, "  max level: %d\n", st.Season.MaxLevel)
		fmt.Fprintf(w, "  started:   %s\n", st.Season.StartTime.Format(time.RFC3339))
		if st.Season.EndTime != nil {
			fmt.Fprintf(w, "  ends:      %s\n", st.Season.EndTime.Format(time.RFC3339))
		}
		if st.Active {
			fmt.Fprintf(w, "  remaining: %s\n", st.Remaining.Round(time.Minute))
		}
	}
	if st.InProgress {
		fmt.Fprintf(w, "operation in progress: %s %s\n", st.Operation, st.OperationID)
	}
	fmt.Fprintf(w, "preserved premium players: %d\n", st.PreservedPlayers)
	if st.PendingRestorations > 0 {
		fmt.Fprintf(w, "pending premium restorations: %d\n", st.PendingRestorations)
	}
}

func printProgress(w io.Writer, playerID string, p *progress.PlayerProgress, required int) {
	fmt.Fprintf(w, "player %s\n", playerID)
	fmt.Fprintf(w, "  level:   %d\n", p.Level)
	fmt.Fprintf(w, "  points:  %d/%d\n", p.Points, required)
	fmt.Fprintf(w, "  premium: %t\n", p.Entitled)
	fmt.Fprintf(w, "  claimed free:    %s\n", joinLevels(p.ClaimedFree.Sorted()))
	fmt.Fprintf(w, "  claimed premium: %s\n", joinLevels(p.ClaimedPremium.Sorted()))
}

func joinLevels(levels []int) string {
	if len(levels) == 0 {
		return "-"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ",")
}
