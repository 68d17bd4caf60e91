// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Announcer tells players about season transitions. Delivery is best
// effort and never affects the operation.
type Announcer interface {
	ResetStarting(ctx context.Context, seasonNumber int)
	ResetCompleted(ctx context.Context, summary *ResetSummary)
	SeasonStarted(ctx context.Context, st State, restored int)
}

// LogAnnouncer writes announcements to the log.
type LogAnnouncer struct{}

func (LogAnnouncer) ResetStarting(ctx context.Context, seasonNumber int) {
	logrus.Infof("announce: season %d is ending, progress will be reset", seasonNumber)
}

func (LogAnnouncer) ResetCompleted(ctx context.Context, summary *ResetSummary) {
	logrus.Infof("announce: season %d ended, %d players reset, %d premium players preserved",
		summary.PreviousSeason, summary.PlayersReset, summary.PremiumPreserved)
}

func (LogAnnouncer) SeasonStarted(ctx context.Context, st State, restored int) {
	msg := fmt.Sprintf("announce: %s has started", st.SeasonName)
	if st.EndTime != nil {
		msg += fmt.Sprintf(", ends %s", st.EndTime.Format("2006-01-02 15:04 MST"))
	}
	if restored > 0 {
		msg += fmt.Sprintf(", premium restored for %d players", restored)
	}
	logrus.Info(msg)
}

type nopAnnouncer struct{}

func (nopAnnouncer) ResetStarting(context.Context, int)           {}
func (nopAnnouncer) ResetCompleted(context.Context, *ResetSummary) {}
func (nopAnnouncer) SeasonStarted(context.Context, State, int)     {}
