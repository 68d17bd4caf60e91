// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package season

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultWatchInterval = time.Minute

// Watcher notices when the running season passes its end time. It only
// reports; ending a season is always an explicit operation.
type Watcher struct {
	seasons  *StateStore
	interval time.Duration
	onExpire func(ctx context.Context, st State)
	now      func() time.Time

	// notified holds the season number already reported as ended.
	notified int
}

// NewWatcher creates a watcher. onExpire may be nil.
func NewWatcher(seasons *StateStore, interval time.Duration, onExpire func(ctx context.Context, st State)) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{
		seasons:  seasons,
		interval: interval,
		onExpire: onExpire,
		now:      time.Now,
		notified: -1,
	}
}

// Run checks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check reports an expired season once and returns whether it did.
func (w *Watcher) Check(ctx context.Context) bool {
	st, err := w.seasons.Load(ctx)
	if err != nil {
		logrus.Warnf("season watcher failed to read state: %v", err)
		return false
	}
	if !st.Started() || st.Active(w.now()) || st.SeasonNumber == w.notified {
		return false
	}
	w.notified = st.SeasonNumber
	logrus.Infof("season %s ended at %s, waiting for an operator to end it", st.Label(), st.EndTime.Format(time.RFC3339))
	if w.onExpire != nil {
		w.onExpire(ctx, st)
	}
	return true
}
