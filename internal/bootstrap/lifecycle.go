// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-season-pass/internal/config"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/progress"
	"github.com/AccelByte/extend-season-pass/pkg/recovery"
	"github.com/AccelByte/extend-season-pass/pkg/season"
)

// Lifecycle groups the season operation components.
type Lifecycle struct {
	Validator   *season.Validator
	Advisor     *recovery.Advisor
	Engine      *season.ResetEngine
	Coordinator *season.Coordinator
	Watcher     *season.Watcher
	Tracker     *progress.Tracker
}

// InitLifecycle wires validation, recovery, the reset engine and the
// coordinator on top of storage and entitlements.
func InitLifecycle(
	cfg *config.Config,
	pass *passconfig.Config,
	storage *Storage,
	ent *Entitlements,
) *Lifecycle {
	var announcer season.Announcer
	if pass.Reset.BroadcastMessages {
		announcer = season.LogAnnouncer{}
	}

	validator := season.NewValidator(
		pass,
		storage.Seasons,
		storage.Progress,
		storage.Health,
		storage.Archive,
		ent.Manager,
		ent.Preservation,
	)
	advisor := recovery.NewAdvisor(storage.Archive, ent.Preservation, cfg.ErrorLogDir)
	engine := season.NewResetEngine(
		storage.Progress,
		storage.Seasons,
		storage.Archive,
		ent.Preservation,
		validator,
		advisor,
		announcer,
	)
	coordinator := season.NewCoordinator(engine, storage.Seasons, ent.Preservation, validator, advisor, announcer)

	watcher := season.NewWatcher(storage.Seasons, cfg.WatchInterval, func(ctx context.Context, st season.State) {
		logrus.Warnf("season %s has ended, run a season transition to start the next one", st.Label())
	})

	tracker := progress.NewTracker(storage.Progress, pass.Curve(), pass.Catalog(), ent.Manager, storage.Seasons)

	return &Lifecycle{
		Validator:   validator,
		Advisor:     advisor,
		Engine:      engine,
		Coordinator: coordinator,
		Watcher:     watcher,
		Tracker:     tracker,
	}
}
