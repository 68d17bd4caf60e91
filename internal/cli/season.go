// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AccelByte/extend-season-pass/internal/app"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
	"github.com/AccelByte/extend-season-pass/pkg/passconfig"
	"github.com/AccelByte/extend-season-pass/pkg/season"
)

// errConfirmationRequired is returned when requireConfirmation is on and
// the operator did not pass --confirm.
var errConfirmationRequired = errors.New("confirmation required: review the validation above and re-run with --confirm")

type resetFlags struct {
	keepLevels  bool
	keepPoints  bool
	keepClaims  bool
	noBackup    bool
	noPreserve  bool
	noValidate  bool
	noBroadcast bool
	policy      string
	reason      string
	confirm     bool
	dryRun      bool
}

type startFlags struct {
	id           string
	name         string
	maxLevel     int
	durationDays int
	startAt      string
	noRestore    bool
	policy       string
}

var (
	endFlags   resetFlags
	beginFlags startFlags

	seasonCmd = &cobra.Command{
		Use:   "season",
		Short: "End, start and inspect seasons",
	}

	seasonEndCmd = &cobra.Command{
		Use:   "end",
		Short: "End the current season: back up, preserve premium and reset progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runSeasonEnd(ctx, cmd.OutOrStdout(), a, endFlags)
			})
		},
	}

	seasonStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start a new season and restore preserved premium status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runSeasonStart(ctx, cmd.OutOrStdout(), a, beginFlags, endFlags.confirm, endFlags.dryRun)
			})
		},
	}

	seasonTransitionCmd = &cobra.Command{
		Use:   "transition",
		Short: "End the current season and start the next one in a single operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runSeasonTransition(ctx, cmd.OutOrStdout(), a, endFlags, beginFlags)
			})
		},
	}

	seasonValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Run the pre-flight checks of a season end without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				opts, err := endFlags.options(a.Pass())
				if err != nil {
					return err
				}
				v := a.Lifecycle().Coordinator.ValidateReset(ctx, opts)
				printValidation(cmd.OutOrStdout(), v)
				return v.Err()
			})
		},
	}

	seasonStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the current season and any running operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Lifecycle().Coordinator.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{seasonEndCmd, seasonTransitionCmd, seasonValidateCmd} {
		f := c.Flags()
		f.BoolVar(&endFlags.keepLevels, "keep-levels", false, "keep player levels")
		f.BoolVar(&endFlags.keepPoints, "keep-points", false, "keep player points")
		f.BoolVar(&endFlags.keepClaims, "keep-claims", false, "keep claimed rewards")
		f.BoolVar(&endFlags.noBackup, "no-backup", false, "skip the backup (no rollback possible)")
		f.BoolVar(&endFlags.noPreserve, "no-preserve", false, "do not preserve premium status")
		f.BoolVar(&endFlags.noValidate, "no-validate", false, "skip the pre-flight checks")
		f.BoolVar(&endFlags.noBroadcast, "no-broadcast", false, "do not announce the reset")
		f.StringVar(&endFlags.policy, "policy", "", "premium preservation policy (PRESERVE_ALL, SYNC_EXTERNAL, PRESERVE_AND_SYNC, NONE)")
		f.StringVar(&endFlags.reason, "reason", "", "reason recorded in the backup")
	}
	for _, c := range []*cobra.Command{seasonEndCmd, seasonStartCmd, seasonTransitionCmd} {
		c.Flags().BoolVar(&endFlags.confirm, "confirm", false, "confirm the operation")
		c.Flags().BoolVar(&endFlags.dryRun, "dry-run", false, "only run the pre-flight checks")
	}
	for _, c := range []*cobra.Command{seasonStartCmd, seasonTransitionCmd} {
		f := c.Flags()
		f.StringVar(&beginFlags.id, "id", "", "season id (default season-<number>)")
		f.StringVar(&beginFlags.name, "name", "", "season name (default Season <number>)")
		f.IntVar(&beginFlags.maxLevel, "max-level", 0, "max level (default from config)")
		f.IntVar(&beginFlags.durationDays, "duration-days", 0, "season length in days (default from config)")
		f.StringVar(&beginFlags.startAt, "start-at", "", "start time, RFC3339 (default now)")
		f.BoolVar(&beginFlags.noRestore, "no-restore", false, "do not restore preserved premium status")
		f.StringVar(&beginFlags.policy, "restore-policy", "", "premium restoration policy (default from config)")
	}

	seasonCmd.AddCommand(seasonEndCmd, seasonStartCmd, seasonTransitionCmd, seasonValidateCmd, seasonStatusCmd)
}

func (f resetFlags) options(pass *passconfig.Config) (season.ResetOptions, error) {
	opts := season.DefaultResetOptions(pass)
	opts.ResetLevels = !f.keepLevels
	opts.ResetPoints = !f.keepPoints
	opts.ResetClaimedRewards = !f.keepClaims
	if f.noBackup {
		opts.CreateBackup = false
	}
	if f.noValidate {
		opts.ValidateBeforeReset = false
	}
	if f.noBroadcast {
		opts.Broadcast = false
	}
	opts.PreservePremium = !f.noPreserve
	if f.policy != "" {
		p, err := entitlement.ParsePolicy(f.policy)
		if err != nil {
			return opts, err
		}
		opts.Policy = p
	}
	if f.reason != "" {
		opts.Reason = f.reason
	}
	return opts, nil
}

// options fills unset fields from the config, naming the season after
// its number.
func (f startFlags) options(pass *passconfig.Config, seasonNumber int) (season.StartOptions, error) {
	opts := season.DefaultStartOptions(pass, seasonNumber)
	if f.id != "" {
		opts.SeasonID = f.id
	}
	if f.name != "" {
		opts.SeasonName = f.name
	}
	if f.maxLevel != 0 {
		opts.MaxLevel = f.maxLevel
	}
	if f.durationDays != 0 {
		opts.DurationDays = f.durationDays
	}
	if f.startAt != "" {
		t, err := time.Parse(time.RFC3339, f.startAt)
		if err != nil {
			return opts, fmt.Errorf("invalid --start-at: %w", err)
		}
		opts.StartTime = t
	}
	opts.RestorePremium = !f.noRestore
	if f.policy != "" {
		p, err := entitlement.ParsePolicy(f.policy)
		if err != nil {
			return opts, err
		}
		opts.Policy = p
	}
	return opts, nil
}

// gate runs the dry run and decides whether the operation may proceed.
func gate(w io.Writer, pass *passconfig.Config, v *season.ValidationResult, confirm, dryRun bool) error {
	if dryRun || (pass.Reset.RequireConfirmation && !confirm) {
		printValidation(w, v)
		if !v.Valid() {
			return v.Err()
		}
		if dryRun {
			return nil
		}
		return errConfirmationRequired
	}
	return nil
}

func runSeasonEnd(ctx context.Context, w io.Writer, a *app.App, f resetFlags) error {
	coord := a.Lifecycle().Coordinator
	opts, err := f.options(a.Pass())
	if err != nil {
		return err
	}
	if err := gate(w, a.Pass(), coord.ValidateReset(ctx, opts), f.confirm, f.dryRun); err != nil || f.dryRun {
		return err
	}

	res, err := coord.EndSeason(ctx, opts)
	if res != nil {
		printReset(w, res)
	}
	return err
}

func nextSeasonNumber(ctx context.Context, a *app.App) (int, error) {
	st, err := a.Storage().Seasons.Load(ctx)
	if err != nil {
		return 0, err
	}
	if st.SeasonNumber == 0 {
		return 1, nil
	}
	return st.SeasonNumber, nil
}

func runSeasonStart(ctx context.Context, w io.Writer, a *app.App, f startFlags, confirm, dryRun bool) error {
	coord := a.Lifecycle().Coordinator
	n, err := nextSeasonNumber(ctx, a)
	if err != nil {
		return err
	}
	opts, err := f.options(a.Pass(), n)
	if err != nil {
		return err
	}
	if err := gate(w, a.Pass(), coord.ValidateStart(ctx, opts), confirm, dryRun); err != nil || dryRun {
		return err
	}

	res, err := coord.StartSeason(ctx, opts)
	if res != nil {
		printStart(w, res)
	}
	return err
}

func runSeasonTransition(ctx context.Context, w io.Writer, a *app.App, rf resetFlags, sf startFlags) error {
	coord := a.Lifecycle().Coordinator
	reset, err := rf.options(a.Pass())
	if err != nil {
		return err
	}
	n, err := nextSeasonNumber(ctx, a)
	if err != nil {
		return err
	}
	// The reset advances the season number.
	start, err := sf.options(a.Pass(), n+1)
	if err != nil {
		return err
	}
	if err := gate(w, a.Pass(), coord.ValidateReset(ctx, reset), rf.confirm, rf.dryRun); err != nil || rf.dryRun {
		return err
	}

	res, err := coord.Transition(ctx, reset, start)
	if res != nil {
		fmt.Fprintln(w, res.Message)
		if res.End != nil {
			printReset(w, res.End)
		}
		if res.Start != nil {
			printStart(w, res.Start)
		}
	}
	return err
}
