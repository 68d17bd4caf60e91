// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AccelByte/extend-season-pass/internal/app"
)

var (
	pruneDays      int
	restoreConfirm bool

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "List, prune and restore season backups",
	}

	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				recs, err := a.Storage().Archive.List(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(w, "no backups")
					return nil
				}
				for _, r := range recs {
					fmt.Fprintf(w, "%s  season %d  %d players  %s  %s\n",
						r.CreatedAt.Format(time.RFC3339), r.SeasonNumber, r.PlayerCount, r.Reason, r.Path)
				}
				return nil
			})
		},
	}

	backupPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete backups older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				days := a.Pass().Reset.BackupRetentionDays
				if pruneDays > 0 {
					days = pruneDays
				}
				removed, err := a.Storage().Archive.Prune(ctx, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d backups older than %d days\n", removed, days)
				return nil
			})
		},
	}

	backupRestoreCmd = &cobra.Command{
		Use:   "restore <path>",
		Short: "Replace live progress and season state with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Lifecycle().Coordinator.InProgress() {
					return fmt.Errorf("a season operation is in progress")
				}
				rec, err := a.Storage().Archive.Open(args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "backup %s: season %d, %d players, taken %s\n",
					rec.ID, rec.SeasonNumber, rec.PlayerCount, rec.CreatedAt.Format(time.RFC3339))
				if !restoreConfirm {
					return errConfirmationRequired
				}
				if err := a.Lifecycle().Advisor.Rollback(ctx, rec); err != nil {
					return err
				}
				fmt.Fprintln(w, "restore completed")
				return nil
			})
		},
	}
)

func init() {
	backupPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default from config)")
	backupRestoreCmd.Flags().BoolVar(&restoreConfirm, "confirm", false, "confirm the restore")

	backupCmd.AddCommand(backupListCmd, backupPruneCmd, backupRestoreCmd)
}
