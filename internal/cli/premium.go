// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AccelByte/extend-season-pass/internal/app"
	"github.com/AccelByte/extend-season-pass/pkg/entitlement"
)

var (
	premiumCmd = &cobra.Command{
		Use:   "premium",
		Short: "Manage premium status and preserved premium players",
	}

	premiumGrantCmd = &cobra.Command{
		Use:   "grant <player>",
		Short: "Grant premium through the active premium mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Entitlements().Manager.Grant(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted premium to %s\n", args[0])
				return nil
			})
		},
	}

	premiumRevokeCmd = &cobra.Command{
		Use:   "revoke <player>",
		Short: "Revoke premium (never refunds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Entitlements().Manager.Revoke(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked premium from %s\n", args[0])
				return nil
			})
		},
	}

	premiumStatusCmd = &cobra.Command{
		Use:   "status [player]",
		Short: "Show the premium mode, or one player's premium status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				w := cmd.OutOrStdout()
				m := a.Entitlements().Manager
				if len(args) == 1 {
					fmt.Fprintf(w, "%s: %s\n", args[0], m.StatusMessage(ctx, args[0]))
					return nil
				}
				fmt.Fprintf(w, "premium mode: %s (%s)\n", m.Mode(), m.Mode().DisplayName())
				check, err := a.Entitlements().Preservation.ValidateRestoration(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "preserved: %d, holding premium: %d, missing: %d\n",
					check.Expected, len(check.Restored), len(check.Missing))
				if len(check.Missing) > 0 {
					fmt.Fprintf(w, "missing: %s\n", strings.Join(check.Missing, ", "))
				}
				pending, err := a.Entitlements().Preservation.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) > 0 {
					fmt.Fprintf(w, "pending until join: %s\n", strings.Join(pending, ", "))
				}
				return nil
			})
		},
	}

	premiumForceRestoreCmd = &cobra.Command{
		Use:   "force-restore <player>",
		Short: "Reinstate premium for one player without charging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				ok, err := a.Entitlements().Preservation.ForceRestore(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("premium was not restored for %s", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored premium for %s\n", args[0])
				return nil
			})
		},
	}

	premiumJoinCmd = &cobra.Command{
		Use:   "join <player>",
		Short: "Apply a pending premium restoration for a player who joined",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				applied, err := a.Entitlements().Preservation.HandlePlayerJoin(ctx, args[0])
				if err != nil {
					return err
				}
				if applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied pending restoration for %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "no pending restoration for %s\n", args[0])
				}
				return nil
			})
		},
	}

	premiumModeCmd = &cobra.Command{
		Use:   "mode <economy|permission|disabled>",
		Short: "Switch the active premium mode for this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				m := a.Entitlements().Manager
				if err := m.SwitchMode(ctx, entitlement.ParseMode(args[0])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "premium mode: %s\n", m.Mode().DisplayName())
				return nil
			})
		},
	}

	premiumSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Copy the permission source answer into every player's premium flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Entitlements().Manager.Mode() != entitlement.ModeExternal {
					return fmt.Errorf("sync requires the %s premium mode", entitlement.ModeExternal)
				}
				n, err := a.Entitlements().External.SyncAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "synced %d players\n", n)
				return nil
			})
		},
	}

	premiumPermissionCmd = &cobra.Command{
		Use:   "permission <player> <allow|deny>",
		Short: "Set a player's premium permission in the Redis permission source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				perms := a.Entitlements().Permissions
				if perms == nil {
					return fmt.Errorf("no permission source configured")
				}
				var granted bool
				switch args[1] {
				case "allow":
					granted = true
				case "deny":
				default:
					return fmt.Errorf("expected allow or deny, got %q", args[1])
				}
				node := a.Entitlements().External.Node()
				if err := perms.SetPermission(ctx, args[0], node, granted); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s\n", args[1], args[0], node)
				return nil
			})
		},
	}
)

func init() {
	premiumCmd.AddCommand(
		premiumGrantCmd,
		premiumRevokeCmd,
		premiumStatusCmd,
		premiumForceRestoreCmd,
		premiumJoinCmd,
		premiumModeCmd,
		premiumSyncCmd,
		premiumPermissionCmd,
	)
}
