// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AccelByte/extend-season-pass/internal/app"
)

var (
	claimPremium bool

	playerCmd = &cobra.Command{
		Use:   "player",
		Short: "Inspect and adjust player progress",
	}

	playerViewCmd = &cobra.Command{
		Use:   "view <player>",
		Short: "Show a player's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				t := a.Lifecycle().Tracker
				p, err := t.View(ctx, args[0])
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), args[0], p, t.Curve(ctx).PointsRequiredForLevel(p.Level+1))
				return nil
			})
		},
	}

	playerAddPointsCmd = &cobra.Command{
		Use:   "add-points <player> <points>",
		Short: "Award points, levelling the player up as thresholds are crossed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid points %q: %w", args[1], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, gained, err := a.Lifecycle().Tracker.AddPoints(ctx, args[0], points)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is level %d with %d points (+%d levels)\n", args[0], p.Level, p.Points, gained)
				return nil
			})
		},
	}

	playerAddLevelsCmd = &cobra.Command{
		Use:   "add-levels <player> <levels>",
		Short: "Award levels directly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid levels %q: %w", args[1], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Lifecycle().Tracker.AddLevels(ctx, args[0], levels)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is level %d\n", args[0], p.Level)
				return nil
			})
		},
	}

	playerClaimCmd = &cobra.Command{
		Use:   "claim <player> <level>",
		Short: "Claim the free (or with --premium, the premium) reward of a level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid level %q: %w", args[1], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				t := a.Lifecycle().Tracker
				claim := t.ClaimFree
				if claimPremium {
					claim = t.ClaimPremium
				}
				reward, err := claim(ctx, args[0], level)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s claimed %s\n", args[0], reward)
				return nil
			})
		},
	}

	playerDepositCmd = &cobra.Command{
		Use:   "deposit <player> <amount>",
		Short: "Credit season currency in the Redis wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				wallet := a.Entitlements().Wallet
				if wallet == nil {
					return fmt.Errorf("the Redis wallet is not in use")
				}
				balance, err := wallet.Deposit(ctx, args[0], amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s balance: %d\n", args[0], balance)
				return nil
			})
		},
	}
)

func init() {
	playerClaimCmd.Flags().BoolVar(&claimPremium, "premium", false, "claim the premium reward")

	playerCmd.AddCommand(playerViewCmd, playerAddPointsCmd, playerAddLevelsCmd, playerClaimCmd, playerDepositCmd)
}
