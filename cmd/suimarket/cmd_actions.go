package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/session"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	betInSui bool

	createForm    session.CreateForm
	createOptions []string
)

var betCmd = &cobra.Command{
	Use:   "bet <market-id> <outcome> <stake>",
	Short: "Place a bet on an outcome",
	Long: `Places a pari-mutuel bet. The outcome is an index or a name, and the
stake is a whole number of MIST unless --sui is given.

The stake is split from the wallet's SUI coins and passed to the market's
place_bet entry function. Both transactions are signed locally.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		stake := args[2]
		if betInSui {
			mist, err := suiStake(stake)
			if err != nil {
				return err
			}
			stake = strconv.FormatUint(mist, 10)
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			v, ok := a.session.View(id)
			if !ok {
				return fmt.Errorf("market %d not found", id)
			}
			outcome, err := outcomeIndex(v, args[1])
			if err != nil {
				return err
			}

			receipt, err := a.session.PlaceBet(ctx, id, outcome, stake)
			if errors.Is(err, session.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "Bet cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transaction %s: %s\n", receipt.Digest, receipt.Status)
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a market (admin)",
	Long: `Asks the backend to create a market on-chain and list it.

Example:
  suimarket create --name "Will it rain on Friday?" --category Weather \
    --option Yes --option No --end-date 2025-06-30`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			form := createForm
			form.Options = createOptions
			if len(form.Options) == 0 {
				form.Options = append([]string(nil), market.DefaultOptions...)
			}

			created, err := a.session.CreateMarket(ctx, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created market %d at %s\n", created.ID, orDash(created.Address))
			return nil
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <market-id> <winner>",
	Short: "Resolve a market in favour of an outcome (admin, irreversible)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			v, ok := a.session.View(id)
			if !ok {
				return fmt.Errorf("market %d not found", id)
			}
			winner, err := outcomeIndex(v, args[1])
			if err != nil {
				return err
			}

			resp, err := a.session.ResolveMarket(ctx, id, winner)
			if errors.Is(err, session.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "Resolution cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved with transaction %s: %s\n", orDash(resp.Digest), resp.Status)
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <market-id>",
	Short: "Cancel a market and refund every bet (admin, irreversible)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			resp, err := a.session.CancelMarket(ctx, id)
			if errors.Is(err, session.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancellation aborted.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled with transaction %s: %s\n", orDash(resp.Digest), resp.Status)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <market-id>",
	Short: "Remove a market from the listing (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			err := a.session.DeleteMarket(ctx, id)
			if errors.Is(err, session.ErrDeclined) {
				fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
				return nil
			}
			return err
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the connected wallet and network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			rows := [][]string{{"Network", fmt.Sprintf("%s (%s)", a.cfg.SuiNetwork, a.cfg.SuiRPCURL)}}
			if price, err := a.node.ReferenceGasPrice(ctx); err == nil {
				rows = append(rows, []string{"Gas price", fmt.Sprintf("%d MIST", price)})
			} else {
				a.log.WithError(err).Warn("Failed to read reference gas price")
			}
			rows = append(rows, []string{"Package", orDash(a.cfg.PackageID)})

			if a.wallet == nil {
				rows = append(rows, []string{"Wallet", mutedStyle.Render("none (read-only)")})
				renderFields(cmd.OutOrStdout(), rows)
				return nil
			}
			rows = append(rows, []string{"Wallet", a.wallet.Address()})
			if balance, err := a.wallet.Balance(ctx); err == nil {
				rows = append(rows, []string{"Balance", market.FromMist(balance).String() + " SUI"})
			} else {
				a.log.WithError(err).Warn("Failed to read balance")
			}
			rows = append(rows,
				[]string{"Admin", strconv.FormatBool(a.session.IsAdmin())},
				[]string{"Betting", strconv.FormatBool(a.cfg.BettingEnabled())},
			)
			renderFields(cmd.OutOrStdout(), rows)
			return nil
		})
	},
}

func init() {
	betCmd.Flags().BoolVar(&betInSui, "sui", false, "stake is in SUI instead of MIST")

	createCmd.Flags().StringVar(&createForm.Name, "name", "", "market question")
	createCmd.Flags().StringVar(&createForm.Description, "description", "", "resolution rules")
	createCmd.Flags().StringVar(&createForm.Category, "category", "", "category name")
	createCmd.Flags().StringArrayVar(&createOptions, "option", nil, "outcome name, repeat for each outcome (default Yes and No)")
	createCmd.Flags().StringVar(&createForm.EndDate, "end-date", "", "end date, YYYY-MM-DD or RFC 3339")
}

// suiStake converts a --sui stake into whole MIST
func suiStake(raw string) (uint64, error) {
	sui, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid SUI amount %q", raw)
	}
	mist, ok := market.MistFromSui(sui)
	if !ok {
		return 0, fmt.Errorf("SUI amount %q is out of range", raw)
	}
	return mist, nil
}

// outcomeIndex resolves an outcome given as an index or a case-insensitive name
func outcomeIndex(v market.View, raw string) (int, error) {
	if i, err := strconv.Atoi(raw); err == nil {
		return i, nil
	}
	for _, o := range v.Outcomes {
		if strings.EqualFold(o.Name, strings.TrimSpace(raw)) {
			return o.Index, nil
		}
	}
	return 0, fmt.Errorf("market %d has no outcome %q (outcomes: %s)", v.ID, raw, strings.Join(v.OptionNames(), ", "))
}
