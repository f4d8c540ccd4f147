package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	marketsCategory  string
	marketsSearch    string
	marketsFavorites bool
	historyRange     string
	betsLimit        int
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List markets",
	Long: `Lists markets from the backend.

Without flags the last category and search used are re-applied when a
journal is configured. The "New" category lists newest markets first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.load(ctx); err != nil {
				return err
			}
			if cmd.Flags().Changed("search") {
				if err := a.session.SetSearch(ctx, marketsSearch); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("category") {
				if err := a.session.SetCategory(ctx, marketsCategory); err != nil {
					return err
				}
			}
			a.session.SetFavoritesOnly(marketsFavorites)

			renderMarkets(cmd.OutOrStdout(), a.session.Views(), time.Now())
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <market-id>",
	Short: "Show one market with its outcomes and rules",
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
			v, ok := a.session.View(id)
			if !ok {
				return fmt.Errorf("market %d not found", id)
			}
			renderMarket(cmd.OutOrStdout(), v, time.Now())
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <market-id>",
	Short: "Summarize the price history of a market",
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
			series, err := a.session.History(ctx, id, historyRange)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), series)
			return nil
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List market categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.load(ctx); err != nil {
				return err
			}
			renderCategories(cmd.OutOrStdout(), a.session.Categories(), a.session.CategoryName())
			return nil
		})
	},
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite <market-id>",
	Short: "Toggle the bookmark on a market",
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
			on, err := a.session.ToggleFavorite(ctx, id)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintf(cmd.OutOrStdout(), "%s market %d added to favorites\n", favoriteStyle.Render("★"), id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Market %d removed from favorites\n", id)
			}
			return nil
		})
	},
}

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List bookmarked markets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if a.session.WalletAddress() == "" {
				return fmt.Errorf("favorites need a wallet: set WALLET_PRIVATE_KEY")
			}
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			a.session.SetFavoritesOnly(true)
			views := a.session.Views()
			renderMarkets(cmd.OutOrStdout(), views, time.Now())
			if hidden := len(a.session.FavoriteIDs()) - len(views); hidden > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf("%d bookmarked markets are no longer listed.", hidden)))
			}
			return nil
		})
	},
}

var betsCmd = &cobra.Command{
	Use:   "bets",
	Short: "List bets recorded in the journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if a.journal == nil {
				return fmt.Errorf("bets are only recorded with a journal: set JOURNAL_DSN")
			}
			bets, err := a.journal.ListBets(ctx, a.session.WalletAddress(), betsLimit)
			if err != nil {
				return err
			}
			renderBets(cmd.OutOrStdout(), bets)
			return nil
		})
	},
}

func init() {
	marketsCmd.Flags().StringVarP(&marketsCategory, "category", "c", "", `category name, "All" or "New"`)
	marketsCmd.Flags().StringVarP(&marketsSearch, "search", "s", "", "search text matched against name and description")
	marketsCmd.Flags().BoolVarP(&marketsFavorites, "favorites", "f", false, "only bookmarked markets")

	historyCmd.Flags().StringVarP(&historyRange, "range", "r", "", "time range: 5m, 1h, 6h, 1d, 1w or 1M (default 1M)")

	betsCmd.Flags().IntVarP(&betsLimit, "limit", "n", 20, "number of bets to show")
}

// withApp opens the clients for one command and closes them afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid market id %q", raw)
	}
	return id, nil
}
