package main

import (
	"context"
	"fmt"
	"os"

	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/secrets"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	assumeYes bool

	cfg *config.Config
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "suimarket",
	Short: "Browse and trade Sui prediction markets",
	Long: `suimarket is a client for a Sui prediction market platform.

It lists markets from the platform backend, places pari-mutuel bets by
signing Sui transactions with a local ed25519 key, and lets the platform
admin create, resolve, cancel and delete markets.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		log.SetOutput(os.Stderr)
		log.SetLevel(cfg.LogLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		log.WithFields(logrus.Fields{
			"environment": cfg.Environment,
			"network":     cfg.SuiNetwork,
			"backend":     cfg.BackendBaseURL,
			"auth_mode":   cfg.BackendAuthMode,
			"credential":  secrets.Redact(cfg.BackendBearerToken + cfg.BackendAPIKey),
			"betting":     cfg.BettingEnabled(),
			"journal":     cfg.JournalDSN != "",
		}).Debug("Configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "confirm bets, resolutions, cancellations and deletions without asking")

	rootCmd.AddCommand(
		marketsCmd,
		showCmd,
		historyCmd,
		categoriesCmd,
		favoriteCmd,
		favoritesCmd,
		betCmd,
		betsCmd,
		createCmd,
		resolveCmd,
		cancelCmd,
		deleteCmd,
		whoamiCmd,
		watchCmd,
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
