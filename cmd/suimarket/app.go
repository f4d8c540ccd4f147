package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/liamashdown/suimarket/internal/backend"
	"github.com/liamashdown/suimarket/internal/chain"
	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/journal"
	"github.com/liamashdown/suimarket/internal/notify"
	"github.com/liamashdown/suimarket/internal/session"
	"github.com/liamashdown/suimarket/internal/settle"
	"github.com/sirupsen/logrus"
)

// app bundles the clients a command needs
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	session  *session.Session
	notifier notify.Sender
	node     *chain.Client
	wallet   *chain.KeypairWallet // nil when no key is configured
	journal  *journal.DB          // nil when no DSN is configured
}

func openApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, log: log}

	node, err := chain.Dial(ctx, cfg.SuiRPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect to sui node: %w", err)
	}
	a.node = node

	var wallet chain.Wallet
	if cfg.WalletPrivateKey != "" {
		key, err := chain.ParseKeypair(cfg.WalletPrivateKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load wallet key: %w", err)
		}
		a.wallet = chain.NewKeypairWallet(key, node, cfg.GasBudgetMist, log)
		wallet = a.wallet
		log.WithField("address", key.Address()).Debug("Wallet loaded")
	} else {
		log.Debug("No wallet key configured, running read-only")
	}

	var j session.Journal
	if cfg.JournalDSN != "" {
		db, err := journal.New(cfg, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = db
		j = db
	}

	a.notifier = createNotifier(cfg, log)

	var prompter notify.Prompter = notify.NewTerminalPrompter(os.Stdin, out)
	if assumeYes {
		prompter = notify.NewAutoConfirm(out)
	}

	a.session = session.New(
		cfg,
		backend.NewClient(cfg),
		wallet,
		j,
		a.notifier,
		prompter,
		settle.New(cfg, log),
		log,
	)
	return a, nil
}

// load refreshes the session and re-applies the remembered filters
func (a *app) load(ctx context.Context) error {
	if err := a.session.Refresh(ctx); err != nil {
		return err
	}
	if err := a.session.RestoreState(ctx); err != nil {
		a.log.WithError(err).Warn("Failed to restore remembered filters")
	}
	return nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close journal")
		}
	}
	if a.node != nil {
		a.node.Close()
	}
}

func createNotifier(cfg *config.Config, log *logrus.Logger) notify.Sender {
	modes := strings.Split(cfg.NotifyMode, ",")
	for i, mode := range modes {
		modes[i] = strings.TrimSpace(mode)
	}

	senders := []notify.Sender{}
	for _, mode := range modes {
		switch mode {
		case "log":
			senders = append(senders, notify.NewLogSender(log))
		case "discord":
			if len(cfg.DiscordWebhookURLs) == 0 {
				log.Warn("Discord mode specified but DISCORD_WEBHOOK_URLS not set")
				continue
			}
			for _, url := range cfg.DiscordWebhookURLs {
				senders = append(senders, notify.NewDiscordSender(url))
			}
		case "smtp":
			if cfg.SMTPHost == "" {
				log.Warn("SMTP mode specified but SMTP_HOST not set")
				continue
			}
			senders = append(senders, notify.NewSMTPSender(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUser,
				cfg.SMTPPassword,
				cfg.SMTPFrom,
				cfg.SMTPTo,
			))
		default:
			log.WithField("mode", mode).Warn("Unknown notify mode, skipping")
		}
	}

	switch len(senders) {
	case 0:
		log.Warn("No valid notice senders configured, using log")
		return notify.NewLogSender(log)
	case 1:
		return senders[0]
	default:
		return notify.NewMultiSender(senders...)
	}
}
