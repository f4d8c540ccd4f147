package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/metrics"
	"github.com/liamashdown/suimarket/internal/notify"
	"github.com/liamashdown/suimarket/internal/ratelimit"
	"github.com/liamashdown/suimarket/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	watchMinMove        int
	watchDriftThreshold int
	watchCheckChain     bool
	watchNoticeRate     float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll markets and report odds moves",
	Long: `Refreshes the market list every POLL_INTERVAL_SEC and sends a notice
whenever an outcome's chance moves by at least --min-move points.

With --chain, markets that moved are cross-checked against the stakes held
by their on-chain objects. Health, readiness and Prometheus metrics are
served on HEALTH_PORT.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchMinMove, "min-move", 5, "smallest change in percentage points to report")
	watchCmd.Flags().IntVar(&watchDriftThreshold, "drift-threshold", 10, "percentage points between backend and chain odds that raise a warning")
	watchCmd.Flags().BoolVar(&watchCheckChain, "chain", false, "cross-check moved markets against on-chain stakes")
	watchCmd.Flags().Float64Var(&watchNoticeRate, "notice-rate", 0.5, "notices per second to send; excess moves are only logged")
}

type watcher struct {
	app     *app
	notices *ratelimit.Limiter
	ready   atomic.Bool
	prev    []market.View
}

func runWatch(cmd *cobra.Command, args []string) error {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	log.Info("Starting suimarket watch...")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, cfg, log, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	log.WithFields(logrus.Fields{
		"environment":       cfg.Environment,
		"poll_interval_sec": cfg.PollIntervalSec,
		"min_move":          watchMinMove,
		"chain_check":       watchCheckChain,
		"notice_rate":       watchNoticeRate,
		"notify_mode":       cfg.NotifyMode,
	}).Info("Watch configured")

	w := &watcher{app: a, notices: ratelimit.New(watchNoticeRate)}
	server := startHTTPServer(cfg.HealthPort, &w.ready, log)
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP server shutdown failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(time.Duration(cfg.PollIntervalSec) * time.Second)
	defer ticker.Stop()

	log.Info("Starting market polling loop")

	// Poll immediately on startup
	w.poll(ctx)

	for {
		select {
		case <-ticker.C:
			w.poll(ctx)
		case sig := <-sigChan:
			log.WithField("signal", sig).Info("Received shutdown signal")
			cancel()
			log.Info("Graceful shutdown complete")
			return nil
		case <-ctx.Done():
			log.Info("Context cancelled, shutting down")
			return nil
		}
	}
}

// poll refreshes the session and reports moves against the previous snapshot
func (w *watcher) poll(ctx context.Context) {
	start := time.Now()
	if err := w.app.session.Refresh(ctx); err != nil {
		w.app.log.WithError(err).Error("Error refreshing markets")
		return
	}
	cur := w.app.session.Views()
	w.ready.Store(true)

	if w.prev == nil {
		w.app.log.WithField("markets", len(cur)).Info("Initial market snapshot loaded")
		w.prev = cur
		return
	}

	moves := session.OddsMoves(w.prev, cur, watchMinMove)
	byID := make(map[int64]market.View, len(cur))
	for _, v := range cur {
		byID[v.ID] = v
	}

	checked := make(map[int64]bool)
	for _, m := range moves {
		v := byID[m.MarketID]
		w.app.log.WithFields(logrus.Fields{
			"market_id": m.MarketID,
			"market":    m.Market,
			"outcome":   m.Outcome,
			"from":      m.From,
			"to":        m.To,
		}).Info("Odds moved")

		w.notify(ctx, &notify.Notice{
			Severity:      notify.SeverityInfo,
			Title:         "Odds moved",
			Message:       fmt.Sprintf("%s: %d%% → %d%% (%+d)", m.Outcome, m.From, m.To, m.Delta()),
			MarketName:    v.Name,
			MarketAddress: v.Address,
		})

		if watchCheckChain && !checked[m.MarketID] {
			checked[m.MarketID] = true
			w.checkDrift(ctx, v)
		}
	}

	w.prev = cur
	w.app.log.WithFields(logrus.Fields{
		"markets":  len(cur),
		"moves":    len(moves),
		"duration": time.Since(start).String(),
	}).Debug("Poll complete")
}

func (w *watcher) checkDrift(ctx context.Context, v market.View) {
	if v.Address == "" || v.Resolved {
		return
	}
	d, err := session.ChainDrift(ctx, w.app.node, v)
	if err != nil {
		w.app.log.WithError(err).WithField("market_id", v.ID).Warn("Failed to read on-chain stakes")
		return
	}
	logger := w.app.log.WithFields(logrus.Fields{
		"market_id":  v.ID,
		"backend":    d.Backend,
		"chain":      d.Chain,
		"max_points": d.MaxPoints,
	})
	if d.MaxPoints < watchDriftThreshold {
		logger.Debug("Backend odds match chain")
		return
	}
	logger.Warn("Backend odds drift from chain")
	w.notify(ctx, &notify.Notice{
		Severity:      notify.SeverityWarn,
		Title:         "Odds drift from chain",
		Message:       fmt.Sprintf("Backend %v%% vs chain %v%% (max %d points)", d.Backend, d.Chain, d.MaxPoints),
		MarketName:    v.Name,
		MarketAddress: v.Address,
	})
}

func (w *watcher) notify(ctx context.Context, n *notify.Notice) {
	if !w.notices.Allow() {
		metrics.RecordNoticeDropped()
		w.app.log.WithField("title", n.Title).Warn("Notice rate exceeded, skipping notice")
		return
	}
	n.Environment = w.app.cfg.Environment
	n.Timestamp = time.Now()
	if err := w.app.notifier.Send(ctx, n); err != nil {
		w.app.log.WithError(err).Error("Failed to send notice")
	}
}

func healthMux(ready *atomic.Bool) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			metrics.RecordHealthCheck(false)
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"starting"}`)
			return
		}
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ready"}`)
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func startHTTPServer(port int, ready *atomic.Bool, log *logrus.Logger) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      healthMux(ready),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("Starting HTTP server (health + metrics)")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server failed")
		}
	}()
	return server
}
