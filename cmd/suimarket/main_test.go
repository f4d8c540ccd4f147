package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/notify"
	"github.com/liamashdown/suimarket/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestCreateNotifier(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"log", config.Config{NotifyMode: "log"}, "*notify.LogSender"},
		{"discord without urls falls back", config.Config{NotifyMode: "discord"}, "*notify.LogSender"},
		{"single discord", config.Config{NotifyMode: "discord", DiscordWebhookURLs: []string{"https://a"}}, "*notify.DiscordSender"},
		{"two discord", config.Config{NotifyMode: "discord", DiscordWebhookURLs: []string{"https://a", "https://b"}}, "*notify.MultiSender"},
		{"smtp", config.Config{NotifyMode: "smtp", SMTPHost: "mail"}, "*notify.SMTPSender"},
		{"combined", config.Config{NotifyMode: "log, smtp", SMTPHost: "mail"}, "*notify.MultiSender"},
		{"unknown", config.Config{NotifyMode: "pager"}, "*notify.LogSender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := createNotifier(&tt.cfg, quietLogger())
			if typeName(got) != tt.want {
				t.Errorf("createNotifier() = %s, want %s", typeName(got), tt.want)
			}
		})
	}
}

func typeName(s notify.Sender) string {
	switch s.(type) {
	case *notify.LogSender:
		return "*notify.LogSender"
	case *notify.DiscordSender:
		return "*notify.DiscordSender"
	case *notify.SMTPSender:
		return "*notify.SMTPSender"
	case *notify.MultiSender:
		return "*notify.MultiSender"
	default:
		return "unknown"
	}
}

func TestOutcomeIndex(t *testing.T) {
	v := market.Derive(market.Contract{ID: 3, Options: `["Home","Away","Draw"]`}, nil)

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"draw", 2, false},
		{" Home ", 0, false},
		{"Rain", 0, true},
	}
	for _, tt := range tests {
		got, err := outcomeIndex(v, tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("outcomeIndex(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("outcomeIndex(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, raw := range []string{"0", "-3", "abc"} {
		if _, err := parseID(raw); err == nil {
			t.Errorf("parseID(%q) accepted", raw)
		}
	}
}

func TestSuiStake(t *testing.T) {
	tests := []struct {
		raw     string
		want    uint64
		wantErr bool
	}{
		{"1.5", 1_500_000_000, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"20000000000", 0, true},
	}
	for _, tt := range tests {
		got, err := suiStake(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("suiStake(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("suiStake(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestRenderMarket(t *testing.T) {
	winner := 1
	v := market.Derive(market.Contract{
		ID: 7, Name: "Cup final", Address: "0xcafe", Options: `["Home","Away"]`,
		OutcomeOdds: `[0.4,0.6]`, TotalVolume: 10, Resolved: true, Winner: &winner,
	}, nil)

	var buf bytes.Buffer
	renderMarket(&buf, v, time.Now())
	out := buf.String()
	for _, want := range []string{"Cup final", "0xcafe", "2 outcomes", "Away ✓ winner", "60%", "Rules"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Home ✓") {
		t.Errorf("loser marked as winner:\n%s", out)
	}
}

func TestRenderMarkets(t *testing.T) {
	winner := 0
	views := market.DeriveAll([]market.Contract{
		{ID: 1, Name: "Rain tomorrow?", OutcomeOdds: `[0.25,0.75]`, TotalVolume: 1500},
		{ID: 2, Name: "Cup final", Resolved: true, Winner: &winner},
	}, market.NewFavoriteSet(1))

	var buf bytes.Buffer
	renderMarkets(&buf, views, time.Now())
	out := buf.String()

	for _, want := range []string{"Rain tomorrow?", "Yes 25% / No 75%", "1.5K", "Open", "Resolved: Yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	renderMarkets(&buf, nil, time.Now())
	if !strings.Contains(buf.String(), "No markets found.") {
		t.Errorf("empty output = %q", buf.String())
	}
}

type countingSender struct{ sent []*notify.Notice }

func (c *countingSender) Send(ctx context.Context, n *notify.Notice) error {
	c.sent = append(c.sent, n)
	return nil
}

func TestWatcherNoticeRate(t *testing.T) {
	sender := &countingSender{}
	w := &watcher{
		app:     &app{cfg: &config.Config{Environment: "test"}, log: quietLogger(), notifier: sender},
		notices: ratelimit.New(1),
	}

	for i := 0; i < 3; i++ {
		w.notify(context.Background(), &notify.Notice{Title: "Odds moved"})
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d notices, want 1", len(sender.sent))
	}
	if sender.sent[0].Environment != "test" || sender.sent[0].Timestamp.IsZero() {
		t.Errorf("notice = %+v", sender.sent[0])
	}
}

func TestHealthEndpoints(t *testing.T) {
	var ready atomic.Bool
	srv := httptest.NewServer(healthMux(&ready))
	defer srv.Close()

	get := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get("/health"); code != http.StatusOK {
		t.Errorf("/health = %d", code)
	}
	if code := get("/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("/ready before first poll = %d", code)
	}
	ready.Store(true)
	if code := get("/ready"); code != http.StatusOK {
		t.Errorf("/ready after first poll = %d", code)
	}
	if code := get("/metrics"); code != http.StatusOK {
		t.Errorf("/metrics = %d", code)
	}
}
