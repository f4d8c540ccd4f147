package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordSender posts notices to a Discord webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notice as an embed
func (s *DiscordSender) Send(ctx context.Context, n *Notice) error {
	body, err := json.Marshal(map[string]any{
		"embeds": []any{buildEmbed(n)},
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(n *Notice) map[string]any {
	var color int
	switch n.Severity {
	case SeverityError:
		color = 0xFF0000
	case SeverityWarn:
		color = 0xFFA500
	case SeveritySuccess:
		color = 0x2ECC71
	default:
		color = 0x0099FF
	}

	var fields []map[string]any
	if n.MarketName != "" {
		fields = append(fields, map[string]any{"name": "Market", "value": truncate(n.MarketName, 100), "inline": true})
	}
	if n.Digest != "" {
		fields = append(fields, map[string]any{"name": "Digest", "value": fmt.Sprintf("`%s`", n.Digest), "inline": true})
	}
	if n.Status != "" {
		fields = append(fields, map[string]any{"name": "Status", "value": n.Status, "inline": true})
	}
	if n.Wallet != "" {
		fields = append(fields, map[string]any{"name": "Wallet", "value": fmt.Sprintf("`%s`", Short(n.Wallet)), "inline": true})
	}

	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return map[string]any{
		"title":       fmt.Sprintf("[%s] %s", n.Severity, n.Title),
		"description": truncate(n.Message, 2000),
		"color":       color,
		"fields":      fields,
		"footer":      map[string]any{"text": fmt.Sprintf("suimarket • %s", n.Environment)},
		"timestamp":   ts.UTC().Format(time.RFC3339),
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
