// Package notify delivers user-visible notices and asks for confirmation
// before irreversible actions.
package notify

import (
	"context"
	"time"
)

// Severity represents notice severity
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarn    Severity = "WARN"
	SeverityError   Severity = "ERROR"
)

// Notice is a message about the outcome of a user action
type Notice struct {
	Severity      Severity
	Title         string
	Message       string
	MarketName    string
	MarketAddress string
	Digest        string // transaction digest, when one exists
	Status        string
	Wallet        string
	Environment   string
	Timestamp     time.Time
}

// Sender defines the interface for notice senders
type Sender interface {
	Send(ctx context.Context, n *Notice) error
}

// Short abbreviates an address or digest for display
func Short(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:8] + "…" + s[len(s)-4:]
}
