package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPSender emails notices
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

// Send emails the notice
func (s *SMTPSender) Send(ctx context.Context, n *Notice) error {
	if len(s.to) == 0 {
		return fmt.Errorf("no SMTP recipients configured")
	}

	subject := fmt.Sprintf("[%s] %s", n.Severity, n.Title)
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.from, strings.Join(s.to, ", "), subject, buildEmailBody(n))

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, s.to, []byte(message)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func buildEmailBody(n *Notice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SUIMARKET - %s\n", n.Severity)
	b.WriteString("═══════════════════════════════════════\n\n")
	fmt.Fprintf(&b, "%s\n\n%s\n\n", n.Title, n.Message)
	if n.MarketName != "" {
		fmt.Fprintf(&b, "Market:         %s\n", n.MarketName)
	}
	if n.MarketAddress != "" {
		fmt.Fprintf(&b, "Market object:  %s\n", n.MarketAddress)
	}
	if n.Digest != "" {
		fmt.Fprintf(&b, "Digest:         %s\n", n.Digest)
	}
	if n.Status != "" {
		fmt.Fprintf(&b, "Status:         %s\n", n.Status)
	}
	if n.Wallet != "" {
		fmt.Fprintf(&b, "Wallet:         %s\n", n.Wallet)
	}
	b.WriteString("\n═══════════════════════════════════════\n")
	fmt.Fprintf(&b, "Environment: %s\n", n.Environment)
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}
