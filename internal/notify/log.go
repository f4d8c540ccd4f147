package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes notices to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the notice at a level matching its severity
func (s *LogSender) Send(ctx context.Context, n *Notice) error {
	entry := s.log.WithFields(logrus.Fields{
		"severity": n.Severity,
		"market":   n.MarketName,
		"digest":   Short(n.Digest),
		"status":   n.Status,
	})

	switch n.Severity {
	case SeverityError:
		entry.Errorf("%s: %s", n.Title, n.Message)
	case SeverityWarn:
		entry.Warnf("%s: %s", n.Title, n.Message)
	default:
		entry.Infof("%s: %s", n.Title, n.Message)
	}
	return nil
}
