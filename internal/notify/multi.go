package notify

import (
	"context"
	"errors"
	"fmt"
)

// MultiSender sends notices to multiple destinations
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a new multi-sender
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

// Send delivers to every sender, collecting failures
func (s *MultiSender) Send(ctx context.Context, n *Notice) error {
	var errs []error
	for i, sender := range s.senders {
		if err := sender.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("sender %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
