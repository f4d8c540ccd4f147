// Package settle waits for the backend to reflect a state change made on-chain.
package settle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ErrNotSettled is returned when the condition did not hold before the timeout
var ErrNotSettled = errors.New("backend did not reflect the change in time")

var errPending = errors.New("pending")

// Condition reports whether the expected state is visible yet.
// Errors are treated as transient and retried.
type Condition func(ctx context.Context) (bool, error)

// Waiter polls a Condition with exponential backoff
type Waiter struct {
	initial time.Duration
	max     time.Duration
	timeout time.Duration
	log     *logrus.Logger
}

// New creates a waiter from the SETTLE_* settings
func New(cfg *config.Config, log *logrus.Logger) *Waiter {
	return NewWaiter(cfg.SettleInitialInterval, cfg.SettleMaxInterval, cfg.SettleTimeout, log)
}

// NewWaiter creates a waiter with explicit intervals
func NewWaiter(initial, maxInterval, timeout time.Duration, log *logrus.Logger) *Waiter {
	return &Waiter{initial: initial, max: maxInterval, timeout: timeout, log: log}
}

// Wait polls cond until it holds, the timeout passes or ctx is done.
func (w *Waiter) Wait(ctx context.Context, action string, cond Condition) error {
	start := time.Now()
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	attempts := 0
	operation := func() error {
		attempts++
		ok, err := cond(ctx)
		if err != nil {
			w.log.WithFields(logrus.Fields{
				"action":  action,
				"attempt": attempts,
				"error":   err,
			}).Debug("Settle check failed")
			return err
		}
		if !ok {
			return errPending
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initial
	b.MaxInterval = w.max
	b.MaxElapsedTime = w.timeout
	b.Reset()

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	elapsed := time.Since(start)
	metrics.RecordSettleWait(action, elapsed, err == nil)

	if err == nil {
		w.log.WithFields(logrus.Fields{
			"action":   action,
			"attempts": attempts,
			"elapsed":  elapsed.Round(time.Millisecond),
		}).Debug("Change settled")
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	return fmt.Errorf("%w: %s after %s (%d checks)", ErrNotSettled, action, elapsed.Round(time.Millisecond), attempts)
}
