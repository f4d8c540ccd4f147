package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/liamashdown/suimarket/internal/backend"
	"github.com/liamashdown/suimarket/internal/bet"
	"github.com/liamashdown/suimarket/internal/chain"
	"github.com/liamashdown/suimarket/internal/journal"
	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/metrics"
	"github.com/liamashdown/suimarket/internal/notify"
	"github.com/sirupsen/logrus"
)

var ErrInvalidForm = errors.New("invalid market form")

// CreateForm is the admin form for a new market
type CreateForm struct {
	Name        string   `validate:"required,max=255"`
	Description string   `validate:"max=2000"`
	Category    string   `validate:"required"`
	Options     []string `validate:"min=2,max=32,dive,required,max=100"`
	EndDate     string
}

// PlaceBet validates a bet on a loaded market, asks for confirmation and
// submits it through the wallet. Invalid input is rejected before any
// backend or chain call.
func (s *Session) PlaceBet(ctx context.Context, id int64, outcome int, stakeText string) (*chain.Receipt, error) {
	c, ok := s.contract(id)
	if !ok {
		err := fmt.Errorf("%w: %d", ErrUnknownMarket, id)
		s.reject("bet", "Bet rejected", err)
		return nil, err
	}

	intent, err := bet.Build(s.cfg.PackageID, c, outcome, stakeText)
	if err != nil {
		s.reject("bet", "Bet rejected", err)
		return nil, err
	}
	if s.wallet == nil {
		s.reject("bet", "Bet rejected", ErrNoWallet)
		return nil, ErrNoWallet
	}

	question := fmt.Sprintf("Stake %s SUI (%d MIST) on %q in %q.",
		market.FromMist(intent.Stake).String(), intent.Stake, intent.OutcomeName, c.Name)
	confirmed, err := s.prompter.Confirm(ctx, "Place bet", question)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		metrics.RecordAction("bet", "declined")
		return nil, ErrDeclined
	}

	logger := s.log.WithFields(logrus.Fields{
		"market_id": c.ID,
		"market":    c.Address,
		"outcome":   intent.Outcome,
		"stake":     intent.Stake,
	})

	receipt, err := s.wallet.SignAndExecute(ctx, intent)
	record := &journal.BetReceipt{
		Wallet:        s.wallet.Address(),
		MarketID:      c.ID,
		MarketAddress: c.Address,
		MarketName:    c.Name,
		Outcome:       intent.Outcome,
		OutcomeName:   intent.OutcomeName,
		StakeMist:     intent.Stake,
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
		s.recordBet(ctx, record)

		metrics.RecordAction("bet", "error")
		logger.WithError(err).Error("Bet failed")
		s.fail(ctx, "Bet failed", err, c.Name)
		return nil, fmt.Errorf("place bet: %w", err)
	}

	record.Digest = receipt.Digest
	record.Status = receipt.Status
	s.recordBet(ctx, record)

	metrics.RecordAction("bet", "success")
	logger.WithField("digest", receipt.Digest).Info("Bet placed")
	s.send(ctx, &notify.Notice{
		Severity:      notify.SeveritySuccess,
		Title:         "Bet placed",
		Message:       fmt.Sprintf("%s SUI on %q", market.FromMist(intent.Stake).String(), intent.OutcomeName),
		MarketName:    c.Name,
		MarketAddress: c.Address,
		Digest:        receipt.Digest,
		Status:        receipt.Status,
	})

	s.settleThenReload(ctx, "bet", func(ctx context.Context) (bool, error) {
		latest, err := s.fetchContract(ctx, c.ID)
		if err != nil {
			return false, err
		}
		return latest.TotalVolume != c.TotalVolume || latest.OutcomeOdds != c.OutcomeOdds, nil
	})

	return receipt, nil
}

// CreateMarket validates the form and asks the backend to create the market
// on-chain. The new record is appended to the current list.
func (s *Session) CreateMarket(ctx context.Context, form CreateForm) (*market.Contract, error) {
	form = normalizeForm(form)

	if err := s.validateForm(ctx, form); err != nil {
		s.reject("create", "Market not created", err)
		return nil, err
	}

	s.mu.Lock()
	cat, ok := market.FindCategory(s.categories, form.Category)
	s.mu.Unlock()
	switch {
	case !ok:
		err := fmt.Errorf("%w: %w: %q", ErrInvalidForm, ErrUnknownCategory, form.Category)
		s.reject("create", "Market not created", err)
		return nil, err
	case cat.Pseudo():
		err := fmt.Errorf("%w: %q is a browsing filter, pick a real category", ErrInvalidForm, cat.Name)
		s.reject("create", "Market not created", err)
		return nil, err
	}

	endDate := ""
	if form.EndDate != "" {
		end, ok := market.ParseEndDate(form.EndDate)
		if !ok {
			err := fmt.Errorf("%w: end date %q is not a date", ErrInvalidForm, form.EndDate)
			s.reject("create", "Market not created", err)
			return nil, err
		}
		if end.Before(s.now()) {
			err := fmt.Errorf("%w: end date %s is in the past", ErrInvalidForm, form.EndDate)
			s.reject("create", "Market not created", err)
			return nil, err
		}
		endDate = form.EndDate
	}

	created, err := s.backend.CreateContract(ctx, backend.CreateContractRequest{
		Name:        form.Name,
		Address:     "",
		Description: form.Description,
		Options:     form.Options,
		CategoryID:  cat.ID,
		EndDate:     endDate,
	})
	if err != nil {
		metrics.RecordAction("create", "error")
		s.fail(ctx, "Market not created", err, form.Name)
		return nil, fmt.Errorf("create market: %w", err)
	}

	s.mu.Lock()
	s.contracts = append(s.contracts, *created)
	s.mu.Unlock()

	metrics.RecordAction("create", "success")
	s.log.WithFields(logrus.Fields{
		"market_id": created.ID,
		"address":   created.Address,
		"category":  cat.Name,
	}).Info("Market created")
	s.send(ctx, &notify.Notice{
		Severity:      notify.SeveritySuccess,
		Title:         "Market created",
		Message:       fmt.Sprintf("%q with outcomes %s", created.Name, strings.Join(form.Options, ", ")),
		MarketName:    created.Name,
		MarketAddress: created.Address,
	})
	return created, nil
}

// ResolveMarket asks the oracle to settle a market in favour of winner.
// Only the platform admin may resolve, and only after explicit confirmation.
func (s *Session) ResolveMarket(ctx context.Context, id int64, winner int) (*backend.ResolveResponse, error) {
	if !s.IsAdmin() {
		s.reject("resolve", "Resolution rejected", ErrNotAdmin)
		return nil, ErrNotAdmin
	}
	c, ok := s.contract(id)
	if !ok {
		err := fmt.Errorf("%w: %d", ErrUnknownMarket, id)
		s.reject("resolve", "Resolution rejected", err)
		return nil, err
	}
	res, err := bet.BuildResolve(c, winner)
	if err != nil {
		s.reject("resolve", "Resolution rejected", err)
		return nil, err
	}

	question := fmt.Sprintf("Resolve %q in favour of %q. This action is IRREVERSIBLE.", c.Name, res.WinnerName)
	confirmed, err := s.prompter.Confirm(ctx, "Resolve market", question)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		metrics.RecordAction("resolve", "declined")
		return nil, ErrDeclined
	}

	resp, err := s.backend.ResolveMarket(ctx, backend.ResolveRequest{MarketID: res.Market, Winner: res.Winner})
	if err != nil {
		metrics.RecordAction("resolve", "error")
		s.fail(ctx, "Resolution failed", err, c.Name)
		return nil, fmt.Errorf("resolve market: %w", err)
	}

	record := &journal.Resolution{
		MarketID:      c.ID,
		MarketAddress: c.Address,
		Winner:        res.Winner,
		WinnerName:    res.WinnerName,
		Digest:        resp.Digest,
		Status:        resp.Status,
	}
	if s.journal != nil {
		if err := s.journal.RecordResolution(ctx, record); err != nil {
			s.log.WithError(err).Warn("Failed to journal resolution")
			record = nil
		}
	}

	metrics.RecordAction("resolve", "success")
	s.send(ctx, &notify.Notice{
		Severity:      notify.SeveritySuccess,
		Title:         "Market resolved",
		Message:       fmt.Sprintf("Winner: %s", res.WinnerName),
		MarketName:    c.Name,
		MarketAddress: c.Address,
		Digest:        resp.Digest,
		Status:        resp.Status,
	})

	settled := s.settleThenReload(ctx, "resolve", func(ctx context.Context) (bool, error) {
		latest, err := s.fetchContract(ctx, c.ID)
		if err != nil {
			return false, err
		}
		return latest.Resolved, nil
	})
	if settled && s.journal != nil && record != nil {
		if err := s.journal.MarkResolutionSettled(ctx, record.ID); err != nil {
			s.log.WithError(err).Warn("Failed to mark resolution settled")
		}
	}

	return resp, nil
}

// CancelMarket cancels a market on-chain so every stake is refunded.
// Admin only; the market settles once the backend drops it or marks it resolved.
func (s *Session) CancelMarket(ctx context.Context, id int64) (*backend.ResolveResponse, error) {
	if !s.IsAdmin() {
		s.reject("cancel", "Cancellation rejected", ErrNotAdmin)
		return nil, ErrNotAdmin
	}
	c, ok := s.contract(id)
	if !ok {
		err := fmt.Errorf("%w: %d", ErrUnknownMarket, id)
		s.reject("cancel", "Cancellation rejected", err)
		return nil, err
	}
	address, err := bet.BuildCancel(c)
	if err != nil {
		s.reject("cancel", "Cancellation rejected", err)
		return nil, err
	}

	question := fmt.Sprintf("Cancel %q and refund every bet. This action is IRREVERSIBLE.", c.Name)
	confirmed, err := s.prompter.Confirm(ctx, "Cancel market", question)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		metrics.RecordAction("cancel", "declined")
		return nil, ErrDeclined
	}

	resp, err := s.backend.CancelMarket(ctx, backend.CancelRequest{MarketID: address})
	if err != nil {
		metrics.RecordAction("cancel", "error")
		s.fail(ctx, "Cancellation failed", err, c.Name)
		return nil, fmt.Errorf("cancel market: %w", err)
	}

	metrics.RecordAction("cancel", "success")
	s.log.WithFields(logrus.Fields{
		"market_id": c.ID,
		"market":    c.Address,
		"digest":    resp.Digest,
	}).Info("Market cancelled")
	s.send(ctx, &notify.Notice{
		Severity:      notify.SeveritySuccess,
		Title:         "Market cancelled",
		Message:       "All bets are refunded",
		MarketName:    c.Name,
		MarketAddress: c.Address,
		Digest:        resp.Digest,
		Status:        resp.Status,
	})

	s.settleThenReload(ctx, "cancel", func(ctx context.Context) (bool, error) {
		latest, err := s.fetchContract(ctx, c.ID)
		if errors.Is(err, ErrUnknownMarket) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return latest.Resolved, nil
	})

	return resp, nil
}

// DeleteMarket removes a market listing from the backend
func (s *Session) DeleteMarket(ctx context.Context, id int64) error {
	if !s.IsAdmin() {
		s.reject("delete", "Delete rejected", ErrNotAdmin)
		return ErrNotAdmin
	}
	c, ok := s.contract(id)
	if !ok {
		err := fmt.Errorf("%w: %d", ErrUnknownMarket, id)
		s.reject("delete", "Delete rejected", err)
		return err
	}

	confirmed, err := s.prompter.Confirm(ctx, "Delete market", fmt.Sprintf("Remove %q from the listing.", c.Name))
	if err != nil {
		return err
	}
	if !confirmed {
		metrics.RecordAction("delete", "declined")
		return ErrDeclined
	}

	if err := s.backend.DeleteContract(ctx, id); err != nil {
		metrics.RecordAction("delete", "error")
		s.fail(ctx, "Delete failed", err, c.Name)
		return fmt.Errorf("delete market: %w", err)
	}

	s.mu.Lock()
	kept := s.contracts[:0:0]
	for _, existing := range s.contracts {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	s.contracts = kept
	s.mu.Unlock()

	metrics.RecordAction("delete", "success")
	s.send(ctx, &notify.Notice{
		Severity:   notify.SeverityInfo,
		Title:      "Market deleted",
		MarketName: c.Name,
	})
	return nil
}

func (s *Session) recordBet(ctx context.Context, r *journal.BetReceipt) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordBet(ctx, r); err != nil {
		s.log.WithError(err).Warn("Failed to journal bet")
	}
}

func normalizeForm(f CreateForm) CreateForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	f.EndDate = strings.TrimSpace(f.EndDate)

	options := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	f.Options = options
	return f
}

func (s *Session) validateForm(ctx context.Context, f CreateForm) error {
	err := s.validate.StructCtx(ctx, f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidForm, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s non-blank entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
