// Package session holds the state of one interactive session against the
// market backend and runs the user actions that change it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liamashdown/suimarket/internal/backend"
	"github.com/liamashdown/suimarket/internal/chain"
	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/journal"
	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/metrics"
	"github.com/liamashdown/suimarket/internal/notify"
	"github.com/liamashdown/suimarket/internal/settle"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrStale           = errors.New("response superseded by a newer request")
	ErrNoWallet        = errors.New("no wallet configured")
	ErrNotAdmin        = errors.New("wallet is not the platform admin")
	ErrDeclined        = errors.New("action declined")
	ErrUnknownMarket   = errors.New("unknown market")
	ErrUnknownCategory = errors.New("unknown category")
)

// Backend is the part of the REST client a session uses
type Backend interface {
	ListCategories(ctx context.Context) ([]market.Category, error)
	ListContracts(ctx context.Context, params backend.ContractsParams) ([]market.Contract, error)
	GetContract(ctx context.Context, id int64) (*market.Contract, error)
	GetHistory(ctx context.Context, id int64, r market.HistoryRange, version uint64) ([]market.HistoryPoint, error)
	CreateContract(ctx context.Context, req backend.CreateContractRequest) (*market.Contract, error)
	DeleteContract(ctx context.Context, id int64) error
	GetFavorites(ctx context.Context, wallet string) ([]int64, error)
	AddFavorite(ctx context.Context, wallet string, contractID int64) error
	RemoveFavorite(ctx context.Context, wallet string, contractID int64) error
	ResolveMarket(ctx context.Context, req backend.ResolveRequest) (*backend.ResolveResponse, error)
	CancelMarket(ctx context.Context, req backend.CancelRequest) (*backend.ResolveResponse, error)
}

// Journal records submitted actions. It is optional.
type Journal interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
	RecordBet(ctx context.Context, receipt *journal.BetReceipt) error
	RecordResolution(ctx context.Context, r *journal.Resolution) error
	MarkResolutionSettled(ctx context.Context, id string) error
}

// Waiter blocks until a backend condition holds
type Waiter interface {
	Wait(ctx context.Context, action string, cond settle.Condition) error
}

// Session is the state of one running client
type Session struct {
	cfg      *config.Config
	backend  Backend
	wallet   chain.Wallet
	journal  Journal
	notifier notify.Sender
	prompter notify.Prompter
	waiter   Waiter
	validate *validator.Validate
	log      *logrus.Logger
	now      func() time.Time

	mu               sync.Mutex
	categories       []market.Category
	contracts        []market.Contract
	favorites        market.FavoriteSet
	query            market.Query
	categoryName     string
	contractsVersion uint64
	historyVersion   uint64
	refreshCount     uint64
}

// New creates a session. wallet and journal may be nil.
func New(
	cfg *config.Config,
	be Backend,
	wallet chain.Wallet,
	j Journal,
	notifier notify.Sender,
	prompter notify.Prompter,
	waiter Waiter,
	log *logrus.Logger,
) *Session {
	return &Session{
		cfg:          cfg,
		backend:      be,
		wallet:       wallet,
		journal:      j,
		notifier:     notifier,
		prompter:     prompter,
		waiter:       waiter,
		validate:     validator.New(),
		log:          log,
		now:          time.Now,
		favorites:    market.NewFavoriteSet(),
		categoryName: market.CategoryAll,
	}
}

// WalletAddress returns the connected account, or "" when read-only
func (s *Session) WalletAddress() string {
	if s.wallet == nil {
		return ""
	}
	return s.wallet.Address()
}

// IsAdmin reports whether the connected wallet may resolve, cancel and delete markets.
// Without a configured admin address every wallet is allowed.
func (s *Session) IsAdmin() bool {
	if s.cfg.PlatformAdminAddress == "" {
		return true
	}
	return s.WalletAddress() != "" && s.WalletAddress() == s.cfg.PlatformAdminAddress
}

// Refresh loads categories, markets and favorites concurrently.
// Individual failures are logged and leave that list empty.
func (s *Session) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cats, err := s.backend.ListCategories(gctx)
		if err != nil {
			s.log.WithError(err).Warn("Failed to load categories")
			cats = nil
		}
		s.mu.Lock()
		s.categories = cats
		s.mu.Unlock()
		return nil
	})

	g.Go(func() error {
		if err := s.loadContracts(gctx); err != nil && !errors.Is(err, ErrStale) {
			s.log.WithError(err).Warn("Failed to load markets")
		}
		return nil
	})

	g.Go(func() error {
		if err := s.loadFavorites(gctx); err != nil {
			s.log.WithError(err).Warn("Failed to load favorites")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// loadContracts fetches the market list for the current query. A response
// that arrives after a newer fetch started is dropped and ErrStale returned.
func (s *Session) loadContracts(ctx context.Context) error {
	s.mu.Lock()
	s.contractsVersion++
	version := s.contractsVersion
	params := backend.ContractsParams{Search: s.query.Search, CategoryID: s.query.CategoryID}
	s.mu.Unlock()

	contracts, err := s.backend.ListContracts(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()

	if version != s.contractsVersion {
		metrics.RecordStaleResponse("contracts")
		s.log.WithFields(logrus.Fields{
			"version": version,
			"current": s.contractsVersion,
		}).Debug("Discarding stale market list")
		return ErrStale
	}
	if err != nil {
		s.contracts = nil
		return fmt.Errorf("list markets: %w", err)
	}
	s.contracts = contracts
	return nil
}

func (s *Session) loadFavorites(ctx context.Context) error {
	address := s.WalletAddress()
	if address == "" {
		return nil
	}

	ids, err := s.backend.GetFavorites(ctx, address)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.favorites = market.NewFavoriteSet()
		return fmt.Errorf("list favorites: %w", err)
	}
	s.favorites = market.NewFavoriteSet(ids...)
	return nil
}

// Categories returns the loaded categories
func (s *Session) Categories() []market.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.Category(nil), s.categories...)
}

// CategoryName returns the active category filter
func (s *Session) CategoryName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoryName
}

// SetCategory switches the category filter by name and re-fetches.
// "All" clears the filter; "New" clears it and orders newest first.
func (s *Session) SetCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	cat, ok := market.FindCategory(s.categories, name)
	if !ok && !isPseudoName(name) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	if !ok {
		cat = market.Category{Name: name}
	}

	s.categoryName = cat.Name
	s.query.NewestFirst = false
	s.query.CategoryID = nil
	switch {
	case strings.EqualFold(cat.Name, market.CategoryNew):
		s.query.NewestFirst = true
	case cat.Pseudo():
	default:
		id := cat.ID
		s.query.CategoryID = &id
	}
	s.mu.Unlock()

	s.saveState(ctx, journal.StateLastCategory, cat.Name)
	return s.loadContracts(ctx)
}

// SetSearch changes the search text and re-fetches
func (s *Session) SetSearch(ctx context.Context, text string) error {
	s.mu.Lock()
	s.query.Search = text
	s.mu.Unlock()

	s.saveState(ctx, journal.StateLastSearch, text)
	return s.loadContracts(ctx)
}

// SetFavoritesOnly restricts Views to bookmarked markets
func (s *Session) SetFavoritesOnly(only bool) {
	s.mu.Lock()
	s.query.FavoritesOnly = only
	s.mu.Unlock()
}

// RestoreState re-applies the filters remembered in the journal.
// It expects categories to be loaded.
func (s *Session) RestoreState(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}

	search, err := s.journal.GetState(ctx, journal.StateLastSearch)
	if err != nil {
		return fmt.Errorf("get last search: %w", err)
	}
	s.mu.Lock()
	s.query.Search = search
	s.mu.Unlock()

	name, err := s.journal.GetState(ctx, journal.StateLastCategory)
	if err != nil {
		return fmt.Errorf("get last category: %w", err)
	}
	if name == "" {
		name = market.CategoryAll
	}
	if err := s.SetCategory(ctx, name); errors.Is(err, ErrUnknownCategory) {
		s.log.WithField("category", name).Warn("Remembered category no longer exists")
		return s.SetCategory(ctx, market.CategoryAll)
	} else if err != nil {
		return err
	}
	return nil
}

// Views derives the display state of the current market list
func (s *Session) Views() []market.View {
	s.mu.Lock()
	q := market.Query{NewestFirst: s.query.NewestFirst, FavoritesOnly: s.query.FavoritesOnly}
	contracts := append([]market.Contract(nil), s.contracts...)
	favorites := s.favorites.Clone()
	s.mu.Unlock()

	return market.DeriveAll(market.Filter(contracts, q, favorites), favorites)
}

// FavoriteIDs returns the bookmarked market ids in ascending order
func (s *Session) FavoriteIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites.IDs()
}

// View derives the display state of one market
func (s *Session) View(id int64) (market.View, bool) {
	c, ok := s.contract(id)
	if !ok {
		return market.View{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return market.Derive(c, s.favorites), true
}

func (s *Session) contract(id int64) (market.Contract, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contracts {
		if c.ID == id {
			return c, true
		}
	}
	return market.Contract{}, false
}

// ToggleFavorite flips the bookmark on a market. The local set changes
// immediately and is reverted if the backend rejects the change.
func (s *Session) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	address := s.WalletAddress()
	if address == "" {
		return false, ErrNoWallet
	}

	s.mu.Lock()
	now := s.favorites.Toggle(id)
	s.mu.Unlock()

	var err error
	if now {
		err = s.backend.AddFavorite(ctx, address, id)
	} else {
		err = s.backend.RemoveFavorite(ctx, address, id)
	}
	if err != nil {
		s.mu.Lock()
		if s.favorites.Has(id) == now {
			s.favorites.Toggle(id)
		}
		s.mu.Unlock()

		metrics.RecordAction("favorite", "error")
		s.fail(ctx, "Favorite not saved", err, "")
		return !now, fmt.Errorf("update favorite: %w", err)
	}

	metrics.RecordAction("favorite", "success")
	return now, nil
}

// History loads the price chart of a market
func (s *Session) History(ctx context.Context, id int64, rangeText string) ([]market.Series, error) {
	r, err := market.ParseHistoryRange(rangeText)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.historyVersion++
	version := s.historyVersion
	refresh := s.refreshCount
	s.mu.Unlock()

	points, err := s.backend.GetHistory(ctx, id, r, refresh)

	s.mu.Lock()
	current := s.historyVersion
	s.mu.Unlock()
	if version != current {
		metrics.RecordStaleResponse("history")
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	options := market.DefaultOptions
	if c, ok := s.contract(id); ok {
		options = market.ParseOptions(c.Options)
	}
	return market.Chart(options, points), nil
}

func (s *Session) saveState(ctx context.Context, key, value string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SetState(ctx, key, value); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to save session state")
	}
}

// settleThenReload waits for cond, then re-fetches whether or not it held.
func (s *Session) settleThenReload(ctx context.Context, action string, cond settle.Condition) bool {
	err := s.waiter.Wait(ctx, action, cond)
	settled := err == nil
	if err != nil {
		s.log.WithError(err).WithField("action", action).Warn("Backend has not caught up yet, refreshing anyway")
	}

	s.mu.Lock()
	s.refreshCount++
	s.mu.Unlock()

	if err := s.loadContracts(ctx); err != nil && !errors.Is(err, ErrStale) {
		s.log.WithError(err).Warn("Failed to reload markets")
	}
	return settled
}

// fetchContract reads the latest backend copy of a market
func (s *Session) fetchContract(ctx context.Context, id int64) (*market.Contract, error) {
	c, err := s.backend.GetContract(ctx, id)
	if backend.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMarket, id)
	}
	return c, err
}

func (s *Session) send(ctx context.Context, n *notify.Notice) {
	n.Environment = s.cfg.Environment
	n.Wallet = s.WalletAddress()
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}
	s.prompter.Alert(n)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.log.WithError(err).Warn("Failed to deliver notice")
	}
}

func (s *Session) fail(ctx context.Context, title string, err error, marketName string) {
	s.send(ctx, &notify.Notice{
		Severity:   notify.SeverityError,
		Title:      title,
		Message:    err.Error(),
		MarketName: marketName,
	})
}

// reject reports a validation failure to the terminal only
func (s *Session) reject(action, title string, err error) {
	metrics.RecordAction(action, "rejected")
	s.prompter.Alert(&notify.Notice{
		Severity:  notify.SeverityError,
		Title:     title,
		Message:   err.Error(),
		Timestamp: s.now(),
	})
}

func isPseudoName(name string) bool {
	return market.Category{Name: name}.Pseudo()
}
