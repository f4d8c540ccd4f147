package session

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/liamashdown/suimarket/internal/backend"
	"github.com/liamashdown/suimarket/internal/bet"
	"github.com/liamashdown/suimarket/internal/chain"
	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/journal"
	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/notify"
	"github.com/liamashdown/suimarket/internal/settle"
	"github.com/sirupsen/logrus"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	categories    []market.Category
	categoriesErr error
	contracts     []market.Contract
	listHook      func(ctx context.Context, p backend.ContractsParams) ([]market.Contract, error)
	lastParams    backend.ContractsParams
	favorites     []int64
	favoriteErr   error
	history       []market.HistoryPoint
	historyV      uint64
	created       *market.Contract
	createReq     *backend.CreateContractRequest
	resolveReq    *backend.ResolveRequest
	cancelReq     *backend.CancelRequest
	deleted       []int64
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]market.Category, error) {
	f.record("categories")
	return f.categories, f.categoriesErr
}

func (f *fakeBackend) ListContracts(ctx context.Context, p backend.ContractsParams) ([]market.Contract, error) {
	f.record("contracts")
	f.mu.Lock()
	f.lastParams = p
	hook := f.listHook
	list := append([]market.Contract(nil), f.contracts...)
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, p)
	}
	return list, nil
}

func (f *fakeBackend) GetContract(ctx context.Context, id int64) (*market.Contract, error) {
	f.record("contract")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contracts {
		if f.contracts[i].ID == id {
			c := f.contracts[i]
			return &c, nil
		}
	}
	return nil, &backend.StatusError{Endpoint: "contracts", StatusCode: http.StatusNotFound}
}

func (f *fakeBackend) GetHistory(ctx context.Context, id int64, r market.HistoryRange, v uint64) ([]market.HistoryPoint, error) {
	f.record("history")
	f.mu.Lock()
	f.historyV = v
	f.mu.Unlock()
	return f.history, nil
}

func (f *fakeBackend) CreateContract(ctx context.Context, req backend.CreateContractRequest) (*market.Contract, error) {
	f.record("create")
	f.createReq = &req
	return f.created, nil
}

func (f *fakeBackend) DeleteContract(ctx context.Context, id int64) error {
	f.record("delete")
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) GetFavorites(ctx context.Context, wallet string) ([]int64, error) {
	f.record("favorites")
	return f.favorites, nil
}

func (f *fakeBackend) AddFavorite(ctx context.Context, wallet string, id int64) error {
	f.record("add_favorite")
	return f.favoriteErr
}

func (f *fakeBackend) RemoveFavorite(ctx context.Context, wallet string, id int64) error {
	f.record("remove_favorite")
	return f.favoriteErr
}

func (f *fakeBackend) ResolveMarket(ctx context.Context, req backend.ResolveRequest) (*backend.ResolveResponse, error) {
	f.record("resolve")
	f.resolveReq = &req
	f.mu.Lock()
	for i := range f.contracts {
		if f.contracts[i].Address == req.MarketID {
			f.contracts[i].Resolved = true
			w := req.Winner
			f.contracts[i].Winner = &w
		}
	}
	f.mu.Unlock()
	return &backend.ResolveResponse{Digest: "RESOLVE1", Status: "success"}, nil
}

// CancelMarket drops the cancelled market from the listing
func (f *fakeBackend) CancelMarket(ctx context.Context, req backend.CancelRequest) (*backend.ResolveResponse, error) {
	f.record("cancel")
	f.mu.Lock()
	f.cancelReq = &req
	kept := f.contracts[:0:0]
	for _, c := range f.contracts {
		if c.Address != req.MarketID {
			kept = append(kept, c)
		}
	}
	f.contracts = kept
	f.mu.Unlock()
	return &backend.ResolveResponse{Digest: "CANCEL1", Status: "Success"}, nil
}

type fakeWallet struct {
	address string
	intents []*bet.Intent
	receipt *chain.Receipt
	err     error
}

func (w *fakeWallet) Address() string { return w.address }

func (w *fakeWallet) SignAndExecute(ctx context.Context, intent *bet.Intent) (*chain.Receipt, error) {
	w.intents = append(w.intents, intent)
	return w.receipt, w.err
}

type fakePrompter struct {
	answer   bool
	confirms []string
	alerts   []*notify.Notice
}

func (p *fakePrompter) Alert(n *notify.Notice) { p.alerts = append(p.alerts, n) }

func (p *fakePrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	p.confirms = append(p.confirms, message)
	return p.answer, nil
}

type fakeSender struct {
	notices []*notify.Notice
}

func (s *fakeSender) Send(ctx context.Context, n *notify.Notice) error {
	s.notices = append(s.notices, n)
	return nil
}

type fakeJournal struct {
	state       map[string]string
	bets        []*journal.BetReceipt
	resolutions []*journal.Resolution
	settled     []string
}

func newFakeJournal() *fakeJournal { return &fakeJournal{state: map[string]string{}} }

func (j *fakeJournal) GetState(ctx context.Context, key string) (string, error) {
	return j.state[key], nil
}

func (j *fakeJournal) SetState(ctx context.Context, key, value string) error {
	j.state[key] = value
	return nil
}

func (j *fakeJournal) RecordBet(ctx context.Context, r *journal.BetReceipt) error {
	j.bets = append(j.bets, r)
	return nil
}

func (j *fakeJournal) RecordResolution(ctx context.Context, r *journal.Resolution) error {
	r.ID = "res-1"
	j.resolutions = append(j.resolutions, r)
	return nil
}

func (j *fakeJournal) MarkResolutionSettled(ctx context.Context, id string) error {
	j.settled = append(j.settled, id)
	return nil
}

// onceWaiter checks the condition a single time
type onceWaiter struct{ calls int }

func (w *onceWaiter) Wait(ctx context.Context, action string, cond settle.Condition) error {
	w.calls++
	ok, err := cond(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return settle.ErrNotSettled
	}
	return nil
}

type harness struct {
	s        *Session
	backend  *fakeBackend
	wallet   *fakeWallet
	prompter *fakePrompter
	sender   *fakeSender
	journal  *fakeJournal
	waiter   *onceWaiter
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := &harness{
		backend:  &fakeBackend{},
		wallet:   &fakeWallet{address: "0xme", receipt: &chain.Receipt{Digest: "DIGEST1", Status: "success"}},
		prompter: &fakePrompter{answer: true},
		sender:   &fakeSender{},
		journal:  newFakeJournal(),
		waiter:   &onceWaiter{},
	}
	cfg := &config.Config{Environment: "test", PackageID: "0xabc"}
	h.s = New(cfg, h.backend, h.wallet, h.journal, h.sender, h.prompter, h.waiter, log)
	h.s.now = func() time.Time { return testNow }
	return h
}

// load puts contracts into both the backend and the session
func (h *harness) load(contracts ...market.Contract) {
	h.backend.contracts = contracts
	h.s.contracts = append([]market.Contract(nil), contracts...)
}
