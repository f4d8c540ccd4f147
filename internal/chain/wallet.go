package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/liamashdown/suimarket/internal/bet"
	"github.com/sirupsen/logrus"
)

var (
	ErrInsufficientBalance = errors.New("insufficient SUI balance for stake and gas")
	ErrExecutionFailed     = errors.New("transaction execution failed")
)

// Receipt is what a wallet reports after a transaction is executed
type Receipt struct {
	Digest string
	Status string
}

// Wallet signs and submits bet transactions for one account
type Wallet interface {
	Address() string
	SignAndExecute(ctx context.Context, intent *bet.Intent) (*Receipt, error)
}

// rpcAPI is the subset of the node client a KeypairWallet drives
type rpcAPI interface {
	GetCoins(ctx context.Context, owner string) ([]Coin, error)
	PaySui(ctx context.Context, signer string, inputCoins, recipients []string, amounts []uint64, gasBudget uint64) (*TransactionBytes, error)
	MoveCall(ctx context.Context, signer, pkg, module, function string, args []any, gasBudget uint64) (*TransactionBytes, error)
	Execute(ctx context.Context, tx *TransactionBytes, signatures ...string) (*TransactionResponse, error)
}

// KeypairWallet is a Wallet backed by a local ed25519 key
type KeypairWallet struct {
	key       *Keypair
	node      rpcAPI
	gasBudget uint64
	log       *logrus.Logger
}

// NewKeypairWallet creates a wallet using node for transaction building and execution
func NewKeypairWallet(key *Keypair, node *Client, gasBudget uint64, log *logrus.Logger) *KeypairWallet {
	return &KeypairWallet{key: key, node: node, gasBudget: gasBudget, log: log}
}

func (w *KeypairWallet) Address() string { return w.key.Address() }

// Balance sums the SUI coins of the account, in MIST
func (w *KeypairWallet) Balance(ctx context.Context) (uint64, error) {
	coins, err := w.node.GetCoins(ctx, w.Address())
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, c := range coins {
		total += uint64(c.Balance)
	}
	return total, nil
}

// SignAndExecute splits the stake into a fresh coin paid from the account's
// gas coins, then calls place_bet with it. Two transactions are submitted.
func (w *KeypairWallet) SignAndExecute(ctx context.Context, intent *bet.Intent) (*Receipt, error) {
	stakeCoin, err := w.splitStake(ctx, intent.Stake)
	if err != nil {
		return nil, fmt.Errorf("split stake: %w", err)
	}

	args := []any{intent.Market, stakeCoin, intent.Outcome}
	tx, err := w.node.MoveCall(ctx, w.Address(), intent.Package, intent.Module, intent.Function, args, w.gasBudget)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", intent.Target(), err)
	}

	resp, err := w.execute(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("place bet: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"digest":  resp.Digest,
		"market":  intent.Market,
		"outcome": intent.Outcome,
		"stake":   intent.Stake,
	}).Info("Bet executed")

	return &Receipt{Digest: resp.Digest, Status: resp.Effects.Status.Status}, nil
}

func (w *KeypairWallet) splitStake(ctx context.Context, stake uint64) (string, error) {
	if stake > math.MaxUint64-w.gasBudget {
		return "", fmt.Errorf("%w: stake %d MIST plus gas budget %d overflows", ErrInsufficientBalance, stake, w.gasBudget)
	}
	coins, err := w.node.GetCoins(ctx, w.Address())
	if err != nil {
		return "", err
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i].Balance > coins[j].Balance })

	need := stake + w.gasBudget
	var inputs []string
	var have uint64
	for _, c := range coins {
		inputs = append(inputs, c.CoinObjectID)
		have += uint64(c.Balance)
		if have >= need {
			break
		}
	}
	if have < need {
		return "", fmt.Errorf("%w: have %d MIST, need %d", ErrInsufficientBalance, have, need)
	}

	tx, err := w.node.PaySui(ctx, w.Address(), inputs, []string{w.Address()}, []uint64{stake}, w.gasBudget)
	if err != nil {
		return "", err
	}
	resp, err := w.execute(ctx, tx)
	if err != nil {
		return "", err
	}

	for _, obj := range resp.Effects.Created {
		if ownedBy(obj.Owner, w.Address()) {
			return obj.Reference.ObjectID, nil
		}
	}
	return "", fmt.Errorf("split %s created no coin for %s", resp.Digest, w.Address())
}

func (w *KeypairWallet) execute(ctx context.Context, tx *TransactionBytes) (*TransactionResponse, error) {
	raw, err := decodeTxBytes(tx)
	if err != nil {
		return nil, err
	}
	resp, err := w.node.Execute(ctx, tx, w.key.SignTransaction(raw))
	if err != nil {
		return nil, err
	}
	if !resp.Succeeded() {
		reason := "no effects"
		if resp.Effects != nil {
			reason = resp.Effects.Status.Error
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrExecutionFailed, resp.Digest, reason)
	}
	return resp, nil
}

func ownedBy(owner json.RawMessage, address string) bool {
	var o struct {
		AddressOwner string `json:"AddressOwner"`
	}
	if err := json.Unmarshal(owner, &o); err != nil {
		return false
	}
	return o.AddressOwner == address
}
