// Package chain talks to a Sui full node over JSON-RPC and signs
// transactions for the configured account.
package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/liamashdown/suimarket/internal/metrics"
)

// SuiCoinType is the native coin type
const SuiCoinType = "0x2::sui::SUI"

// Uint64 decodes the u64 values Sui encodes as JSON strings, also accepting plain numbers.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse u64 %s: %w", b, err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) String() string { return strconv.FormatUint(uint64(u), 10) }

// Coin is an owned coin object
type Coin struct {
	CoinType     string `json:"coinType"`
	CoinObjectID string `json:"coinObjectId"`
	Version      string `json:"version"`
	Digest       string `json:"digest"`
	Balance      Uint64 `json:"balance"`
}

type coinPage struct {
	Data        []Coin  `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// TransactionBytes is an unsigned transaction built by the node
type TransactionBytes struct {
	TxBytes string `json:"txBytes"` // base64 BCS
}

// ObjectRef identifies an object version
type ObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  Uint64 `json:"version"`
	Digest   string `json:"digest"`
}

// OwnedObjectRef is an object created or mutated by a transaction
type OwnedObjectRef struct {
	Owner     json.RawMessage `json:"owner"`
	Reference ObjectRef       `json:"reference"`
}

// ExecutionStatus reports whether a transaction succeeded
type ExecutionStatus struct {
	Status string `json:"status"` // success, failure
	Error  string `json:"error,omitempty"`
}

// Effects is the part of transaction effects the client reads
type Effects struct {
	Status  ExecutionStatus  `json:"status"`
	Created []OwnedObjectRef `json:"created"`
}

// TransactionResponse is returned by sui_executeTransactionBlock
type TransactionResponse struct {
	Digest  string   `json:"digest"`
	Effects *Effects `json:"effects"`
}

// Succeeded reports a successful execution
func (r *TransactionResponse) Succeeded() bool {
	return r.Effects != nil && r.Effects.Status.Status == "success"
}

type objectResponse struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Content  *struct {
			DataType string          `json:"dataType"`
			Type     string          `json:"type"`
			Fields   json.RawMessage `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error json.RawMessage `json:"error"`
}

// Client is a Sui full node JSON-RPC client
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a full node
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial sui rpc: %w", err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the connection
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	start := time.Now()
	err := c.rpc.CallContext(ctx, result, method, args...)
	metrics.RecordRPCCall(method, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// GetCoins returns all SUI coins owned by an address
func (c *Client) GetCoins(ctx context.Context, owner string) ([]Coin, error) {
	var coins []Coin
	var cursor *string
	for {
		var page coinPage
		if err := c.call(ctx, &page, "suix_getCoins", owner, SuiCoinType, cursor, nil); err != nil {
			return nil, err
		}
		coins = append(coins, page.Data...)
		if !page.HasNextPage || page.NextCursor == nil {
			return coins, nil
		}
		cursor = page.NextCursor
	}
}

// ReferenceGasPrice returns the current epoch gas price in MIST
func (c *Client) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var price Uint64
	if err := c.call(ctx, &price, "suix_getReferenceGasPrice"); err != nil {
		return 0, err
	}
	return uint64(price), nil
}

// PaySui builds a transaction paying amounts to recipients out of the input
// coins, the first of which also pays for gas.
func (c *Client) PaySui(ctx context.Context, signer string, inputCoins, recipients []string, amounts []uint64, gasBudget uint64) (*TransactionBytes, error) {
	strAmounts := make([]string, len(amounts))
	for i, a := range amounts {
		strAmounts[i] = strconv.FormatUint(a, 10)
	}

	var tx TransactionBytes
	err := c.call(ctx, &tx, "unsafe_paySui", signer, inputCoins, recipients, strAmounts, strconv.FormatUint(gasBudget, 10))
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// MoveCall builds a transaction calling a Move function. Gas is selected by the node.
func (c *Client) MoveCall(ctx context.Context, signer, pkg, module, function string, args []any, gasBudget uint64) (*TransactionBytes, error) {
	var tx TransactionBytes
	err := c.call(ctx, &tx, "unsafe_moveCall",
		signer, pkg, module, function, []string{}, args, nil, strconv.FormatUint(gasBudget, 10), nil)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Execute submits a signed transaction and waits for local execution.
func (c *Client) Execute(ctx context.Context, tx *TransactionBytes, signatures ...string) (*TransactionResponse, error) {
	if _, err := decodeTxBytes(tx); err != nil {
		return nil, err
	}

	options := map[string]bool{"showEffects": true}
	var resp TransactionResponse
	err := c.call(ctx, &resp, "sui_executeTransactionBlock", tx.TxBytes, signatures, options, "WaitForLocalExecution")
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func decodeTxBytes(tx *TransactionBytes) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(tx.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("transaction bytes are not base64: %w", err)
	}
	return raw, nil
}

// MarketStakes reads the per-outcome stakes (MIST) held by a market object.
func (c *Client) MarketStakes(ctx context.Context, marketID string) ([]uint64, error) {
	var obj objectResponse
	if err := c.call(ctx, &obj, "sui_getObject", marketID, map[string]bool{"showContent": true}); err != nil {
		return nil, err
	}
	if obj.Data == nil || obj.Data.Content == nil {
		return nil, fmt.Errorf("object %s: no content (%s)", marketID, string(obj.Error))
	}

	var fields struct {
		TotalStakes []Uint64 `json:"total_stakes"`
	}
	if err := json.Unmarshal(obj.Data.Content.Fields, &fields); err != nil {
		return nil, fmt.Errorf("object %s: decode fields: %w", marketID, err)
	}
	if len(fields.TotalStakes) == 0 {
		return nil, fmt.Errorf("object %s: no total_stakes field", marketID)
	}

	stakes := make([]uint64, len(fields.TotalStakes))
	for i, s := range fields.TotalStakes {
		stakes[i] = uint64(s)
	}
	return stakes, nil
}
