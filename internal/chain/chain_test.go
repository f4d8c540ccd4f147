package chain

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liamashdown/suimarket/internal/bet"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

var testSeed = bytes.Repeat([]byte{7}, ed25519.SeedSize)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers JSON-RPC calls with handler results keyed by method
func fakeNode(t *testing.T, handler func(method string, params []json.RawMessage) any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		result, err := json.Marshal(handler(req.Method, req.Params))
		if err != nil {
			t.Errorf("encode result: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(result),
		})
	}))
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestParseKeypairFormats(t *testing.T) {
	want := NewKeypair(testSeed).Address()

	inputs := map[string]string{
		"hex":           hex.EncodeToString(testSeed),
		"hex 0x":        "0x" + hex.EncodeToString(testSeed),
		"base64 seed":   base64.StdEncoding.EncodeToString(testSeed),
		"base64 flag":   base64.StdEncoding.EncodeToString(append([]byte{0x00}, testSeed...)),
		"padded spaces": "  " + hex.EncodeToString(testSeed) + "\n",
	}
	for name, raw := range inputs {
		kp, err := ParseKeypair(raw)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if kp.Address() != want {
			t.Errorf("%s: address %s, want %s", name, kp.Address(), want)
		}
	}

	for _, bad := range []string{"", "zz", base64.StdEncoding.EncodeToString([]byte{1, 2, 3})} {
		if _, err := ParseKeypair(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseKeypair(%q) err = %v, want ErrInvalidKey", bad, err)
		}
	}
}

func TestKeypairAddress(t *testing.T) {
	kp := NewKeypair(testSeed)
	sum := blake2b.Sum256(append([]byte{0x00}, kp.PublicKey()...))
	if got, want := kp.Address(), "0x"+hex.EncodeToString(sum[:]); got != want {
		t.Errorf("Address() = %s, want %s", got, want)
	}
}

func TestSignTransactionLayout(t *testing.T) {
	kp := NewKeypair(testSeed)
	tx := []byte("transaction bytes")

	raw, err := base64.StdEncoding.DecodeString(kp.SignTransaction(tx))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 1+ed25519.SignatureSize+ed25519.PublicKeySize {
		t.Fatalf("signature length = %d", len(raw))
	}
	if raw[0] != 0x00 {
		t.Errorf("flag = %#x, want 0x00", raw[0])
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := raw[1+ed25519.SignatureSize:]
	if !bytes.Equal(pub, kp.PublicKey()) {
		t.Error("public key suffix mismatch")
	}

	digest := blake2b.Sum256(append([]byte{0, 0, 0}, tx...))
	if !ed25519.Verify(pub, digest[:], sig) {
		t.Error("signature does not verify over intent digest")
	}
}

func TestUint64Decoding(t *testing.T) {
	var v struct {
		A Uint64 `json:"a"`
		B Uint64 `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"18446744073709551615","b":750}`), &v); err != nil {
		t.Fatal(err)
	}
	if uint64(v.A) != 18446744073709551615 || v.B != 750 {
		t.Errorf("decoded %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":"-1"}`), &v); err == nil {
		t.Error("negative u64 accepted")
	}
}

func TestMarketStakes(t *testing.T) {
	c := fakeNode(t, func(method string, params []json.RawMessage) any {
		if method != "sui_getObject" {
			t.Errorf("method = %s", method)
		}
		return map[string]any{
			"data": map[string]any{
				"objectId": "0xmarket",
				"content": map[string]any{
					"dataType": "moveObject",
					"type":     "0xpkg::market::Market",
					"fields":   map[string]any{"total_stakes": []string{"3000000000", "1000000000"}},
				},
			},
		}
	})

	stakes, err := c.MarketStakes(context.Background(), "0xmarket")
	if err != nil {
		t.Fatalf("MarketStakes: %v", err)
	}
	if len(stakes) != 2 || stakes[0] != 3_000_000_000 || stakes[1] != 1_000_000_000 {
		t.Errorf("stakes = %v", stakes)
	}
}

func TestReferenceGasPrice(t *testing.T) {
	c := fakeNode(t, func(method string, params []json.RawMessage) any { return "1000" })
	price, err := c.ReferenceGasPrice(context.Background())
	if err != nil || price != 1000 {
		t.Errorf("ReferenceGasPrice = %d, %v", price, err)
	}
}

func TestKeypairWalletPlacesBet(t *testing.T) {
	kp := NewKeypair(testSeed)
	splitTx := base64.StdEncoding.EncodeToString([]byte("split"))
	betTx := base64.StdEncoding.EncodeToString([]byte("bet"))
	var calls []string

	node := fakeNode(t, func(method string, params []json.RawMessage) any {
		calls = append(calls, method)
		switch method {
		case "suix_getCoins":
			return map[string]any{
				"data": []map[string]any{
					{"coinObjectId": "0xsmall", "balance": "100"},
					{"coinObjectId": "0xbig", "balance": "5000000000"},
				},
				"hasNextPage": false,
			}
		case "unsafe_paySui":
			var inputs []string
			var amounts []string
			_ = json.Unmarshal(params[1], &inputs)
			_ = json.Unmarshal(params[3], &amounts)
			if len(inputs) != 1 || inputs[0] != "0xbig" {
				t.Errorf("paySui inputs = %v, want [0xbig]", inputs)
			}
			if len(amounts) != 1 || amounts[0] != "1000" {
				t.Errorf("paySui amounts = %v", amounts)
			}
			return map[string]any{"txBytes": splitTx}
		case "unsafe_moveCall":
			var target [3]string
			for i := range target {
				_ = json.Unmarshal(params[i+1], &target[i])
			}
			if target != [3]string{"0xabc", "market", "place_bet"} {
				t.Errorf("moveCall target = %v", target)
			}
			var args []any
			_ = json.Unmarshal(params[5], &args)
			if len(args) != 3 || args[0] != "0xmarket" || args[1] != "0xnewcoin" || args[2] != float64(1) {
				t.Errorf("moveCall args = %v", args)
			}
			return map[string]any{"txBytes": betTx}
		case "sui_executeTransactionBlock":
			var tx string
			var sigs []string
			_ = json.Unmarshal(params[0], &tx)
			_ = json.Unmarshal(params[1], &sigs)
			raw, _ := base64.StdEncoding.DecodeString(tx)
			sig, _ := base64.StdEncoding.DecodeString(sigs[0])
			digest := blake2b.Sum256(append([]byte{0, 0, 0}, raw...))
			if !ed25519.Verify(kp.PublicKey(), digest[:], sig[1:65]) {
				t.Errorf("bad signature for %s", raw)
			}
			if tx == splitTx {
				return map[string]any{
					"digest": "SPLIT",
					"effects": map[string]any{
						"status": map[string]any{"status": "success"},
						"created": []map[string]any{{
							"owner":     map[string]any{"AddressOwner": kp.Address()},
							"reference": map[string]any{"objectId": "0xnewcoin", "version": "4", "digest": "d"},
						}},
					},
				}
			}
			return map[string]any{
				"digest":  "BET",
				"effects": map[string]any{"status": map[string]any{"status": "success"}},
			}
		}
		t.Errorf("unexpected method %s", method)
		return nil
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	w := NewKeypairWallet(kp, node, 10_000_000, log)

	receipt, err := w.SignAndExecute(context.Background(), &bet.Intent{
		Package:  "0xabc",
		Module:   bet.Module,
		Function: bet.PlaceBetFunction,
		Market:   "0xmarket",
		Stake:    1000,
		Outcome:  1,
	})
	if err != nil {
		t.Fatalf("SignAndExecute: %v", err)
	}
	if receipt.Digest != "BET" || receipt.Status != "success" {
		t.Errorf("receipt = %+v", receipt)
	}
	want := []string{"suix_getCoins", "unsafe_paySui", "sui_executeTransactionBlock", "unsafe_moveCall", "sui_executeTransactionBlock"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestKeypairWalletInsufficientBalance(t *testing.T) {
	node := fakeNode(t, func(method string, params []json.RawMessage) any {
		if method != "suix_getCoins" {
			t.Errorf("unexpected method %s", method)
		}
		return map[string]any{"data": []map[string]any{{"coinObjectId": "0x1", "balance": "10"}}}
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	w := NewKeypairWallet(NewKeypair(testSeed), node, 5, log)

	_, err := w.SignAndExecute(context.Background(), &bet.Intent{Package: "0xabc", Market: "0xm", Stake: 100})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestKeypairWalletStakeOverflow(t *testing.T) {
	node := fakeNode(t, func(method string, params []json.RawMessage) any {
		t.Errorf("unexpected method %s", method)
		return nil
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	w := NewKeypairWallet(NewKeypair(testSeed), node, 5, log)

	_, err := w.SignAndExecute(context.Background(), &bet.Intent{Package: "0xabc", Market: "0xm", Stake: math.MaxUint64 - 2})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestKeypairWalletExecutionFailure(t *testing.T) {
	node := fakeNode(t, func(method string, params []json.RawMessage) any {
		switch method {
		case "suix_getCoins":
			return map[string]any{"data": []map[string]any{{"coinObjectId": "0x1", "balance": "1000000"}}}
		case "unsafe_paySui":
			return map[string]any{"txBytes": base64.StdEncoding.EncodeToString([]byte("x"))}
		}
		return map[string]any{
			"digest":  "FAIL",
			"effects": map[string]any{"status": map[string]any{"status": "failure", "error": "InsufficientGas"}},
		}
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	w := NewKeypairWallet(NewKeypair(testSeed), node, 5, log)

	_, err := w.SignAndExecute(context.Background(), &bet.Intent{Package: "0xabc", Market: "0xm", Stake: 100})
	if !errors.Is(err, ErrExecutionFailed) {
		t.Errorf("err = %v, want ErrExecutionFailed", err)
	}
}
