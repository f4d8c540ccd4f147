package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/market"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*config.Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BackendBaseURL:  srv.URL,
		BackendAuthMode: config.AuthModeNone,
		BackendRPS:      1000,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewClient(cfg)
}

func TestListContractsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/contracts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "btc" {
			t.Errorf("q = %q, want btc", got)
		}
		if got := r.URL.Query().Get("category_id"); got != "5" {
			t.Errorf("category_id = %q, want 5", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"BTC","address":"0x1","options":"[\"Yes\",\"No\"]","total_volume":12.5,"outcome_odds":"[0.4,0.6]"}]`))
	}, nil)

	cat := int64(5)
	contracts, err := c.ListContracts(context.Background(), ContractsParams{Search: "btc", CategoryID: &cat})
	if err != nil {
		t.Fatalf("ListContracts: %v", err)
	}
	if len(contracts) != 1 || contracts[0].TotalVolume != 12.5 || contracts[0].OutcomeOdds != "[0.4,0.6]" {
		t.Errorf("contracts = %+v", contracts)
	}
}

func TestAuthHeaders(t *testing.T) {
	tests := []struct {
		name   string
		mode   config.AuthMode
		header string
		want   string
	}{
		{"bearer", config.AuthModeBearer, "Authorization", "Bearer tok"},
		{"api key", config.AuthModeAPIKey, "X-API-KEY", "key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get(tt.header); got != tt.want {
					t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
				}
				if got := r.Header.Get("X-Tenant"); got != "demo" {
					t.Errorf("X-Tenant = %q, want demo", got)
				}
				_, _ = w.Write([]byte(`[]`))
			}, func(cfg *config.Config) {
				cfg.BackendAuthMode = tt.mode
				cfg.BackendBearerToken = "tok"
				cfg.BackendAPIKey = "key"
				cfg.BackendExtraHeaders = map[string]string{"X-Tenant": "demo"}
			})
			if _, err := c.ListCategories(context.Background()); err != nil {
				t.Fatalf("ListCategories: %v", err)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, nil)

	_, err := c.ListCategories(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusInternalServerError || se.Body != "boom" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	var gotMethod string
	var gotBody FavoriteRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/favorites/0xabc":
			_, _ = w.Write([]byte(`[3,7]`))
		case r.URL.Path == "/favorites":
			gotMethod = r.Method
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}, nil)

	ids, err := c.GetFavorites(context.Background(), "0xabc")
	if err != nil || len(ids) != 2 || ids[1] != 7 {
		t.Fatalf("GetFavorites = %v, %v", ids, err)
	}

	if err := c.RemoveFavorite(context.Background(), "0xabc", 3); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	if gotMethod != http.MethodDelete || gotBody.ContractID != 3 || gotBody.WalletAddress != "0xabc" {
		t.Errorf("request = %s %+v", gotMethod, gotBody)
	}
}

func TestCreateAndResolve(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contracts":
			var req CreateContractRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode: %v", err)
			}
			if req.Address != "" || len(req.Options) != 3 || req.CategoryID != 4 {
				t.Errorf("create request = %+v", req)
			}
			_, _ = w.Write([]byte(`{"id":42,"name":"Who wins?","address":"0xfeed"}`))
		case "/oracle/resolve":
			var req ResolveRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.MarketID != "0xfeed" || req.Winner != 2 {
				t.Errorf("resolve request = %+v", req)
			}
			_, _ = w.Write([]byte(`{"digest":"9xYz","status":"success"}`))
		}
	}, nil)

	created, err := c.CreateContract(context.Background(), CreateContractRequest{
		Name: "Who wins?", Options: []string{"A", "B", "C"}, CategoryID: 4,
	})
	if err != nil || created.ID != 42 {
		t.Fatalf("CreateContract = %+v, %v", created, err)
	}

	resp, err := c.ResolveMarket(context.Background(), ResolveRequest{MarketID: "0xfeed", Winner: 2})
	if err != nil || resp.Digest != "9xYz" || resp.Status != "success" {
		t.Fatalf("ResolveMarket = %+v, %v", resp, err)
	}
}

func TestCancelMarket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/market/cancel" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var req CancelRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.MarketID != "0xfeed" {
			t.Errorf("cancel request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"digest":"CxL1","status":"Success"}`))
	}, nil)

	resp, err := c.CancelMarket(context.Background(), CancelRequest{MarketID: "0xfeed"})
	if err != nil || resp.Digest != "CxL1" || resp.Status != "Success" {
		t.Fatalf("CancelMarket = %+v, %v", resp, err)
	}
}

func TestGetHistoryAndContract(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contracts/9/history":
			if r.URL.Query().Get("range") != "1d" || r.URL.Query().Get("v") != "3" {
				t.Errorf("history query = %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"id":1,"contract_id":9,"timestamp":"2025-01-01T00:00:00Z","option_prices":"[0.5,0.5]"}]`))
		case "/contracts":
			_, _ = w.Write([]byte(`[{"id":9,"name":"nine"}]`))
		}
	}, nil)

	points, err := c.GetHistory(context.Background(), 9, market.Range1d, 3)
	if err != nil || len(points) != 1 || points[0].OptionPrices != "[0.5,0.5]" {
		t.Fatalf("GetHistory = %+v, %v", points, err)
	}

	got, err := c.GetContract(context.Background(), 9)
	if err != nil || got.Name != "nine" {
		t.Fatalf("GetContract = %+v, %v", got, err)
	}
	if _, err := c.GetContract(context.Background(), 10); !IsNotFound(err) {
		t.Errorf("GetContract(10) err = %v, want not found", err)
	}
}
