package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/liamashdown/suimarket/internal/config"
	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/metrics"
	"github.com/liamashdown/suimarket/internal/ratelimit"
)

// StatusError is returned for any non-2xx response
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("%s: 401 Unauthorized - check backend credentials", e.Endpoint)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client handles communication with the prediction market backend
type Client struct {
	baseURL      string
	httpClient   *http.Client
	authMode     config.AuthMode
	bearerToken  string
	apiKey       string
	extraHeaders map[string]string
	limiter      *ratelimit.Limiter
}

// NewClient creates a new backend client
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      cfg.BackendBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
		authMode:     cfg.BackendAuthMode,
		bearerToken:  cfg.BackendBearerToken,
		apiKey:       cfg.BackendAPIKey,
		extraHeaders: cfg.BackendExtraHeaders,
		limiter:      ratelimit.New(cfg.BackendRPS),
	}
}

// ListCategories fetches GET /categories
func (c *Client) ListCategories(ctx context.Context) ([]market.Category, error) {
	var categories []market.Category
	if err := c.do(ctx, "categories", http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListContracts fetches GET /contracts, optionally filtered by search text and category
func (c *Client) ListContracts(ctx context.Context, params ContractsParams) ([]market.Contract, error) {
	q := url.Values{}
	if params.Search != "" {
		q.Set("q", params.Search)
	}
	if params.CategoryID != nil {
		q.Set("category_id", strconv.FormatInt(*params.CategoryID, 10))
	}

	var contracts []market.Contract
	if err := c.do(ctx, "contracts", http.MethodGet, "/contracts", q, nil, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

// GetContract finds one market by id.
// The backend has no single-record route, so this lists and scans.
func (c *Client) GetContract(ctx context.Context, id int64) (*market.Contract, error) {
	contracts, err := c.ListContracts(ctx, ContractsParams{})
	if err != nil {
		return nil, err
	}
	for i := range contracts {
		if contracts[i].ID == id {
			return &contracts[i], nil
		}
	}
	return nil, &StatusError{Endpoint: "contracts", StatusCode: http.StatusNotFound, Body: fmt.Sprintf("market %d not found", id)}
}

// GetHistory fetches the price history of a market.
// version is sent as a cache buster and echoes the caller's refresh counter.
func (c *Client) GetHistory(ctx context.Context, id int64, r market.HistoryRange, version uint64) ([]market.HistoryPoint, error) {
	q := url.Values{}
	q.Set("range", string(r))
	q.Set("v", strconv.FormatUint(version, 10))

	path := fmt.Sprintf("/contracts/%d/history", id)
	var points []market.HistoryPoint
	if err := c.do(ctx, "history", http.MethodGet, path, q, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// CreateContract posts a new market and returns the stored record
func (c *Client) CreateContract(ctx context.Context, req CreateContractRequest) (*market.Contract, error) {
	var created market.Contract
	if err := c.do(ctx, "create_contract", http.MethodPost, "/contracts", nil, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteContract removes a market listing
func (c *Client) DeleteContract(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_contract", http.MethodDelete, fmt.Sprintf("/contracts/%d", id), nil, nil, nil)
}

// GetFavorites returns the market ids a wallet has bookmarked
func (c *Client) GetFavorites(ctx context.Context, wallet string) ([]int64, error) {
	var ids []int64
	if err := c.do(ctx, "favorites", http.MethodGet, "/favorites/"+url.PathEscape(wallet), nil, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddFavorite bookmarks a market for a wallet
func (c *Client) AddFavorite(ctx context.Context, wallet string, contractID int64) error {
	body := FavoriteRequest{WalletAddress: wallet, ContractID: contractID}
	return c.do(ctx, "add_favorite", http.MethodPost, "/favorites", nil, body, nil)
}

// RemoveFavorite removes a bookmark
func (c *Client) RemoveFavorite(ctx context.Context, wallet string, contractID int64) error {
	body := FavoriteRequest{WalletAddress: wallet, ContractID: contractID}
	return c.do(ctx, "remove_favorite", http.MethodDelete, "/favorites", nil, body, nil)
}

// ResolveMarket asks the oracle to resolve a market on-chain
func (c *Client) ResolveMarket(ctx context.Context, req ResolveRequest) (*ResolveResponse, error) {
	var resp ResolveResponse
	if err := c.do(ctx, "resolve", http.MethodPost, "/oracle/resolve", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelMarket asks the backend to cancel a market on-chain and refund every bet
func (c *Client) CancelMarket(ctx context.Context, req CancelRequest) (*ResolveResponse, error) {
	var resp ResolveResponse
	if err := c.do(ctx, "cancel", http.MethodPost, "/market/cancel", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, in, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest(endpoint, time.Since(start), err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	switch c.authMode {
	case config.AuthModeBearer:
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case config.AuthModeAPIKey:
		req.Header.Set("X-API-KEY", c.apiKey)
	case config.AuthModeNone:
	}

	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}
}
