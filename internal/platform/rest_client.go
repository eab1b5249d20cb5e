package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"contest-dashboard/internal/domain"
)

// DefaultRESTTimeout bounds a single REST call.
const DefaultRESTTimeout = 30 * time.Second

// RESTClient calls the platform's HTTP API. It is the fallback path when
// the gateway is unavailable, so it makes exactly one attempt per call:
// retry policy lives with the shared connection, not here.
type RESTClient struct {
	baseURL   string
	client    *http.Client
	authToken string
}

// RESTOption configures RESTClient.
type RESTOption func(*RESTClient)

// WithRESTTimeout sets the HTTP client timeout.
func WithRESTTimeout(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.client.Timeout = d
	}
}

// WithRESTHTTPClient sets a custom http.Client.
func WithRESTHTTPClient(client *http.Client) RESTOption {
	return func(c *RESTClient) {
		c.client = client
	}
}

// WithRESTAuthToken sets the bearer token for admin endpoints.
func WithRESTAuthToken(token string) RESTOption {
	return func(c *RESTClient) {
		c.authToken = token
	}
}

// NewRESTClient creates a platform REST client.
func NewRESTClient(baseURL string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultRESTTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// restEnvelope is the platform's JSON response convention: a success flag,
// a data payload, and an optional message on failure.
type restEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// get performs one GET call and decodes the envelope data into result.
func (c *RESTClient) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	var env restEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return fmt.Errorf("GET %s: %s", path, msg)
	}

	if result != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}

	return nil
}

// truncate bounds error payload excerpts.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// TokenPage is a page of token records plus pagination metadata.
type TokenPage struct {
	Tokens []domain.TokenRecord `json:"tokens"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// Tokens retrieves a page of token records.
func (c *RESTClient) Tokens(ctx context.Context, limit, offset int) (*TokenPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}

	var page TokenPage
	if err := c.get(ctx, "/api/tokens", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// WalletBalanceHistory retrieves balance history for a wallet over a named
// range. The range is translated to ISO startDate/endDate query parameters.
func (c *RESTClient) WalletBalanceHistory(ctx context.Context, wallet string, rng TimeRange) ([]domain.BalancePoint, error) {
	start, end, err := rng.Window(time.Now().UTC())
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("startDate", start.Format(time.RFC3339))
	q.Set("endDate", end.Format(time.RFC3339))

	var points []domain.BalancePoint
	if err := c.get(ctx, "/api/admin/wallet-monitoring/balances/"+wallet, q, &points); err != nil {
		return nil, err
	}

	// SOL is derived, never trusted from the wire
	for i := range points {
		points[i].SOL = float64(points[i].Lamports) / float64(domain.LamportsPerSOL)
	}
	return points, nil
}

// TopWallets retrieves the highest-balance monitored wallets.
func (c *RESTClient) TopWallets(ctx context.Context, limit int) ([]domain.WalletBalance, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var wallets []domain.WalletBalance
	if err := c.get(ctx, "/api/admin/wallet-monitoring/top-wallets", q, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// MonitoringSummary is the wallet-monitoring roll-up.
type MonitoringSummary struct {
	TotalWallets  int     `json:"total_wallets"`
	TotalLamports uint64  `json:"total_lamports"`
	TotalSOL      float64 `json:"total_sol"`
	UpdatedAt     int64   `json:"updated_at"`
}

// WalletSummary retrieves the wallet-monitoring roll-up.
func (c *RESTClient) WalletSummary(ctx context.Context) (*MonitoringSummary, error) {
	var summary MonitoringSummary
	if err := c.get(ctx, "/api/admin/wallet-monitoring/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ReferralStats retrieves referral program stats for a code.
func (c *RESTClient) ReferralStats(ctx context.Context, code string) (*domain.ReferralStats, error) {
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}

	var stats domain.ReferralStats
	if err := c.get(ctx, "/api/referrals/stats", q, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ReferralCode retrieves the caller's referral code.
func (c *RESTClient) ReferralCode(ctx context.Context) (string, error) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := c.get(ctx, "/api/referrals/code", nil, &payload); err != nil {
		return "", err
	}
	return payload.Code, nil
}

// ReferralHistory retrieves recent referral funnel events.
func (c *RESTClient) ReferralHistory(ctx context.Context, limit int) ([]domain.ReferralEvent, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var events []domain.ReferralEvent
	if err := c.get(ctx, "/api/referrals/history", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// PlatformStats retrieves platform-wide statistics.
func (c *RESTClient) PlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	var stats domain.PlatformStats
	if err := c.get(ctx, "/api/platform/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ContestMetrics retrieves metrics for one contest.
func (c *RESTClient) ContestMetrics(ctx context.Context, contestID string) (*domain.ContestMetrics, error) {
	var metrics domain.ContestMetrics
	if err := c.get(ctx, "/api/contests/"+contestID+"/metrics", nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// ActiveContests retrieves metrics for all currently active contests.
func (c *RESTClient) ActiveContests(ctx context.Context) ([]domain.ContestMetrics, error) {
	var metrics []domain.ContestMetrics
	if err := c.get(ctx, "/api/contests/active", nil, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}
