package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// envelope wraps a payload in the platform's REST response convention.
func envelope(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	json.NewEncoder(w).Encode(restEnvelope{Success: true, Data: raw})
}

func TestRESTClient_Tokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tokens" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("limit = %s, want 50", r.URL.Query().Get("limit"))
		}
		envelope(t, w, map[string]interface{}{
			"tokens": []map[string]interface{}{
				{"address": "addr1", "symbol": "AAA", "price": 1.5},
			},
			"total": 1, "limit": 50, "offset": 0,
		})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	page, err := client.Tokens(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if len(page.Tokens) != 1 || page.Tokens[0].Address != "addr1" {
		t.Errorf("page = %+v", page)
	}
}

func TestRESTClient_AuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		envelope(t, w, map[string]interface{}{})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, WithRESTAuthToken("secret"))
	if _, err := client.PlatformStats(context.Background()); err != nil {
		t.Fatalf("PlatformStats: %v", err)
	}
}

func TestRESTClient_WalletBalanceHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/api/admin/wallet-monitoring/balances/wallet-1"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}

		// Named range arrives as concrete ISO instants
		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("startDate"))
		if err != nil {
			t.Errorf("startDate: %v", err)
		}
		end, err := time.Parse(time.RFC3339, r.URL.Query().Get("endDate"))
		if err != nil {
			t.Errorf("endDate: %v", err)
		}
		window := end.Sub(start)
		if window < 7*24*time.Hour-time.Minute || window > 7*24*time.Hour+time.Minute {
			t.Errorf("window = %v, want ~7d", window)
		}

		envelope(t, w, []map[string]interface{}{
			{"timestamp_ms": 1000, "lamports": 2500000000, "sol": 999.0},
		})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	points, err := client.WalletBalanceHistory(context.Background(), "wallet-1", Range7d)
	if err != nil {
		t.Fatalf("WalletBalanceHistory: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %+v", points)
	}
	// SOL is rederived from lamports, the wire value is ignored
	if points[0].SOL != 2.5 {
		t.Errorf("SOL = %v, want 2.5 derived from lamports", points[0].SOL)
	}
}

func TestRESTClient_InvalidRange(t *testing.T) {
	client := NewRESTClient("http://unused")
	if _, err := client.WalletBalanceHistory(context.Background(), "w", TimeRange("90d")); err == nil {
		t.Error("unknown range should fail before any HTTP call")
	}
}

func TestRESTClient_EnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(restEnvelope{Success: false, Message: "quota exceeded"})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	_, err := client.PlatformStats(context.Background())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want envelope message surfaced", err)
	}
}

func TestRESTClient_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	_, err := client.PlatformStats(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want status surfaced", err)
	}
}

func TestRESTClient_SingleAttemptNoRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	if _, err := client.PlatformStats(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	// The REST path is itself the fallback; it never retries
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1", calls)
	}
}

func TestRESTClient_ContestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/contests/c-42/metrics" {
			t.Errorf("path = %s", r.URL.Path)
		}
		envelope(t, w, map[string]interface{}{
			"contest_id": "c-42", "participants": 10, "prize_pool_sol": 50.0,
		})
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	metrics, err := client.ContestMetrics(context.Background(), "c-42")
	if err != nil {
		t.Fatalf("ContestMetrics: %v", err)
	}
	if metrics.ContestID != "c-42" || metrics.Participants != 10 {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestRESTClient_ReferralEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/referrals/code":
			envelope(t, w, map[string]string{"code": "MYCODE"})
		case "/api/referrals/stats":
			if r.URL.Query().Get("code") != "MYCODE" {
				t.Errorf("code = %s", r.URL.Query().Get("code"))
			}
			envelope(t, w, map[string]interface{}{"code": "MYCODE", "clicks": 7, "conversions": 2})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)

	code, err := client.ReferralCode(context.Background())
	if err != nil || code != "MYCODE" {
		t.Fatalf("ReferralCode = %q, %v", code, err)
	}

	stats, err := client.ReferralStats(context.Background(), code)
	if err != nil {
		t.Fatalf("ReferralStats: %v", err)
	}
	if stats.Clicks != 7 || stats.Conversions != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTimeRange_Window(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		rng  TimeRange
		want time.Duration
	}{
		{Range24h, 24 * time.Hour},
		{Range7d, 7 * 24 * time.Hour},
		{Range30d, 30 * 24 * time.Hour},
	}
	for _, tc := range cases {
		start, end, err := tc.rng.Window(now)
		if err != nil {
			t.Fatalf("%s: %v", tc.rng, err)
		}
		if !end.Equal(now) {
			t.Errorf("%s end = %v, want now", tc.rng, end)
		}
		if got := end.Sub(start); got != tc.want {
			t.Errorf("%s window = %v, want %v", tc.rng, got, tc.want)
		}
	}

	if _, _, err := TimeRange("1y").Window(now); err == nil {
		t.Error("unknown range should error")
	}
}

func TestRESTClient_TopWallets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/wallet-monitoring/top-wallets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		wallets := make([]map[string]interface{}, 3)
		for i := range wallets {
			wallets[i] = map[string]interface{}{
				"address":  fmt.Sprintf("w%d", i),
				"lamports": (i + 1) * 1000000000,
			}
		}
		envelope(t, w, wallets)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL)
	wallets, err := client.TopWallets(context.Background(), 3)
	if err != nil {
		t.Fatalf("TopWallets: %v", err)
	}
	if len(wallets) != 3 || wallets[2].Lamports != 3_000_000_000 {
		t.Errorf("wallets = %+v", wallets)
	}
}
