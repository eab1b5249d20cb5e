// Package main provides the unified dashboard-data service:
// - Gateway (continuous): WebSocket connection, market-data subscription
// - Refresh (scheduled): token list, top wallets, platform stats, contests
// - HTTP API: derived dashboard views, referral tracking, client state
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"contest-dashboard/internal/domain"
	"contest-dashboard/internal/fetch"
	"contest-dashboard/internal/mintcache"
	"contest-dashboard/internal/observability"
	"contest-dashboard/internal/platform"
	"contest-dashboard/internal/referral"
	"contest-dashboard/internal/refresh"
	"contest-dashboard/internal/storage"
	chstore "contest-dashboard/internal/storage/clickhouse"
	"contest-dashboard/internal/storage/memory"
	"contest-dashboard/internal/storage/migrations"
	pgstore "contest-dashboard/internal/storage/postgres"
	redisstore "contest-dashboard/internal/storage/redis"
	"contest-dashboard/internal/tokendata"
	"contest-dashboard/internal/views"
	"contest-dashboard/internal/wallets"
)

// Server holds all components of the dashboard-data service.
type Server struct {
	// Configuration
	topWalletsLimit int
	tokenPageSize   int

	// Shared connection + fallback
	gateway platform.Gateway
	rest    *platform.RESTClient

	// State
	book    *tokendata.Book
	history *wallets.History
	mints   *mintcache.Cache
	stores  *allStores
	tracker *referral.Tracker
	bus     *referral.Bus

	// Fetchers
	tokensFetch   *fetch.Resilient[*platform.TokenPage]
	walletsFetch  *fetch.Resilient[[]domain.WalletBalance]
	statsFetch    *fetch.Resilient[*domain.PlatformStats]
	contestsFetch *fetch.Resilient[[]domain.ContestMetrics]

	// Per-wallet history fetchers; range is read at call time so a range
	// change supersedes the in-flight fetch for that wallet
	historyMu      sync.Mutex
	historyFetch   map[string]*fetch.Resilient[[]domain.BalancePoint]
	historyRange   map[string]platform.TimeRange
	lastArchivedMs map[string]int64

	// Schedulers
	tokensSched   *refresh.Scheduler
	walletsSched  *refresh.Scheduler
	statsSched    *refresh.Scheduler
	contestsSched *refresh.Scheduler

	logger *log.Logger

	mu            sync.Mutex
	started       time.Time
	latestWallets []domain.WalletBalance
	latestStats   *domain.PlatformStats
	latestList    []domain.ContestMetrics
}

// allStores holds all storage implementations.
type allStores struct {
	clientStates   storage.ClientStateStore
	referralEvents storage.ReferralEventStore
	snapshots      storage.BalanceSnapshotStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("PLATFORM_WS_ENDPOINT"), "Platform WebSocket gateway endpoint")
	apiBaseURL := flag.String("api-base-url", os.Getenv("PLATFORM_API_URL"), "Platform REST API base URL")
	authToken := flag.String("auth-token", os.Getenv("PLATFORM_AUTH_TOKEN"), "Bearer token for admin endpoints")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for client state (optional, overrides Postgres)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	httpAddr := flag.String("http-addr", ":8080", "HTTP API listen address")
	tokenInterval := flag.Duration("token-interval", 30*time.Second, "Token list refresh interval")
	walletInterval := flag.Duration("wallet-interval", 1*time.Minute, "Top wallets refresh interval")
	statsInterval := flag.Duration("stats-interval", 5*time.Minute, "Platform stats refresh interval")
	contestInterval := flag.Duration("contest-interval", 2*time.Minute, "Contest metrics refresh interval")
	tokenPageSize := flag.Int("token-page-size", 200, "Tokens fetched per refresh")
	topWallets := flag.Int("top-wallets", 50, "Wallets fetched per refresh")
	historyWindow := flag.Int("history-window", wallets.DefaultWindow, "Rolling balance history window per wallet")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *apiBaseURL == "" {
		logger.Fatal("--api-base-url is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *redisURL, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Connect the gateway. A failed connection is a degraded start, not a
	// fatal one: every fetch falls back to REST until it comes up.
	var gateway platform.Gateway
	if *wsEndpoint != "" {
		gw, err := platform.NewWSClient(ctx, *wsEndpoint, *authToken, nil)
		if err != nil {
			logger.Printf("Gateway unavailable, running REST-only: %v", err)
		} else {
			gateway = gw
			defer gw.Close()
		}
	} else {
		logger.Println("No --ws-endpoint, running REST-only")
	}

	rest := platform.NewRESTClient(*apiBaseURL, platform.WithRESTAuthToken(*authToken))

	bus := referral.NewBus()
	defer bus.Close()

	server := &Server{
		topWalletsLimit: *topWallets,
		tokenPageSize:   *tokenPageSize,
		gateway:         gateway,
		rest:            rest,
		book:            tokendata.NewBook(),
		history:         wallets.NewHistory(*historyWindow),
		mints:           mintcache.New(mintcache.DefaultCapacity),
		stores:          stores,
		tracker:         referral.NewTracker(stores.referralEvents, stores.clientStates, bus),
		bus:             bus,
		historyFetch:    make(map[string]*fetch.Resilient[[]domain.BalancePoint]),
		historyRange:    make(map[string]platform.TimeRange),
		lastArchivedMs:  make(map[string]int64),
		logger:          logger,
		started:         time.Now(),
	}

	if err := server.buildFetchers(); err != nil {
		logger.Fatalf("Failed to build fetchers: %v", err)
	}

	server.tokensSched = refresh.NewScheduler("tokens", *tokenInterval,
		server.instrumented("tokens", server.refreshTokens),
		log.New(os.Stdout, "[refresh] ", log.LstdFlags))
	server.walletsSched = refresh.NewScheduler("wallets", *walletInterval,
		server.instrumented("wallets", server.refreshWallets),
		log.New(os.Stdout, "[refresh] ", log.LstdFlags))
	server.statsSched = refresh.NewScheduler("stats", *statsInterval,
		server.instrumented("stats", server.refreshStats),
		log.New(os.Stdout, "[refresh] ", log.LstdFlags))
	server.contestsSched = refresh.NewScheduler("contests", *contestInterval,
		server.instrumented("contests", server.refreshContests),
		log.New(os.Stdout, "[refresh] ", log.LstdFlags))

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the service
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN, redisURL string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			clientStates:   memory.NewClientStateStore(),
			referralEvents: memory.NewReferralEventStore(),
			snapshots:      memory.NewBalanceSnapshotStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		clientStates:   pgstore.NewClientStateStore(pool),
		referralEvents: pgstore.NewReferralEventStore(pool),
		snapshots:      chstore.NewBalanceSnapshotStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	// Redis, when configured, takes over client state
	if redisURL != "" {
		rdb, err := redisstore.NewClient(redisURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			cleanup()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		stores.clientStates = redisstore.NewClientStateStore(rdb)
		pgCleanup := cleanup
		cleanup = func() {
			rdb.Close()
			pgCleanup()
		}
	}

	return stores, cleanup, nil
}

// gatewayStatus reports the shared connection state, disconnected when no
// gateway was configured.
func (s *Server) gatewayStatus() platform.GatewayStatus {
	if s.gateway == nil {
		return platform.GatewayStatus{State: platform.StateDisconnected}
	}
	return s.gateway.Status()
}

// buildFetchers wires the connection-aware fetchers for every resource.
func (s *Server) buildFetchers() error {
	var err error

	s.tokensFetch, err = fetch.New(fetch.Options[*platform.TokenPage]{
		Status:  s.gatewayStatus,
		Gateway: gatewayFn[*platform.TokenPage](s, platform.TopicMarketData, "list", map[string]interface{}{"limit": s.tokenPageSize}),
		REST: func(ctx context.Context) (*platform.TokenPage, error) {
			return s.rest.Tokens(ctx, s.tokenPageSize, 0)
		},
		OnAttempt:  s.countAttempt("tokens"),
		OnFallback: s.countFallback,
	})
	if err != nil {
		return err
	}

	s.walletsFetch, err = fetch.New(fetch.Options[[]domain.WalletBalance]{
		Status:  s.gatewayStatus,
		Gateway: gatewayFn[[]domain.WalletBalance](s, platform.TopicWalletMonitoring, "top-wallets", map[string]interface{}{"limit": s.topWalletsLimit}),
		REST: func(ctx context.Context) ([]domain.WalletBalance, error) {
			return s.rest.TopWallets(ctx, s.topWalletsLimit)
		},
		OnAttempt:  s.countAttempt("wallets"),
		OnFallback: s.countFallback,
	})
	if err != nil {
		return err
	}

	s.statsFetch, err = fetch.New(fetch.Options[*domain.PlatformStats]{
		Status:  s.gatewayStatus,
		Gateway: gatewayFn[*domain.PlatformStats](s, platform.TopicPlatformStats, "get", nil),
		REST: func(ctx context.Context) (*domain.PlatformStats, error) {
			return s.rest.PlatformStats(ctx)
		},
		OnAttempt:  s.countAttempt("stats"),
		OnFallback: s.countFallback,
	})
	if err != nil {
		return err
	}

	s.contestsFetch, err = fetch.New(fetch.Options[[]domain.ContestMetrics]{
		Status:  s.gatewayStatus,
		Gateway: gatewayFn[[]domain.ContestMetrics](s, platform.TopicContests, "active", nil),
		REST: func(ctx context.Context) ([]domain.ContestMetrics, error) {
			return s.rest.ActiveContests(ctx)
		},
		OnAttempt:  s.countAttempt("contests"),
		OnFallback: s.countFallback,
	})
	return err
}

// gatewayFn adapts a gateway request when a gateway is configured, nil
// otherwise so the fetcher routes straight to REST.
func gatewayFn[T any](s *Server, topic, action string, params map[string]interface{}) func(context.Context) (T, error) {
	if s.gateway == nil {
		return nil
	}
	return fetch.GatewayJSON[T](s.gateway, topic, action, params)
}

func (s *Server) countAttempt(resource string) func(fetch.Path) {
	return func(p fetch.Path) {
		observability.DefaultMetrics.FetchAttempts.WithLabelValues(resource, string(p)).Inc()
	}
}

func (s *Server) countFallback(error) {
	observability.RecordFallback()
}

// instrumented wraps a refresh func with run metrics. Superseded attempts
// are not failures.
func (s *Server) instrumented(name string, fn refresh.FetchFunc) refresh.FetchFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		err := fn(ctx)
		elapsed := time.Since(start).Seconds()
		switch {
		case errors.Is(err, fetch.ErrSuperseded):
			observability.RecordSuperseded()
			return nil
		case err != nil:
			observability.RecordRefreshRun(name, "error", elapsed)
			observability.RecordFetchFailure(name)
			return err
		default:
			observability.RecordRefreshRun(name, "success", elapsed)
			observability.DefaultMetrics.LastSuccessfulRefresh.WithLabelValues(name).Set(float64(time.Now().Unix()))
			return nil
		}
	}
}

// Run starts all background loops and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting dashboard-data service...")

	errCh := make(chan error, 5)

	run := func(name string, sched *refresh.Scheduler) {
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s scheduler: %w", name, err)
			}
		}()
	}
	run("tokens", s.tokensSched)
	run("wallets", s.walletsSched)
	run("stats", s.statsSched)
	run("contests", s.contestsSched)

	// Live market-data patches
	go s.consumeMarketData(ctx)

	// Connection state gauge
	go s.pollGatewayState(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// refreshTokens replaces the token book from a full list fetch.
func (s *Server) refreshTokens(ctx context.Context) error {
	page, _, err := s.tokensFetch.Do(ctx)
	if err != nil {
		return err
	}
	s.book.ApplyFull(page.Tokens)
	observability.DefaultMetrics.TokensTracked.Set(float64(s.book.Len()))
	return nil
}

// refreshWallets replaces the top-wallets snapshot, extends per-wallet
// history, and archives new points.
func (s *Server) refreshWallets(ctx context.Context) error {
	balances, _, err := s.walletsFetch.Do(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latestWallets = balances
	s.mu.Unlock()

	nowMs := time.Now().UnixMilli()
	var batch []*domain.BalanceSnapshot

	s.historyMu.Lock()
	for _, b := range balances {
		ts := b.UpdatedAt
		if ts <= 0 {
			ts = nowMs
		}
		s.history.Append(b.Address, domain.BalancePoint{
			TimestampMs: ts,
			Lamports:    b.Lamports,
		})
		// Archive only strictly newer points so unchanged balances don't
		// produce duplicate keys
		if ts > s.lastArchivedMs[b.Address] {
			s.lastArchivedMs[b.Address] = ts
			batch = append(batch, &domain.BalanceSnapshot{
				Wallet:      b.Address,
				TimestampMs: ts,
				Lamports:    b.Lamports,
				SOL:         float64(b.Lamports) / float64(domain.LamportsPerSOL),
			})
		}
	}
	s.historyMu.Unlock()

	if len(batch) > 0 {
		if err := s.stores.snapshots.InsertBulk(ctx, batch); err != nil {
			// Archival is best effort; the in-memory view already advanced
			s.logger.Printf("Archive balance snapshots: %v", err)
		}
	}
	return nil
}

// refreshStats replaces the platform stats snapshot.
func (s *Server) refreshStats(ctx context.Context) error {
	stats, _, err := s.statsFetch.Do(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.latestStats = stats
	s.mu.Unlock()
	return nil
}

// refreshContests replaces the active contest list.
func (s *Server) refreshContests(ctx context.Context) error {
	list, _, err := s.contestsFetch.Do(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.latestList = list
	s.mu.Unlock()
	return nil
}

// fetchHistory fetches balance history for one wallet over a named range,
// replacing the in-memory series on success. Concurrent calls for the same
// wallet supersede each other.
func (s *Server) fetchHistory(ctx context.Context, wallet string, rng platform.TimeRange) ([]domain.BalancePoint, error) {
	s.historyMu.Lock()
	s.historyRange[wallet] = rng
	fetcher, ok := s.historyFetch[wallet]
	if !ok {
		currentRange := func() platform.TimeRange {
			s.historyMu.Lock()
			defer s.historyMu.Unlock()
			return s.historyRange[wallet]
		}
		var err error
		fetcher, err = fetch.New(fetch.Options[[]domain.BalancePoint]{
			Status: s.gatewayStatus,
			Gateway: func(ctx context.Context) ([]domain.BalancePoint, error) {
				if s.gateway == nil {
					return nil, fmt.Errorf("no gateway")
				}
				raw, err := s.gateway.Request(ctx, platform.TopicWalletMonitoring, "balances", map[string]interface{}{
					"wallet": wallet,
					"range":  string(currentRange()),
				})
				if err != nil {
					return nil, err
				}
				var points []domain.BalancePoint
				if err := json.Unmarshal(raw, &points); err != nil {
					return nil, fmt.Errorf("decode gateway payload: %w", err)
				}
				return points, nil
			},
			REST: func(ctx context.Context) ([]domain.BalancePoint, error) {
				return s.rest.WalletBalanceHistory(ctx, wallet, currentRange())
			},
			OnAttempt:  s.countAttempt("wallet-history"),
			OnFallback: s.countFallback,
		})
		if err != nil {
			s.historyMu.Unlock()
			return nil, err
		}
		s.historyFetch[wallet] = fetcher
	}
	s.historyMu.Unlock()

	points, _, err := fetcher.Do(ctx)
	if err != nil {
		return nil, err
	}
	s.history.Replace(wallet, points)
	return s.history.Points(wallet), nil
}

// consumeMarketData applies live token patches from the gateway.
func (s *Server) consumeMarketData(ctx context.Context) {
	if s.gateway == nil {
		return
	}

	ch, err := s.gateway.Subscribe(ctx, platform.TopicMarketData)
	if err != nil {
		s.logger.Printf("Subscribe market-data: %v", err)
		return
	}
	s.logger.Println("Subscribed to market-data patches")

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			var patch domain.TokenPatch
			if err := json.Unmarshal(raw, &patch); err != nil {
				observability.DefaultMetrics.PatchesRejected.WithLabelValues("malformed").Inc()
				continue
			}
			if err := s.book.ApplyPatch(patch); err != nil {
				reason := "unresolved"
				if errors.Is(err, tokendata.ErrIncompletePatch) {
					reason = "incomplete"
				}
				observability.DefaultMetrics.PatchesRejected.WithLabelValues(reason).Inc()
				continue
			}
			observability.DefaultMetrics.PatchesApplied.Inc()
			observability.DefaultMetrics.TokensTracked.Set(float64(s.book.Len()))
		}
	}
}

// pollGatewayState exports the connection state gauge.
func (s *Server) pollGatewayState(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.UpdateGatewayState(int(s.gatewayStatus().State))
		}
	}
}

// startHTTPServer starts the HTTP server for the dashboard API.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Dashboard views
	mux.HandleFunc("/api/tokens", s.handleTokens)
	mux.HandleFunc("/api/tokens/hot", s.handleHotTokens)
	mux.HandleFunc("/api/tokens/get", s.handleToken)
	mux.HandleFunc("/api/wallets/top", s.handleTopWallets)
	mux.HandleFunc("/api/wallets/tiers", s.handleTiers)
	mux.HandleFunc("/api/wallets/ranked", s.handleRanked)
	mux.HandleFunc("/api/wallets/history", s.handleHistory)
	mux.HandleFunc("/api/platform/stats", s.handlePlatformStats)
	mux.HandleFunc("/api/contests", s.handleContests)
	mux.HandleFunc("/api/mint/validate", s.handleMintValidate)

	// Referral funnel + client state
	mux.HandleFunc("/api/referrals/click", s.handleReferralClick)
	mux.HandleFunc("/api/referrals/conversion", s.handleReferralConversion)
	mux.HandleFunc("/api/referrals/funnel", s.handleReferralFunnel)
	mux.HandleFunc("/api/client/state", s.handleClientState)
	mux.HandleFunc("/api/client/welcome-seen", s.handleWelcomeSeen)

	// Manual refresh
	mux.HandleFunc("/api/refresh", s.handleRefresh)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string                   `json:"status"`
	Uptime        string                   `json:"uptime"`
	Gateway       platform.GatewayStatus   `json:"gateway"`
	TokensTracked int                      `json:"tokens_tracked"`
	Schedulers    map[string]refresh.Stats `json:"schedulers"`
}

// handleStatus returns service status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(started).String(),
		Gateway:       s.gatewayStatus(),
		TokensTracked: s.book.Len(),
		Schedulers: map[string]refresh.Stats{
			"tokens":   s.tokensSched.Stats(),
			"wallets":  s.walletsSched.Stats(),
			"stats":    s.statsSched.Stats(),
			"contests": s.contestsSched.Stats(),
		},
	}

	writeJSON(w, resp)
}

// handleTokens returns the filtered, sorted token list.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := views.TokenFilter{
		Search:     q.Get("q"),
		ActiveOnly: q.Get("active") == "true",
	}
	if v := q.Get("min_market_cap"); v != "" {
		filter.MinMarketCap, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("min_volume"); v != "" {
		filter.MinVolume, _ = strconv.ParseFloat(v, 64)
	}

	records := views.FilterTokens(s.book.Snapshot(), filter)
	if sortBy := q.Get("sort"); sortBy != "" {
		views.SortTokens(records, views.TokenSort(sortBy))
	}
	records = views.TopN(records, queryInt(q.Get("limit"), 100))

	writeJSON(w, records)
}

// handleHotTokens returns tokens ranked by hot score.
func (s *Server) handleHotTokens(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r.URL.Query().Get("limit"), 10)
	writeJSON(w, views.HotTokens(s.book.Snapshot(), n))
}

// handleToken returns one token by address or symbol.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if addr := q.Get("address"); addr != "" {
		if rec, ok := s.book.Get(addr); ok {
			writeJSON(w, rec)
			return
		}
		httpError(w, http.StatusNotFound, "token not found")
		return
	}
	if sym := q.Get("symbol"); sym != "" {
		if rec, ok := s.book.GetBySymbol(sym); ok {
			writeJSON(w, rec)
			return
		}
		httpError(w, http.StatusNotFound, "token not found")
		return
	}
	httpError(w, http.StatusBadRequest, "address or symbol required")
}

// handleTopWallets returns the highest-balance wallets.
func (s *Server) handleTopWallets(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r.URL.Query().Get("limit"), s.topWalletsLimit)

	s.mu.Lock()
	balances := s.latestWallets
	s.mu.Unlock()

	writeJSON(w, views.TopWallets(balances, n))
}

// handleTiers returns the balance tier distribution.
func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	balances := s.latestWallets
	s.mu.Unlock()

	writeJSON(w, views.TierDistribution(balances))
}

// handleRanked returns wallets with balance percentiles.
func (s *Server) handleRanked(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	balances := s.latestWallets
	s.mu.Unlock()

	writeJSON(w, views.RankBalances(balances))
}

// handleHistory fetches and returns balance history for one wallet.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wallet := q.Get("wallet")
	if wallet == "" {
		httpError(w, http.StatusBadRequest, "wallet required")
		return
	}

	rng := platform.TimeRange(q.Get("range"))
	if rng == "" {
		rng = platform.Range7d
	}
	if _, _, err := rng.Window(time.Now().UTC()); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.fetchHistory(r.Context(), wallet, rng)
	if err != nil {
		if errors.Is(err, fetch.ErrSuperseded) {
			httpError(w, http.StatusConflict, "superseded by a newer request")
			return
		}
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, points)
}

// handlePlatformStats returns the derived platform stats view.
func (s *Server) handlePlatformStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.latestStats
	s.mu.Unlock()

	if stats == nil {
		httpError(w, http.StatusServiceUnavailable, "stats not loaded yet")
		return
	}
	writeJSON(w, views.RenderPlatformStats(*stats))
}

// handleContests returns active contest metrics.
func (s *Server) handleContests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.latestList
	s.mu.Unlock()

	writeJSON(w, list)
}

// handleMintValidate validates a mint address format.
func (s *Server) handleMintValidate(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		httpError(w, http.StatusBadRequest, "address required")
		return
	}

	result := s.mints.Validate(addr)
	outcome := "invalid"
	if result.Valid {
		outcome = "valid"
	}
	observability.RecordMintValidation(outcome)
	observability.DefaultMetrics.MintCacheSize.Set(float64(s.mints.Len()))

	writeJSON(w, result)
}

// handleReferralClick records an invite-link click.
func (s *Server) handleReferralClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	code := r.URL.Query().Get("code")
	if err := s.tracker.RecordClick(r.Context(), code); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"recorded": true})
}

// handleReferralConversion records a signup attributed to a code.
func (s *Server) handleReferralConversion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	q := r.URL.Query()
	if err := s.tracker.RecordConversion(r.Context(), q.Get("code"), q.Get("user")); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"recorded": true})
}

// handleReferralFunnel returns click/conversion totals for a code.
func (s *Server) handleReferralFunnel(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	clicks, conversions, err := s.tracker.FunnelCounts(r.Context(), code)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]int64{"clicks": clicks, "conversions": conversions})
}

// handleClientState returns persisted per-user dashboard state.
func (s *Server) handleClientState(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		httpError(w, http.StatusBadRequest, "user required")
		return
	}

	state, err := s.stores.clientStates.Get(r.Context(), user)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, storage.ClientState{UserID: user})
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, state)
}

// handleWelcomeSeen marks the welcome flow dismissed for a user.
func (s *Server) handleWelcomeSeen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	user := r.URL.Query().Get("user")
	if err := s.stores.clientStates.MarkWelcomeSeen(r.Context(), user); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]bool{"recorded": true})
}

// handleRefresh kicks a scheduler for an immediate refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	target := r.URL.Query().Get("target")
	var sched *refresh.Scheduler
	switch target {
	case "tokens":
		sched = s.tokensSched
	case "wallets":
		sched = s.walletsSched
	case "stats":
		sched = s.statsSched
	case "contests":
		sched = s.contestsSched
	default:
		httpError(w, http.StatusBadRequest, "target must be one of tokens, wallets, stats, contests")
		return
	}

	sched.Kick()
	observability.DefaultMetrics.RefreshKicks.Inc()
	writeJSON(w, map[string]string{"kicked": target})
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// httpError writes a JSON error response.
func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// queryInt parses a positive integer query parameter with a default.
func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
