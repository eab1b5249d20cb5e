package domain

// BalancePoint is one sample of a wallet balance series.
// Points are append-only, ordered by timestamp ascending, and capped at a
// rolling window of the most recent N samples.
type BalancePoint struct {
	TimestampMs int64   `json:"timestamp_ms"` // Unix timestamp in milliseconds
	Lamports    uint64  `json:"lamports"`     // raw balance at this point
	SOL         float64 `json:"sol"`          // derived: Lamports / 1e9
}

// BalanceSnapshot is an archived balance point for long-term storage,
// beyond the in-memory rolling window.
// Corresponds to balance_snapshots table in ClickHouse.
type BalanceSnapshot struct {
	Wallet      string  // wallet address
	TimestampMs int64   // Unix timestamp in milliseconds
	Lamports    uint64  // raw balance
	SOL         float64 // derived balance in SOL
}

// SeriesPoint is one sample of a named multi-value series (market cap in
// SOL/USD, portfolio value) used by contest and analytics views.
type SeriesPoint struct {
	TimestampMs int64              `json:"timestamp_ms"`
	Values      map[string]float64 `json:"values"`
}
