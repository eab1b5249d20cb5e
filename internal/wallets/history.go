// Package wallets keeps per-wallet balance history inside a rolling
// window. Long-term archival past the window belongs to the snapshot
// store, not here.
package wallets

import (
	"sort"
	"sync"

	"contest-dashboard/internal/domain"
)

// DefaultWindow is the default rolling window size per wallet.
const DefaultWindow = 500

// History holds append-only balance series per wallet, ordered by
// timestamp ascending and capped at the most recent N points.
type History struct {
	mu     sync.RWMutex
	window int
	series map[string][]domain.BalancePoint
}

// NewHistory creates a history keeper with the given rolling window.
// A non-positive window falls back to DefaultWindow.
func NewHistory(window int) *History {
	if window <= 0 {
		window = DefaultWindow
	}
	return &History{
		window: window,
		series: make(map[string][]domain.BalancePoint),
	}
}

// Append adds one point to a wallet's series. Points not strictly newer
// than the latest sample are dropped to preserve ascending order; SOL is
// rederived from lamports regardless of what the caller set.
func (h *History) Append(wallet string, p domain.BalancePoint) {
	if wallet == "" {
		return
	}
	p.SOL = float64(p.Lamports) / float64(domain.LamportsPerSOL)

	h.mu.Lock()
	defer h.mu.Unlock()

	points := h.series[wallet]
	if n := len(points); n > 0 && p.TimestampMs <= points[n-1].TimestampMs {
		return
	}

	points = append(points, p)
	if len(points) > h.window {
		points = points[len(points)-h.window:]
	}
	h.series[wallet] = points
}

// Replace installs a freshly fetched series for a wallet: sorted
// ascending, deduplicated by timestamp, capped to the window, SOL
// rederived.
func (h *History) Replace(wallet string, points []domain.BalancePoint) {
	if wallet == "" {
		return
	}

	sorted := make([]domain.BalancePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	deduped := sorted[:0]
	var lastTS int64 = -1
	for _, p := range sorted {
		if p.TimestampMs == lastTS {
			continue
		}
		lastTS = p.TimestampMs
		p.SOL = float64(p.Lamports) / float64(domain.LamportsPerSOL)
		deduped = append(deduped, p)
	}

	if len(deduped) > h.window {
		deduped = deduped[len(deduped)-h.window:]
	}

	h.mu.Lock()
	h.series[wallet] = append([]domain.BalancePoint(nil), deduped...)
	h.mu.Unlock()
}

// Points returns a copy of a wallet's series.
func (h *History) Points(wallet string) []domain.BalancePoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	points := h.series[wallet]
	if len(points) == 0 {
		return nil
	}
	return append([]domain.BalancePoint(nil), points...)
}

// Range returns points within [start, end] inclusive, ascending.
func (h *History) Range(wallet string, start, end int64) []domain.BalancePoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []domain.BalancePoint
	for _, p := range h.series[wallet] {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			out = append(out, p)
		}
	}
	return out
}

// Wallets returns the addresses with recorded history.
func (h *History) Wallets() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.series))
	for wallet := range h.series {
		out = append(out, wallet)
	}
	return out
}
