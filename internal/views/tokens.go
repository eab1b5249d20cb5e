// Package views holds pure selectors over normalized state: filtering,
// sorting, aggregation and bounded top-N extraction for dashboard panels.
package views

import (
	"math"
	"sort"
	"strings"

	"contest-dashboard/internal/domain"
)

// TokenFilter narrows a token snapshot for a panel.
type TokenFilter struct {
	ActiveOnly   bool
	Search       string // case-insensitive substring over symbol and name
	MinMarketCap float64
	MinVolume    float64
}

// TokenSort names a token ordering. All orderings are descending.
type TokenSort string

const (
	SortByMarketCap TokenSort = "market_cap"
	SortByVolume    TokenSort = "volume"
	SortByPrice     TokenSort = "price"
	SortByChange    TokenSort = "change"
	SortByHotScore  TokenSort = "hot"
)

// FilterTokens returns records passing all filter predicates.
func FilterTokens(records []domain.TokenRecord, f TokenFilter) []domain.TokenRecord {
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.TokenRecord, 0, len(records))
	for _, rec := range records {
		if f.ActiveOnly && !rec.Active {
			continue
		}
		if rec.MarketCap < f.MinMarketCap {
			continue
		}
		if rec.Volume24h < f.MinVolume {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.Symbol), needle) &&
			!strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// HotScore combines absolute price change with log-damped volume.
// Volatility carries outsized weight; logarithmic damping keeps a single
// massive-volume token from dominating purely on size. Non-positive
// volume contributes no volume term.
func HotScore(rec domain.TokenRecord) float64 {
	score := math.Abs(rec.Change24h) * 10
	if rec.Volume24h > 0 {
		score += math.Log10(rec.Volume24h) * 2
	}
	return score
}

// SortTokens orders records descending by the named key. The sort is
// stable so equal keys keep snapshot order.
func SortTokens(records []domain.TokenRecord, by TokenSort) {
	key := func(r domain.TokenRecord) float64 {
		switch by {
		case SortByVolume:
			return r.Volume24h
		case SortByPrice:
			return r.Price
		case SortByChange:
			return r.Change24h
		case SortByHotScore:
			return HotScore(r)
		default:
			return r.MarketCap
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return key(records[i]) > key(records[j])
	})
}

// TopN bounds a sorted slice to its first n records.
func TopN(records []domain.TokenRecord, n int) []domain.TokenRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}

// HotTokens returns the n highest hot-score active tokens.
func HotTokens(records []domain.TokenRecord, n int) []domain.TokenRecord {
	filtered := FilterTokens(records, TokenFilter{ActiveOnly: true})
	SortTokens(filtered, SortByHotScore)
	return TopN(filtered, n)
}
