package views

import (
	"math"
	"sort"

	"contest-dashboard/internal/domain"
)

// RankedBalance is a wallet balance with its percentile standing among
// the current result set, 0 (lowest) to 100 (highest).
type RankedBalance struct {
	domain.WalletBalance
	SOL        float64 `json:"sol"`
	Percentile int     `json:"percentile"`
}

// RankBalances sorts wallets ascending by balance and assigns percentile
// ranks: round(index / (n-1) * 100). Ties keep stable-sort order; exact
// percentile ties are rare and not specially handled. A single-element
// set ranks 100 (it is its own maximum).
func RankBalances(wallets []domain.WalletBalance) []RankedBalance {
	n := len(wallets)
	if n == 0 {
		return nil
	}

	sorted := make([]domain.WalletBalance, n)
	copy(sorted, wallets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Lamports < sorted[j].Lamports
	})

	ranked := make([]RankedBalance, n)
	for i, w := range sorted {
		pct := 100
		if n > 1 {
			pct = int(math.Round(float64(i) / float64(n-1) * 100))
		}
		ranked[i] = RankedBalance{
			WalletBalance: w,
			SOL:           w.SOL(),
			Percentile:    pct,
		}
	}
	return ranked
}

// TierOf assigns a SOL balance to its tier: a linear scan over the fixed
// half-open ranges in ascending order, first match wins.
func TierOf(sol float64) domain.BalanceTier {
	switch {
	case sol == 0:
		return domain.TierZero
	case sol < 0.1:
		return domain.TierMicro
	case sol < 1:
		return domain.TierSmall
	case sol < 10:
		return domain.TierMedium
	case sol < 100:
		return domain.TierLarge
	default:
		return domain.TierWhale
	}
}

// TierBucket is one row of the balance distribution panel.
type TierBucket struct {
	Tier     domain.BalanceTier `json:"tier"`
	Count    int                `json:"count"`
	TotalSOL float64            `json:"total_sol"`
}

// TierDistribution buckets wallets into the six fixed tiers. All tiers
// are present in ascending order, empty ones with zero counts.
func TierDistribution(wallets []domain.WalletBalance) []TierBucket {
	byTier := make(map[domain.BalanceTier]*TierBucket, len(domain.Tiers))
	buckets := make([]TierBucket, len(domain.Tiers))
	for i, tier := range domain.Tiers {
		buckets[i] = TierBucket{Tier: tier}
		byTier[tier] = &buckets[i]
	}

	for _, w := range wallets {
		sol := w.SOL()
		bucket := byTier[TierOf(sol)]
		bucket.Count++
		bucket.TotalSOL += sol
	}
	return buckets
}

// TopWallets returns the n highest balances, descending.
func TopWallets(wallets []domain.WalletBalance, n int) []domain.WalletBalance {
	sorted := make([]domain.WalletBalance, len(wallets))
	copy(sorted, wallets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Lamports > sorted[j].Lamports
	})

	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	return sorted[:n]
}
