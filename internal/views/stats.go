package views

import "contest-dashboard/internal/domain"

// PlatformStatsView is the rendered platform statistics panel.
type PlatformStatsView struct {
	domain.PlatformStats
	// WinnerPayoutSOL is the fixed 90% share of total revenue.
	WinnerPayoutSOL float64 `json:"winner_payout_sol"`
}

// RenderPlatformStats derives the winner payout from total revenue using
// the fixed split. HolderDividendsSOL is passed through exactly as the
// platform reported it and is NOT reconciled against the implied 10%
// share; the two figures come from independent sources.
func RenderPlatformStats(s domain.PlatformStats) PlatformStatsView {
	return PlatformStatsView{
		PlatformStats:   s,
		WinnerPayoutSOL: s.TotalRevenueSOL * domain.WinnerShare,
	}
}
