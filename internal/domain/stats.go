package domain

// WinnerShare is the fraction of total revenue paid out to contest winners.
// The remaining share goes to holder dividends, which are reported by the
// platform as an independent figure and are not reconciled against this
// constant (see views.RenderPlatformStats).
const WinnerShare = 0.90

// PlatformStats is the platform-wide statistics payload.
type PlatformStats struct {
	TotalUsers      int     `json:"total_users"`
	TotalContests   int     `json:"total_contests"`
	TotalVolumeSOL  float64 `json:"total_volume_sol"`
	TotalRevenueSOL float64 `json:"total_revenue_sol"`
	// HolderDividendsSOL is supplied independently by the platform and may
	// not equal the implied (1 - WinnerShare) slice of revenue.
	HolderDividendsSOL float64 `json:"holder_dividends_sol"`
	UpdatedAt          int64   `json:"updated_at"`
}

// ContestMetrics summarizes a single contest.
type ContestMetrics struct {
	ContestID    string  `json:"contest_id"`
	Participants int     `json:"participants"`
	PrizePoolSOL float64 `json:"prize_pool_sol"`
	StartsAt     int64   `json:"starts_at"`
	EndsAt       int64   `json:"ends_at"`
	Status       string  `json:"status"`
}
