package domain

// LamportsPerSOL is the lamport denomination of one SOL.
const LamportsPerSOL = 1_000_000_000

// WalletBalance is the current balance of a monitored wallet.
// Keyed by wallet address. SOL is always derived from lamports and is
// never an independent source of truth.
type WalletBalance struct {
	Address   string `json:"address"`            // wallet address, unique key
	Lamports  uint64 `json:"lamports"`           // raw balance
	UpdatedAt int64  `json:"updated_at"`         // last refresh timestamp (ms)
	Nickname  string `json:"nickname,omitempty"` // optional display name
	Username  string `json:"username,omitempty"` // optional platform username
	Role      string `json:"role,omitempty"`     // optional platform role
}

// SOL returns the balance in SOL, derived from lamports.
func (w WalletBalance) SOL() float64 {
	return float64(w.Lamports) / float64(LamportsPerSOL)
}

// BalanceTier classifies a SOL balance by magnitude.
type BalanceTier string

// Balance tiers in ascending order. Ranges are half-open: a boundary value
// belongs to the higher tier (0.1 is Small, 100 is Whale).
const (
	TierZero   BalanceTier = "Zero"   // exactly 0
	TierMicro  BalanceTier = "Micro"  // (0, 0.1)
	TierSmall  BalanceTier = "Small"  // [0.1, 1)
	TierMedium BalanceTier = "Medium" // [1, 10)
	TierLarge  BalanceTier = "Large"  // [10, 100)
	TierWhale  BalanceTier = "Whale"  // [100, inf)
)

// Tiers lists all balance tiers in ascending order.
var Tiers = []BalanceTier{TierZero, TierMicro, TierSmall, TierMedium, TierLarge, TierWhale}
