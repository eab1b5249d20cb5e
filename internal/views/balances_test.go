package views

import (
	"testing"

	"contest-dashboard/internal/domain"
)

func sol(v float64) uint64 {
	return uint64(v * float64(domain.LamportsPerSOL))
}

func TestRankBalances_Endpoints(t *testing.T) {
	wallets := []domain.WalletBalance{
		{Address: "w3", Lamports: sol(3)},
		{Address: "w1", Lamports: sol(1)},
		{Address: "w5", Lamports: sol(5)},
		{Address: "w2", Lamports: sol(2)},
		{Address: "w4", Lamports: sol(4)},
	}

	ranked := RankBalances(wallets)
	if len(ranked) != 5 {
		t.Fatalf("len = %d, want 5", len(ranked))
	}

	// Sorted ascending: lowest ranks 0, highest ranks 100
	if ranked[0].Address != "w1" || ranked[0].Percentile != 0 {
		t.Errorf("lowest = %s pct %d, want w1 pct 0", ranked[0].Address, ranked[0].Percentile)
	}
	if ranked[4].Address != "w5" || ranked[4].Percentile != 100 {
		t.Errorf("highest = %s pct %d, want w5 pct 100", ranked[4].Address, ranked[4].Percentile)
	}
	// Middle of 5 is exactly 50
	if ranked[2].Percentile != 50 {
		t.Errorf("middle pct = %d, want 50", ranked[2].Percentile)
	}
}

func TestRankBalances_SingleWallet(t *testing.T) {
	ranked := RankBalances([]domain.WalletBalance{{Address: "w1", Lamports: sol(1)}})
	if len(ranked) != 1 || ranked[0].Percentile != 100 {
		t.Fatalf("single wallet = %+v, want percentile 100", ranked)
	}
}

func TestRankBalances_Empty(t *testing.T) {
	if got := RankBalances(nil); got != nil {
		t.Errorf("RankBalances(nil) = %v, want nil", got)
	}
}

func TestRankBalances_DerivesSOL(t *testing.T) {
	ranked := RankBalances([]domain.WalletBalance{{Address: "w1", Lamports: 2_500_000_000}})
	if ranked[0].SOL != 2.5 {
		t.Errorf("SOL = %v, want 2.5", ranked[0].SOL)
	}
}

func TestTierOf_Boundaries(t *testing.T) {
	cases := []struct {
		sol  float64
		want domain.BalanceTier
	}{
		{0, domain.TierZero},
		{0.0001, domain.TierMicro},
		{0.0999, domain.TierMicro},
		{0.1, domain.TierSmall}, // boundary belongs to the higher tier
		{0.9999, domain.TierSmall},
		{1, domain.TierMedium},
		{9.9999, domain.TierMedium},
		{10, domain.TierLarge},
		{99.9999, domain.TierLarge},
		{100, domain.TierWhale},
		{12345, domain.TierWhale},
	}

	for _, tc := range cases {
		if got := TierOf(tc.sol); got != tc.want {
			t.Errorf("TierOf(%v) = %s, want %s", tc.sol, got, tc.want)
		}
	}
}

func TestTierDistribution_AllTiersPresent(t *testing.T) {
	wallets := []domain.WalletBalance{
		{Address: "w1", Lamports: 0},
		{Address: "w2", Lamports: sol(0.5)},
		{Address: "w3", Lamports: sol(0.25)},
		{Address: "w4", Lamports: sol(150)},
	}

	buckets := TierDistribution(wallets)
	if len(buckets) != len(domain.Tiers) {
		t.Fatalf("len = %d, want %d (all tiers present)", len(buckets), len(domain.Tiers))
	}

	byTier := make(map[domain.BalanceTier]TierBucket)
	for i, b := range buckets {
		if b.Tier != domain.Tiers[i] {
			t.Errorf("bucket %d tier = %s, want %s (ascending order)", i, b.Tier, domain.Tiers[i])
		}
		byTier[b.Tier] = b
	}

	if byTier[domain.TierZero].Count != 1 {
		t.Errorf("Zero count = %d, want 1", byTier[domain.TierZero].Count)
	}
	if byTier[domain.TierSmall].Count != 2 {
		t.Errorf("Small count = %d, want 2", byTier[domain.TierSmall].Count)
	}
	if byTier[domain.TierSmall].TotalSOL != 0.75 {
		t.Errorf("Small total = %v, want 0.75", byTier[domain.TierSmall].TotalSOL)
	}
	if byTier[domain.TierWhale].Count != 1 {
		t.Errorf("Whale count = %d, want 1", byTier[domain.TierWhale].Count)
	}
	// Empty tiers report zero, they are not omitted
	if byTier[domain.TierMicro].Count != 0 || byTier[domain.TierMedium].Count != 0 {
		t.Error("empty tiers should report zero counts")
	}
}

func TestTopWallets(t *testing.T) {
	wallets := []domain.WalletBalance{
		{Address: "w1", Lamports: sol(1)},
		{Address: "w3", Lamports: sol(3)},
		{Address: "w2", Lamports: sol(2)},
	}

	got := TopWallets(wallets, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Address != "w3" || got[1].Address != "w2" {
		t.Errorf("order = %s, %s, want w3, w2", got[0].Address, got[1].Address)
	}

	// Input order untouched
	if wallets[0].Address != "w1" {
		t.Error("TopWallets must not mutate its input")
	}
}
