package wallets

import (
	"testing"

	"contest-dashboard/internal/domain"
)

func TestHistory_AppendKeepsAscendingOrder(t *testing.T) {
	h := NewHistory(10)

	h.Append("w1", domain.BalancePoint{TimestampMs: 100, Lamports: 1_000_000_000})
	h.Append("w1", domain.BalancePoint{TimestampMs: 200, Lamports: 2_000_000_000})

	// Stale and duplicate timestamps are dropped
	h.Append("w1", domain.BalancePoint{TimestampMs: 200, Lamports: 9_000_000_000})
	h.Append("w1", domain.BalancePoint{TimestampMs: 150, Lamports: 9_000_000_000})

	points := h.Points("w1")
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].TimestampMs != 100 || points[1].TimestampMs != 200 {
		t.Errorf("timestamps = %d, %d, want 100, 200", points[0].TimestampMs, points[1].TimestampMs)
	}
	if points[1].Lamports != 2_000_000_000 {
		t.Errorf("stale point overwrote newer data: %d", points[1].Lamports)
	}
}

func TestHistory_AppendDerivesSOL(t *testing.T) {
	h := NewHistory(10)

	// Caller-supplied SOL is ignored; lamports is the source of truth
	h.Append("w1", domain.BalancePoint{TimestampMs: 100, Lamports: 2_500_000_000, SOL: 999})

	points := h.Points("w1")
	if points[0].SOL != 2.5 {
		t.Errorf("SOL = %v, want 2.5 derived from lamports", points[0].SOL)
	}
}

func TestHistory_WindowCap(t *testing.T) {
	h := NewHistory(3)

	for i := int64(1); i <= 5; i++ {
		h.Append("w1", domain.BalancePoint{TimestampMs: i * 100, Lamports: uint64(i)})
	}

	points := h.Points("w1")
	if len(points) != 3 {
		t.Fatalf("len = %d, want window of 3", len(points))
	}
	// Oldest points are evicted first
	if points[0].TimestampMs != 300 || points[2].TimestampMs != 500 {
		t.Errorf("window = [%d..%d], want [300..500]", points[0].TimestampMs, points[2].TimestampMs)
	}
}

func TestHistory_ReplaceSortsAndDedupes(t *testing.T) {
	h := NewHistory(10)
	h.Append("w1", domain.BalancePoint{TimestampMs: 1, Lamports: 1})

	h.Replace("w1", []domain.BalancePoint{
		{TimestampMs: 300, Lamports: 3_000_000_000},
		{TimestampMs: 100, Lamports: 1_000_000_000},
		{TimestampMs: 300, Lamports: 9_000_000_000},
		{TimestampMs: 200, Lamports: 2_000_000_000},
	})

	points := h.Points("w1")
	if len(points) != 3 {
		t.Fatalf("len = %d, want 3 after dedupe", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].TimestampMs <= points[i-1].TimestampMs {
			t.Fatalf("series not strictly ascending: %v", points)
		}
	}
	// First occurrence wins on duplicate timestamps
	if points[2].Lamports != 3_000_000_000 {
		t.Errorf("duplicate handling: lamports = %d, want 3000000000", points[2].Lamports)
	}
	if points[0].SOL != 1.0 {
		t.Errorf("SOL not rederived: %v", points[0].SOL)
	}
}

func TestHistory_ReplaceCapsWindow(t *testing.T) {
	h := NewHistory(2)

	h.Replace("w1", []domain.BalancePoint{
		{TimestampMs: 100, Lamports: 1},
		{TimestampMs: 200, Lamports: 2},
		{TimestampMs: 300, Lamports: 3},
	})

	points := h.Points("w1")
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].TimestampMs != 200 {
		t.Errorf("kept oldest instead of most recent window: %v", points)
	}
}

func TestHistory_Range(t *testing.T) {
	h := NewHistory(10)
	for i := int64(1); i <= 5; i++ {
		h.Append("w1", domain.BalancePoint{TimestampMs: i * 100, Lamports: uint64(i)})
	}

	got := h.Range("w1", 200, 400)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (inclusive bounds)", len(got))
	}
	if got[0].TimestampMs != 200 || got[2].TimestampMs != 400 {
		t.Errorf("range = [%d..%d], want [200..400]", got[0].TimestampMs, got[2].TimestampMs)
	}
}

func TestHistory_IsolatesWallets(t *testing.T) {
	h := NewHistory(10)
	h.Append("w1", domain.BalancePoint{TimestampMs: 100, Lamports: 1})
	h.Append("w2", domain.BalancePoint{TimestampMs: 100, Lamports: 2})

	if len(h.Points("w1")) != 1 || len(h.Points("w2")) != 1 {
		t.Error("series should be independent per wallet")
	}
	if len(h.Wallets()) != 2 {
		t.Errorf("Wallets() = %v, want 2 entries", h.Wallets())
	}
}

func TestHistory_PointsIsACopy(t *testing.T) {
	h := NewHistory(10)
	h.Append("w1", domain.BalancePoint{TimestampMs: 100, Lamports: 1_000_000_000})

	points := h.Points("w1")
	points[0].Lamports = 0

	if h.Points("w1")[0].Lamports != 1_000_000_000 {
		t.Error("mutating returned slice leaked into history")
	}
}
