package tokendata

import (
	"errors"
	"testing"

	"contest-dashboard/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func TestBook_ApplyFull_KeySetMatchesPayload(t *testing.T) {
	book := NewBook()

	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "AAA", Price: 1.0},
		{Address: "addr2", Symbol: "BBB", Price: 2.0},
		{Address: "addr3", Symbol: "CCC", Price: 3.0},
	})

	if book.Len() != 3 {
		t.Fatalf("Len = %d, want 3", book.Len())
	}

	// A second full payload replaces the index entirely, including removal
	// of entries absent from the new payload
	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr2", Symbol: "BBB", Price: 2.5},
		{Address: "addr4", Symbol: "DDD", Price: 4.0},
	})

	if book.Len() != 2 {
		t.Fatalf("Len after replace = %d, want 2", book.Len())
	}
	if _, ok := book.Get("addr1"); ok {
		t.Error("addr1 should be gone after full replace")
	}
	if _, ok := book.Get("addr3"); ok {
		t.Error("addr3 should be gone after full replace")
	}
	got, ok := book.Get("addr2")
	if !ok {
		t.Fatal("addr2 missing after full replace")
	}
	if got.Price != 2.5 {
		t.Errorf("addr2 price = %v, want 2.5", got.Price)
	}
}

func TestBook_ApplyFull_DuplicateAddressLaterWins(t *testing.T) {
	book := NewBook()

	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "AAA", Price: 1.0},
		{Address: "addr1", Symbol: "AAA", Price: 9.0},
	})

	if book.Len() != 1 {
		t.Fatalf("Len = %d, want 1", book.Len())
	}
	got, _ := book.Get("addr1")
	if got.Price != 9.0 {
		t.Errorf("price = %v, want 9.0 (later duplicate wins)", got.Price)
	}
}

func TestBook_ApplyPatch_MergesIntoExisting(t *testing.T) {
	book := NewBook()
	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "AAA", Name: "Alpha", Price: 1.0, MarketCap: 100, Active: true},
	})

	err := book.ApplyPatch(domain.TokenPatch{
		Address:   "addr1",
		Price:     ptr(2.0),
		Volume24h: ptr(500.0),
		Timestamp: 1700000000000,
	})
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}

	got, _ := book.Get("addr1")
	if got.Price != 2.0 {
		t.Errorf("price = %v, want 2.0", got.Price)
	}
	if got.Volume24h != 500.0 {
		t.Errorf("volume = %v, want 500.0", got.Volume24h)
	}
	// Untouched fields survive the merge
	if got.Name != "Alpha" {
		t.Errorf("name = %q, want Alpha", got.Name)
	}
	if got.MarketCap != 100 {
		t.Errorf("market cap = %v, want 100", got.MarketCap)
	}
	if got.UpdatedAt != 1700000000000 {
		t.Errorf("updated at = %d, want patch timestamp", got.UpdatedAt)
	}
}

func TestBook_ApplyPatch_IncompleteLeavesBookUnchanged(t *testing.T) {
	book := NewBook()
	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "AAA", Price: 1.0},
	})

	before, _ := book.Get("addr1")

	// Neither price nor name: rejected outright
	err := book.ApplyPatch(domain.TokenPatch{
		Address:   "addr1",
		Volume24h: ptr(999.0),
	})
	if !errors.Is(err, ErrIncompletePatch) {
		t.Fatalf("expected ErrIncompletePatch, got %v", err)
	}

	after, _ := book.Get("addr1")
	if after != before {
		t.Errorf("record changed by rejected patch: %+v -> %+v", before, after)
	}
	if book.Len() != 1 {
		t.Errorf("Len = %d, want 1", book.Len())
	}
}

func TestBook_ApplyPatch_SymbolFallbackResolution(t *testing.T) {
	book := NewBook()
	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "AAA", Price: 1.0},
	})

	err := book.ApplyPatch(domain.TokenPatch{
		Symbol: "AAA",
		Price:  ptr(3.0),
	})
	if err != nil {
		t.Fatalf("ApplyPatch by symbol failed: %v", err)
	}

	got, _ := book.Get("addr1")
	if got.Price != 3.0 {
		t.Errorf("price = %v, want 3.0", got.Price)
	}
}

func TestBook_ApplyPatch_UnresolvedSymbol(t *testing.T) {
	book := NewBook()

	err := book.ApplyPatch(domain.TokenPatch{
		Symbol: "ZZZ",
		Price:  ptr(1.0),
	})
	if !errors.Is(err, ErrUnresolvedPatch) {
		t.Fatalf("expected ErrUnresolvedPatch, got %v", err)
	}
	if book.Len() != 0 {
		t.Errorf("Len = %d, want 0", book.Len())
	}
}

func TestBook_ApplyPatch_SynthesizesUnknownAddress(t *testing.T) {
	book := NewBook()

	err := book.ApplyPatch(domain.TokenPatch{
		Address: "addr-new",
		Symbol:  "NEW",
		Price:   ptr(0.5),
	})
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}

	got, ok := book.Get("addr-new")
	if !ok {
		t.Fatal("synthesized record missing")
	}
	if !got.Active {
		t.Error("synthesized record should default to active")
	}
	if got.Price != 0.5 {
		t.Errorf("price = %v, want 0.5", got.Price)
	}

	// Symbol index picks up the new entry
	bySym, ok := book.GetBySymbol("NEW")
	if !ok || bySym.Address != "addr-new" {
		t.Errorf("GetBySymbol(NEW) = %+v, %v", bySym, ok)
	}
}

func TestBook_ApplyPatch_SymbolChangeUpdatesIndex(t *testing.T) {
	book := NewBook()
	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "OLD", Price: 1.0},
	})

	err := book.ApplyPatch(domain.TokenPatch{
		Address: "addr1",
		Symbol:  "RENAMED",
		Price:   ptr(1.1),
	})
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}

	if _, ok := book.GetBySymbol("OLD"); ok {
		t.Error("old symbol should no longer resolve")
	}
	got, ok := book.GetBySymbol("RENAMED")
	if !ok || got.Address != "addr1" {
		t.Errorf("GetBySymbol(RENAMED) = %+v, %v", got, ok)
	}
}

func TestBook_SnapshotIsACopy(t *testing.T) {
	book := NewBook()
	book.ApplyFull([]domain.TokenRecord{
		{Address: "addr1", Symbol: "AAA", Price: 1.0},
	})

	snap := book.Snapshot()
	snap[0].Price = 42.0

	got, _ := book.Get("addr1")
	if got.Price != 1.0 {
		t.Errorf("mutating snapshot leaked into book: price = %v", got.Price)
	}
}
