// Package tokendata maintains the canonical in-memory token index.
// Heterogeneous payload shapes (bulk lists, single-record patches) are
// normalized into one map keyed by contract address.
package tokendata

import (
	"errors"
	"sync"
	"time"

	"contest-dashboard/internal/domain"
)

// Normalization errors.
var (
	// ErrIncompletePatch is returned for patches carrying neither price
	// nor name. Accepting them would pollute the index with empty shells.
	ErrIncompletePatch = errors.New("patch missing both price and name")

	// ErrUnresolvedPatch is returned when a patch has no address and its
	// symbol does not match any known entry.
	ErrUnresolvedPatch = errors.New("patch does not resolve to a known token")
)

// Book is the canonical token index. Entries merge; they are never
// silently dropped except by an explicit full replace.
type Book struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.TokenRecord
	bySymbol  map[string]string // symbol -> address, for patches without an address
}

// NewBook creates an empty token index.
func NewBook() *Book {
	return &Book{
		byAddress: make(map[string]*domain.TokenRecord),
		bySymbol:  make(map[string]string),
	}
}

// ApplyFull replaces the entire index with the payload. After the call the
// key set equals exactly the set of addresses present in records.
func (b *Book) ApplyFull(records []domain.TokenRecord) {
	byAddress := make(map[string]*domain.TokenRecord, len(records))
	bySymbol := make(map[string]string, len(records))

	for i := range records {
		rec := records[i]
		if rec.Address == "" {
			continue
		}
		if existing, ok := byAddress[rec.Address]; ok {
			// Duplicate address within one payload: later entry wins
			*existing = rec
			continue
		}
		byAddress[rec.Address] = &rec
		if rec.Symbol != "" {
			bySymbol[rec.Symbol] = rec.Address
		}
	}

	b.mu.Lock()
	b.byAddress = byAddress
	b.bySymbol = bySymbol
	b.mu.Unlock()
}

// ApplyPatch merges a single-record patch into the index. Patches carrying
// neither price nor name are rejected and the index is left unchanged.
// A patch without an address is resolved by symbol against existing
// entries before giving up.
func (b *Book) ApplyPatch(p domain.TokenPatch) error {
	if p.Price == nil && p.Name == nil {
		return ErrIncompletePatch
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	addr := p.Address
	if addr == "" {
		if p.Symbol == "" {
			return ErrUnresolvedPatch
		}
		resolved, ok := b.bySymbol[p.Symbol]
		if !ok {
			return ErrUnresolvedPatch
		}
		addr = resolved
	}

	rec, exists := b.byAddress[addr]
	if !exists {
		rec = &domain.TokenRecord{
			Address: addr,
			Active:  true,
		}
		b.byAddress[addr] = rec
	}

	if p.Symbol != "" {
		if rec.Symbol != "" && rec.Symbol != p.Symbol {
			delete(b.bySymbol, rec.Symbol)
		}
		rec.Symbol = p.Symbol
		b.bySymbol[p.Symbol] = addr
	}
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Price != nil {
		rec.Price = *p.Price
	}
	if p.MarketCap != nil {
		rec.MarketCap = *p.MarketCap
	}
	if p.Volume24h != nil {
		rec.Volume24h = *p.Volume24h
	}
	if p.Change24h != nil {
		rec.Change24h = *p.Change24h
	}
	if p.Liquidity != nil {
		liq := *p.Liquidity
		rec.Liquidity = &liq
	}
	if p.ImageURL != nil {
		rec.ImageURL = *p.ImageURL
	}
	if p.Active != nil {
		rec.Active = *p.Active
	}

	if p.Timestamp > 0 {
		rec.UpdatedAt = p.Timestamp
	} else {
		rec.UpdatedAt = time.Now().UnixMilli()
	}

	return nil
}

// Get returns a copy of the record for an address.
func (b *Book) Get(address string) (domain.TokenRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.byAddress[address]
	if !ok {
		return domain.TokenRecord{}, false
	}
	return *rec, true
}

// GetBySymbol returns a copy of the record matching a symbol.
func (b *Book) GetBySymbol(symbol string) (domain.TokenRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	addr, ok := b.bySymbol[symbol]
	if !ok {
		return domain.TokenRecord{}, false
	}
	rec, ok := b.byAddress[addr]
	if !ok {
		return domain.TokenRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of all records for the selector layer.
func (b *Book) Snapshot() []domain.TokenRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	records := make([]domain.TokenRecord, 0, len(b.byAddress))
	for _, rec := range b.byAddress {
		records = append(records, *rec)
	}
	return records
}

// Len returns the number of indexed tokens.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byAddress)
}
