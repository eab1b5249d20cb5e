// Package mintcache memoizes mint-address validation. Decoding and curve
// checks are cheap individually but the dashboard re-validates the same
// external identifiers constantly, so results are kept in a bounded LRU.
// The cache is plain state owned by whoever constructs it; there is no
// package-level instance.
package mintcache

import (
	"container/list"
	"sync"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// DefaultCapacity bounds the cache when no capacity is given.
const DefaultCapacity = 4096

// Result is the memoized outcome of validating one address.
type Result struct {
	// Valid reports that the address decodes to a 32-byte public key.
	Valid bool
	// OnCurve reports that the key is a valid ed25519 curve point
	// (a wallet address rather than a program-derived address).
	OnCurve bool
}

// Cache is a bounded LRU of address validation results.
type Cache struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List
	items map[string]*list.Element
}

type entry struct {
	key string
	res Result
}

// New creates a cache. A non-positive capacity falls back to
// DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Validate returns the validation result for an address, computing and
// caching it on first sight. The least recently used entry is evicted
// when the cache is full.
func (c *Cache) Validate(addr string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[addr]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry).res
	}

	res := validate(addr)

	el := c.ll.PushFront(&entry{key: addr, res: res})
	c.items[addr] = el

	if c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}

	return res
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// validate decodes and checks one address.
func validate(addr string) Result {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return Result{}
	}

	_, curveErr := new(edwards25519.Point).SetBytes(decoded)
	return Result{
		Valid:   true,
		OnCurve: curveErr == nil,
	}
}
