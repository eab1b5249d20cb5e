package domain

// TokenRecord is the canonical view of a tracked token.
// Records are keyed by contract address; the address uniquely determines
// a record and updates merge into the existing entry.
type TokenRecord struct {
	Address   string   `json:"address"`             // contract address, unique key
	Symbol    string   `json:"symbol"`              // ticker symbol
	Name      string   `json:"name"`                // display name
	Price     float64  `json:"price"`               // latest price
	MarketCap float64  `json:"market_cap"`          // market capitalization
	Volume24h float64  `json:"volume_24h"`          // trailing 24h volume
	Change24h float64  `json:"change_24h"`          // 24h price change, percent
	Liquidity *float64 `json:"liquidity,omitempty"` // pool liquidity (nullable)
	ImageURL  string   `json:"image_url,omitempty"` // logo URL (optional)
	Active    bool     `json:"active"`              // listing status
	UpdatedAt int64    `json:"updated_at"`          // last merge timestamp (ms)
}

// TokenPatch is a partial update for a single token. Fields are pointers
// so that absent values can be distinguished from zero values when merging.
type TokenPatch struct {
	Address   string   `json:"address,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	MarketCap *float64 `json:"market_cap,omitempty"`
	Volume24h *float64 `json:"volume_24h,omitempty"`
	Change24h *float64 `json:"change_24h,omitempty"`
	Liquidity *float64 `json:"liquidity,omitempty"`
	ImageURL  *string  `json:"image_url,omitempty"`
	Active    *bool    `json:"active,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}
