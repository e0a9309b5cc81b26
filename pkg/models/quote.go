// Package models defines the core data structures used throughout MarketPulse.
package models

import (
	"time"

	"github.com/seenimoa/marketpulse/pkg/utils"
)

// Quote is a single symbol's latest price/change snapshot. Quotes are
// immutable and replaced wholesale on every refresh.
type Quote struct {
	Symbol         string    `json:"symbol"`         // display symbol, uppercased (e.g. "AAPL", "SPX")
	DisplayName    string    `json:"displayName"`    // e.g. "S&P 500"
	Price          string    `json:"price"`          // e.g. "5,123.40"
	AbsoluteChange string    `json:"absoluteChange"` // e.g. "+12.30"
	PercentChange  string    `json:"percentChange"`  // e.g. "+0.24%"
	IsPositive     bool      `json:"isPositive"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// NewQuote builds a Quote from raw numbers. IsPositive is derived from the
// rounded absolute change so it always agrees with AbsoluteChange.
func NewQuote(symbol, name string, price, change, changePct float64, at time.Time) Quote {
	abs, positive := utils.SignedDecimal(change, 2)
	return Quote{
		Symbol:         symbol,
		DisplayName:    name,
		Price:          utils.FormatPrice(price),
		AbsoluteChange: abs,
		PercentChange:  utils.FormatSignedPercent(changePct),
		IsPositive:     positive,
		LastUpdated:    at,
	}
}

// PriceValue returns the numeric price.
func (q Quote) PriceValue() float64 { return utils.MustNumber(q.Price) }

// ChangeValue returns the numeric absolute change.
func (q Quote) ChangeValue() float64 { return utils.MustNumber(q.AbsoluteChange) }

// PercentValue returns the numeric percent change (1.5 for "+1.50%").
func (q Quote) PercentValue() float64 { return utils.MustNumber(q.PercentChange) }

// PreviousClose derives the prior close from price and absolute change.
func (q Quote) PreviousClose() float64 { return q.PriceValue() - q.ChangeValue() }

// Source identifies where a piece of data was served from.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// QuoteCacheEntry is a fetched quote plus the time it was fetched.
type QuoteCacheEntry struct {
	Quote     Quote     `json:"quote"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e QuoteCacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}
