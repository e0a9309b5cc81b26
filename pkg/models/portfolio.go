package models

import "time"

// PortfolioPosition is a holding owned by the host application.
type PortfolioPosition struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// PositionValue is a position valued at the latest quote.
type PositionValue struct {
	PortfolioPosition
	Price       float64 `json:"price"`
	MarketValue float64 `json:"marketValue"`
	DayChange   float64 `json:"dayChange"`
	Priced      bool    `json:"priced"` // false when no quote was available
}

// PortfolioSnapshot is a valuation of every position at one point in time.
type PortfolioSnapshot struct {
	Positions  []PositionValue `json:"positions"`
	TotalValue float64         `json:"totalValue"`
	DayChange  float64         `json:"dayChange"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
