package models

// QuoteResult is the answer to a quote request: quotes in request order
// (missing symbols omitted) plus the endpoints that served them.
type QuoteResult struct {
	Data    []Quote  `json:"data"`
	Sources []Source `json:"sources"`
}

// HistoryResult is a history series plus the endpoint that served it.
type HistoryResult struct {
	History []HistoryPoint `json:"history"`
	Sources []Source       `json:"sources"`
}

// NewsResult is a merged news list plus the feeds that served it.
type NewsResult struct {
	News    []NewsItem `json:"news"`
	Sources []Source   `json:"sources"`
}
